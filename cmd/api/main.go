package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ivyhms/clinic-api/internal/config"
	"github.com/ivyhms/clinic-api/internal/email"
	appointmentHandler "github.com/ivyhms/clinic-api/internal/handler/appointment"
	authHandler "github.com/ivyhms/clinic-api/internal/handler/auth"
	clinicHandler "github.com/ivyhms/clinic-api/internal/handler/clinic"
	doctorHandler "github.com/ivyhms/clinic-api/internal/handler/doctor"
	healthHandler "github.com/ivyhms/clinic-api/internal/handler/health"
	patientHandler "github.com/ivyhms/clinic-api/internal/handler/patient"
	rbacHandler "github.com/ivyhms/clinic-api/internal/handler/rbac"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/repository/postgres"
	"github.com/ivyhms/clinic-api/internal/router"
	appointmentService "github.com/ivyhms/clinic-api/internal/service/appointment"
	authService "github.com/ivyhms/clinic-api/internal/service/auth"
	clinicService "github.com/ivyhms/clinic-api/internal/service/clinic"
	doctorService "github.com/ivyhms/clinic-api/internal/service/doctor"
	notificationService "github.com/ivyhms/clinic-api/internal/service/notification"
	patientService "github.com/ivyhms/clinic-api/internal/service/patient"
	rbacService "github.com/ivyhms/clinic-api/internal/service/rbac"
	"github.com/ivyhms/clinic-api/internal/service/scope"
	"github.com/ivyhms/clinic-api/pkg/auth"
	"github.com/ivyhms/clinic-api/pkg/metrics"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rbacRepo := postgres.NewRBACRepository(db)
	identityStore := postgres.NewIdentityStore(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	emailSvc := email.NewSMTPService(cfg.SMTP)

	scopes := scope.NewResolver(identityStore, clinicRepo)
	rbacSvc := rbacService.NewService(rbacRepo, identityStore)
	notificationSvc := notificationService.NewService(emailSvc, identityStore)
	appointmentSvc := appointmentService.NewService(appointmentRepo, doctorRepo, patientRepo, scopes, notificationSvc)
	patientSvc := patientService.NewService(patientRepo, scopes)
	doctorSvc := doctorService.NewService(doctorRepo, identityStore, rbacSvc)
	clinicSvc := clinicService.NewService(clinicRepo, identityStore, rbacSvc)
	authSvc := authService.NewService(identityStore, patientRepo, jwtSvc, rbacSvc)

	if err := rbacSvc.Seed(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles and permissions")
	}

	m := metrics.NewMetrics("clinic", "api")
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, rbacSvc, m)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		rbacHandler.NewHandler(rbacSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		patientHandler.NewHandler(patientSvc),
		doctorHandler.NewHandler(doctorSvc),
		clinicHandler.NewHandler(clinicSvc),
		healthHandler.NewHandler(db),
		m,
		router.Config{
			RateLimit:  rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:  cfg.Server.RateLimitBurst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
