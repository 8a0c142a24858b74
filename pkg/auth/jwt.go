package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/model"
)

// JWTService issues and parses the bearer credential carrying identity and
// role claims. Signature validation happens here; permission checks do not.
type JWTService interface {
	Generate(userID uuid.UUID, email string, roles []string) (string, time.Time, error)
	Validate(token string) (*model.TokenClaims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	expiry time.Duration
}

func NewJWTService(secret, issuer string, expiry time.Duration) JWTService {
	return &jwtService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

func (s *jwtService) Generate(userID uuid.UUID, email string, roles []string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"roles": roles,
		"iss":   s.issuer,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtService) Validate(tokenString string) (*model.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	email, _ := claims["email"].(string)

	var roles []string
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if name, ok := r.(string); ok {
				roles = append(roles, name)
			}
		}
	}

	return &model.TokenClaims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
	}, nil
}
