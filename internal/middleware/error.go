package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/pkg/apperror"
)

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler converts errors pushed onto the gin context into responses.
// Internal errors are logged with detail but answered with a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		lastErr := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "internal server error"
		field := ""

		var appErr *apperror.Error
		if errors.As(lastErr, &appErr) {
			status = appErr.StatusCode()
			field = appErr.Field
			if appErr.Kind != apperror.KindInternal {
				message = appErr.Message
			}
		}

		c.JSON(status, ErrorResponse{
			Code:      status,
			Message:   message,
			Field:     field,
			RequestID: requestID,
		})
	}
}
