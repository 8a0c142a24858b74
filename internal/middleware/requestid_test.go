package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestIDPropagatesValidUUID(t *testing.T) {
	r := requestIDRouter()
	want := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderXRequestID, want)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, want, w.Header().Get(HeaderXRequestID))
}

func TestRequestIDReplacesNonUUID(t *testing.T) {
	r := requestIDRouter()

	for _, header := range []string{"", "not-a-uuid", "abc\ndef"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if header != "" {
			req.Header.Set(HeaderXRequestID, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(HeaderXRequestID)
		assert.NotEqual(t, header, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	}
}
