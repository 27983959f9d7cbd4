package consumer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		check    HealthCheck
		status   int
		contains string
	}{
		{name: "no check", status: http.StatusOK, contains: "OK"},
		{
			name:     "healthy",
			check:    func(context.Context) error { return nil },
			status:   http.StatusOK,
			contains: "OK",
		},
		{
			name:     "unhealthy",
			check:    func(context.Context) error { return errors.New("redis down") },
			status:   http.StatusInternalServerError,
			contains: "redis down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewHealthHandler(tt.check).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, recorder.Code)
			assert.Contains(t, recorder.Body.String(), tt.contains)
		})
	}
}
