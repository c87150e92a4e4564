package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		query      string
		wantStatus int
	}{
		{"disabled without token", "", "", "", http.StatusOK},
		{"missing token", "s3cret", "", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "Bearer nope", "", http.StatusUnauthorized},
		{"valid bearer", "s3cret", "Bearer s3cret", "", http.StatusOK},
		{"valid query token", "s3cret", "", "s3cret", http.StatusOK},
		{"non bearer scheme", "s3cret", "Basic s3cret", "", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewTokenAuthMiddleware(tc.token).Handler(okHandler())

			target := "/send-message"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"status":"unauthorized"`)
			}
		})
	}
}
