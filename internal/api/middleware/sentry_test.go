package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestSpanStatusFor(t *testing.T) {
	tests := []struct {
		status int
		want   sentry.SpanStatus
	}{
		{http.StatusOK, sentry.SpanStatusOK},
		{http.StatusNoContent, sentry.SpanStatusOK},
		{http.StatusUnauthorized, sentry.SpanStatusUnauthenticated},
		{http.StatusNotFound, sentry.SpanStatusNotFound},
		{http.StatusRequestEntityTooLarge, sentry.SpanStatusOutOfRange},
		{http.StatusUnprocessableEntity, sentry.SpanStatusFailedPrecondition},
		{http.StatusTeapot, sentry.SpanStatusInvalidArgument},
		{http.StatusBadGateway, sentry.SpanStatusUnavailable},
		{http.StatusInternalServerError, sentry.SpanStatusInternalError},
		{http.StatusHTTPVersionNotSupported, sentry.SpanStatusInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, spanStatusFor(tt.status), "status %d", tt.status)
	}
}

func TestSentryMiddleware_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(SentryMiddleware)
	r.Get("/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, sentry.GetHubFromContext(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSentryMiddleware_Repanics(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	})
}
