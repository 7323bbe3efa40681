package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// spanStatusByCode covers the statuses the API actually emits. Anything else
// falls back to a class-based status.
var spanStatusByCode = map[int]sentry.SpanStatus{
	http.StatusBadRequest:            sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:          sentry.SpanStatusUnauthenticated,
	http.StatusForbidden:             sentry.SpanStatusPermissionDenied,
	http.StatusNotFound:              sentry.SpanStatusNotFound,
	http.StatusConflict:              sentry.SpanStatusAlreadyExists,
	http.StatusRequestEntityTooLarge: sentry.SpanStatusOutOfRange,
	http.StatusUnprocessableEntity:   sentry.SpanStatusFailedPrecondition,
	http.StatusTooManyRequests:       sentry.SpanStatusResourceExhausted,
	http.StatusBadGateway:            sentry.SpanStatusUnavailable,
	http.StatusServiceUnavailable:    sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:        sentry.SpanStatusDeadlineExceeded,
}

// SentryMiddleware opens one transaction per request on a cloned hub and
// reports panics and 5xx responses. The transaction is renamed to the matched
// chi route once routing is done so document ids don't explode cardinality.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		transaction := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer transaction.Finish()

		r = r.WithContext(sentry.SetHubOnContext(transaction.Context(), hub))
		scope := hub.Scope()
		scope.SetRequest(r)
		if requestID := GetRequestID(r.Context()); requestID != "" {
			scope.SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				transaction.Name = r.Method + " " + pattern
				transaction.Source = sentry.SourceRoute
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = spanStatusFor(status)
		transaction.SetData("http.response.status_code", status)

		// Set by the auth middleware further down the chain.
		if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" {
			scope.SetTag("tenant_id", tenantID)
			transaction.SetTag("tenant_id", tenantID)
		}

		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("%s returned %d", transaction.Name, status))
		}
	})
}

func spanStatusFor(status int) sentry.SpanStatus {
	if s, ok := spanStatusByCode[status]; ok {
		return s
	}
	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status < 500:
		return sentry.SpanStatusInvalidArgument
	default:
		return sentry.SpanStatusInternalError
	}
}
