// Package telemetry wraps sentry-go tracing for the service layer.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serverName   = "pulsedoc"
	flushTimeout = 5 * time.Second
)

// unsampledTransactions are never traced regardless of the sample rate.
var unsampledTransactions = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns a flush func.
// An empty DSN disables Sentry and the returned func does nothing. A
// client that fails to initialize is logged and treated the same way.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		slog.Warn("sentry init failed, continuing without tracing", "error", err)
		return noop, nil
	}

	slog.Info("sentry tracing initialized", "environment", cfg.Environment, "sample_rate", cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if unsampledTransactions[ctx.Span.Name] {
			return 0
		}
		// Children inherit the parent's decision.
		if ctx.Span.ParentSpanID != (sentry.SpanID{}) {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags attached to service spans. Zero values are
// skipped.
type SpanAttributes struct {
	TenantID    string
	EntityID    int64
	DisplayName string
	DocumentID  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.TenantID != "" {
		span.SetTag("tenant_id", a.TenantID)
	}
	if a.EntityID > 0 {
		span.SetTag("entity_id", strconv.FormatInt(a.EntityID, 10))
	}
	if a.DisplayName != "" {
		span.SetData("display_name", a.DisplayName)
	}
	if a.DocumentID != "" {
		span.SetTag("document_id", a.DocumentID)
	}
}

// Span is a nil-safe handle over a sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetStatus sets the span status.
func (s *Span) SetStatus(status sentry.SpanStatus) {
	if s.inner != nil {
		s.inner.Status = status
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// Context returns the span's context.
func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// named after the operation when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// StartTransaction opens a root span for work that doesn't originate from an
// HTTP request, such as background jobs.
func StartTransaction(ctx context.Context, name string, op string) (context.Context, *Span) {
	options := []sentry.SpanOption{sentry.WithTransactionName(name)}
	if op != "" {
		options = append(options, sentry.WithOpName(op))
	}
	span := sentry.StartSpan(ctx, op, options...)
	return span.Context(), &Span{inner: span}
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError reports err on the hub in ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	hubFor(ctx).CaptureException(err)
}

// AddBreadcrumb records an info breadcrumb on the hub in ctx, or the global hub.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
