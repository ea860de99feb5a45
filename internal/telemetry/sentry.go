// Package telemetry wires Sentry tracing and error capture.
package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/getsentry/sentry-go"
)

const (
	serviceName  = "quizgen"
	flushTimeout = 5 * time.Second
)

type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns a flush function.
// An empty DSN or a failed init leaves tracing disabled; spans are then
// created but never sent.
func Init(cfg Config, log *logger.Logger) (func(), error) {
	log = logger.OrNop(log)
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 0.2
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			return sampleRate(ctx.Span, cfg.TracesSampleRate)
		}),
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if hint != nil && isCancellation(hint.OriginalException) {
				return nil
			}
			return event
		},
	})
	if err != nil {
		log.Warn("sentry init failed, continuing without tracing", "error", err)
		return func() {}, nil
	}

	log.Info("sentry tracing initialized", "environment", cfg.Environment, "sample_rate", cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampleRate never samples health probes and keeps child spans consistent
// with their parent.
func sampleRate(span *sentry.Span, rate float64) float64 {
	if span == nil {
		return rate
	}
	if strings.HasSuffix(span.Name, " /health") {
		return 0
	}
	var emptySpanID sentry.SpanID
	if span.ParentSpanID != emptySpanID {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return rate
}

// A client that hangs up mid-generation is not an error worth reporting.
func isCancellation(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

type SpanAttributes struct {
	ProjectID string
	TaskID    string
	Document  string
	Operation string
}

type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

func (s *Span) SetData(key string, value interface{}) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span failed and reports err. Cancellations only change
// the span status.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	if isCancellation(err) {
		s.inner.Status = sentry.SpanStatusCanceled
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// ctx carries none (background tasks).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name), sentry.WithTransactionSource(sentry.SourceTask))
	}

	if attrs.ProjectID != "" {
		span.SetTag("project_id", attrs.ProjectID)
	}
	if attrs.TaskID != "" {
		span.SetTag("task_id", attrs.TaskID)
	}
	if attrs.Document != "" {
		span.SetTag("document", attrs.Document)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

func CaptureError(ctx context.Context, err error) {
	if err == nil || isCancellation(err) {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
