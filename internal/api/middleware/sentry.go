package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// SentryMiddleware wraps each request in a Sentry transaction named after
// the matched chi route. It is a no-op sink when Sentry is not initialized.
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
		tagRequest(hub, transaction, r)

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = httpStatusToSpanStatus(status)
		transaction.SetData("http.response.status_code", status)
		nameByRoute(hub, transaction, r)

		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("%s: HTTP %d %s", transaction.Name, status, http.StatusText(status)))
		}
	})
}

func tagRequest(hub *sentry.Hub, transaction *sentry.Span, r *http.Request) {
	hub.Scope().SetRequest(r)
	if requestID := GetRequestID(r.Context()); requestID != "" {
		hub.Scope().SetTag("request_id", requestID)
		transaction.SetTag("request_id", requestID)
	}
}

// nameByRoute groups /task-status/{id} and friends under one transaction.
// The pattern is only known after chi has routed the request.
func nameByRoute(hub *sentry.Hub, transaction *sentry.Span, r *http.Request) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		transaction.Name = r.Method + " " + pattern
		transaction.Source = sentry.SourceRoute
	}
	if taskID := rctx.URLParam("id"); taskID != "" {
		hub.Scope().SetTag("task_id", taskID)
		transaction.SetTag("task_id", taskID)
	}
}

func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusBadRequest:
		return sentry.SpanStatusInvalidArgument
	case http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return sentry.SpanStatusFailedPrecondition
	case http.StatusRequestEntityTooLarge:
		return sentry.SpanStatusResourceExhausted
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	}

	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
