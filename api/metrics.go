package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "autoops-api/api"

type taskRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	route          string
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	errorStage     string
}

// newTaskRequestMetrics starts a span for the request and returns the context
// carrying it. The returned metrics must be finalized with Log.
func newTaskRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*taskRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, route)
	return &taskRequestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
	}, spanCtx
}

func (m *taskRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *taskRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and emits one structured line per request.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("tasks.returned", m.tasksReturned),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("error.stage", m.errorStage))
		}
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":          m.route,
		"status":         status,
		"total_ms":       durationToMillis(time.Since(m.start)),
		"tasks_returned": m.tasksReturned,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("tasks.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
