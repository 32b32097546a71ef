package audit

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// NewOTelLogger returns an AuditLogger that emits auth events as OTel log
// records via the given LoggerProvider. If provider is nil, returns a
// no-op logger.
func NewOTelLogger(provider *sdklog.LoggerProvider) AuditLogger {
	if provider == nil {
		return noopLogger{}
	}
	return &otelLogger{logger: provider.Logger("task-management-api.audit")}
}

type noopLogger struct{}

func (noopLogger) LogEvent(context.Context, string, string, string, string, string) {}

type otelLogger struct {
	logger otellog.Logger
}

func (l *otelLogger) LogEvent(ctx context.Context, userID, action, ip, userAgent, metadata string) {
	rec := otellog.Record{}
	rec.SetTimestamp(time.Now().UTC())
	rec.SetBody(otellog.StringValue(action))
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if ip != "" {
		rec.AddAttributes(otellog.String("ip_address", ip))
	}
	if userAgent != "" {
		rec.AddAttributes(otellog.String("user_agent", userAgent))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	l.logger.Emit(ctx, rec)
}

// MultiLogger fans a single event out to several loggers.
type MultiLogger []AuditLogger

// NewMultiLogger returns an AuditLogger that forwards each event to all
// non-nil loggers in order.
func NewMultiLogger(loggers ...AuditLogger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (m MultiLogger) LogEvent(ctx context.Context, userID, action, ip, userAgent, metadata string) {
	for _, l := range m {
		l.LogEvent(ctx, userID, action, ip, userAgent, metadata)
	}
}
