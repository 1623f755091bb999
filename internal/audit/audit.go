// Package audit records security-relevant grant events.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/fedgrant/internal/grant"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

// Sink writes one structured log line per grant event on a dedicated
// "audit" logger.
type Sink struct {
	log *zap.Logger
}

// NewSink uses l, or the global logger named "audit" when l is nil.
func NewSink(l *zap.Logger) *Sink {
	if l == nil {
		l = logger.Named("audit")
	}
	return &Sink{log: l}
}

func (s *Sink) Emit(ctx context.Context, ev grant.Event) {
	fields := []zap.Field{
		logger.String("event", string(ev.Type)),
		logger.Grant(ev.Grant),
		logger.ClientID(ev.ClientID),
		zap.Time("at", ev.At),
	}
	if ev.RemoteAddr != "" {
		fields = append(fields, logger.ClientIP(ev.RemoteAddr))
	}
	if rid := requestID(ctx); rid != "" {
		fields = append(fields, logger.RequestID(rid))
	}
	s.log.Warn("audit", fields...)
}

// Multi fans an event out to every sink, in order.
type Multi []grant.EventSink

func (m Multi) Emit(ctx context.Context, ev grant.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

type ctxKey struct{}

// WithRequestID tags audit lines emitted under ctx with the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}
