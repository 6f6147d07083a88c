package events

import (
	"context"
	"log/slog"

	"market/internal/domain/event"
)

// KAFKA_BROKERS未設定のときの代わり。イベントをログに出すだけ
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, env event.Envelope) error {
	lvl := slog.LevelInfo
	if env.EventType == event.TopicReconciliationRequired {
		lvl = slog.LevelError
	}
	p.log.LogAttrs(ctx, lvl, "event",
		slog.String("event_type", env.EventType),
		slog.String("event_id", env.EventID),
		slog.Int64("order_id", env.OrderID),
		slog.String("payload", string(env.Payload)),
	)
	return nil
}
