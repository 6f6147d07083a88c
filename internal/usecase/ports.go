package usecase

import (
	"context"

	"market/internal/domain/event"
	"market/internal/domain/payment"
)

// PaymentBridge は外部決済（Stripe）との境界
type PaymentBridge interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
	IsPaid(ctx context.Context, sessionID string) (bool, error)
	ParseWebhook(payload []byte, signature string) (payment.CompletedSession, error)
}

// EventPublisher はKafka（未設定ならログ）へのイベント送信
type EventPublisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}
