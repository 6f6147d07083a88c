package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderPlaced            = "order.placed"
	TopicOrderPaymentPending    = "order.payment_pending"
	TopicOrderStatusChanged     = "order.status_changed"
	TopicReconciliationRequired = "order.reconciliation_required"
)

// Envelope はKafkaに流す共通の外側。
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	OrderID    int64           `json:"order_id"`
	Payload    json.RawMessage `json:"payload"`
}

type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

type OrderPlaced struct {
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	UserID    int64  `json:"user_id"`
	Total     int64  `json:"total"`
	Lines     []Line `json:"lines"`
	// direct / payment_session
	Via string `json:"via"`
}

type OrderPaymentPending struct {
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
	Total     int64  `json:"total"`
}

type OrderStatusChanged struct {
	OrderID     int64  `json:"order_id"`
	OrderCode   string `json:"order_code"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorUserID int64  `json:"actor_user_id"`
}

// 決済済みなのに在庫確保できなかった注文。返金か手動対応が必要。
type ReconciliationRequired struct {
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
	Total     int64  `json:"total"`
	Reason    string `json:"reason"`
	ProductID int64  `json:"product_id,omitempty"`
}

// 同じ注文のイベントは同じパーティションに載せる
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}

func New(eventType string, producer string, orderID int64, payload any, at time.Time) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: at.UTC(),
		Producer:   producer,
		OrderID:    orderID,
		Payload:    b,
	}, nil
}

func DecodePayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
