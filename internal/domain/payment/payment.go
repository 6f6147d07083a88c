package payment

import "errors"

// 決済プロバイダに渡す1行。UnitAmountは商品価格と同じ整数の通貨単位
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

type SessionRequest struct {
	UserID        int64
	CustomerEmail string
	Lines         []LineItem
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string
	URL string
}

// Webhookで受け取った完了通知
type CompletedSession struct {
	SessionID string
	UserID    int64
	Paid      bool
}

var (
	// プロバイダ未設定（STRIPE_SECRET_KEYなし）
	ErrNotConfigured = errors.New("payment provider not configured")

	// 署名不一致など、信用できないwebhook
	ErrInvalidWebhook = errors.New("invalid webhook payload")

	// プロバイダが4xxで断った。再試行しても通らない
	ErrRejected = errors.New("payment request rejected")

	// 処理対象外のイベント
	ErrIgnoredEvent = errors.New("ignored webhook event")
)
