package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"market/internal/domain/payment"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const metadataUserID = "user_id"

// 0桁通貨（円など）はそのまま、それ以外は100倍して最小単位にする
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// StripeBridge はCheckout Sessionの作成と支払い状態の確認を行う。
type StripeBridge struct {
	sc            *client.API
	currency      string
	webhookSecret string
}

func NewStripeBridge(cfg StripeConfig) *StripeBridge {
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	return &StripeBridge{
		sc:            client.New(cfg.SecretKey, nil),
		currency:      currency,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (b *StripeBridge) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	params := buildSessionParams(req, b.currency)
	params.Context = ctx

	s, err := b.sc.CheckoutSessions.New(params)
	if err != nil {
		return payment.Session{}, stripeError("stripe create session", err)
	}
	return payment.Session{ID: s.ID, URL: s.URL}, nil
}

func (b *StripeBridge) IsPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := b.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, stripeError("stripe get session", err)
	}
	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// ParseWebhook は署名を検証し、checkout.session.completed だけを取り出す。
func (b *StripeBridge) ParseWebhook(payload []byte, signature string) (payment.CompletedSession, error) {
	if b.webhookSecret == "" {
		return payment.CompletedSession{}, payment.ErrNotConfigured
	}
	return parseWebhook(payload, signature, b.webhookSecret)
}

func parseWebhook(payload []byte, signature string, secret string) (payment.CompletedSession, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payment.CompletedSession{}, fmt.Errorf("%w: %v", payment.ErrInvalidWebhook, err)
	}
	if ev.Type != stripe.EventTypeCheckoutSessionCompleted {
		return payment.CompletedSession{}, payment.ErrIgnoredEvent
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return payment.CompletedSession{}, fmt.Errorf("%w: %v", payment.ErrInvalidWebhook, err)
	}

	uid, err := strconv.ParseInt(s.Metadata[metadataUserID], 10, 64)
	if err != nil || uid <= 0 {
		return payment.CompletedSession{}, fmt.Errorf("%w: missing %s metadata", payment.ErrInvalidWebhook, metadataUserID)
	}

	return payment.CompletedSession{
		SessionID: s.ID,
		UserID:    uid,
		Paid:      s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}

func buildSessionParams(req payment.SessionRequest, currency string) *stripe.CheckoutSessionParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		pd := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(l.Name),
		}
		if l.Description != "" {
			pd.Description = stripe.String(l.Description)
		}
		// Stripeは絶対URLしか受け付けない
		if strings.HasPrefix(l.ImageURL, "https://") || strings.HasPrefix(l.ImageURL, "http://") {
			pd.Images = []*string{stripe.String(l.ImageURL)}
		}

		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(toMinorUnits(l.UnitAmount, currency)),
				ProductData: pd,
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         items,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(req.UserID, 10)),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(metadataUserID, strconv.FormatInt(req.UserID, 10))
	return params
}

func toMinorUnits(amount int64, currency string) int64 {
	if zeroDecimalCurrencies[currency] {
		return amount
	}
	return decimal.NewFromInt(amount).Shift(2).IntPart()
}

// 未設定時に差し込む。全操作がErrNotConfigured
type DisabledBridge struct{}

func (DisabledBridge) CreateSession(context.Context, payment.SessionRequest) (payment.Session, error) {
	return payment.Session{}, payment.ErrNotConfigured
}

func (DisabledBridge) IsPaid(context.Context, string) (bool, error) {
	return false, payment.ErrNotConfigured
}

func (DisabledBridge) ParseWebhook([]byte, string) (payment.CompletedSession, error) {
	return payment.CompletedSession{}, payment.ErrNotConfigured
}

// 4xx（429以外）はErrRejectedを付ける。通信失敗と5xxは一時的な障害として扱う
func stripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) &&
		se.HTTPStatusCode >= http.StatusBadRequest &&
		se.HTTPStatusCode < http.StatusInternalServerError &&
		se.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", op, payment.ErrRejected, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
