package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"market/internal/domain/event"
	"market/internal/domain/model"
	"market/internal/domain/payment"
	repo "market/internal/repository"
)

// 配送先入力。前後の空白は除去して保存する
type ShippingInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

func (in ShippingInput) trimmed() ShippingInput {
	return ShippingInput{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		Zip:      strings.TrimSpace(in.Zip),
		Country:  strings.TrimSpace(in.Country),
	}
}

func (in ShippingInput) snapshot() model.ShippingAddress {
	return model.ShippingAddress{
		FullName: in.FullName,
		Email:    in.Email,
		Address:  in.Address,
		City:     in.City,
		Zip:      in.Zip,
		Country:  in.Country,
	}
}

// usecaseがValidatorInterfaceに依存する約束
type CheckoutValidator interface {
	ValidateShipping(in ShippingInput) error
}

type PaymentSessionOutput struct {
	SessionID string      `json:"session_id"`
	URL       string      `json:"url"`
	Order     OrderOutput `json:"order"`
}

type ConfirmOutput struct {
	Paid  bool        `json:"paid"`
	Order OrderOutput `json:"order"`
}

type CheckoutConfig struct {
	// 決済後に戻るフロントのURL
	ClientOrigin string
	// イベントのproducer名
	ServiceName string
}

type CheckoutDeps struct {
	Tx          repo.TransactionManager
	Payments    PaymentBridge
	Events      EventPublisher
	Idempotency repo.IdempotencyStore
	Validator   CheckoutValidator
	Logger      *slog.Logger
}

// CheckoutUsecase はカートから注文を作る。
// 直接注文と、決済セッション経由（作成→確認）の2通り。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	payments  PaymentBridge
	events    EventPublisher
	idem      repo.IdempotencyStore
	validator CheckoutValidator
	log       *slog.Logger
	cfg       CheckoutConfig

	now     func() time.Time
	newCode func(time.Time) string
}

func NewCheckoutUsecase(cfg CheckoutConfig, d CheckoutDeps) *CheckoutUsecase {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutUsecase{
		tx:        d.Tx,
		payments:  d.Payments,
		events:    d.Events,
		idem:      d.Idempotency,
		validator: d.Validator,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
		newCode:   newOrderCode,
	}
}

// カートを読んで価格と在庫を突き合わせた結果
type cartQuote struct {
	itemIDs  []int64
	lines    []model.OrderLine
	products map[int64]model.Product
	totals   totals
}

// 事前チェックで在庫0をどう扱うか
type stockPrecheck int

const (
	// 在庫0はOutOfStock、足りないだけならInsufficientStock
	precheckDirect stockPrecheck = iota
	// 決済前なので全てInsufficientStock
	precheckSession
)

// カート読み込み・在庫の事前チェック・金額計算
func (u *CheckoutUsecase) quoteCart(ctx context.Context, r repo.TxRepos, userID int64, mode stockPrecheck) (cartQuote, error) {
	var (
		items []model.CartItem
		err   error
	)
	if mode == precheckDirect {
		//同じユーザーの並行したカート更新を確定まで待たせる
		items, err = r.Carts().ListByUserIDForUpdate(ctx, userID)
	} else {
		items, err = r.Carts().ListByUserID(ctx, userID)
	}
	if err != nil {
		return cartQuote{}, errDB(err)
	}
	if len(items) == 0 {
		return cartQuote{}, errEmptyCart()
	}

	ids := make([]int64, 0, len(items))
	itemIDs := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
		itemIDs = append(itemIDs, it.ID)
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return cartQuote{}, errDB(err)
	}

	lines := make([]model.OrderLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return cartQuote{}, errProductNotFound(it.ProductID)
		}
		//ここは参考チェック。確定は条件付きUPDATEで行う
		if p.Stock < it.Quantity {
			if p.Stock == 0 && mode == precheckDirect {
				return cartQuote{}, errOutOfStock(p.ID, p.Name)
			}
			return cartQuote{}, errInsufficientStock(p.ID, p.Name)
		}

		//スナップショット
		lines = append(lines, model.OrderLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
	}

	return cartQuote{
		itemIDs:  itemIDs,
		lines:    lines,
		products: products,
		totals:   computeTotals(lines),
	}, nil
}

func (q cartQuote) newOrder(userID int64, status model.OrderStatus, ship ShippingInput, sessionID *string) model.Order {
	lines := make([]model.OrderLine, len(q.lines))
	copy(lines, q.lines)

	return model.Order{
		UserID:           userID,
		Status:           status,
		Subtotal:         q.totals.Subtotal,
		Shipping:         q.totals.Shipping,
		Total:            q.totals.Total,
		ShippingAddress:  ship.snapshot(),
		PaymentSessionID: sessionID,
		Lines:            lines,
	}
}

// 明細ごとに条件付きで在庫を減らす。1件でも失敗したらOutOfStock
func reserveStock(ctx context.Context, inv repo.InventoryRepository, lines []model.OrderLine) error {
	for _, l := range lines {
		ok, err := inv.DecreaseStockIfEnough(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return errDB(err)
		}
		if !ok {
			return errOutOfStock(l.ProductID, l.ProductName)
		}
	}
	return nil
}

// order_codeが衝突したら作り直す
func (u *CheckoutUsecase) insertOrder(ctx context.Context, orders repo.OrderRepository, o *model.Order) error {
	for attempt := 1; attempt <= maxOrderCodeAttempts; attempt++ {
		o.OrderCode = u.newCode(u.now())
		err := orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, repo.ErrDuplicateIdempotencyKey) {
			return err
		}
		if !errors.Is(err, repo.ErrDuplicateOrderCode) {
			return errDB(err)
		}
		u.log.Warn("order code collision", slog.String("order_code", o.OrderCode), slog.Int("attempt", attempt))
	}
	return errDB(fmt.Errorf("order code collided %d times", maxOrderCodeAttempts))
}

// PlaceOrderDirect はカートの内容で即時に注文を確定する（在庫確保・カート削除まで1トランザクション）。
// idemKeyが空でなければ、同じキーの2回目以降は最初の注文を返す。
func (u *CheckoutUsecase) PlaceOrderDirect(ctx context.Context, userID int64, in ShippingInput, idemKey string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in = in.trimmed()
	if err := u.validator.ValidateShipping(in); err != nil {
		return OrderOutput{}, err
	}

	idemKey = strings.TrimSpace(idemKey)
	if len(idemKey) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}
	// Redisは同時リクエストを弾く速い経路。重複の最終判定はordersのユニーク制約
	held := false
	if idemKey != "" && u.idem != nil {
		existingID, reserved, err := u.idem.Reserve(ctx, userID, idemKey)
		switch {
		case errors.Is(err, repo.ErrIdempotencyInProgress):
			return OrderOutput{}, errIdempotencyBusy()
		case err != nil:
			u.log.Warn("idempotency store unavailable", slog.Any("err", err))
		case !reserved:
			return u.findOwnOrder(ctx, userID, existingID)
		default:
			held = true
		}
	}

	order, replayed, err := u.placeDirect(ctx, userID, in, idemKey)
	if err != nil {
		if held {
			if rerr := u.idem.Release(context.WithoutCancel(ctx), userID, idemKey); rerr != nil {
				u.log.Warn("idempotency release failed", slog.Any("err", rerr))
			}
		}
		return OrderOutput{}, err
	}

	if held {
		bg := context.WithoutCancel(ctx)
		if cerr := u.idem.Complete(bg, userID, idemKey, order.ID); cerr != nil {
			u.log.Warn("idempotency complete failed", slog.Int64("order_id", order.ID), slog.Any("err", cerr))
			//処理中のまま残すと再試行がTTLまで409になる。外せば再試行はDBで注文を見つける
			if rerr := u.idem.Release(bg, userID, idemKey); rerr != nil {
				u.log.Warn("idempotency release failed", slog.Any("err", rerr))
			}
		}
	}
	if replayed {
		return toOrderOutput(order), nil
	}

	u.emit(ctx, event.TopicOrderPlaced, order.ID, placedPayload(order, "direct"))
	u.log.Info("order placed",
		slog.Int64("order_id", order.ID),
		slog.String("order_code", order.OrderCode),
		slog.Int64("user_id", userID),
		slog.Int64("total", order.Total),
	)
	return toOrderOutput(order), nil
}

// 同じ冪等キーの注文が既にあれば、それを返す（replayed=true）
func (u *CheckoutUsecase) placeDirect(ctx context.Context, userID int64, in ShippingInput, idemKey string) (model.Order, bool, error) {
	var (
		created  model.Order
		replayed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		replay := func() (bool, error) {
			if idemKey == "" {
				return false, nil
			}
			prev, err := r.Orders().FindByIdempotencyKey(ctx, userID, idemKey)
			switch {
			case err == nil:
				created, replayed = prev, true
				return true, nil
			case errors.Is(err, repo.ErrNotFound):
				return false, nil
			}
			return false, errDB(err)
		}

		if done, err := replay(); done || err != nil {
			return err
		}

		q, err := u.quoteCart(ctx, r, userID, precheckDirect)
		if errors.Is(err, ErrEmptyCart) {
			//カートのロック待ちの間に同じキーの注文がコミットされ、明細が消えた
			if done, rerr := replay(); done || rerr != nil {
				return rerr
			}
		}
		if err != nil {
			return err
		}

		//在庫確保（ここが本当のチェック）
		if err := reserveStock(ctx, r.Inventory(), q.lines); err != nil {
			return err
		}

		o := q.newOrder(userID, model.OrderStatusPlaced, in, nil)
		if idemKey != "" {
			o.IdempotencyKey = &idemKey
		}
		if err := u.insertOrder(ctx, r.Orders(), &o); err != nil {
			return err
		}

		//読んだ明細だけ消す。確定中に追加された行はカートに残る
		if err := r.Carts().RemoveItems(ctx, userID, q.itemIDs); err != nil {
			return errDB(err)
		}

		created = o
		return nil
	})

	//同じキーの注文が先にコミットされた。こちらはロールバック済みなので先の注文を返す
	if errors.Is(err, repo.ErrDuplicateIdempotencyKey) {
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			prev, ferr := r.Orders().FindByIdempotencyKey(ctx, userID, idemKey)
			if ferr != nil {
				return errDB(ferr)
			}
			created, replayed = prev, true
			return nil
		})
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return created, replayed, nil
}

func (u *CheckoutUsecase) findOwnOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errDB(err)
		}
		if o.UserID != userID {
			return errDB(fmt.Errorf("idempotency key points at order %d of another user", orderID))
		}
		out = toOrderOutput(o)
		return nil
	})
	return out, err
}

// CreatePaymentSession は決済セッションを作り、PENDING_PAYMENTの注文を残す。
// 在庫もカートもここでは触らない。
func (u *CheckoutUsecase) CreatePaymentSession(ctx context.Context, userID int64, in ShippingInput) (PaymentSessionOutput, error) {
	if userID <= 0 {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in = in.trimmed()
	if err := u.validator.ValidateShipping(in); err != nil {
		return PaymentSessionOutput{}, err
	}

	var q cartQuote
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		q, err = u.quoteCart(ctx, r, userID, precheckSession)
		return err
	})
	if err != nil {
		return PaymentSessionOutput{}, err
	}

	//外部呼び出しはトランザクションの外で
	sess, err := u.payments.CreateSession(ctx, u.sessionRequest(userID, in, q))
	if err != nil {
		return PaymentSessionOutput{}, u.paymentError(err)
	}

	var created model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o := q.newOrder(userID, model.OrderStatusPendingPayment, in, &sess.ID)
		if err := u.insertOrder(ctx, r.Orders(), &o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		u.log.Error("payment session created without order",
			slog.String("session_id", sess.ID),
			slog.Int64("user_id", userID),
			slog.Any("err", err),
		)
		return PaymentSessionOutput{}, err
	}

	u.emit(ctx, event.TopicOrderPaymentPending, created.ID, event.OrderPaymentPending{
		OrderID:   created.ID,
		OrderCode: created.OrderCode,
		UserID:    userID,
		SessionID: sess.ID,
		Total:     created.Total,
	})

	return PaymentSessionOutput{
		SessionID: sess.ID,
		URL:       sess.URL,
		Order:     toOrderOutput(created),
	}, nil
}

func (u *CheckoutUsecase) sessionRequest(userID int64, in ShippingInput, q cartQuote) payment.SessionRequest {
	items := make([]payment.LineItem, 0, len(q.lines)+1)
	for _, l := range q.lines {
		p := q.products[l.ProductID]
		items = append(items, payment.LineItem{
			Name:        l.ProductName,
			Description: p.Tagline,
			ImageURL:    p.HeroImage,
			UnitAmount:  l.UnitPrice,
			Quantity:    l.Quantity,
		})
	}
	if q.totals.Shipping > 0 {
		items = append(items, payment.LineItem{
			Name:       "Shipping",
			UnitAmount: q.totals.Shipping,
			Quantity:   1,
		})
	}

	origin := strings.TrimRight(u.cfg.ClientOrigin, "/")
	return payment.SessionRequest{
		UserID:        userID,
		CustomerEmail: in.Email,
		Lines:         items,
		SuccessURL:    origin + "/checkout?stripe=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/checkout?stripe=cancelled",
	}
}

func (u *CheckoutUsecase) paymentError(err error) error {
	if errors.Is(err, payment.ErrNotConfigured) {
		return errPaymentDisabled()
	}
	if errors.Is(err, payment.ErrRejected) {
		u.log.Warn("payment provider rejected request", slog.Any("err", err))
		return errPaymentRejected(err)
	}
	u.log.Error("payment provider call failed", slog.Any("err", err))
	return &HTTPError{
		Status:  http.StatusBadGateway,
		Message: "payment provider error",
		Code:    "PAYMENT_PROVIDER_ERROR",
		Err:     err,
	}
}

// ConfirmPaymentSession は支払い済みのセッションに対して在庫を確保し、注文をPLACEDにする。
// 何度呼んでも在庫は1回しか減らない。
func (u *CheckoutUsecase) ConfirmPaymentSession(ctx context.Context, userID int64, sessionID string) (ConfirmOutput, error) {
	if userID <= 0 {
		return ConfirmOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ConfirmOutput{}, errSessionNotFound()
	}

	//他人のセッションもここで見つからない扱い
	var order model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindBySessionID(ctx, userID, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return errSessionNotFound()
		}
		if err != nil {
			return errDB(err)
		}
		order = o
		return nil
	})
	if err != nil {
		return ConfirmOutput{}, err
	}

	paid, err := u.payments.IsPaid(ctx, sessionID)
	if err != nil {
		return ConfirmOutput{}, u.paymentError(err)
	}
	if !paid {
		return ConfirmOutput{Paid: false, Order: toOrderOutput(order)}, nil
	}
	if order.Status.IsReserved() {
		return ConfirmOutput{Paid: true, Order: toOrderOutput(order)}, nil
	}

	placed, transitioned, err := u.reserveForSession(ctx, order.ID)
	if err != nil {
		if errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrInvalidTransition) {
			u.requireReconciliation(ctx, order, sessionID, err)
		}
		return ConfirmOutput{}, err
	}

	if transitioned {
		//カート削除はベストエフォート。失敗しても注文は確定済み
		cctx := context.WithoutCancel(ctx)
		cerr := u.tx.WithinTx(cctx, func(r repo.TxRepos) error {
			return r.Carts().Clear(cctx, userID)
		})
		if cerr != nil {
			u.log.Warn("cart clear after confirmation failed",
				slog.Int64("user_id", userID),
				slog.Int64("order_id", placed.ID),
				slog.Any("err", cerr),
			)
		}

		u.emit(ctx, event.TopicOrderPlaced, placed.ID, placedPayload(placed, "payment_session"))
		u.log.Info("order placed",
			slog.Int64("order_id", placed.ID),
			slog.String("order_code", placed.OrderCode),
			slog.Int64("user_id", userID),
			slog.String("session_id", sessionID),
		)
	}

	return ConfirmOutput{Paid: true, Order: toOrderOutput(placed)}, nil
}

// 注文行をロックしてから状態を見直す。同時に2回confirmが来ても片方だけが在庫を減らす。
func (u *CheckoutUsecase) reserveForSession(ctx context.Context, orderID int64) (model.Order, bool, error) {
	var (
		placed       model.Order
		transitioned bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return errDB(err)
		}
		if o.Status.IsReserved() {
			placed = o
			return nil
		}
		if !model.CanTransition(o.Status, model.OrderStatusPlaced) {
			return errInvalidTransition(string(o.Status), string(model.OrderStatusPlaced))
		}

		//カートではなく注文明細の数量で確保する
		if err := reserveStock(ctx, r.Inventory(), o.Lines); err != nil {
			return err
		}

		ok, err := r.Orders().TransitionStatus(ctx, o.ID, o.Status, model.OrderStatusPlaced)
		if err != nil {
			return errDB(err)
		}
		if !ok {
			return errInvalidTransition(string(o.Status), string(model.OrderStatusPlaced))
		}

		o.Status = model.OrderStatusPlaced
		placed = o
		transitioned = true
		return nil
	})

	return placed, transitioned, err
}

// 支払い済みなのに確定できなかった注文。返金か手動対応が要るので必ず通知する。
func (u *CheckoutUsecase) requireReconciliation(ctx context.Context, o model.Order, sessionID string, cause error) {
	var productID int64
	if he, ok := AsHTTPError(cause); ok {
		productID = he.ProductID
	}

	u.log.Error("paid order could not be placed; reconciliation required",
		slog.Int64("order_id", o.ID),
		slog.String("order_code", o.OrderCode),
		slog.Int64("user_id", o.UserID),
		slog.String("session_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Any("err", cause),
	)

	u.emit(ctx, event.TopicReconciliationRequired, o.ID, event.ReconciliationRequired{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		UserID:    o.UserID,
		SessionID: sessionID,
		Total:     o.Total,
		Reason:    cause.Error(),
		ProductID: productID,
	})
}

// HandleWebhook は checkout.session.completed を受けて確認処理を走らせる。
// 対象外のイベントや、既に処理済みの注文は何もせず成功扱い。
func (u *CheckoutUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	cs, err := u.payments.ParseWebhook(payload, signature)
	switch {
	case errors.Is(err, payment.ErrIgnoredEvent):
		return nil
	case errors.Is(err, payment.ErrNotConfigured):
		return errPaymentDisabled()
	case errors.Is(err, payment.ErrInvalidWebhook):
		return &HTTPError{Status: http.StatusBadRequest, Message: "invalid webhook", Code: "INVALID_WEBHOOK", Err: err}
	case err != nil:
		return errDB(err)
	}
	//非同期決済はまだ未入金のことがある
	if !cs.Paid {
		return nil
	}

	_, err = u.ConfirmPaymentSession(ctx, cs.UserID, cs.SessionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionNotFound):
		u.log.Warn("webhook for unknown session", slog.String("session_id", cs.SessionID), slog.Int64("user_id", cs.UserID))
		return nil
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrInvalidTransition):
		//通知済み。再送されても結果は同じ
		return nil
	default:
		return err
	}
}

func placedPayload(o model.Order, via string) event.OrderPlaced {
	lines := make([]event.Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, event.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return event.OrderPlaced{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		UserID:    o.UserID,
		Total:     o.Total,
		Lines:     lines,
		Via:       via,
	}
}

const publishTimeout = 2 * time.Second

// イベント送信の失敗は注文結果に影響させない
func (u *CheckoutUsecase) emit(ctx context.Context, topic string, orderID int64, payload any) {
	publish(ctx, u.events, u.log, u.cfg.ServiceName, topic, orderID, payload, u.now())
}

func publish(ctx context.Context, p EventPublisher, log *slog.Logger, producer string, topic string, orderID int64, payload any, at time.Time) {
	if p == nil {
		return
	}
	env, err := event.New(topic, producer, orderID, payload, at)
	if err == nil {
		//リクエストのキャンセルとは切り離すが、送信キューが詰まっていたら待ちすぎない
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err = p.Publish(pctx, env)
		cancel()
	}
	if err != nil {
		log.Warn("event publish failed", slog.String("topic", topic), slog.Int64("order_id", orderID), slog.Any("err", err))
	}
}
