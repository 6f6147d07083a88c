package repository

import (
	"context"
	"time"

	"market/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	Code   string
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// 明細ごと作成する。order_codeが衝突したら ErrDuplicateOrderCode、
	// 同じユーザーで冪等キーが衝突したら ErrDuplicateIdempotencyKey
	Create(ctx context.Context, order *model.Order) error

	// 以下は明細（Lines）込みで返す
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindBySessionID(ctx context.Context, userID int64, sessionID string) (model.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)

	// 現在のstatusがfromのときだけtoに更新する
	TransitionStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
