package repository

import (
	"context"

	"market/internal/domain/model"
)

type CartRepository interface {
	// 追加順で返す
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)

	// 注文確定用。読んだ行をコミットまでロックする（SELECT ... FOR UPDATE）
	ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error)

	// 同一商品は加算。上限は model.MaxCartQuantity で頭打ち
	Add(ctx context.Context, userID int64, productID int64, qty int64) error

	// 数量を上書き（無ければ作成）
	SetQuantity(ctx context.Context, userID int64, productID int64, qty int64) error

	Remove(ctx context.Context, userID int64, productID int64) error
	Clear(ctx context.Context, userID int64) error

	// 指定した明細だけ削除する。読んだ後に追加された行は残る
	RemoveItems(ctx context.Context, userID int64, itemIDs []int64) error
}
