package repository

import (
	"context"

	"market/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（stock >= qty を条件にしたUPDATE）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
