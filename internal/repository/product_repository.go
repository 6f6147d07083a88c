package repository

import (
	"context"

	"market/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category model.Category
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)

	// 見つからないIDはmapに入らない
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)

	// 行ロック（SELECT ... FOR UPDATE）付きで取得
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)

	// seed用。slugで突き合わせて作成/更新
	UpsertBySlug(ctx context.Context, p model.Product) error
}
