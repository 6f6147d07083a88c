package repository

import (
	"context"
	"errors"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// カート明細を追加順で取得
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 読んだ明細は確定Txのコミットまで数量変更・削除できない
func (r *CartGormRepository) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// 同一商品は数量加算（上限99で頭打ち）。
// (user_id, product_id) のユニーク制約に乗せて1文でupsertする。
func (r *CartGormRepository) Add(ctx context.Context, userID int64, productID int64, qty int64) error {
	if qty < model.MinCartQuantity || qty > model.MaxCartQuantity {
		return errors.New("invalid quantity")
	}

	item := model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("LEAST(cart_items.quantity + EXCLUDED.quantity, ?)", model.MaxCartQuantity),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&item).Error
}

// 数量を上書き
func (r *CartGormRepository) SetQuantity(ctx context.Context, userID int64, productID int64, qty int64) error {
	if qty < model.MinCartQuantity || qty > model.MaxCartQuantity {
		return errors.New("invalid quantity")
	}

	item := model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   qty,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&item).Error
}

// 明細を削除（無くてもエラーにしない）
func (r *CartGormRepository) Remove(ctx context.Context, userID int64, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartItem{}).Error
}

// ユーザーの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}

// 読み込んだ明細IDだけ消す
func (r *CartGormRepository) RemoveItems(ctx context.Context, userID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Delete(&model.CartItem{}).Error
}

var _ repo.CartRepository = (*CartGormRepository)(nil)
