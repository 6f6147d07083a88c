package model

import "time"

// カートの明細。1ユーザー×1商品で1行。
const (
	MinCartQuantity int64 = 1
	MaxCartQuantity int64 = 99
)

type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"-"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"product_id"`
	Quantity  int64     `gorm:"not null;check:quantity BETWEEN 1 AND 99" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}
