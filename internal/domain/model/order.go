package model

import "time"

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusFulfilled      OrderStatus = "FULFILLED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// 許可する遷移。逆方向は無い。
var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPendingPayment: {OrderStatusPlaced: true, OrderStatusCancelled: true},
	OrderStatusPlaced:         {OrderStatusFulfilled: true},
	OrderStatusFulfilled:      {},
	OrderStatusCancelled:      {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	return orderTransitions[from][to]
}

// 在庫確保まで済んでいる（confirmを再実行しても何もしない）状態か
func (s OrderStatus) IsReserved() bool {
	return s == OrderStatusPlaced || s == OrderStatusFulfilled
}

// 注文時点の配送先。アカウント側の編集とは独立。
type ShippingAddress struct {
	FullName string `gorm:"type:varchar(255);not null"`
	Email    string `gorm:"type:varchar(255);not null"`
	Address  string `gorm:"type:varchar(255);not null"`
	City     string `gorm:"type:varchar(120);not null"`
	Zip      string `gorm:"type:varchar(30);not null"`
	Country  string `gorm:"type:varchar(120);not null"`
}

type Order struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	OrderCode        string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID           int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;index"`
	Subtotal         int64           `gorm:"not null"`
	Shipping         int64           `gorm:"not null"`
	Total            int64           `gorm:"not null"`
	ShippingAddress  ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentSessionID *string         `gorm:"type:varchar(255);uniqueIndex"`
	IdempotencyKey   *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency"`
	Lines            []OrderLine     `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime;index"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime"`
}
