package model

import "time"

// 注文明細。作成時点の商品名と単価を保存し、以後は変更しない。
type OrderLine struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	OrderID     int64     `gorm:"not null;index"`
	ProductID   int64     `gorm:"not null;index"`
	ProductName string    `gorm:"type:varchar(255);not null"`
	Quantity    int64     `gorm:"not null"`
	UnitPrice   int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"`
}

func (l OrderLine) Amount() int64 {
	return l.UnitPrice * l.Quantity
}
