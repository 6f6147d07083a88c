package model

import (
	"time"

	"github.com/lib/pq"
)

type Category string

const (
	CategoryFootwear    Category = "FOOTWEAR"
	CategoryOuterwear   Category = "OUTERWEAR"
	CategoryBags        Category = "BAGS"
	CategoryAccessories Category = "ACCESSORIES"
	CategoryEssentials  Category = "ESSENTIALS"
)

// カテゴリ文字列として有効か
func (c Category) Valid() bool {
	switch c {
	case CategoryFootwear, CategoryOuterwear, CategoryBags, CategoryAccessories, CategoryEssentials:
		return true
	}
	return false
}

// 商品。checkoutはPriceとStockだけを読み、Stockだけを書き換える。
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string         `gorm:"type:varchar(120);not null;uniqueIndex" json:"slug"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Tagline     string         `gorm:"type:varchar(255);not null" json:"tagline"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null;check:price > 0" json:"price"`
	Category    Category       `gorm:"type:varchar(30);not null;index" json:"category"`
	Accent      string         `gorm:"type:varchar(20)" json:"accent"`
	HeroImage   string         `gorm:"type:text" json:"hero_image"`
	Gallery     pq.StringArray `gorm:"type:text[]" json:"gallery"`
	Stock       int64          `gorm:"not null;check:stock >= 0" json:"stock"`
	Rating      float64        `gorm:"not null;default:0" json:"rating"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"-"`
}
