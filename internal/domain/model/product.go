package model

import (
	"time"

	"gorm.io/gorm"
)

// 価格と在庫は非負（バリデーション層で担保）
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64          `gorm:"not null;index" json:"seller_id"`
	CategoryID  int64          `gorm:"not null;index" json:"category_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	StockQty    int64          `gorm:"not null;column:stock_qty" json:"stock_qty"`
	Published   bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 購入可能か（公開かつ在庫あり）
func (p *Product) Available() bool {
	return p.Published && p.StockQty > 0
}
