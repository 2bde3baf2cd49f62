package model

import "time"

// カートの明細。(cart_id, product_id)はユニーク。
// quantityは常に1以上（0は「削除」を意味し保存されない）。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// IsAvailable は参照先商品が現在も購入可能かを判定する。
// 商品が削除済みの場合はnilを渡す。
func (i *CartItem) IsAvailable(p *Product) bool {
	return p != nil && p.Published && p.StockQty >= i.Quantity
}

// ExceedsStock は数量が在庫を超えているか。
func (i *CartItem) ExceedsStock(p *Product) bool {
	return p != nil && i.Quantity > p.StockQty
}
