package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (model.Product, error)
	// 在庫チェック用に行ロック付きで取得（同時addToCartの過剰販売防止）
	FindByIDForUpdate(ctx context.Context, productID int64) (model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	SoftDelete(ctx context.Context, productID int64) error
	FindBySellerAndID(ctx context.Context, sellerID int64, productID int64) (model.Product, error)
	CountBySellerID(ctx context.Context, sellerID int64) (total int64, published int64, err error)
	// Σ price*stock_qty
	InventoryValueBySellerID(ctx context.Context, sellerID int64) (int64, error)
}
