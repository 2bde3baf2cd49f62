package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type ProductImageRepository interface {
	// sort_order asc, id ascで返す
	ListByProductID(ctx context.Context, productID int64) ([]model.ProductImage, error)
	FindByProductAndID(ctx context.Context, productID int64, imageID int64) (model.ProductImage, error)
	// 行ロック付きでメイン画像を取得
	FindMainByProductIDForUpdate(ctx context.Context, productID int64) (model.ProductImage, error)
	CountByProductID(ctx context.Context, productID int64) (int64, error)
	CountBySellerID(ctx context.Context, sellerID int64) (int64, error)
	Create(ctx context.Context, img *model.ProductImage) error
	UpdateURL(ctx context.Context, imageID int64, url string) error
	UpdateSortOrder(ctx context.Context, imageID int64, sortOrder int) error
	// 商品の全画像のis_mainを落とす
	ClearMain(ctx context.Context, productID int64) error
	SetMain(ctx context.Context, imageID int64) error
	DeleteByID(ctx context.Context, imageID int64) error
	DeleteByProductID(ctx context.Context, productID int64) error
}
