package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductImageGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductImageGormRepository(db *gorm.DB) *ProductImageGormRepository {
	return &ProductImageGormRepository{db: db}
}

// 表示順→ID順で一覧
func (r *ProductImageGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	var images []model.ProductImage

	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort_order asc").
		Order("id asc").
		Find(&images).Error; err != nil {
		return []model.ProductImage{}, err
	}
	return images, nil
}

// 商品に属する画像を取得
func (r *ProductImageGormRepository) FindByProductAndID(ctx context.Context, productID int64, imageID int64) (model.ProductImage, error) {
	var img model.ProductImage

	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		First(&img).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductImage{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductImage{}, err
	}
	return img, nil
}

// 行ロック付きでメイン画像を取得
func (r *ProductImageGormRepository) FindMainByProductIDForUpdate(ctx context.Context, productID int64) (model.ProductImage, error) {
	var img model.ProductImage

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND is_main = ?", productID, true).
		First(&img).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductImage{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductImage{}, err
	}
	return img, nil
}

func (r *ProductImageGormRepository) CountByProductID(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// セラーの全商品の画像数
func (r *ProductImageGormRepository) CountBySellerID(ctx context.Context, sellerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("product_images").
		Joins("join products on products.id = product_images.product_id").
		Where("products.seller_id = ?", sellerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProductImageGormRepository) Create(ctx context.Context, img *model.ProductImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

// URLの差し替え（メイン画像のin-place更新）
func (r *ProductImageGormRepository) UpdateURL(ctx context.Context, imageID int64, url string) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("id = ?", imageID).
		Update("image_url", url)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductImageGormRepository) UpdateSortOrder(ctx context.Context, imageID int64, sortOrder int) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("id = ?", imageID).
		Update("sort_order", sortOrder)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品の全画像のis_mainを落とす
func (r *ProductImageGormRepository) ClearMain(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("product_id = ?", productID).
		Update("is_main", false).Error
}

func (r *ProductImageGormRepository) SetMain(ctx context.Context, imageID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("id = ?", imageID).
		Update("is_main", true)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductImageGormRepository) DeleteByID(ctx context.Context, imageID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.ProductImage{}, imageID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductImageGormRepository) DeleteByProductID(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&model.ProductImage{}).Error
}
