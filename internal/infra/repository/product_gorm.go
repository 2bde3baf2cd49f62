package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 行ロック付きで取得（在庫チェック→更新の競合防止）
func (r *ProductGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductGormRepository) Update(ctx context.Context, p *model.Product) error {
	res := r.db.WithContext(ctx).Save(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 論理削除
func (r *ProductGormRepository) SoftDelete(ctx context.Context, productID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// セラー所有の商品を取得
func (r *ProductGormRepository) FindBySellerAndID(ctx context.Context, sellerID int64, productID int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", productID, sellerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// セラーの商品数（全体／公開中）
func (r *ProductGormRepository) CountBySellerID(ctx context.Context, sellerID int64) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("seller_id = ?", sellerID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var published int64
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("seller_id = ? AND published = ?", sellerID, true).
		Count(&published).Error; err != nil {
		return 0, 0, err
	}

	return total, published, nil
}

// Σ price*stock_qty
func (r *ProductGormRepository) InventoryValueBySellerID(ctx context.Context, sellerID int64) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("seller_id = ?", sellerID).
		Select("COALESCE(SUM(price * stock_qty), 0)").
		Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
