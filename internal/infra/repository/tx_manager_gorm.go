package repository

import (
	"context"

	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	images    repo.ProductImageRepository
	users     repo.UserRepository
}

func (r *txReposGorm) Carts() repo.CartRepository                 { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *txReposGorm) Products() repo.ProductRepository           { return r.products }
func (r *txReposGorm) ProductImages() repo.ProductImageRepository { return r.images }
func (r *txReposGorm) Users() repo.UserRepository                 { return r.users }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			carts:     NewCartGormRepository(tx),
			cartItems: NewCartItemGormRepository(tx),
			products:  NewProductGormRepository(tx),
			images:    NewProductImageGormRepository(tx),
			users:     NewUserGormRepository(tx),
		}
		return fn(r)
	})
}
