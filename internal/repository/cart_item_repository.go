package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	// 行ロック付きで(cart, product)の明細を探す
	FindByCartAndProductForUpdate(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)
	Create(ctx context.Context, item *model.CartItem) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// cartItemがそのuserのカートに属しているか
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
