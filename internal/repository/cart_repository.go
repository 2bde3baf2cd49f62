package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CartRepository interface {
	// ユーザーのカートを取得し、無ければ作成（冪等）
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 明細を全削除（カート行は残す）
	ClearItems(ctx context.Context, cartID int64) error
}
