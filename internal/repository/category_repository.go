package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, categoryID int64) (model.Category, error)
}
