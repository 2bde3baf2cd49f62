package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"
)

// ProductUsecase はセラー向けの商品管理。
// 削除時は紐づく画像をDBとメディアホストの両方から片付ける。
type ProductUsecase struct {
	tx           repo.TransactionManager
	productRepo  repo.ProductRepository
	imageRepo    repo.ProductImageRepository
	categoryRepo repo.CategoryRepository
	media        gateway.MediaStorage
}

func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	imageRepo repo.ProductImageRepository,
	categoryRepo repo.CategoryRepository,
	media gateway.MediaStorage,
) *ProductUsecase {
	return &ProductUsecase{
		tx:           tx,
		productRepo:  productRepo,
		imageRepo:    imageRepo,
		categoryRepo: categoryRepo,
		media:        media,
	}
}

type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	StockQty    int64
	CategoryID  int64
	Published   bool
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, sellerID int64, in CreateProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid name")
	}
	if in.Price < 0 {
		return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "price must be >= 0")
	}
	if in.StockQty < 0 {
		return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "stock_qty must be >= 0")
	}
	if _, err := u.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid category_id")
		}
		return model.Product{}, errInternal()
	}

	p := model.Product{
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		StockQty:    in.StockQty,
		Published:   in.Published,
	}
	if err := u.productRepo.Create(ctx, &p); err != nil {
		return model.Product{}, errInternal()
	}
	return p, nil
}

// 部分更新の入力。nilのフィールドは変更しない。
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *int64
	StockQty    *int64
	CategoryID  *int64
	Published   *bool
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, sellerID int64, productID int64, in UpdateProductInput) (model.Product, error) {
	p, err := u.productRepo.FindBySellerAndID(ctx, sellerID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewDomainError(CodeProductNotFound, http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, errInternal()
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > 255 {
			return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid name")
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "price must be >= 0")
		}
		p.Price = *in.Price
	}
	if in.StockQty != nil {
		if *in.StockQty < 0 {
			return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "stock_qty must be >= 0")
		}
		p.StockQty = *in.StockQty
	}
	if in.CategoryID != nil {
		if _, err := u.categoryRepo.FindByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.Product{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid category_id")
			}
			return model.Product{}, errInternal()
		}
		p.CategoryID = *in.CategoryID
	}
	if in.Published != nil {
		p.Published = *in.Published
	}

	if err := u.productRepo.Update(ctx, &p); err != nil {
		return model.Product{}, errInternal()
	}
	return p, nil
}

// DeleteProduct は商品と画像を削除する。
// リモート資産の削除はベストエフォートで、失敗してもDB削除は続行する。
func (u *ProductUsecase) DeleteProduct(ctx context.Context, sellerID int64, productID int64) error {
	if _, err := u.productRepo.FindBySellerAndID(ctx, sellerID, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeProductNotFound, http.StatusNotFound, "product not found")
		}
		return errInternal()
	}

	images, err := u.imageRepo.ListByProductID(ctx, productID)
	if err != nil {
		return errInternal()
	}

	assetIDs := make([]string, 0, len(images))
	for _, img := range images {
		if id := u.media.ExtractAssetID(img.ImageURL); id != "" {
			assetIDs = append(assetIDs, id)
		}
	}
	if len(assetIDs) > 0 {
		if failed := u.media.DeleteBatch(ctx, assetIDs); len(failed) > 0 {
			log.Printf("product %d: failed to delete %d remote assets: %v", productID, len(failed), failed)
		}
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.ProductImages().DeleteByProductID(ctx, productID); err != nil {
			return errInternal()
		}
		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			return errInternal()
		}
		return nil
	})
}

type BulkDeleteOutput struct {
	DeletedCount   int      `json:"deleted_count"`
	TotalRequested int      `json:"total_requested"`
	Errors         []string `json:"errors"`
}

// BulkDeleteProducts はまとめて削除する。1件の失敗は残りを止めない。
func (u *ProductUsecase) BulkDeleteProducts(ctx context.Context, sellerID int64, productIDs []int64) BulkDeleteOutput {
	out := BulkDeleteOutput{TotalRequested: len(productIDs), Errors: []string{}}

	for _, id := range productIDs {
		if err := u.DeleteProduct(ctx, sellerID, id); err != nil {
			msg := err.Error()
			if de, ok := AsDomainError(err); ok {
				msg = de.Message
			}
			out.Errors = append(out.Errors, msg)
			continue
		}
		out.DeletedCount++
	}
	return out
}

type SellerStats struct {
	TotalProducts       int64 `json:"total_products"`
	PublishedProducts   int64 `json:"published_products"`
	UnpublishedProducts int64 `json:"unpublished_products"`
	TotalInventoryValue int64 `json:"total_inventory_value"`
	TotalImages         int64 `json:"total_images"`
}

// SellerProductStats はセラーの商品集計を返す。読み取り専用。
func (u *ProductUsecase) SellerProductStats(ctx context.Context, sellerID int64) (SellerStats, error) {
	total, published, err := u.productRepo.CountBySellerID(ctx, sellerID)
	if err != nil {
		return SellerStats{}, errInternal()
	}
	value, err := u.productRepo.InventoryValueBySellerID(ctx, sellerID)
	if err != nil {
		return SellerStats{}, errInternal()
	}
	images, err := u.imageRepo.CountBySellerID(ctx, sellerID)
	if err != nil {
		return SellerStats{}, errInternal()
	}

	return SellerStats{
		TotalProducts:       total,
		PublishedProducts:   published,
		UnpublishedProducts: total - published,
		TotalInventoryValue: value,
		TotalImages:         images,
	}, nil
}
