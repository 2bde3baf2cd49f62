package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"
)

// 削除された画像の種別
const (
	ImageTypeMain      = "main"
	ImageTypeSecondary = "secondary"
)

// ProductImageUsecase は「メイン画像はちょうど1枚」の不変条件を守りながら
// メディアホストへのアップロード/削除を調停する。
// リモート資産はDBレコードに従属し、失敗時は補償削除で孤児を防ぐ。
type ProductImageUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	imageRepo   repo.ProductImageRepository
	media       gateway.MediaStorage
	maxImages   int64
}

func NewProductImageUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	imageRepo repo.ProductImageRepository,
	media gateway.MediaStorage,
	maxImages int64,
) *ProductImageUsecase {
	return &ProductImageUsecase{
		tx:          tx,
		productRepo: productRepo,
		imageRepo:   imageRepo,
		media:       media,
		maxImages:   maxImages,
	}
}

// 商品の存在とセラー所有を確認する。全操作の入口。
func (u *ProductImageUsecase) authorizeSeller(ctx context.Context, userID int64, productID int64) (model.Product, error) {
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewDomainError(CodeProductNotFound, http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, errInternal()
	}
	if p.SellerID != userID {
		return model.Product{}, NewDomainError(CodeNotAuthorized, http.StatusForbidden, "you do not own this product")
	}
	return p, nil
}

// UploadMainImage はメイン画像を差し替える。
// 既存メインがあれば同じ行のURLを書き換え、旧リモート資産はベストエフォートで削除。
// アップロード成功後にDBが失敗したら、新しいリモート資産を補償削除してから返す。
func (u *ProductImageUsecase) UploadMainImage(ctx context.Context, userID int64, productID int64, file gateway.File) (model.ProductImage, error) {
	if _, err := u.authorizeSeller(ctx, userID, productID); err != nil {
		return model.ProductImage{}, err
	}

	uploaded, err := u.media.Upload(ctx, productID, file)
	if err != nil {
		return model.ProductImage{}, NewDomainError(CodeUploadFailed, http.StatusBadGateway, "failed to upload image: %v", err)
	}

	var result model.ProductImage

	txErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := r.ProductImages().FindMainByProductIDForUpdate(ctx, productID)
		switch {
		case err == nil:
			// 旧資産の削除失敗は致命ではない。新画像の保存を優先する。
			if oldID := u.media.ExtractAssetID(current.ImageURL); oldID != "" {
				if derr := u.media.Delete(ctx, oldID); derr != nil {
					log.Printf("product %d: failed to delete old main image asset %s: %v", productID, oldID, derr)
				}
			}
			if err := r.ProductImages().UpdateURL(ctx, current.ID, uploaded.URL); err != nil {
				return errInternal()
			}
			current.ImageURL = uploaded.URL
			result = current
			return nil

		case errors.Is(err, repo.ErrNotFound):
			img := model.ProductImage{
				ProductID: productID,
				ImageURL:  uploaded.URL,
				IsMain:    true,
			}
			if err := r.ProductImages().Create(ctx, &img); err != nil {
				return errInternal()
			}
			result = img
			return nil

		default:
			return errInternal()
		}
	})
	if txErr != nil {
		// アップロード済み資産を孤児にしない
		if derr := u.media.Delete(ctx, uploaded.AssetID); derr != nil {
			log.Printf("product %d: compensating delete of asset %s failed: %v", productID, uploaded.AssetID, derr)
		}
		return model.ProductImage{}, txErr
	}

	return result, nil
}

type SecondaryUploadOutput struct {
	Images  []model.ProductImage    `json:"images"`
	Failed  []gateway.UploadFailure `json:"failed"`
	Total   int                     `json:"total_uploaded"`
	Skipped int                     `json:"total_failed"`
}

// UploadSecondaryImages はサブ画像を一括追加する（全てis_main=false）。
// ファイル単位の失敗は他を止めず、結果に載せて返す。
func (u *ProductImageUsecase) UploadSecondaryImages(ctx context.Context, userID int64, productID int64, files []gateway.File) (SecondaryUploadOutput, error) {
	if _, err := u.authorizeSeller(ctx, userID, productID); err != nil {
		return SecondaryUploadOutput{}, err
	}
	if len(files) == 0 {
		return SecondaryUploadOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "no files given")
	}

	current, err := u.imageRepo.CountByProductID(ctx, productID)
	if err != nil {
		return SecondaryUploadOutput{}, errInternal()
	}

	// メイン画像の枠を1つ確保した上限
	maxSecondary := u.maxImages - 1
	if current+int64(len(files)) > u.maxImages {
		return SecondaryUploadOutput{}, NewDomainError(CodeTooManyImages, http.StatusUnprocessableEntity,
			"a product can have at most %d secondary images; it currently has %d images", maxSecondary, current)
	}

	batch := u.media.UploadBatch(ctx, productID, files)
	if len(batch.Uploaded) == 0 {
		return SecondaryUploadOutput{}, NewDomainError(CodeUploadFailed, http.StatusBadGateway, "all uploads failed")
	}

	var created []model.ProductImage

	txErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for i, up := range batch.Uploaded {
			img := model.ProductImage{
				ProductID: productID,
				ImageURL:  up.URL,
				IsMain:    false,
				SortOrder: int(current) + i + 1,
			}
			if err := r.ProductImages().Create(ctx, &img); err != nil {
				return errInternal()
			}
			created = append(created, img)
		}
		return nil
	})
	if txErr != nil {
		// 保存できなかったリモート資産をまとめて補償削除
		ids := make([]string, 0, len(batch.Uploaded))
		for _, up := range batch.Uploaded {
			ids = append(ids, up.AssetID)
		}
		if failed := u.media.DeleteBatch(ctx, ids); len(failed) > 0 {
			log.Printf("product %d: compensating delete left orphaned assets: %v", productID, failed)
		}
		return SecondaryUploadOutput{}, txErr
	}

	return SecondaryUploadOutput{
		Images:  created,
		Failed:  batch.Failed,
		Total:   len(created),
		Skipped: len(batch.Failed),
	}, nil
}

type DeleteImageOutput struct {
	DeletedType string `json:"deleted_type"`
}

// DeleteImage は画像を1枚削除する。
// 最後の1枚は削除不可。メインを消した場合は最古のサブをメインへ昇格する。
func (u *ProductImageUsecase) DeleteImage(ctx context.Context, userID int64, productID int64, imageID int64) (DeleteImageOutput, error) {
	if _, err := u.authorizeSeller(ctx, userID, productID); err != nil {
		return DeleteImageOutput{}, err
	}

	var deletedType string

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		img, err := r.ProductImages().FindByProductAndID(ctx, productID, imageID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeImageNotFound, http.StatusNotFound, "image not found for this product")
		}
		if err != nil {
			return errInternal()
		}

		total, err := r.ProductImages().CountByProductID(ctx, productID)
		if err != nil {
			return errInternal()
		}
		if total <= 1 {
			return NewDomainError(CodeCannotDeleteOnlyImg, http.StatusUnprocessableEntity,
				"cannot delete the only image of a product")
		}

		// リモート削除はベストエフォート。DB削除を止めない。
		if assetID := u.media.ExtractAssetID(img.ImageURL); assetID != "" {
			if derr := u.media.Delete(ctx, assetID); derr != nil {
				log.Printf("product %d: failed to delete image asset %s: %v", productID, assetID, derr)
			}
		}

		if err := r.ProductImages().DeleteByID(ctx, imageID); err != nil {
			return errInternal()
		}

		if img.IsMain {
			deletedType = ImageTypeMain
			// 最古のサブをメインへ昇格。残りが無ければそのまま（並行削除時のみ到達）。
			remaining, err := r.ProductImages().ListByProductID(ctx, productID)
			if err != nil {
				return errInternal()
			}
			if len(remaining) > 0 {
				if err := r.ProductImages().SetMain(ctx, remaining[0].ID); err != nil {
					return errInternal()
				}
			}
		} else {
			deletedType = ImageTypeSecondary
		}
		return nil
	})
	if err != nil {
		return DeleteImageOutput{}, err
	}

	return DeleteImageOutput{DeletedType: deletedType}, nil
}

// SetMainImage は指定画像をメインにする。
// 既にメインの場合は冗長呼び出しとしてエラーを返す（no-op成功にはしない）。
// クリアとセットは1トランザクションで行い、中間状態を外に見せない。
func (u *ProductImageUsecase) SetMainImage(ctx context.Context, userID int64, productID int64, imageID int64) (model.ProductImage, error) {
	if _, err := u.authorizeSeller(ctx, userID, productID); err != nil {
		return model.ProductImage{}, err
	}

	var result model.ProductImage

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		img, err := r.ProductImages().FindByProductAndID(ctx, productID, imageID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeImageNotFound, http.StatusNotFound, "image not found for this product")
		}
		if err != nil {
			return errInternal()
		}

		if img.IsMain {
			return NewDomainError(CodeAlreadyMain, http.StatusUnprocessableEntity, "this image is already the main image")
		}

		if err := r.ProductImages().ClearMain(ctx, productID); err != nil {
			return errInternal()
		}
		if err := r.ProductImages().SetMain(ctx, imageID); err != nil {
			return errInternal()
		}

		img.IsMain = true
		result = img
		return nil
	})
	if err != nil {
		return model.ProductImage{}, err
	}

	return result, nil
}

// ReorderImages は表示順を並べ替え、メイン画像を指定（省略時は先頭）にする。
// 商品に属さないIDが混ざっていたら全体を拒否する。
func (u *ProductImageUsecase) ReorderImages(ctx context.Context, userID int64, productID int64, orderedIDs []int64, mainImageID int64) error {
	if _, err := u.authorizeSeller(ctx, userID, productID); err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return NewDomainError(CodeInvalidInput, http.StatusBadRequest, "image_order must not be empty")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		images, err := r.ProductImages().ListByProductID(ctx, productID)
		if err != nil {
			return errInternal()
		}

		owned := make(map[int64]struct{}, len(images))
		for _, img := range images {
			owned[img.ID] = struct{}{}
		}

		var invalid []int64
		for _, id := range orderedIDs {
			if _, ok := owned[id]; !ok {
				invalid = append(invalid, id)
			}
		}
		if len(invalid) > 0 {
			return NewDomainError(CodeInvalidImageSet, http.StatusUnprocessableEntity,
				"images do not belong to this product: %v", invalid)
		}
		if mainImageID != 0 {
			if _, ok := owned[mainImageID]; !ok {
				return NewDomainError(CodeInvalidImageSet, http.StatusUnprocessableEntity,
					"images do not belong to this product: %v", []int64{mainImageID})
			}
		}

		if err := r.ProductImages().ClearMain(ctx, productID); err != nil {
			return errInternal()
		}

		newMain := mainImageID
		if newMain == 0 {
			newMain = orderedIDs[0]
		}

		for pos, id := range orderedIDs {
			if err := r.ProductImages().UpdateSortOrder(ctx, id, pos); err != nil {
				return errInternal()
			}
		}
		return r.ProductImages().SetMain(ctx, newMain)
	})
}

type TransformedURLsOutput struct {
	ImageID         int64             `json:"image_id"`
	OriginalURL     string            `json:"original_url"`
	Transformations map[string]string `json:"transformations"`
}

// TransformedURLs はサイズ別の変換URLを返す。
func (u *ProductImageUsecase) TransformedURLs(ctx context.Context, productID int64, imageID int64) (TransformedURLsOutput, error) {
	img, err := u.imageRepo.FindByProductAndID(ctx, productID, imageID)
	if errors.Is(err, repo.ErrNotFound) {
		return TransformedURLsOutput{}, NewDomainError(CodeImageNotFound, http.StatusNotFound, "image not found for this product")
	}
	if err != nil {
		return TransformedURLsOutput{}, errInternal()
	}

	assetID := u.media.ExtractAssetID(img.ImageURL)
	if assetID == "" {
		return TransformedURLsOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest,
			"cannot build transformed URLs for this image")
	}

	out := TransformedURLsOutput{
		ImageID:         imageID,
		OriginalURL:     img.ImageURL,
		Transformations: map[string]string{},
	}
	for _, size := range []string{gateway.SizeThumbnail, gateway.SizeMedium, gateway.SizeLarge} {
		out.Transformations[size] = u.media.TransformedURL(assetID, size)
	}
	return out, nil
}
