package usecase_test

import (
	"context"
	"errors"
	"testing"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// テスト環境の組み立て
// =====================

type imageEnv struct {
	tm       *TxManagerMock
	prodRepo *ProductRepoMock
	imgRepo  *ProductImageRepoMock
	media    *MediaStorageMock
	uc       *usecase.ProductImageUsecase
}

func newImageEnv() *imageEnv {
	e := &imageEnv{
		prodRepo: new(ProductRepoMock),
		imgRepo:  new(ProductImageRepoMock),
		media:    new(MediaStorageMock),
	}
	e.tm = &TxManagerMock{Repos: &TxReposMock{
		products: e.prodRepo,
		images:   e.imgRepo,
	}}
	e.tm.On("WithinTx", mock.Anything).Return()

	e.uc = usecase.NewProductImageUsecase(e.tm, e.prodRepo, e.imgRepo, e.media, 5)
	return e
}

// セラー7の商品1
func (e *imageEnv) stubOwnedProduct() {
	e.prodRepo.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, SellerID: 7, Name: "mug", Published: true}, nil)
}

func testFile() gateway.File {
	return gateway.File{Filename: "photo.jpg", Size: 1024}
}

// =====================
// 所有チェック
// =====================

func TestProductImageUsecase_UploadMainImage_ProductNotFound(t *testing.T) {
	e := newImageEnv()
	e.prodRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)

	_, err := e.uc.UploadMainImage(context.Background(), 7, 99, testFile())
	assertErrCode(t, err, usecase.CodeProductNotFound)
}

func TestProductImageUsecase_UploadMainImage_NotOwner(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	_, err := e.uc.UploadMainImage(context.Background(), 8, 1, testFile())
	assertErrCode(t, err, usecase.CodeNotAuthorized)
	e.media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// UploadMainImage
// =====================

func TestProductImageUsecase_UploadMainImage_FirstImage(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.media.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(gateway.UploadResult{AssetID: "products/new", URL: "https://cdn.example.com/products/new.jpg"}, nil)
	e.imgRepo.On("FindMainByProductIDForUpdate", mock.Anything, int64(1)).
		Return(model.ProductImage{}, repo.ErrNotFound)
	e.imgRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.ProductImage")).
		Run(func(args mock.Arguments) { args.Get(1).(*model.ProductImage).ID = 5 }).
		Return(nil)

	img, err := e.uc.UploadMainImage(context.Background(), 7, 1, testFile())
	assert.NoError(t, err)
	assert.True(t, img.IsMain)
	assert.Equal(t, "https://cdn.example.com/products/new.jpg", img.ImageURL)

	e.imgRepo.AssertExpectations(t)
}

// 既存メインがある場合は同じ行のURLを差し替え、旧資産を削除する
func TestProductImageUsecase_UploadMainImage_ReplacesInPlace(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.media.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(gateway.UploadResult{AssetID: "products/new", URL: "https://cdn.example.com/products/new.jpg"}, nil)
	e.imgRepo.On("FindMainByProductIDForUpdate", mock.Anything, int64(1)).
		Return(model.ProductImage{ID: 5, ProductID: 1, ImageURL: "https://cdn.example.com/products/old.jpg", IsMain: true}, nil)
	e.media.On("ExtractAssetID", "https://cdn.example.com/products/old.jpg").Return("products/old")
	e.media.On("Delete", mock.Anything, "products/old").Return(nil)
	e.imgRepo.On("UpdateURL", mock.Anything, int64(5), "https://cdn.example.com/products/new.jpg").Return(nil)

	img, err := e.uc.UploadMainImage(context.Background(), 7, 1, testFile())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), img.ID)
	assert.Equal(t, "https://cdn.example.com/products/new.jpg", img.ImageURL)

	e.media.AssertExpectations(t)
	e.imgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 旧資産の削除に失敗しても差し替えは成功する
func TestProductImageUsecase_UploadMainImage_OldAssetDeleteFailureIsIgnored(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.media.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(gateway.UploadResult{AssetID: "products/new", URL: "https://cdn.example.com/products/new.jpg"}, nil)
	e.imgRepo.On("FindMainByProductIDForUpdate", mock.Anything, int64(1)).
		Return(model.ProductImage{ID: 5, ProductID: 1, ImageURL: "https://cdn.example.com/products/old.jpg", IsMain: true}, nil)
	e.media.On("ExtractAssetID", "https://cdn.example.com/products/old.jpg").Return("products/old")
	e.media.On("Delete", mock.Anything, "products/old").Return(errors.New("remote down"))
	e.imgRepo.On("UpdateURL", mock.Anything, int64(5), "https://cdn.example.com/products/new.jpg").Return(nil)

	img, err := e.uc.UploadMainImage(context.Background(), 7, 1, testFile())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), img.ID)
}

// DB保存に失敗したらアップロード済み資産を補償削除する
func TestProductImageUsecase_UploadMainImage_CompensatesOnDBFailure(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.media.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(gateway.UploadResult{AssetID: "products/new", URL: "https://cdn.example.com/products/new.jpg"}, nil)
	e.imgRepo.On("FindMainByProductIDForUpdate", mock.Anything, int64(1)).
		Return(model.ProductImage{}, errors.New("db down"))
	e.media.On("Delete", mock.Anything, "products/new").Return(nil)

	_, err := e.uc.UploadMainImage(context.Background(), 7, 1, testFile())
	assertErrCode(t, err, usecase.CodeInternal)

	e.media.AssertCalled(t, "Delete", mock.Anything, "products/new")
}

func TestProductImageUsecase_UploadMainImage_UploadFailed(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.media.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(gateway.UploadResult{}, errors.New("timeout"))

	_, err := e.uc.UploadMainImage(context.Background(), 7, 1, testFile())
	assertErrCode(t, err, usecase.CodeUploadFailed)
}

// =====================
// UploadSecondaryImages
// =====================

// 上限超過は1枚もアップロードせずに拒否する
func TestProductImageUsecase_UploadSecondaryImages_TooMany(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(3), nil)

	files := []gateway.File{testFile(), testFile(), testFile()}
	_, err := e.uc.UploadSecondaryImages(context.Background(), 7, 1, files)
	assertErrCode(t, err, usecase.CodeTooManyImages)

	de, _ := usecase.AsDomainError(err)
	assert.Contains(t, de.Message, "at most 4 secondary images")
	e.media.AssertNotCalled(t, "UploadBatch", mock.Anything, mock.Anything, mock.Anything)
}

// ファイル単位の失敗は他のファイルを止めない
func TestProductImageUsecase_UploadSecondaryImages_PartialFailure(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(1), nil)
	e.media.On("UploadBatch", mock.Anything, int64(1), mock.Anything).
		Return(gateway.BatchUploadResult{
			Uploaded: []gateway.UploadResult{{AssetID: "products/a", URL: "https://cdn.example.com/products/a.jpg"}},
			Failed:   []gateway.UploadFailure{{Index: 1, Filename: "broken.jpg", Error: "corrupt"}},
		})
	e.imgRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.ProductImage")).
		Run(func(args mock.Arguments) { args.Get(1).(*model.ProductImage).ID = 6 }).
		Return(nil)

	out, err := e.uc.UploadSecondaryImages(context.Background(), 7, 1, []gateway.File{testFile(), testFile()})
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, 1, out.Skipped)
	assert.Len(t, out.Images, 1)
	assert.False(t, out.Images[0].IsMain)
	assert.Equal(t, 2, out.Images[0].SortOrder) // 既存1枚の次

	e.imgRepo.AssertExpectations(t)
}

func TestProductImageUsecase_UploadSecondaryImages_AllUploadsFailed(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(0), nil)
	e.media.On("UploadBatch", mock.Anything, int64(1), mock.Anything).
		Return(gateway.BatchUploadResult{
			Failed: []gateway.UploadFailure{{Index: 0, Filename: "a.jpg", Error: "corrupt"}},
		})

	_, err := e.uc.UploadSecondaryImages(context.Background(), 7, 1, []gateway.File{testFile()})
	assertErrCode(t, err, usecase.CodeUploadFailed)
}

// DB保存に失敗したらアップロード済み資産をまとめて補償削除する
func TestProductImageUsecase_UploadSecondaryImages_CompensatesOnDBFailure(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(0), nil)
	e.media.On("UploadBatch", mock.Anything, int64(1), mock.Anything).
		Return(gateway.BatchUploadResult{
			Uploaded: []gateway.UploadResult{
				{AssetID: "products/a", URL: "https://cdn.example.com/products/a.jpg"},
				{AssetID: "products/b", URL: "https://cdn.example.com/products/b.jpg"},
			},
		})
	e.imgRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.ProductImage")).
		Return(errors.New("db down"))
	e.media.On("DeleteBatch", mock.Anything, []string{"products/a", "products/b"}).Return([]string(nil))

	_, err := e.uc.UploadSecondaryImages(context.Background(), 7, 1, []gateway.File{testFile(), testFile()})
	assertErrCode(t, err, usecase.CodeInternal)

	e.media.AssertExpectations(t)
}

// =====================
// DeleteImage
// =====================

func TestProductImageUsecase_DeleteImage_OnlyImageRejected(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(5)).
		Return(model.ProductImage{ID: 5, ProductID: 1, ImageURL: "https://cdn.example.com/products/a.jpg", IsMain: true}, nil)
	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(1), nil)

	_, err := e.uc.DeleteImage(context.Background(), 7, 1, 5)
	assertErrCode(t, err, usecase.CodeCannotDeleteOnlyImg)

	e.media.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	e.imgRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

// メインを消したら最古のサブをメインへ昇格する
func TestProductImageUsecase_DeleteImage_MainPromotesOldest(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(5)).
		Return(model.ProductImage{ID: 5, ProductID: 1, ImageURL: "https://cdn.example.com/products/a.jpg", IsMain: true}, nil)
	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(2), nil)
	e.media.On("ExtractAssetID", "https://cdn.example.com/products/a.jpg").Return("products/a")
	e.media.On("Delete", mock.Anything, "products/a").Return(nil)
	e.imgRepo.On("DeleteByID", mock.Anything, int64(5)).Return(nil)
	e.imgRepo.On("ListByProductID", mock.Anything, int64(1)).
		Return([]model.ProductImage{{ID: 6, ProductID: 1, ImageURL: "https://cdn.example.com/products/b.jpg"}}, nil)
	e.imgRepo.On("SetMain", mock.Anything, int64(6)).Return(nil)

	out, err := e.uc.DeleteImage(context.Background(), 7, 1, 5)
	assert.NoError(t, err)
	assert.Equal(t, usecase.ImageTypeMain, out.DeletedType)

	e.imgRepo.AssertExpectations(t)
}

func TestProductImageUsecase_DeleteImage_Secondary(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(6)).
		Return(model.ProductImage{ID: 6, ProductID: 1, ImageURL: "https://cdn.example.com/products/b.jpg", IsMain: false}, nil)
	e.imgRepo.On("CountByProductID", mock.Anything, int64(1)).Return(int64(3), nil)
	e.media.On("ExtractAssetID", "https://cdn.example.com/products/b.jpg").Return("products/b")
	e.media.On("Delete", mock.Anything, "products/b").Return(nil)
	e.imgRepo.On("DeleteByID", mock.Anything, int64(6)).Return(nil)

	out, err := e.uc.DeleteImage(context.Background(), 7, 1, 6)
	assert.NoError(t, err)
	assert.Equal(t, usecase.ImageTypeSecondary, out.DeletedType)

	e.imgRepo.AssertNotCalled(t, "SetMain", mock.Anything, mock.Anything)
}

// =====================
// SetMainImage
// =====================

func TestProductImageUsecase_SetMainImage_AlreadyMain(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(5)).
		Return(model.ProductImage{ID: 5, ProductID: 1, IsMain: true}, nil)

	_, err := e.uc.SetMainImage(context.Background(), 7, 1, 5)
	assertErrCode(t, err, usecase.CodeAlreadyMain)

	e.imgRepo.AssertNotCalled(t, "ClearMain", mock.Anything, mock.Anything)
}

func TestProductImageUsecase_SetMainImage_Success(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(6)).
		Return(model.ProductImage{ID: 6, ProductID: 1, IsMain: false}, nil)
	e.imgRepo.On("ClearMain", mock.Anything, int64(1)).Return(nil)
	e.imgRepo.On("SetMain", mock.Anything, int64(6)).Return(nil)

	img, err := e.uc.SetMainImage(context.Background(), 7, 1, 6)
	assert.NoError(t, err)
	assert.True(t, img.IsMain)
	assert.Equal(t, int64(6), img.ID)

	e.imgRepo.AssertExpectations(t)
}

// =====================
// ReorderImages
// =====================

// 商品に属さないIDが混ざっていたら全体を拒否する
func TestProductImageUsecase_ReorderImages_InvalidIDRejectsAll(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("ListByProductID", mock.Anything, int64(1)).
		Return([]model.ProductImage{{ID: 5, ProductID: 1}, {ID: 6, ProductID: 1}}, nil)

	err := e.uc.ReorderImages(context.Background(), 7, 1, []int64{5, 999}, 0)
	assertErrCode(t, err, usecase.CodeInvalidImageSet)

	e.imgRepo.AssertNotCalled(t, "ClearMain", mock.Anything, mock.Anything)
	e.imgRepo.AssertNotCalled(t, "UpdateSortOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImageUsecase_ReorderImages_Success(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("ListByProductID", mock.Anything, int64(1)).
		Return([]model.ProductImage{{ID: 5, ProductID: 1}, {ID: 6, ProductID: 1}, {ID: 7, ProductID: 1}}, nil)
	e.imgRepo.On("ClearMain", mock.Anything, int64(1)).Return(nil)
	e.imgRepo.On("UpdateSortOrder", mock.Anything, int64(7), 0).Return(nil)
	e.imgRepo.On("UpdateSortOrder", mock.Anything, int64(5), 1).Return(nil)
	e.imgRepo.On("UpdateSortOrder", mock.Anything, int64(6), 2).Return(nil)
	e.imgRepo.On("SetMain", mock.Anything, int64(6)).Return(nil)

	err := e.uc.ReorderImages(context.Background(), 7, 1, []int64{7, 5, 6}, 6)
	assert.NoError(t, err)

	e.imgRepo.AssertExpectations(t)
}

// main_image_id省略時は並び順の先頭がメインになる
func TestProductImageUsecase_ReorderImages_DefaultsMainToFirst(t *testing.T) {
	e := newImageEnv()
	e.stubOwnedProduct()

	e.imgRepo.On("ListByProductID", mock.Anything, int64(1)).
		Return([]model.ProductImage{{ID: 5, ProductID: 1}, {ID: 6, ProductID: 1}}, nil)
	e.imgRepo.On("ClearMain", mock.Anything, int64(1)).Return(nil)
	e.imgRepo.On("UpdateSortOrder", mock.Anything, int64(6), 0).Return(nil)
	e.imgRepo.On("UpdateSortOrder", mock.Anything, int64(5), 1).Return(nil)
	e.imgRepo.On("SetMain", mock.Anything, int64(6)).Return(nil)

	err := e.uc.ReorderImages(context.Background(), 7, 1, []int64{6, 5}, 0)
	assert.NoError(t, err)

	e.imgRepo.AssertExpectations(t)
}

// =====================
// TransformedURLs
// =====================

func TestProductImageUsecase_TransformedURLs_Success(t *testing.T) {
	e := newImageEnv()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(5)).
		Return(model.ProductImage{ID: 5, ProductID: 1, ImageURL: "https://cdn.example.com/products/a.jpg"}, nil)
	e.media.On("ExtractAssetID", "https://cdn.example.com/products/a.jpg").Return("products/a")
	e.media.On("TransformedURL", "products/a", gateway.SizeThumbnail).Return("https://cdn.example.com/t/a.jpg")
	e.media.On("TransformedURL", "products/a", gateway.SizeMedium).Return("https://cdn.example.com/m/a.jpg")
	e.media.On("TransformedURL", "products/a", gateway.SizeLarge).Return("https://cdn.example.com/l/a.jpg")

	out, err := e.uc.TransformedURLs(context.Background(), 1, 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ImageID)
	assert.Len(t, out.Transformations, 3)
	assert.Equal(t, "https://cdn.example.com/t/a.jpg", out.Transformations[gateway.SizeThumbnail])
}

func TestProductImageUsecase_TransformedURLs_ImageNotFound(t *testing.T) {
	e := newImageEnv()

	e.imgRepo.On("FindByProductAndID", mock.Anything, int64(1), int64(99)).
		Return(model.ProductImage{}, repo.ErrNotFound)

	_, err := e.uc.TransformedURLs(context.Background(), 1, 99)
	assertErrCode(t, err, usecase.CodeImageNotFound)
}
