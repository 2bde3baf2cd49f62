package usecase_test

import (
	"context"
	"testing"

	"marketplace/internal/domain/model"
	"marketplace/internal/gateway"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	images    repo.ProductImageRepository
	users     repo.UserRepository
}

func (r *TxReposMock) Carts() repo.CartRepository                 { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *TxReposMock) Products() repo.ProductRepository           { return r.products }
func (r *TxReposMock) ProductImages() repo.ProductImageRepository { return r.images }
func (r *TxReposMock) Users() repo.UserRepository                 { return r.users }

// =====================
// Repository mocks
// =====================

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) ClearItems(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	item, _ := args.Get(0).(model.CartItem)
	return item, args.Error(1)
}

func (m *CartItemRepoMock) FindByCartAndProductForUpdate(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	item, _ := args.Get(0).(model.CartItem)
	return item, args.Error(1)
}

func (m *CartItemRepoMock) Create(ctx context.Context, item *model.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDForUpdate(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) Update(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *ProductRepoMock) FindBySellerAndID(ctx context.Context, sellerID int64, productID int64) (model.Product, error) {
	args := m.Called(ctx, sellerID, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) CountBySellerID(ctx context.Context, sellerID int64) (int64, int64, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) InventoryValueBySellerID(ctx context.Context, sellerID int64) (int64, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(int64), args.Error(1)
}

type ProductImageRepoMock struct{ mock.Mock }

func (m *ProductImageRepoMock) ListByProductID(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	args := m.Called(ctx, productID)
	images, _ := args.Get(0).([]model.ProductImage)
	return images, args.Error(1)
}

func (m *ProductImageRepoMock) FindByProductAndID(ctx context.Context, productID int64, imageID int64) (model.ProductImage, error) {
	args := m.Called(ctx, productID, imageID)
	img, _ := args.Get(0).(model.ProductImage)
	return img, args.Error(1)
}

func (m *ProductImageRepoMock) FindMainByProductIDForUpdate(ctx context.Context, productID int64) (model.ProductImage, error) {
	args := m.Called(ctx, productID)
	img, _ := args.Get(0).(model.ProductImage)
	return img, args.Error(1)
}

func (m *ProductImageRepoMock) CountByProductID(ctx context.Context, productID int64) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProductImageRepoMock) CountBySellerID(ctx context.Context, sellerID int64) (int64, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProductImageRepoMock) Create(ctx context.Context, img *model.ProductImage) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *ProductImageRepoMock) UpdateURL(ctx context.Context, imageID int64, url string) error {
	args := m.Called(ctx, imageID, url)
	return args.Error(0)
}

func (m *ProductImageRepoMock) UpdateSortOrder(ctx context.Context, imageID int64, sortOrder int) error {
	args := m.Called(ctx, imageID, sortOrder)
	return args.Error(0)
}

func (m *ProductImageRepoMock) ClearMain(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *ProductImageRepoMock) SetMain(ctx context.Context, imageID int64) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

func (m *ProductImageRepoMock) DeleteByID(ctx context.Context, imageID int64) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

func (m *ProductImageRepoMock) DeleteByProductID(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type CategoryRepoMock struct{ mock.Mock }

func (m *CategoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Category)
	return cs, args.Error(1)
}

func (m *CategoryRepoMock) FindByID(ctx context.Context, categoryID int64) (model.Category, error) {
	args := m.Called(ctx, categoryID)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// =====================
// MediaStorage mock
// =====================

type MediaStorageMock struct{ mock.Mock }

func (m *MediaStorageMock) Upload(ctx context.Context, productID int64, file gateway.File) (gateway.UploadResult, error) {
	args := m.Called(ctx, productID, file)
	res, _ := args.Get(0).(gateway.UploadResult)
	return res, args.Error(1)
}

func (m *MediaStorageMock) UploadBatch(ctx context.Context, productID int64, files []gateway.File) gateway.BatchUploadResult {
	args := m.Called(ctx, productID, files)
	res, _ := args.Get(0).(gateway.BatchUploadResult)
	return res
}

func (m *MediaStorageMock) Delete(ctx context.Context, assetID string) error {
	args := m.Called(ctx, assetID)
	return args.Error(0)
}

func (m *MediaStorageMock) DeleteBatch(ctx context.Context, assetIDs []string) []string {
	args := m.Called(ctx, assetIDs)
	failed, _ := args.Get(0).([]string)
	return failed
}

func (m *MediaStorageMock) ExtractAssetID(url string) string {
	args := m.Called(url)
	return args.String(0)
}

func (m *MediaStorageMock) TransformedURL(assetID string, sizeTag string) string {
	args := m.Called(assetID, sizeTag)
	return args.String(0)
}

// =====================
// Helpers
// =====================

func assertErrCode(t *testing.T, err error, code usecase.ErrorCode) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, usecase.HasCode(err, code), "expected code %s, got %v", code, err)
}
