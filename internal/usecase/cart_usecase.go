package usecase

import (
	"context"
	"errors"
	"net/http"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

// カート操作の結果アクション
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

// CartUsecase は /cart の業務ロジックです。
// 単品の変更は全てTransactionManager内で行い、違反時は部分更新を残さない。
type CartUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	imageRepo    repo.ProductImageRepository
	userRepo     repo.UserRepository
	maxItemQty   int64
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	imageRepo repo.ProductImageRepository,
	userRepo repo.UserRepository,
	maxItemQty int64,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		imageRepo:    imageRepo,
		userRepo:     userRepo,
		maxItemQty:   maxItemQty,
	}
}

// 明細＋商品詳細のビュー
type CartItemView struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
	SellerID   int64  `json:"seller_id"`
	SellerName string `json:"seller_name"`
	CategoryID int64  `json:"category_id"`
	ImageURL   string `json:"image_url"`
	Available  bool   `json:"available"`
}

type CartView struct {
	ID          int64          `json:"id"`
	Items       []CartItemView `json:"items"`
	TotalItems  int64          `json:"total_items"`
	TotalAmount int64          `json:"total_amount"`
	IsEmpty     bool           `json:"is_empty"`
}

// 追加/更新/削除の共通レスポンス
type CartMutationOutput struct {
	Action string        `json:"action"`
	Item   *CartItemView `json:"cart_item"`
	Cart   CartView      `json:"cart"`
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartView, error) {
	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, errInternal()
	}
	return u.loadCartView(ctx, cart.ID)
}

// AddToCart はカートに追加（同一商品は数量加算）。
// チェック順: 商品存在→公開→在庫→自己購入→合算在庫。全て1トランザクション。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, productID int64, quantity int64) (CartMutationOutput, error) {
	if productID <= 0 {
		return CartMutationOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid product_id")
	}
	if quantity < 1 {
		return CartMutationOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid quantity")
	}
	if quantity > u.maxItemQty {
		return CartMutationOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "quantity exceeds limit of %d", u.maxItemQty)
	}

	var (
		action string
		itemID int64
		cartID int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 在庫チェックと同時更新の競合を防ぐため行ロック付きで取得
		p, err := r.Products().FindByIDForUpdate(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeProductNotFound, http.StatusNotFound, "product not found")
		}
		if err != nil {
			return errInternal()
		}

		if !p.Published {
			return NewDomainError(CodeProductUnavailable, http.StatusBadRequest, "this product is currently unavailable")
		}
		if quantity > p.StockQty {
			return NewDomainError(CodeInsufficientStock, http.StatusBadRequest, "only %d left in stock", p.StockQty)
		}
		if p.SellerID == userID {
			return NewDomainError(CodeSelfPurchase, http.StatusBadRequest, "you cannot buy your own product")
		}

		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errInternal()
		}
		cartID = cart.ID

		existing, err := r.CartItems().FindByCartAndProductForUpdate(ctx, cart.ID, productID)
		switch {
		case err == nil:
			// 既存明細あり: 合算後の数量で在庫を再チェック
			newQty := existing.Quantity + quantity
			if newQty > p.StockQty {
				return NewDomainError(CodeInsufficientStock, http.StatusBadRequest,
					"total quantity (%d) exceeds stock (%d)", newQty, p.StockQty)
			}
			if newQty > u.maxItemQty {
				return NewDomainError(CodeInvalidInput, http.StatusBadRequest, "quantity exceeds limit of %d", u.maxItemQty)
			}
			if err := r.CartItems().UpdateQuantity(ctx, existing.ID, newQty); err != nil {
				return errInternal()
			}
			action = ActionUpdated
			itemID = existing.ID
			return nil

		case errors.Is(err, repo.ErrNotFound):
			item := model.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
			}
			if err := r.CartItems().Create(ctx, &item); err != nil {
				return errInternal()
			}
			action = ActionAdded
			itemID = item.ID
			return nil

		default:
			return errInternal()
		}
	})
	if err != nil {
		return CartMutationOutput{}, err
	}

	return u.mutationOutput(ctx, cartID, action, itemID)
}

// UpdateCartItem は数量変更（所有チェック＋在庫チェック）。
// quantity<=0 は削除を意味する。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, quantity int64) (CartMutationOutput, error) {
	if cartItemID <= 0 {
		return CartMutationOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "invalid id")
	}
	if quantity > u.maxItemQty {
		return CartMutationOutput{}, NewDomainError(CodeInvalidInput, http.StatusBadRequest, "quantity exceeds limit of %d", u.maxItemQty)
	}

	var (
		action string
		itemID int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeItemNotFound, http.StatusNotFound, "cart item not found")
		}
		if err != nil {
			return errInternal()
		}

		owned, err := r.CartItems().IsOwnedByUser(ctx, cartItemID, userID)
		if err != nil {
			return errInternal()
		}
		if !owned {
			return NewDomainError(CodeNotAuthorized, http.StatusForbidden, "you do not own this cart item")
		}

		if quantity <= 0 {
			if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
				return errInternal()
			}
			action = ActionRemoved
			return nil
		}

		p, err := r.Products().FindByIDForUpdate(ctx, item.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeProductUnavailable, http.StatusBadRequest, "this product is currently unavailable")
		}
		if err != nil {
			return errInternal()
		}
		if !p.Published {
			return NewDomainError(CodeProductUnavailable, http.StatusBadRequest, "this product is currently unavailable")
		}
		if quantity > p.StockQty {
			return NewDomainError(CodeInsufficientStock, http.StatusBadRequest, "only %d left in stock", p.StockQty)
		}

		if err := r.CartItems().UpdateQuantity(ctx, cartItemID, quantity); err != nil {
			return errInternal()
		}
		action = ActionUpdated
		itemID = cartItemID
		return nil
	})
	if err != nil {
		return CartMutationOutput{}, err
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartMutationOutput{}, errInternal()
	}
	return u.mutationOutput(ctx, cart.ID, action, itemID)
}

// RemoveFromCart は明細削除。在庫状態に関係なく常に許可。
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, cartItemID int64) (CartView, error) {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.CartItems().FindByID(ctx, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewDomainError(CodeItemNotFound, http.StatusNotFound, "cart item not found")
		}
		if err != nil {
			return errInternal()
		}

		owned, err := r.CartItems().IsOwnedByUser(ctx, cartItemID, userID)
		if err != nil {
			return errInternal()
		}
		if !owned {
			return NewDomainError(CodeNotAuthorized, http.StatusForbidden, "you do not own this cart item")
		}

		if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
			return errInternal()
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, errInternal()
	}
	return u.loadCartView(ctx, cart.ID)
}

// ClearCart は全明細を削除（冪等）。カート行は残す。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartView, error) {
	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, errInternal()
	}
	if err := u.cartRepo.ClearItems(ctx, cart.ID); err != nil {
		return CartView{}, errInternal()
	}
	return u.loadCartView(ctx, cart.ID)
}

// クリーンアップで削除された明細
type RemovedItem struct {
	ItemID      int64  `json:"item_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

// クリーンアップで数量調整された明細
type AdjustedItem struct {
	ItemID      int64  `json:"item_id"`
	ProductName string `json:"product_name"`
	OldQuantity int64  `json:"old_quantity"`
	NewQuantity int64  `json:"new_quantity"`
	Reason      string `json:"reason"`
}

type CleanCartOutput struct {
	Cart         CartView       `json:"cart"`
	RemovedItems []RemovedItem  `json:"removed_items"`
	UpdatedItems []AdjustedItem `json:"updated_items"`
	HasChanges   bool           `json:"has_changes"`
}

// ValidateAndCleanCart は全明細を検査し、問題は削除か数量クランプで解消する。
// 明細単位の読み取り修復であり、途中でエラーにして全体を中断することはない。
func (u *CartUsecase) ValidateAndCleanCart(ctx context.Context, userID int64) (CleanCartOutput, error) {
	removed := []RemovedItem{}
	updated := []AdjustedItem{}
	var cartID int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errInternal()
		}
		cartID = cart.ID

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return errInternal()
		}

		for _, item := range items {
			p, err := r.Products().FindByID(ctx, item.ProductID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return errInternal()
			}

			// 商品が削除済みか非公開なら明細を落とす
			if errors.Is(err, repo.ErrNotFound) || !p.Published {
				if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
					return errInternal()
				}
				removed = append(removed, RemovedItem{
					ItemID:      item.ID,
					ProductName: p.Name,
					Reason:      "no longer available",
				})
				continue
			}

			// 在庫超過は在庫までクランプ、在庫ゼロなら削除
			if item.Quantity > p.StockQty {
				if p.StockQty > 0 {
					if err := r.CartItems().UpdateQuantity(ctx, item.ID, p.StockQty); err != nil {
						return errInternal()
					}
					updated = append(updated, AdjustedItem{
						ItemID:      item.ID,
						ProductName: p.Name,
						OldQuantity: item.Quantity,
						NewQuantity: p.StockQty,
						Reason:      "adjusted to stock",
					})
				} else {
					if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
						return errInternal()
					}
					removed = append(removed, RemovedItem{
						ItemID:      item.ID,
						ProductName: p.Name,
						Reason:      "out of stock",
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return CleanCartOutput{}, err
	}

	view, err := u.loadCartView(ctx, cartID)
	if err != nil {
		return CleanCartOutput{}, err
	}

	return CleanCartOutput{
		Cart:         view,
		RemovedItems: removed,
		UpdatedItems: updated,
		HasChanges:   len(removed) > 0 || len(updated) > 0,
	}, nil
}

// セラーごとの集計
type SellerGroup struct {
	SellerID    int64  `json:"seller_id"`
	SellerName  string `json:"seller_name"`
	ItemsCount  int    `json:"items_count"`
	TotalAmount int64  `json:"total_amount"`
}

type CartStats struct {
	TotalItems          int64         `json:"total_items"`
	TotalUniqueProducts int           `json:"total_unique_products"`
	TotalAmount         int64         `json:"total_amount"`
	SellersCount        int           `json:"sellers_count"`
	CategoriesCount     int           `json:"categories_count"`
	AverageItemPrice    float64       `json:"average_item_price"`
	MostExpensiveItem   int64         `json:"most_expensive_item"`
	CheapestItem        int64         `json:"cheapest_item"`
	BySeller            []SellerGroup `json:"by_seller"`
}

// GetCartStats は読み取り専用の集計。変更は一切行わない。
func (u *CartUsecase) GetCartStats(ctx context.Context, userID int64) (CartStats, error) {
	view, err := u.GetCart(ctx, userID)
	if err != nil {
		return CartStats{}, err
	}

	stats := CartStats{
		TotalItems:          view.TotalItems,
		TotalUniqueProducts: len(view.Items),
		TotalAmount:         view.TotalAmount,
		BySeller:            []SellerGroup{},
	}

	sellers := map[int64]int{}
	categories := map[int64]struct{}{}

	for _, it := range view.Items {
		categories[it.CategoryID] = struct{}{}

		idx, ok := sellers[it.SellerID]
		if !ok {
			sellers[it.SellerID] = len(stats.BySeller)
			stats.BySeller = append(stats.BySeller, SellerGroup{
				SellerID:   it.SellerID,
				SellerName: it.SellerName,
			})
			idx = sellers[it.SellerID]
		}
		stats.BySeller[idx].ItemsCount++
		stats.BySeller[idx].TotalAmount += it.Subtotal

		if stats.MostExpensiveItem == 0 || it.Price > stats.MostExpensiveItem {
			stats.MostExpensiveItem = it.Price
		}
		if stats.CheapestItem == 0 || it.Price < stats.CheapestItem {
			stats.CheapestItem = it.Price
		}
	}

	stats.SellersCount = len(sellers)
	stats.CategoriesCount = len(categories)
	if stats.TotalItems > 0 {
		stats.AverageItemPrice = float64(stats.TotalAmount) / float64(stats.TotalItems)
	}

	return stats, nil
}

// ゲストカートの1明細
type GuestCartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type MergeError struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
}

type MergeGuestCartOutput struct {
	Cart            CartView     `json:"cart"`
	MergedCount     int          `json:"merged_count"`
	TotalGuestItems int          `json:"total_guest_items"`
	Errors          []MergeError `json:"errors"`
}

// MergeGuestCart はログイン時にゲストカートを統合する。
// 各明細を個別にAddToCartし、失敗は記録して続行（バッチはベストエフォート）。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, userID int64, guestItems []GuestCartItem) (MergeGuestCartOutput, error) {
	out := MergeGuestCartOutput{
		TotalGuestItems: len(guestItems),
		Errors:          []MergeError{},
	}

	for _, gi := range guestItems {
		_, err := u.AddToCart(ctx, userID, gi.ProductID, gi.Quantity)
		if err != nil {
			msg := err.Error()
			if de, ok := AsDomainError(err); ok {
				msg = de.Message
			}
			out.Errors = append(out.Errors, MergeError{ProductID: gi.ProductID, Error: msg})
			continue
		}
		out.MergedCount++
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return MergeGuestCartOutput{}, errInternal()
	}
	view, err := u.loadCartView(ctx, cart.ID)
	if err != nil {
		return MergeGuestCartOutput{}, err
	}
	out.Cart = view
	return out, nil
}

// mutationOutput はビューを組み立て、対象明細を探して返す。
func (u *CartUsecase) mutationOutput(ctx context.Context, cartID int64, action string, itemID int64) (CartMutationOutput, error) {
	view, err := u.loadCartView(ctx, cartID)
	if err != nil {
		return CartMutationOutput{}, err
	}

	out := CartMutationOutput{Action: action, Cart: view}
	if action != ActionRemoved {
		for i := range view.Items {
			if view.Items[i].ID == itemID {
				out.Item = &view.Items[i]
				break
			}
		}
	}
	return out, nil
}

// loadCartView は明細＋商品＋セラー＋メイン画像を明示的に読み込む。
// 参照先商品が消えた明細は表示から除外する（削除はValidateAndCleanCartの仕事）。
func (u *CartUsecase) loadCartView(ctx context.Context, cartID int64) (CartView, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartView{}, errInternal()
	}

	view := CartView{ID: cartID, Items: []CartItemView{}}

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return CartView{}, errInternal()
		}

		iv := CartItemView{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       p.Name,
			Price:      p.Price,
			Quantity:   it.Quantity,
			Subtotal:   it.Quantity * p.Price,
			SellerID:   p.SellerID,
			CategoryID: p.CategoryID,
			Available:  it.IsAvailable(&p),
		}

		if seller, err := u.userRepo.FindByID(ctx, p.SellerID); err == nil && seller != nil {
			iv.SellerName = seller.Name
		}

		if images, err := u.imageRepo.ListByProductID(ctx, it.ProductID); err == nil {
			iv.ImageURL = model.MainImageURL(images)
		}

		view.Items = append(view.Items, iv)
		view.TotalItems += it.Quantity
		view.TotalAmount += iv.Subtotal
	}

	view.IsEmpty = len(view.Items) == 0
	return view, nil
}
