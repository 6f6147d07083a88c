package usecase

import (
	"context"
	"errors"
	"net/http"

	"market/internal/domain/model"
	repo "market/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(cartRepo repo.CartRepository, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

type CartLineResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CartResponse struct {
	Cart []CartLineResponse `json:"cart"`
}

type AddCartInput struct {
	ProductID int64
	// nilなら1
	Quantity *int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart は追加順で返す
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// AddToCart はカートに追加（同一商品は数量加算、上限99）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	qty := int64(model.MinCartQuantity)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty < model.MinCartQuantity || qty > model.MaxCartQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	if err := u.ensureProduct(ctx, in.ProductID); err != nil {
		return CartResponse{}, err
	}

	if err := u.cartRepo.Add(ctx, userID, in.ProductID, qty); err != nil {
		return CartResponse{}, errDB(err)
	}

	return u.buildCartResponse(ctx, userID)
}

// 数量変更。0なら削除
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, productID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 0 || in.Quantity > model.MaxCartQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	if in.Quantity == 0 {
		if err := u.cartRepo.Remove(ctx, userID, productID); err != nil {
			return CartResponse{}, errDB(err)
		}
		return u.buildCartResponse(ctx, userID)
	}

	if err := u.ensureProduct(ctx, productID); err != nil {
		return CartResponse{}, err
	}
	if err := u.cartRepo.SetQuantity(ctx, userID, productID, in.Quantity); err != nil {
		return CartResponse{}, errDB(err)
	}

	return u.buildCartResponse(ctx, userID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, productID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	if err := u.cartRepo.Remove(ctx, userID, productID); err != nil {
		return CartResponse{}, errDB(err)
	}
	return u.buildCartResponse(ctx, userID)
}

// 全削除
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.cartRepo.Clear(ctx, userID); err != nil {
		return CartResponse{}, errDB(err)
	}
	return CartResponse{Cart: []CartLineResponse{}}, nil
}

func (u *CartUsecase) ensureProduct(ctx context.Context, productID int64) error {
	_, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return errProductNotFound(productID)
	}
	if err != nil {
		return errDB(err)
	}
	return nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, errDB(err)
	}

	lines := make([]CartLineResponse, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLineResponse{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return CartResponse{Cart: lines}, nil
}
