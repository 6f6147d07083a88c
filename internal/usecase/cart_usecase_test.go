package usecase

import (
	"context"
	"net/http"
	"testing"

	"market/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartFixture() (*memStore, *CartUsecase) {
	store := newMemStore(seedProducts()...)
	tx := memTx{m: store}
	return store, NewCartUsecase(memCarts(tx), memProducts(tx))
}

func qty(n int64) *int64 { return &n }

func TestCartUsecase_AddDefaultsToOne(t *testing.T) {
	_, uc := newCartFixture()

	out, err := uc.AddToCart(context.Background(), 10, AddCartInput{ProductID: 3})
	require.NoError(t, err)
	assert.Equal(t, []CartLineResponse{{ProductID: 3, Quantity: 1}}, out.Cart)
}

// 同じ商品は加算、99で頭打ち
func TestCartUsecase_AddSumsAndCaps(t *testing.T) {
	_, uc := newCartFixture()
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, 10, AddCartInput{ProductID: 3, Quantity: qty(60)})
	require.NoError(t, err)
	_, err = uc.AddToCart(ctx, 10, AddCartInput{ProductID: 1, Quantity: qty(2)})
	require.NoError(t, err)
	out, err := uc.AddToCart(ctx, 10, AddCartInput{ProductID: 3, Quantity: qty(60)})
	require.NoError(t, err)

	assert.Equal(t, []CartLineResponse{
		{ProductID: 3, Quantity: 99},
		{ProductID: 1, Quantity: 2},
	}, out.Cart)
}

func TestCartUsecase_AddValidation(t *testing.T) {
	_, uc := newCartFixture()
	ctx := context.Background()

	cases := []struct {
		name   string
		userID int64
		in     AddCartInput
		status int
	}{
		{"no user", 0, AddCartInput{ProductID: 1}, http.StatusUnauthorized},
		{"bad product id", 10, AddCartInput{ProductID: 0}, http.StatusBadRequest},
		{"zero quantity", 10, AddCartInput{ProductID: 1, Quantity: qty(0)}, http.StatusBadRequest},
		{"over max", 10, AddCartInput{ProductID: 1, Quantity: qty(100)}, http.StatusBadRequest},
		{"unknown product", 10, AddCartInput{ProductID: 404}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.AddToCart(ctx, tc.userID, tc.in)
			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, he.Status)
		})
	}
}

func TestCartUsecase_UpdateZeroRemoves(t *testing.T) {
	store, uc := newCartFixture()
	store.putCart(10,
		model.CartItem{ProductID: 1, Quantity: 2},
		model.CartItem{ProductID: 2, Quantity: 1},
	)
	ctx := context.Background()

	out, err := uc.UpdateCartItem(ctx, 10, 1, UpdateCartItemInput{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, []CartLineResponse{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 1}}, out.Cart)

	out, err = uc.UpdateCartItem(ctx, 10, 1, UpdateCartItemInput{Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, []CartLineResponse{{ProductID: 2, Quantity: 1}}, out.Cart)

	_, err = uc.UpdateCartItem(ctx, 10, 2, UpdateCartItemInput{Quantity: 100})
	assert.Error(t, err)
}

// 無い行への数量指定は作成になる
func TestCartUsecase_UpdateUpserts(t *testing.T) {
	_, uc := newCartFixture()

	out, err := uc.UpdateCartItem(context.Background(), 10, 2, UpdateCartItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, []CartLineResponse{{ProductID: 2, Quantity: 4}}, out.Cart)
}

func TestCartUsecase_DeleteAndClear(t *testing.T) {
	store, uc := newCartFixture()
	store.putCart(10,
		model.CartItem{ProductID: 1, Quantity: 2},
		model.CartItem{ProductID: 2, Quantity: 1},
	)
	store.putCart(11, model.CartItem{ProductID: 1, Quantity: 1})
	ctx := context.Background()

	out, err := uc.DeleteCartItem(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []CartLineResponse{{ProductID: 1, Quantity: 2}}, out.Cart)

	out, err = uc.ClearCart(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, out.Cart)
	assert.NotNil(t, out.Cart)

	//他人のカートはそのまま
	assert.Len(t, store.cart(11), 1)
}
