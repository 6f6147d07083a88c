package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"market/internal/domain/model"
	repo "market/internal/repository"
)

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderLineOutput struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type ShippingAddressOutput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	OrderCode       string                `json:"order_code"`
	UserID          int64                 `json:"user_id"`
	Status          string                `json:"status"`
	Subtotal        int64                 `json:"subtotal"`
	Shipping        int64                 `json:"shipping"`
	Total           int64                 `json:"total"`
	ShippingAddress ShippingAddressOutput `json:"shipping_address"`
	CreatedAt       time.Time             `json:"created_at"`
	Lines           []OrderLineOutput     `json:"lines"`
}

type OrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	out := OrderListOutput{Orders: []OrderOutput{}, Page: page, Limit: limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return errDB(err)
		}

		out.Total = total
		for _, o := range orders {
			out.Orders = append(out.Orders, toOrderOutput(o))
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB(err)
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		out = toOrderOutput(o)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order) OrderOutput {
	lines := make([]OrderLineOutput, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineOutput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	a := o.ShippingAddress
	return OrderOutput{
		ID:        o.ID,
		OrderCode: o.OrderCode,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Subtotal:  o.Subtotal,
		Shipping:  o.Shipping,
		Total:     o.Total,
		ShippingAddress: ShippingAddressOutput{
			FullName: a.FullName,
			Email:    a.Email,
			Address:  a.Address,
			City:     a.City,
			Zip:      a.Zip,
			Country:  a.Country,
		},
		CreatedAt: o.CreatedAt,
		Lines:     lines,
	}
}
