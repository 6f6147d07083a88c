package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 注文確定まわりのエラー。errors.Is で判定できる。
var (
	ErrEmptyCart         = errors.New("empty cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOutOfStock        = errors.New("out of stock")
	ErrSessionNotFound   = errors.New("session not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentDisabled   = errors.New("payment provider disabled")
	ErrPaymentRejected   = errors.New("payment request rejected")
	ErrIdempotencyBusy   = errors.New("idempotency key in use")
)

// HTTPError はhandlerがそのままレスポンスにできるエラー。
type HTTPError struct {
	Status    int
	Message   string
	Code      string
	ProductID int64
	Err       error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errEmptyCart() error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "your cart is empty",
		Code:    "EMPTY_CART",
		Err:     ErrEmptyCart,
	}
}

func errInsufficientStock(productID int64, name string) error {
	return &HTTPError{
		Status:    http.StatusConflict,
		Message:   fmt.Sprintf("%s has insufficient stock", name),
		Code:      "INSUFFICIENT_STOCK",
		ProductID: productID,
		Err:       ErrInsufficientStock,
	}
}

func errOutOfStock(productID int64, name string) error {
	return &HTTPError{
		Status:    http.StatusConflict,
		Message:   fmt.Sprintf("%s is out of stock", name),
		Code:      "OUT_OF_STOCK",
		ProductID: productID,
		Err:       ErrOutOfStock,
	}
}

func errProductNotFound(productID int64) error {
	return &HTTPError{
		Status:    http.StatusNotFound,
		Message:   fmt.Sprintf("product %d not found", productID),
		Code:      "PRODUCT_NOT_FOUND",
		ProductID: productID,
		Err:       ErrProductNotFound,
	}
}

func errSessionNotFound() error {
	return &HTTPError{
		Status:  http.StatusNotFound,
		Message: "no order found for this payment session",
		Code:    "SESSION_NOT_FOUND",
		Err:     ErrSessionNotFound,
	}
}

func errInvalidTransition(from, to string) error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
		Code:    "INVALID_TRANSITION",
		Err:     ErrInvalidTransition,
	}
}

func errPaymentDisabled() error {
	return &HTTPError{
		Status:  http.StatusServiceUnavailable,
		Message: "payment provider is not configured",
		Code:    "PAYMENT_DISABLED",
		Err:     ErrPaymentDisabled,
	}
}

func errPaymentRejected(err error) error {
	return &HTTPError{
		Status:  http.StatusUnprocessableEntity,
		Message: "payment provider rejected the request",
		Code:    "PAYMENT_REJECTED",
		Err:     fmt.Errorf("%w: %w", ErrPaymentRejected, err),
	}
}

func errIdempotencyBusy() error {
	return &HTTPError{
		Status:  http.StatusConflict,
		Message: "a checkout with this idempotency key is in progress",
		Code:    "IDEMPOTENCY_IN_PROGRESS",
		Err:     ErrIdempotencyBusy,
	}
}

func errDB(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "db error",
		Err:     err,
	}
}
