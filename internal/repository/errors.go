package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// orders.order_code のユニーク制約違反
	ErrDuplicateOrderCode = errors.New("duplicate order code")

	// orders (user_id, idempotency_key) のユニーク制約違反
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// users.email のユニーク制約違反
	ErrDuplicateEmail = errors.New("duplicate email")
)
