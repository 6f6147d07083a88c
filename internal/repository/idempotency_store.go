package repository

import (
	"context"
	"errors"
)

// 同じキーの処理が進行中
var ErrIdempotencyInProgress = errors.New("idempotency key in progress")

// 直接注文の冪等キー。ユーザー単位で区切る。
type IdempotencyStore interface {
	// 初回ならreserved=true。確定済みならその注文IDを返す。
	// 進行中なら ErrIdempotencyInProgress
	Reserve(ctx context.Context, userID int64, key string) (orderID int64, reserved bool, err error)

	Complete(ctx context.Context, userID int64, key string, orderID int64) error

	// 失敗したとき、同じキーで再試行できるように戻す
	Release(ctx context.Context, userID int64, key string) error
}
