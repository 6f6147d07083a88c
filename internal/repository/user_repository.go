package repository

import (
	"context"
	"time"

	"market/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。email重複は ErrDuplicateEmail
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) (int, error)
}
