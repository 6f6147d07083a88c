package repository

import (
	"context"
	"time"

	"market/internal/domain/model"
	domainrepo "market/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err, "email") {
		return domainrepo.ErrDuplicateEmail
	}
	return err
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error
	if isNotFound(err) {
		return nil, domainrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).First(&u, id).Error
	if isNotFound(err) {
		return nil, domainrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *userGormRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// token_versionを+1して新しい値を返す
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, userID int64) (int, error) {
	var u model.User
	res := r.db.WithContext(ctx).
		Model(&u).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "token_version"}}}).
		Where("id = ?", userID).
		Update("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domainrepo.ErrNotFound
	}
	return u.TokenVersion, nil
}
