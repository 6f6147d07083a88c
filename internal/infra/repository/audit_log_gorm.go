package repository

import (
	"context"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"gorm.io/gorm"
)

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// 追記のみ。更新・削除は持たない
func (r *auditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	entry.ID = 0
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(auditWhere(f), auditPage(f.Limit, f.Offset)).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// nilの条件は付けない
func auditWhere(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		conds := []struct {
			clause string
			set    bool
			val    any
		}{
			{"actor_user_id = ?", f.ActorUserID != nil, f.ActorUserID},
			{"action = ?", f.Action != nil, f.Action},
			{"resource_type = ?", f.ResourceType != nil, f.ResourceType},
			{"resource_id = ?", f.ResourceID != nil, f.ResourceID},
			{"created_at >= ?", f.CreatedFrom != nil, f.CreatedFrom},
			{"created_at <= ?", f.CreatedTo != nil, f.CreatedTo},
		}
		for _, c := range conds {
			if c.set {
				q = q.Where(c.clause, c.val)
			}
		}
		return q
	}
}

func auditPage(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(limit).Offset(offset)
	}
}
