package repository

import (
	"context"
	"database/sql"

	repo "market/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders    repo.OrderRepository
	carts     repo.CartRepository
	inventory repo.InventoryRepository
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository        { return r.orders }
func (r *txReposGorm) Carts() repo.CartRepository          { return r.carts }
func (r *txReposGorm) Inventory() repo.InventoryRepository { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository    { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository  { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// READ COMMITTED。在庫の整合性は条件付きUPDATEと行ロックで守る。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newTxRepos(tx))
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func newTxRepos(tx *gorm.DB) *txReposGorm {
	return &txReposGorm{
		orders:    NewOrderGormRepository(tx),
		carts:     NewCartGormRepository(tx),
		inventory: NewInventoryGormRepository(tx),
		products:  NewProductGormRepository(tx),
		auditLogs: NewAuditLogGormRepository(tx),
	}
}
