package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"market/internal/domain/event"
	"market/internal/domain/model"
	repo "market/internal/repository"
)

type AdminOrderUsecase struct {
	tx          repo.TransactionManager
	events      EventPublisher
	log         *slog.Logger
	serviceName string
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events EventPublisher, log *slog.Logger, serviceName string) *AdminOrderUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &AdminOrderUsecase{tx: tx, events: events, log: log, serviceName: serviceName}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 管理画面から変更できる遷移。PLACEDへの変更は決済確認だけが行う
var adminTargetStatuses = map[model.OrderStatus]bool{
	model.OrderStatusFulfilled: true,
	model.OrderStatusCancelled: true,
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	f.Code = strings.TrimSpace(f.Code)

	out := OrderListOutput{Orders: []OrderOutput{}, Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
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

// ステータス更新。遷移表にないものは409
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !newStatus.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out     OrderOutput
		changed *event.OrderStatusChanged
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB(err)
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			out = toOrderOutput(o)
			return nil
		}
		if !adminTargetStatuses[newStatus] || !model.CanTransition(o.Status, newStatus) {
			return errInvalidTransition(string(o.Status), string(newStatus))
		}

		ok, err := r.Orders().TransitionStatus(ctx, orderID, o.Status, newStatus)
		if err != nil {
			return errDB(err)
		}
		if !ok {
			return errInvalidTransition(string(o.Status), string(newStatus))
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, newStatus),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB(err)
		}

		changed = &event.OrderStatusChanged{
			OrderID:     o.ID,
			OrderCode:   o.OrderCode,
			From:        string(o.Status),
			To:          string(newStatus),
			ActorUserID: actorAdminUserID,
		}
		o.Status = newStatus
		out = toOrderOutput(o)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	//コミット後に通知
	if changed != nil {
		publish(ctx, u.events, u.log, u.serviceName, event.TopicOrderStatusChanged, orderID, *changed, time.Now())
	}
	return out, nil
}

// 監査ログ一覧
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit < 1 || f.Limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		if err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}

// 期間パラメータ。空ならnil
func ParseDateTimeRFC3339(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid datetime")
	}
	return &t, nil
}
