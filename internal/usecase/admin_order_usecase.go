package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	cache  StatsCache
	clock  Clock
	idGen  IDGenerator
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events EventPublisher, cache StatsCache, clock Clock, idGen IDGenerator) *AdminOrderUsecase {
	if events == nil {
		events = nopPublisher{}
	}
	if cache == nil {
		cache = nopStatsCache{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	if idGen == nil {
		idGen = UUIDGenerator()
	}
	return &AdminOrderUsecase{tx: tx, events: events, cache: cache, clock: clock, idGen: idGen}
}

type statusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateStatus は5つのどれにでも変更できる（在庫は動かさない）。
// 同じstatusなら何もしない。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor policy.Actor, orderID int64, status string) (model.Order, error) {
	if !actor.Authenticated() {
		return model.Order{}, errUnauthorized()
	}
	if !policy.CanUpdateOrderStatus(actor) {
		return model.Order{}, errForbidden()
	}
	if orderID <= 0 {
		return model.Order{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return model.Order{}, WrapHTTPError(http.StatusBadRequest, ErrInvalidStatus, "invalid status")
	}

	var (
		out     model.Order
		before  model.OrderStatus
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("order")
		}
		if err != nil {
			return errDB(err)
		}

		before = o.Status
		if o.Status == newStatus {
			out = o
			return nil
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound("order")
			}
			return errDB(err)
		}

		//監査ログ
		beforeJSON, _ := json.Marshal(statusSnapshot{Status: before})
		afterJSON, _ := json.Marshal(statusSnapshot{Status: newStatus})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return errDB(err)
		}

		out, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errDB(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if changed {
		zap.L().Info("order status updated",
			zap.Int64("order_id", out.ID),
			zap.Int64("actor_user_id", actor.UserID),
			zap.String("from", string(before)),
			zap.String("to", string(out.Status)),
		)

		ev := OrderEvent{
			ID:         u.idGen.NewID(),
			Type:       EventOrderStatusChanged,
			OrderID:    out.ID,
			OrderCode:  out.Code,
			UserID:     out.UserID,
			Status:     out.Status,
			PrevStatus: before,
			Total:      out.Total,
			OccurredAt: u.clock.Now(),
		}
		if err := u.events.Publish(ctx, ev); err != nil {
			zap.L().Warn("publish order event failed", zap.Int64("order_id", out.ID), zap.Error(err))
		}
		invalidateStats(ctx, u.cache)
	}

	return out, nil
}

// ListAuditLogs は管理者操作ログの一覧。
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, actor policy.Actor, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if !actor.Authenticated() {
		return nil, errUnauthorized()
	}
	if !policy.CanViewStats(actor) {
		return nil, errForbidden()
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return errDB(err)
		}
		out = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.AuditLog{}
	}
	return out, nil
}
