package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx        repo.TransactionManager
	validator CatalogValidator
	cache     StatsCache
	clock     Clock
}

// DI
func NewProductUsecase(tx repo.TransactionManager, validator CatalogValidator, cache StatsCache, clock Clock) *ProductUsecase {
	if cache == nil {
		cache = nopStatsCache{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &ProductUsecase{tx: tx, validator: validator, cache: cache, clock: clock}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// 作成・更新の入力（更新ではStockは無視）
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	CategoryID  int64
	Image       string
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "q too long")
	}

	var out ProductListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Products().List(ctx, repo.ProductListQuery{
			Page:       in.Page,
			Limit:      in.Limit,
			Q:          strings.TrimSpace(in.Q),
			CategoryID: in.CategoryID,
		})
		if err != nil {
			return errDB(err)
		}
		out = ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

func (u *ProductUsecase) Get(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid product id")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusNotFound, ErrProductNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func (u *ProductUsecase) Create(ctx context.Context, actor policy.Actor, in ProductInput) (model.Product, error) {
	if err := requireCatalogAdmin(actor); err != nil {
		return model.Product{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := u.validator.ValidateProduct(in); err != nil {
		return model.Product{}, errInvalid(err)
	}
	if err := u.validator.ValidateStock(in.Stock); err != nil {
		return model.Product{}, errInvalid(err)
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}

		now := u.clock.Now()
		p, err := r.Products().Create(ctx, model.Product{
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			Stock:       in.Stock,
			CategoryID:  in.CategoryID,
			Image:       in.Image,
			CreatedBy:   actor.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return errDB(err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	invalidateStats(ctx, u.cache)
	return out, nil
}

// Update は在庫以外を更新する。価格を変えても作成済みの注文には影響しない。
func (u *ProductUsecase) Update(ctx context.Context, actor policy.Actor, productID int64, in ProductInput) (model.Product, error) {
	if err := requireCatalogAdmin(actor); err != nil {
		return model.Product{}, err
	}
	if productID <= 0 {
		return model.Product{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid product id")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := u.validator.ValidateProduct(in); err != nil {
		return model.Product{}, errInvalid(err)
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}

		err := r.Products().Update(ctx, model.Product{
			ID:          productID,
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			CategoryID:  in.CategoryID,
			Image:       in.Image,
		})
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusNotFound, ErrProductNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}

		out, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// SetStock は在庫の現在値を設定し、増減履歴と監査ログを残す。
func (u *ProductUsecase) SetStock(ctx context.Context, actor policy.Actor, productID int64, newStock int64, reason string) (model.Product, error) {
	if err := requireCatalogAdmin(actor); err != nil {
		return model.Product{}, err
	}
	if productID <= 0 {
		return model.Product{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid product id")
	}
	if err := u.validator.ValidateStock(newStock); err != nil {
		return model.Product{}, errInvalid(err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual adjustment"
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusNotFound, ErrProductNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return errDB(err)
		}

		now := u.clock.Now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			ActorUserID: actor.UserID,
			Delta:       newStock - p.Stock,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return errDB(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, p.Stock),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, newStock),
			CreatedAt:    now,
		}); err != nil {
			return errDB(err)
		}

		p.Stock = newStock
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	invalidateStats(ctx, u.cache)
	return out, nil
}

func requireCatalogAdmin(actor policy.Actor) error {
	if !actor.Authenticated() {
		return errUnauthorized()
	}
	if !policy.CanManageCatalog(actor) {
		return errForbidden()
	}
	return nil
}

func ensureCategory(ctx context.Context, r repo.TxRepos, categoryID int64) error {
	_, err := r.Categories().FindByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return WrapHTTPError(http.StatusBadRequest, ErrValidation, "category not found")
	}
	if err != nil {
		return errDB(err)
	}
	return nil
}
