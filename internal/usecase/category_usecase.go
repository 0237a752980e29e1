package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"
)

type CategoryUsecase struct {
	tx        repo.TransactionManager
	validator CatalogValidator
	clock     Clock
}

func NewCategoryUsecase(tx repo.TransactionManager, validator CatalogValidator, clock Clock) *CategoryUsecase {
	if clock == nil {
		clock = SystemClock()
	}
	return &CategoryUsecase{tx: tx, validator: validator, clock: clock}
}

type CategoryInput struct {
	Name        string
	Description string
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cs, err := r.Categories().List(ctx)
		if err != nil {
			return errDB(err)
		}
		out = cs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// 名前が重複したら409
func (u *CategoryUsecase) Create(ctx context.Context, actor policy.Actor, in CategoryInput) (model.Category, error) {
	if err := requireCatalogAdmin(actor); err != nil {
		return model.Category{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := u.validator.ValidateCategory(in); err != nil {
		return model.Category{}, errInvalid(err)
	}

	var out model.Category
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		c, err := r.Categories().Create(ctx, model.Category{
			Name:        in.Name,
			Description: in.Description,
			CreatedBy:   actor.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if errors.Is(err, repo.ErrConflict) {
			return WrapHTTPError(http.StatusConflict, ErrConflict, "category already exists")
		}
		if err != nil {
			return errDB(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Category{}, err
	}
	return out, nil
}
