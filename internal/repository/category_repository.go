package repository

import (
	"context"

	"github.com/rs-labo46/ecshop/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	// 名前重複はErrConflict
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Count(ctx context.Context) (int64, error)
}
