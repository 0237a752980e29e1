package repository

import (
	"errors"

	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 同時実行で負けたトランザクション（serialization_failure / deadlock_detected）
var retryableCodes = map[string]bool{
	"40001": true,
	"40P01": true,
}

// gormのエラーをrepositoryのエラーに寄せる
// （TranslateError: trueで接続している前提）
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && retryableCodes[pgErr.Code] {
		return repo.ErrConflict
	}
	return err
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}
