package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ユニーク制約違反
	ErrConflict = errors.New("conflict")
)
