package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//400 カートが空
	ErrEmptyCart = errors.New("cart is empty")
	//400 在庫不足（*InsufficientStockError も一致する）
	ErrInsufficientStock = errors.New("insufficient stock")
	//400
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	//404
	ErrProductNotFound = errors.New("product not found")
	ErrNotFound        = errors.New("not found")
	//401 認証なし
	ErrUnauthorized = errors.New("unauthorized")
	//403 持ち主でも管理者でもない
	ErrForbidden = errors.New("forbidden")
	//409
	ErrConflict = errors.New("conflict")
	//401 メールかパスワードが違う
	ErrInvalidCredentials = errors.New("invalid credentials")
	//500 注文処理が途中で失敗した（全部ロールバック済み）
	ErrWorkflowAborted = errors.New("order workflow aborted")
)

// 在庫不足の商品を特定できるエラー
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id=%d, requested=%d)", e.ProductName, e.ProductID, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// HTTPErrorはhandlerでそのままレスポンスにする。
// Errに原因を持たせて errors.Is で分類できるようにする。
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 原因付き
func WrapHTTPError(status int, cause error, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Err:     cause,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errUnauthorized() error {
	return WrapHTTPError(http.StatusUnauthorized, ErrUnauthorized, "unauthorized")
}

func errForbidden() error {
	return WrapHTTPError(http.StatusForbidden, ErrForbidden, "forbidden")
}

func errNotFound(what string) error {
	return WrapHTTPError(http.StatusNotFound, ErrNotFound, what+" not found")
}

func errDB(err error) error {
	return WrapHTTPError(http.StatusInternalServerError, err, "db error")
}

// validatorのエラーは400。メッセージはそのまま返す
func errInvalid(err error) error {
	return WrapHTTPError(http.StatusBadRequest, err, err.Error())
}

func errInsufficientStock(p int64, name string, qty int64) error {
	cause := &InsufficientStockError{ProductID: p, ProductName: name, Requested: qty}
	return WrapHTTPError(http.StatusBadRequest, cause, fmt.Sprintf("insufficient stock for %s", name))
}
