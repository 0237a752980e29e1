package validator

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/rs-labo46/ecshop/internal/usecase"
)

// 簡易メール形式
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(in usecase.RegisterInput) error {
	if in.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(in.Name) > 100 {
		return invalid("name must be at most 100 characters")
	}
	if !emailPattern.MatchString(in.Email) {
		return invalid("invalid email")
	}
	if len(in.Password) < minPasswordLen {
		return invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(in usecase.LoginInput) error {
	if in.Email == "" || in.Password == "" {
		return invalid("email and password are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return invalid("invalid email")
	}
	return nil
}

// usecase.ErrValidationで包む（handlerでは400になる）
func invalid(msg string) error {
	return fmt.Errorf("%w: %s", usecase.ErrValidation, msg)
}
