package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 本番のbcryptコスト
const DefaultBcryptCost = 12

type AuthUsecase struct {
	tx         repo.TransactionManager
	validator  AuthValidator
	issuer     TokenIssuer
	clock      Clock
	bcryptCost int
}

func NewAuthUsecase(tx repo.TransactionManager, validator AuthValidator, issuer TokenIssuer, clock Clock, bcryptCost int) *AuthUsecase {
	if clock == nil {
		clock = SystemClock()
	}
	if bcryptCost <= 0 {
		bcryptCost = DefaultBcryptCost
	}
	return &AuthUsecase{tx: tx, validator: validator, issuer: issuer, clock: clock, bcryptCost: bcryptCost}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthOutput struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// 会員登録（roleは必ずclient）
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := u.validator.ValidateRegister(in); err != nil {
		return AuthOutput{}, errInvalid(err)
	}

	user, err := u.createUser(ctx, in, model.RoleClient)
	if err != nil {
		return AuthOutput{}, err
	}
	return u.issue(user)
}

// ログイン。存在しないemailとパスワード違いは区別しない
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	in.Email = normalizeEmail(in.Email)
	if err := u.validator.ValidateLogin(in); err != nil {
		return AuthOutput{}, errInvalid(err)
	}

	var user model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Users().FindByEmail(ctx, in.Email)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusUnauthorized, ErrInvalidCredentials, "invalid credentials")
		}
		if err != nil {
			return errDB(err)
		}
		user = found
		return nil
	})
	if err != nil {
		return AuthOutput{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return AuthOutput{}, WrapHTTPError(http.StatusUnauthorized, ErrInvalidCredentials, "invalid credentials")
	}
	return u.issue(user)
}

// Profile はログイン中のユーザー自身を返す（パスワードハッシュはJSONに出ない）。
func (u *AuthUsecase) Profile(ctx context.Context, actor policy.Actor) (model.User, error) {
	if !actor.Authenticated() {
		return model.User{}, errUnauthorized()
	}

	var user model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Users().FindByID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("user")
		}
		if err != nil {
			return errDB(err)
		}
		user = found
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// EnsureAdmin は起動時に管理者を用意する。既にいれば何もしない。
func (u *AuthUsecase) EnsureAdmin(ctx context.Context, email string, password string) error {
	in := RegisterInput{Name: "admin", Email: normalizeEmail(email), Password: password}
	if err := u.validator.ValidateRegister(in); err != nil {
		return err
	}

	_, err := u.createUser(ctx, in, model.RoleAdmin)
	if errors.Is(err, ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Info("admin user created", zap.String("email", in.Email))
	return nil
}

func (u *AuthUsecase) createUser(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return model.User{}, WrapHTTPError(http.StatusInternalServerError, err, "internal error")
	}

	now := u.clock.Now()
	user := model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return WrapHTTPError(http.StatusConflict, ErrConflict, "email already registered")
			}
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (u *AuthUsecase) issue(user model.User) (AuthOutput, error) {
	token, exp, err := u.issuer.Issue(user, u.clock.Now())
	if err != nil {
		return AuthOutput{}, WrapHTTPError(http.StatusInternalServerError, err, "internal error")
	}
	return AuthOutput{User: user, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
