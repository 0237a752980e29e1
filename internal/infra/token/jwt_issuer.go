// Package token はアクセストークン(JWT)の発行。
package token

import (
	"strconv"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
)

type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

var _ usecase.TokenIssuer = (*JWTIssuer)(nil)

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

// sub=user_id, role=client/admin
func (i *JWTIssuer) Issue(user model.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}
