package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs-labo46/ecshop/internal/config"
	"github.com/rs-labo46/ecshop/internal/handler"
	"github.com/rs-labo46/ecshop/internal/infra/memory"
	"github.com/rs-labo46/ecshop/internal/usecase"
	"github.com/rs-labo46/ecshop/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Port:           "0",
		JWTSecret:      "server-test",
		RequestTimeout: time.Second,
		FEURL:          "http://localhost:3000",
	}
	s := memory.NewStore()
	productUC := usecase.NewProductUsecase(s, validator.NewCatalogValidator(), nil, nil)

	return New(cfg, zap.NewNop(), Handlers{
		Auth:         handler.NewAuthHandler(usecase.NewAuthUsecase(s, validator.NewAuthValidator(), nil, nil, 4)),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Category:     handler.NewCategoryHandler(usecase.NewCategoryUsecase(s, validator.NewCatalogValidator(), nil)),
		Cart:         handler.NewCartHandler(usecase.NewCartUsecase(s)),
		Order:        handler.NewOrderHandler(usecase.NewOrderUsecase(s, validator.NewOrderValidator(), nil, nil, nil, nil)),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil)),
		Stats:        handler.NewStatsHandler(usecase.NewStatsUsecase(s, nil, nil)),
	})
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestErrorHandlerRendersErrorBody(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestCORSAllowsFrontendOrigin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), HeaderIdempotencyKey)
}
