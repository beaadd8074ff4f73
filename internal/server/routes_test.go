package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pos/internal/config"
	"pos/internal/domain/model"
	"pos/internal/handler"
	"pos/internal/infra/memory"
	"pos/internal/ledger"
	"pos/internal/persist"
	repo "pos/internal/repository"
	"pos/internal/server"
	"pos/internal/usecase"
	"pos/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// Repository mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByCode(ctx context.Context, merchantID, code string) (model.Product, error) {
	args := m.Called(ctx, merchantID, code)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) ListCategories(ctx context.Context, merchantID string) ([]string, error) {
	args := m.Called(ctx, merchantID)
	c, _ := args.Get(0).([]string)
	return c, args.Error(1)
}

func (m *ProductRepoMock) ListByCategory(ctx context.Context, merchantID, category string) ([]model.Product, error) {
	args := m.Called(ctx, merchantID, category)
	p, _ := args.Get(0).([]model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Search(ctx context.Context, merchantID, q string) ([]model.Product, error) {
	args := m.Called(ctx, merchantID, q)
	p, _ := args.Get(0).([]model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Upsert(ctx context.Context, p model.Product) error {
	panic("not used in route tests")
}

type SaleRepoMock struct{ mock.Mock }

func (m *SaleRepoMock) Create(ctx context.Context, sale model.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *SaleRepoMock) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]model.Sale, error) {
	args := m.Called(ctx, merchantID, limit)
	s, _ := args.Get(0).([]model.Sale)
	return s, args.Error(1)
}

type MerchantRepoMock struct{ mock.Mock }

func (m *MerchantRepoMock) FindByID(ctx context.Context, merchantID string) (model.Merchant, error) {
	panic("not used in route tests")
}

func (m *MerchantRepoMock) ListAccessible(ctx context.Context, employeeID string) ([]model.Merchant, error) {
	args := m.Called(ctx, employeeID)
	ms, _ := args.Get(0).([]model.Merchant)
	return ms, args.Error(1)
}

func (m *MerchantRepoMock) CanAccess(ctx context.Context, employeeID, merchantID string) (bool, error) {
	args := m.Called(ctx, employeeID, merchantID)
	return args.Bool(0), args.Error(1)
}

func (m *MerchantRepoMock) Upsert(ctx context.Context, mm model.Merchant) error {
	panic("not used in route tests")
}

func (m *MerchantRepoMock) GrantAccess(ctx context.Context, employeeID, merchantID string) error {
	panic("not used in route tests")
}

var (
	_ repo.ProductRepository  = (*ProductRepoMock)(nil)
	_ repo.SaleRepository     = (*SaleRepoMock)(nil)
	_ repo.MerchantRepository = (*MerchantRepoMock)(nil)
)

// =====================
// helper
// =====================

const secret = "test-secret"

var (
	cafe     = model.Merchant{ID: "merchant-001", Name: "cafe", Type: model.MerchantTypeFood}
	supplies = model.Merchant{ID: "merchant-002", Name: "supplies", Type: model.MerchantTypeConstruction}
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("sale-%d", g.n)
}

// 呼ばれるたびに1秒進む
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testServer struct {
	e         *echo.Echo
	products  *ProductRepoMock
	sales     *SaleRepoMock
	merchants *MerchantRepoMock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	products := new(ProductRepoMock)
	sales := new(SaleRepoMock)
	merchants := new(MerchantRepoMock)
	merchants.On("ListAccessible", mock.Anything, "emp1234").Return([]model.Merchant{cafe, supplies}, nil).Maybe()
	merchants.On("ListAccessible", mock.Anything, "emp5678").Return([]model.Merchant{cafe}, nil).Maybe()
	merchants.On("CanAccess", mock.Anything, "emp1234", mock.Anything).Return(true, nil).Maybe()
	merchants.On("CanAccess", mock.Anything, "emp5678", cafe.ID).Return(true, nil).Maybe()
	merchants.On("CanAccess", mock.Anything, "emp5678", supplies.ID).Return(false, nil).Maybe()

	logger := zap.NewNop()
	clock := &stepClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	sessions := usecase.NewSessionManager(memory.NewSnapshotStore(), logger,
		usecase.WithPersistOptions(persist.WithRetry(1, time.Millisecond)),
		usecase.WithLedgerOptions(ledger.WithClock(clock)),
	)
	t.Cleanup(func() { _ = sessions.Close(context.Background()) })

	cartUC := usecase.NewCartUsecase(sessions, products, sales, merchants, validator.NewCartValidator(), &seqIDs{}, clock, logger)
	sessionUC := usecase.NewSessionUsecase(sessions, merchants, false, logger)
	catalogUC := usecase.NewCatalogUsecase(products)

	e := server.New(logger)
	server.RegisterRoutes(e, config.Config{JWTSecret: secret}, merchants, logger, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Session: handler.NewSessionHandler(sessionUC),
		Cart:    handler.NewCartHandler(cartUC),
		Catalog: handler.NewCatalogHandler(catalogUC),
	})

	return &testServer{e: e, products: products, sales: sales, merchants: merchants}
}

func bearer(t *testing.T, employeeID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  employeeID,
		"name": "Somchai",
		"exp":  9999999999,
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (s *testServer) do(t *testing.T, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// =====================
// tests
// =====================

func TestRoutes_Health(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/pos/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[handler.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/pos/merchants/merchant-001/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_CartFlow(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "emp1234")

	s.products.On("FindByCode", mock.Anything, cafe.ID, "001").Return(model.Product{
		MerchantID: cafe.ID, ID: "001", Name: "Americano", Price: decimal.NewFromInt(55), Category: "coffee",
	}, nil)
	s.sales.On("Create", mock.Anything, mock.AnythingOfType("model.Sale")).Return(nil)

	// merchant未選択
	rec := s.do(t, http.MethodGet, "/pos/carts", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "select a merchant first", decode[handler.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPut, "/pos/me/merchant", auth, `{"merchant_id":"merchant-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[usecase.MeOutput](t, rec)
	assert.Equal(t, cafe.ID, me.SelectedMerchantID)
	assert.Equal(t, 1, me.CartCount)

	rec = s.do(t, http.MethodPost, "/pos/carts/active/items", auth, `{"code":"001"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPatch, "/pos/carts/active/items/001", auth, `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[usecase.CartView](t, rec)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(165)))
	assert.Equal(t, 3, cart.ItemCount)

	rec = s.do(t, http.MethodPost, "/pos/carts/active/checkout", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[usecase.CheckoutOutput](t, rec)
	assert.True(t, out.Sale.Total.Equal(decimal.NewFromInt(165)))
	assert.Equal(t, "New cart", out.NextCart.Name)
	assert.True(t, out.NextCart.Active)

	rec = s.do(t, http.MethodGet, "/pos/carts", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[usecase.CartListOutput](t, rec)
	assert.Equal(t, 1, list.Count)

	s.sales.AssertExpectations(t)
}

func TestRoutes_CartManagement(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "emp1234")

	rec := s.do(t, http.MethodPut, "/pos/me/merchant", auth, `{"merchant_id":"merchant-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/pos/carts", auth, `{"name":"Table 5","type":"takeAway"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[usecase.CartView](t, rec)
	assert.Equal(t, "Table 5", created.Name)
	assert.True(t, created.Active)

	rec = s.do(t, http.MethodPatch, "/pos/carts/"+created.ID, auth, `{"note":"no sugar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no sugar", decode[usecase.CartView](t, rec).Note)

	rec = s.do(t, http.MethodPost, "/pos/carts/"+created.ID+"/notified", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[usecase.CartView](t, rec).Notified)

	rec = s.do(t, http.MethodGet, "/pos/carts/oldest?limit=1", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	oldest := decode[usecase.CartListOutput](t, rec)
	require.Len(t, oldest.Carts, 1)
	assert.Equal(t, "New cart", oldest.Carts[0].Name)

	rec = s.do(t, http.MethodGet, "/pos/carts/oldest?limit=x", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/pos/carts/active", auth, `{"cart_id":"`+oldest.Carts[0].ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/pos/carts/active", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, oldest.Carts[0].ID, decode[usecase.CartView](t, rec).ID)

	rec = s.do(t, http.MethodDelete, "/pos/carts/"+created.ID, auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[usecase.CartListOutput](t, rec).Count)

	rec = s.do(t, http.MethodDelete, "/pos/carts/"+created.ID, auth, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPatch, "/pos/carts/active/items/001", auth, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/pos/merchants/merchant-001/carts", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decode[usecase.CartListOutput](t, rec)
	assert.Equal(t, 0, reset.Count)
	assert.Equal(t, "", reset.ActiveCartID)
}

func TestRoutes_MerchantScopedCatalog(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "emp5678")

	s.products.On("FindByCode", mock.Anything, cafe.ID, "001").Return(model.Product{MerchantID: cafe.ID, ID: "001", Name: "Americano"}, nil)
	s.products.On("ListCategories", mock.Anything, cafe.ID).Return([]string{"coffee"}, nil)

	rec := s.do(t, http.MethodGet, "/pos/merchants/merchant-001/products/001", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Americano", decode[model.Product](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/pos/merchants/merchant-001/categories", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"coffee"}, decode[[]string](t, rec))

	rec = s.do(t, http.MethodGet, "/pos/merchants/merchant-002/products/101", auth, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "merchant not accessible", decode[handler.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPut, "/pos/me/merchant", auth, `{"merchant_id":"merchant-002"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_Logout(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "emp1234")

	rec := s.do(t, http.MethodPut, "/pos/me/merchant", auth, `{"merchant_id":"merchant-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/pos/logout", auth, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/pos/me", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[usecase.MeOutput](t, rec)
	assert.Equal(t, "", me.SelectedMerchantID)
	assert.Equal(t, 0, me.CartCount)
}
