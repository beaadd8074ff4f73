package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pos/internal/domain/model"
	"pos/internal/infra/memory"
	"pos/internal/ledger"
	"pos/internal/persist"
	"pos/internal/usecase"
	"pos/internal/validator"

	"github.com/shopspring/decimal"
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
	panic("not used in usecase tests")
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
	args := m.Called(ctx, merchantID)
	mm, _ := args.Get(0).(model.Merchant)
	return mm, args.Error(1)
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
	panic("not used in usecase tests")
}

func (m *MerchantRepoMock) GrantAccess(ctx context.Context, employeeID, merchantID string) error {
	panic("not used in usecase tests")
}

// =====================
// テスト用の部品
// =====================

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
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

var (
	cafe     = model.Merchant{ID: "merchant-001", Name: "cafe", Type: model.MerchantTypeFood}
	supplies = model.Merchant{ID: "merchant-002", Name: "supplies", Type: model.MerchantTypeConstruction}

	actor = usecase.Actor{EmployeeID: "emp1234", EmployeeName: "Somchai"}
)

func americano() model.Product {
	return model.Product{MerchantID: cafe.ID, ID: "001", Barcode: "001", Name: "Americano", Price: decimal.NewFromInt(55), Category: "coffee"}
}

type fixture struct {
	store     *memory.SnapshotStore
	sessions  *usecase.SessionManager
	products  *ProductRepoMock
	sales     *SaleRepoMock
	merchants *MerchantRepoMock
	carts     *usecase.CartUsecase
	session   *usecase.SessionUsecase
}

func newFixture(t *testing.T, resetOnSwitch bool) *fixture {
	return newFixtureWithStore(t, memory.NewSnapshotStore(), resetOnSwitch)
}

func newFixtureWithStore(t *testing.T, store *memory.SnapshotStore, resetOnSwitch bool) *fixture {
	t.Helper()

	clock := &stepClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	sessions := usecase.NewSessionManager(store, zap.NewNop(),
		usecase.WithPersistOptions(persist.WithRetry(1, time.Millisecond)),
		usecase.WithLedgerOptions(ledger.WithClock(clock)),
	)
	t.Cleanup(func() { _ = sessions.Close(context.Background()) })

	f := &fixture{
		store:     store,
		sessions:  sessions,
		products:  new(ProductRepoMock),
		sales:     new(SaleRepoMock),
		merchants: new(MerchantRepoMock),
	}
	f.merchants.On("ListAccessible", mock.Anything, "emp1234").Return([]model.Merchant{cafe, supplies}, nil).Maybe()
	f.merchants.On("ListAccessible", mock.Anything, "emp5678").Return([]model.Merchant{cafe}, nil).Maybe()
	f.merchants.On("CanAccess", mock.Anything, "emp1234", mock.Anything).Return(true, nil).Maybe()
	f.merchants.On("CanAccess", mock.Anything, "emp5678", cafe.ID).Return(true, nil).Maybe()
	f.merchants.On("CanAccess", mock.Anything, "emp5678", supplies.ID).Return(false, nil).Maybe()

	f.carts = usecase.NewCartUsecase(sessions, f.products, f.sales, f.merchants, validator.NewCartValidator(), &seqIDs{}, clock, zap.NewNop())
	f.session = usecase.NewSessionUsecase(sessions, f.merchants, resetOnSwitch, zap.NewNop())
	return f
}

func (f *fixture) selectMerchant(t *testing.T, merchantID string) usecase.MeOutput {
	t.Helper()
	out, err := f.session.SelectMerchant(context.Background(), actor, merchantID)
	require.NoError(t, err)
	return out
}

func requireHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, status, he.Status)
	if msg != "" {
		require.Equal(t, msg, he.Message)
	}
}
