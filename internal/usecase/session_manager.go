package usecase

import (
	"context"
	"errors"
	"sync"

	"pos/internal/identity"
	"pos/internal/ledger"
	"pos/internal/persist"
	repo "pos/internal/repository"

	"go.uber.org/zap"
)

// 保存キー（従業員ごと）
const (
	cartKeyPrefix    = "cart-storage:"
	profileKeyPrefix = "user-storage:"
)

// Session は1人の従業員のレジャーとプロフィール
type Session struct {
	employeeID string
	Ledger     *ledger.Ledger

	mu      sync.Mutex
	profile identity.Profile

	// 同じ従業員の操作は1つずつ（会計中の切り替えなどを防ぐ）
	op sync.Mutex

	carts    *persist.Persister[ledger.State]
	profiles *persist.Persister[identity.Profile]
	stop     context.CancelFunc
}

func (s *Session) EmployeeID() string { return s.employeeID }

func (s *Session) Profile() identity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// UpdateProfile は変更後のプロフィールを保存予約して返す
func (s *Session) UpdateProfile(fn func(identity.Profile) identity.Profile) identity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = fn(s.profile)
	s.profiles.Save(s.profile)
	return s.profile
}

// lock は操作ロックを取り、解放する関数を返す
func (s *Session) lock() func() {
	s.op.Lock()
	return s.op.Unlock
}

func (s *Session) flush(ctx context.Context) error {
	return errors.Join(s.carts.Flush(ctx), s.profiles.Flush(ctx))
}

// SessionManager は従業員ごとのSessionを最初のリクエストで開く
type SessionManager struct {
	store       repo.SnapshotStore
	logger      *zap.Logger
	persistOpts []persist.Option
	ledgerOpts  []ledger.Option

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

type SessionOption func(*SessionManager)

func WithPersistOptions(opts ...persist.Option) SessionOption {
	return func(m *SessionManager) { m.persistOpts = append(m.persistOpts, opts...) }
}

func WithLedgerOptions(opts ...ledger.Option) SessionOption {
	return func(m *SessionManager) { m.ledgerOpts = append(m.ledgerOpts, opts...) }
}

// DI
func NewSessionManager(store repo.SnapshotStore, logger *zap.Logger, opts ...SessionOption) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		store:    store,
		logger:   logger,
		runCtx:   ctx,
		cancel:   cancel,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open は既存のSessionを返すか、保存領域から読み込んで作る。
// 読み込みはロックの外で行い、同時に開かれた場合は先に登録された方を使う。
func (m *SessionManager) Open(ctx context.Context, employeeID, employeeName string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[employeeID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	popts := append([]persist.Option{persist.WithLogger(m.logger)}, m.persistOpts...)
	carts := persist.New(m.store, cartKeyPrefix+employeeID, ledger.Encode, ledger.Decode, popts...)
	profiles := persist.New(m.store, profileKeyPrefix+employeeID, identity.Encode, identity.Decode, popts...)

	state, err := carts.Load(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := profiles.Load(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[employeeID]; ok {
		return existing, nil
	}

	lopts := append([]ledger.Option{
		ledger.WithLogger(m.logger.With(zap.String("employee_id", employeeID))),
		ledger.WithObserver(func(s ledger.State) { carts.Save(s) }),
	}, m.ledgerOpts...)
	l := ledger.New(lopts...)
	l.Restore(state)

	runCtx, stop := context.WithCancel(m.runCtx)
	s = &Session{
		employeeID: employeeID,
		Ledger:     l,
		profile:    profile,
		carts:      carts,
		profiles:   profiles,
		stop:       stop,
	}
	if profile.EmployeeID() != employeeID || (employeeName != "" && profile.EmployeeName() != employeeName) {
		s.UpdateProfile(func(p identity.Profile) identity.Profile {
			if p.EmployeeID() != employeeID {
				p = p.Reset()
			}
			return p.WithEmployee(employeeID, employeeName)
		})
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		carts.Run(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		profiles.Run(runCtx)
	}()

	m.sessions[employeeID] = s
	m.logger.Info("session opened",
		zap.String("employee_id", employeeID),
		zap.Int("merchants_with_carts", len(state.CartsByMerchant)),
	)
	return s, nil
}

// Logout はカートとプロフィールを消して保存し、Sessionを閉じる
func (m *SessionManager) Logout(ctx context.Context, employeeID string) error {
	m.mu.Lock()
	s, ok := m.sessions[employeeID]
	delete(m.sessions, employeeID)
	m.mu.Unlock()

	if !ok {
		// 開いていなくても保存済みのデータは消す
		return errors.Join(
			m.store.Delete(ctx, cartKeyPrefix+employeeID),
			m.store.Delete(ctx, profileKeyPrefix+employeeID),
		)
	}

	release := s.lock()
	defer release()

	s.Ledger.ResetAll()
	s.UpdateProfile(identity.Profile.Reset)
	err := s.flush(ctx)
	s.stop()
	return err
}

// Close は書き込みループを止めて全Sessionを書き出す（停止時）
func (m *SessionManager) Close(ctx context.Context) error {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, s := range m.sessions {
		if err := s.flush(ctx); err != nil {
			m.logger.Error("flush on shutdown failed", zap.String("employee_id", id), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
