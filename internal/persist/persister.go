package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repo "pos/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Persister は1つのキーに最新の値だけを書き込む。
// Saveはブロックせず、書き込みはRunかFlushが行う。書き込みは常に1本ずつ。
type Persister[T any] struct {
	store  repo.SnapshotStore
	key    string
	encode func(T) ([]byte, error)
	decode func([]byte) (T, error)

	logger         *zap.Logger
	maxTries       uint
	initialBackoff time.Duration

	mu      sync.Mutex
	pending *T
	wake    chan struct{}

	writeMu sync.Mutex
}

type settings struct {
	logger         *zap.Logger
	maxTries       uint
	initialBackoff time.Duration
}

type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRetry は書き込み失敗時の試行回数と最初の待ち時間
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(s *settings) {
		s.maxTries = maxTries
		s.initialBackoff = initial
	}
}

// DI
func New[T any](store repo.SnapshotStore, key string, encode func(T) ([]byte, error), decode func([]byte) (T, error), opts ...Option) *Persister[T] {
	s := settings{
		logger:         zap.NewNop(),
		maxTries:       5,
		initialBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxTries == 0 {
		s.maxTries = 1
	}

	return &Persister[T]{
		store:          store,
		key:            key,
		encode:         encode,
		decode:         decode,
		logger:         s.logger.With(zap.String("key", key)),
		maxTries:       s.maxTries,
		initialBackoff: s.initialBackoff,
		wake:           make(chan struct{}, 1),
	}
}

func (p *Persister[T]) Key() string { return p.key }

// Load は保存済みの値を読む。
// キーが無い場合と壊れている場合はdecode(nil)の値（空の状態）を返す。
func (p *Persister[T]) Load(ctx context.Context) (T, error) {
	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, repo.ErrNotFound) {
		return p.decode(nil)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", p.key, err)
	}

	v, err := p.decode(data)
	if err != nil {
		p.logger.Warn("stored snapshot is unreadable, starting empty", zap.Error(err))
		return p.decode(nil)
	}
	return v, nil
}

// Save は値を予約するだけ。未書き込みの値があれば上書きする。
func (p *Persister[T]) Save(v T) {
	p.mu.Lock()
	p.pending = &v
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run はctxが終わるまで予約された値を書き込み続ける。
func (p *Persister[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			// 停止と重なっても書き込み中の値は最後まで書く。失敗はwriteの中でログ済み
			_ = p.write(context.WithoutCancel(ctx))
		}
	}
}

// Flush は予約中の値をその場で書き込む（ログアウト・停止時）。
func (p *Persister[T]) Flush(ctx context.Context) error {
	return p.write(ctx)
}

func (p *Persister[T]) take() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		var zero T
		return zero, false
	}
	v := *p.pending
	p.pending = nil
	return v, true
}

func (p *Persister[T]) write(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	v, ok := p.take()
	if !ok {
		return nil
	}

	data, err := p.encode(v)
	if err != nil {
		p.logger.Error("encode snapshot failed", zap.Error(err))
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialBackoff

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.store.Set(ctx, p.key, data)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("snapshot write failed, retrying", zap.Error(err), zap.Duration("next", next))
		}),
	)
	if err != nil {
		// メモリ上の状態が正なので、この値は捨てる
		p.logger.Error("snapshot write dropped", zap.Error(err), zap.Uint("tries", p.maxTries))
		return err
	}
	return nil
}
