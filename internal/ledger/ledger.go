package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// Observer は状態が変わった後に新しいスナップショットを受け取る。
// ロック中に呼ばれるのでブロックしないこと。
type Observer func(State)

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Ledger は全merchantのカートを持つ唯一の書き手。
// 各操作はロック内で「読む→新しいStateを作る→差し替える」を最後まで行う。
type Ledger struct {
	mu        sync.Mutex
	state     State
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger
	observers []Observer
}

type Option func(*Ledger)

func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) { l.ids = g }
}

func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// DI
func New(opts ...Option) *Ledger {
	l := &Ledger{
		state:  EmptyState(),
		ids:    uuidGenerator{},
		clock:  systemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore は起動時に読み込んだStateを差し替える。observerには通知しない。
func (l *Ledger) Restore(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Sanitize(s)
}

// Snapshot は現在のStateのコピー
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// apply は遷移関数を実行し、変化があれば差し替えて通知する。
func (l *Ledger) apply(op string, fn func(State) (State, bool)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, changed := fn(l.state)
	if !changed {
		l.logger.Debug("ledger no-op",
			zap.String("op", op),
			zap.String("merchant_id", l.state.CurrentMerchantID),
			zap.String("active_cart_id", l.state.ActiveCartID),
		)
		return false
	}
	l.install(next)
	return true
}

func (l *Ledger) install(next State) {
	l.state = next
	for _, o := range l.observers {
		o(next.Clone())
	}
}

func (l *Ledger) SetCurrentMerchant(merchantID string) {
	l.apply("set_current_merchant", func(s State) (State, bool) {
		return SetCurrentMerchant(s, merchantID)
	})
}

// CreateCart はmerchantIDが空なら作らずに""を返す。
func (l *Ledger) CreateCart(merchantID, name, note string, typ CartType) (string, bool) {
	if merchantID == "" {
		l.logger.Warn("merchant id is required for create cart")
		return "", false
	}
	if typ == "" {
		typ = CartTypeInStore
	}

	id := l.ids.NewID()
	ok := l.apply("create_cart", func(s State) (State, bool) {
		return CreateCart(s, NewCart{
			ID:         id,
			MerchantID: merchantID,
			Name:       name,
			Note:       note,
			Type:       typ,
			CreatedAt:  l.clock.Now(),
		})
	})
	if !ok {
		return "", false
	}
	return id, true
}

func (l *Ledger) SwitchCart(cartID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ok := SwitchCart(l.state, cartID)
	if !ok {
		return false
	}
	if next.ActiveCartID != l.state.ActiveCartID {
		l.install(next)
	}
	return true
}

func (l *Ledger) DeleteCart(cartID string) bool {
	return l.apply("delete_cart", func(s State) (State, bool) {
		return DeleteCart(s, cartID)
	})
}

func (l *Ledger) RenameCart(cartID, name string) bool {
	return l.apply("rename_cart", func(s State) (State, bool) {
		return RenameCart(s, cartID, name)
	})
}

func (l *Ledger) UpdateCartType(cartID string, typ CartType) bool {
	return l.apply("update_cart_type", func(s State) (State, bool) {
		return UpdateCartType(s, cartID, typ)
	})
}

func (l *Ledger) AddCartNote(cartID, note string) bool {
	return l.apply("add_cart_note", func(s State) (State, bool) {
		return AddCartNote(s, cartID, note)
	})
}

func (l *Ledger) MarkCartNotified(cartID string) bool {
	return l.apply("mark_cart_notified", func(s State) (State, bool) {
		return MarkCartNotified(s, cartID)
	})
}

func (l *Ledger) AddToCart(p Product) bool {
	if p.ID == "" || p.Price.IsNegative() {
		l.logger.Warn("rejected product for add to cart",
			zap.String("product_id", p.ID),
			zap.String("price", p.Price.String()),
		)
		return false
	}
	return l.apply("add_to_cart", func(s State) (State, bool) {
		return AddToCart(s, p)
	})
}

func (l *Ledger) RemoveFromCart(productID string) bool {
	return l.apply("remove_from_cart", func(s State) (State, bool) {
		return RemoveFromCart(s, productID)
	})
}

func (l *Ledger) UpdateQuantity(productID string, quantity int) bool {
	return l.apply("update_quantity", func(s State) (State, bool) {
		return UpdateQuantity(s, productID, quantity)
	})
}

func (l *Ledger) ClearCart() bool {
	return l.apply("clear_cart", ClearCart)
}

// CheckoutCart は削除したカートを返す（売上記録用）。
func (l *Ledger) CheckoutCart() (Cart, bool) {
	var removed Cart
	ok := l.apply("checkout_cart", func(s State) (State, bool) {
		next, c, ok := CheckoutCart(s)
		removed = c
		return next, ok
	})
	return removed, ok
}

// CheckoutCartID は記録済みのsnapshotと同じ内容のカートだけを削除する。
func (l *Ledger) CheckoutCartID(snapshot Cart) (Cart, bool) {
	var removed Cart
	ok := l.apply("checkout_cart_id", func(s State) (State, bool) {
		next, c, ok := CheckoutCartID(s, snapshot)
		removed = c
		return next, ok
	})
	return removed, ok
}

func (l *Ledger) ResetMerchantCarts(merchantID string) bool {
	return l.apply("reset_merchant_carts", func(s State) (State, bool) {
		return ResetMerchantCarts(s, merchantID)
	})
}

func (l *Ledger) ResetAll() {
	l.apply("reset_all", ResetAll)
}

func (l *Ledger) ActiveCart() (Cart, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ActiveCart(l.state)
}

func (l *Ledger) CartCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CartCount(l.state)
}

func (l *Ledger) CartList() []Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CartList(l.state)
}

func (l *Ledger) OldestCarts(limit int) []Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	return OldestCarts(l.state, limit)
}

func (l *Ledger) FindCart(cartID string) (Cart, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return FindCart(l.state, cartID)
}

func (l *Ledger) CurrentMerchantID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.CurrentMerchantID
}
