package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// State はレジャー全体のスナップショット。
// 遷移関数はStateを書き換えず、新しいStateを返す。
type State struct {
	CartsByMerchant   map[string]map[string]Cart
	ActiveCartID      string
	CurrentMerchantID string
}

func EmptyState() State {
	return State{CartsByMerchant: map[string]map[string]Cart{}}
}

// Clone は深いコピー
func (s State) Clone() State {
	out := State{
		CartsByMerchant:   make(map[string]map[string]Cart, len(s.CartsByMerchant)),
		ActiveCartID:      s.ActiveCartID,
		CurrentMerchantID: s.CurrentMerchantID,
	}
	for m, carts := range s.CartsByMerchant {
		cp := make(map[string]Cart, len(carts))
		for id, c := range carts {
			cp[id] = c.clone()
		}
		out.CartsByMerchant[m] = cp
	}
	return out
}

// NewCart はCreateCartに渡す生成済みの値
type NewCart struct {
	ID         string
	MerchantID string
	Name       string
	Note       string
	Type       CartType
	CreatedAt  time.Time
}

// 例: "Cart 3"
func DefaultCartName(n int) string {
	return fmt.Sprintf("Cart %d", n)
}

func SetCurrentMerchant(s State, merchantID string) (State, bool) {
	if s.CurrentMerchantID == merchantID {
		return s, false
	}
	next := s.Clone()
	next.CurrentMerchantID = merchantID
	return next, true
}

// CreateCart はカートを追加してアクティブにする。merchantも切り替わる。
func CreateCart(s State, nc NewCart) (State, bool) {
	if nc.MerchantID == "" || nc.ID == "" {
		return s, false
	}
	next := s.Clone()
	carts := next.CartsByMerchant[nc.MerchantID]
	if carts == nil {
		carts = map[string]Cart{}
		next.CartsByMerchant[nc.MerchantID] = carts
	}
	if _, exists := carts[nc.ID]; exists {
		return s, false
	}

	name := strings.TrimSpace(nc.Name)
	if name == "" {
		name = DefaultCartName(len(carts) + 1)
	}
	typ := nc.Type
	if !typ.Valid() {
		typ = CartTypeInStore
	}

	carts[nc.ID] = Cart{
		ID:         nc.ID,
		MerchantID: nc.MerchantID,
		Name:       name,
		Lines:      []CartLine{},
		Total:      SumLines(nil),
		CreatedAt:  nc.CreatedAt,
		Note:       nc.Note,
		Type:       typ,
	}
	next.ActiveCartID = nc.ID
	next.CurrentMerchantID = nc.MerchantID
	return next, true
}

func SwitchCart(s State, cartID string) (State, bool) {
	if _, ok := lookup(s, cartID); !ok {
		return s, false
	}
	if s.ActiveCartID == cartID {
		return s, true
	}
	next := s.Clone()
	next.ActiveCartID = cartID
	return next, true
}

func DeleteCart(s State, cartID string) (State, bool) {
	if _, ok := lookup(s, cartID); !ok {
		return s, false
	}
	next := s.Clone()
	carts := next.CartsByMerchant[next.CurrentMerchantID]
	delete(carts, cartID)
	if next.ActiveCartID == cartID {
		next.ActiveCartID = successor(carts)
	}
	return next, true
}

func RenameCart(s State, cartID, name string) (State, bool) {
	return updateCart(s, cartID, func(c Cart) Cart {
		c.Name = name
		return c
	})
}

func UpdateCartType(s State, cartID string, typ CartType) (State, bool) {
	if !typ.Valid() {
		return s, false
	}
	return updateCart(s, cartID, func(c Cart) Cart {
		c.Type = typ
		return c
	})
}

func AddCartNote(s State, cartID, note string) (State, bool) {
	return updateCart(s, cartID, func(c Cart) Cart {
		c.Note = note
		return c
	})
}

func MarkCartNotified(s State, cartID string) (State, bool) {
	return updateCart(s, cartID, func(c Cart) Cart {
		c.Notified = true
		return c
	})
}

// AddToCart は同一商品なら数量+1、無ければ数量1で末尾に追加。
func AddToCart(s State, p Product) (State, bool) {
	if p.ID == "" || p.Price.IsNegative() {
		return s, false
	}
	return updateCart(s, s.ActiveCartID, func(c Cart) Cart {
		lines := c.Lines
		if i := c.lineIndex(p.ID); i >= 0 {
			lines[i].Quantity++
		} else {
			lines = append(lines, CartLine{Product: p, Quantity: 1})
		}
		return c.withLines(lines)
	})
}

func RemoveFromCart(s State, productID string) (State, bool) {
	c, ok := activeCart(s)
	if !ok || c.lineIndex(productID) < 0 {
		return s, false
	}
	return updateCart(s, s.ActiveCartID, func(c Cart) Cart {
		return c.withLines(removeLine(c.Lines, productID))
	})
}

// UpdateQuantity は0以下なら明細削除、それ以外は数量をそのまま設定。
func UpdateQuantity(s State, productID string, quantity int) (State, bool) {
	if quantity <= 0 {
		return RemoveFromCart(s, productID)
	}
	c, ok := activeCart(s)
	if !ok {
		return s, false
	}
	i := c.lineIndex(productID)
	if i < 0 || c.Lines[i].Quantity == quantity {
		return s, false
	}
	return updateCart(s, s.ActiveCartID, func(c Cart) Cart {
		c.Lines[i].Quantity = quantity
		return c.withLines(c.Lines)
	})
}

// ClearCart は明細だけを空にする。カート自体は残る。
func ClearCart(s State) (State, bool) {
	return updateCart(s, s.ActiveCartID, func(c Cart) Cart {
		return c.withLines([]CartLine{})
	})
}

// CheckoutCart はアクティブカートを削除し、削除したカートを返す。
func CheckoutCart(s State) (State, Cart, bool) {
	c, ok := activeCart(s)
	if !ok {
		return s, Cart{}, false
	}
	next := s.Clone()
	carts := next.CartsByMerchant[next.CurrentMerchantID]
	delete(carts, c.ID)
	next.ActiveCartID = successor(carts)
	return next, c, true
}

// CheckoutCartID は指定したカートだけを削除する。
// 明細か合計がsnapshotと違えば何もしない。アクティブだった場合だけ後継を選ぶ。
func CheckoutCartID(s State, snapshot Cart) (State, Cart, bool) {
	c, ok := lookup(s, snapshot.ID)
	if !ok || !sameContents(c, snapshot) {
		return s, Cart{}, false
	}
	next := s.Clone()
	carts := next.CartsByMerchant[next.CurrentMerchantID]
	delete(carts, c.ID)
	if next.ActiveCartID == c.ID {
		next.ActiveCartID = successor(carts)
	}
	return next, c, true
}

func sameContents(a, b Cart) bool {
	if !a.Total.Equal(b.Total) || len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		x, y := a.Lines[i], b.Lines[i]
		if x.Product.ID != y.Product.ID || x.Quantity != y.Quantity || !x.Product.Price.Equal(y.Product.Price) {
			return false
		}
	}
	return true
}

// ResetMerchantCarts はactiveCartIDをmerchantに関係なくクリアする。
func ResetMerchantCarts(s State, merchantID string) (State, bool) {
	if merchantID == "" {
		return s, false
	}
	next := s.Clone()
	next.CartsByMerchant[merchantID] = map[string]Cart{}
	next.ActiveCartID = ""
	return next, true
}

func ResetAll(State) (State, bool) {
	return EmptyState(), true
}

// 現在のmerchantの下にあるカートだけを対象にする
func lookup(s State, cartID string) (Cart, bool) {
	if s.CurrentMerchantID == "" || cartID == "" {
		return Cart{}, false
	}
	carts, ok := s.CartsByMerchant[s.CurrentMerchantID]
	if !ok {
		return Cart{}, false
	}
	c, ok := carts[cartID]
	return c, ok
}

func activeCart(s State) (Cart, bool) {
	return lookup(s, s.ActiveCartID)
}

func updateCart(s State, cartID string, fn func(Cart) Cart) (State, bool) {
	if _, ok := lookup(s, cartID); !ok {
		return s, false
	}
	next := s.Clone()
	carts := next.CartsByMerchant[next.CurrentMerchantID]
	carts[cartID] = fn(carts[cartID])
	return next, true
}

func removeLine(lines []CartLine, productID string) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Product.ID != productID {
			out = append(out, l)
		}
	}
	return out
}

// 残ったカートのうち最も古いもの（同時刻はID順）
func successor(carts map[string]Cart) string {
	if len(carts) == 0 {
		return ""
	}
	return sortedByAge(carts)[0].ID
}

func sortedByAge(carts map[string]Cart) []Cart {
	out := make([]Cart, 0, len(carts))
	for _, c := range carts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
