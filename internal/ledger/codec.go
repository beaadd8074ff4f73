package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMalformedState = errors.New("malformed ledger state")

// 保存形式（トップレベルのキーは固定）
type persistedState struct {
	CartsByMerchant   map[string]map[string]Cart `json:"cartsByMerchant"`
	ActiveCartID      *string                    `json:"activeCartId"`
	CurrentMerchantID *string                    `json:"currentMerchantId"`
}

// Encode はStateをJSONにする。空のIDはnullで書く。
func Encode(s State) ([]byte, error) {
	out := persistedState{
		CartsByMerchant:   s.CartsByMerchant,
		ActiveCartID:      nullable(s.ActiveCartID),
		CurrentMerchantID: nullable(s.CurrentMerchantID),
	}
	if out.CartsByMerchant == nil {
		out.CartsByMerchant = map[string]map[string]Cart{}
	}
	return json.Marshal(out)
}

// 旧形式の明細（商品の項目がフラットに入っている）
type legacyItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	ImageURL string          `json:"imageUrl"`
	Quantity int             `json:"quantity"`
}

type decodedCart struct {
	ID         string       `json:"id"`
	MerchantID string       `json:"merchantId"`
	Name       string       `json:"name"`
	Lines      []CartLine   `json:"lines"`
	Items      []legacyItem `json:"items"`
	CreatedAt  time.Time    `json:"createdAt"`
	Note       string       `json:"note"`
	Type       CartType     `json:"type"`
	Notified   bool         `json:"notified"`
}

// Decode は壊れたデータでもpanicしない。
// JSONとして読めない場合は空のStateとErrMalformedStateを返す。
// 読めないカートは捨て、不変条件はSanitizeで直す。
func Decode(data []byte) (State, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return EmptyState(), nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return EmptyState(), ErrMalformedState
	}

	// zustand persist の {"state": {...}, "version": 0}
	if inner, ok := top["state"]; ok {
		var unwrapped map[string]json.RawMessage
		if err := json.Unmarshal(inner, &unwrapped); err != nil {
			return EmptyState(), ErrMalformedState
		}
		top = unwrapped
	}

	s := EmptyState()
	s.ActiveCartID = decodeString(top["activeCartId"])
	s.CurrentMerchantID = decodeString(top["currentMerchantId"])

	raw, ok := top["cartsByMerchant"]
	if !ok {
		raw = top["merchantCarts"]
	}
	var merchants map[string]map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &merchants); err != nil {
			merchants = nil
		}
	}

	for merchantID, carts := range merchants {
		decoded := map[string]Cart{}
		for cartID, rawCart := range carts {
			var dc decodedCart
			if err := json.Unmarshal(rawCart, &dc); err != nil {
				continue
			}
			c := dc.toCart()
			if c.ID == "" {
				c.ID = cartID
			}
			decoded[cartID] = c
		}
		s.CartsByMerchant[merchantID] = decoded
	}

	return Sanitize(s), nil
}

func (dc decodedCart) toCart() Cart {
	lines := dc.Lines
	if len(lines) == 0 && len(dc.Items) > 0 {
		lines = make([]CartLine, 0, len(dc.Items))
		for _, it := range dc.Items {
			img := it.ImageURL
			if img == "" {
				img = it.Image
			}
			lines = append(lines, CartLine{
				Product: Product{
					ID:       it.ID,
					Name:     it.Name,
					Price:    it.Price,
					Category: it.Category,
					ImageURL: img,
				},
				Quantity: it.Quantity,
			})
		}
	}
	return Cart{
		ID:         dc.ID,
		MerchantID: dc.MerchantID,
		Name:       dc.Name,
		Lines:      lines,
		CreatedAt:  dc.CreatedAt,
		Note:       dc.Note,
		Type:       dc.Type,
		Notified:   dc.Notified,
	}
}

// Sanitize は読み込んだStateの不整合（merchant違い、重複明細、古い合計、無効なアクティブID）を直す。
func Sanitize(s State) State {
	out := State{
		CartsByMerchant:   make(map[string]map[string]Cart, len(s.CartsByMerchant)),
		ActiveCartID:      s.ActiveCartID,
		CurrentMerchantID: s.CurrentMerchantID,
	}

	for merchantID, carts := range s.CartsByMerchant {
		if merchantID == "" {
			continue
		}
		cleaned := make(map[string]Cart, len(carts))
		for key, c := range carts {
			if c.MerchantID == "" {
				c.MerchantID = merchantID
			}
			// 別merchantのカートは捨てる
			if c.MerchantID != merchantID || key == "" || c.ID != key {
				continue
			}
			if !c.Type.Valid() {
				c.Type = CartTypeInStore
			}
			cleaned[key] = c.withLines(normalizeLines(c.Lines))
		}
		out.CartsByMerchant[merchantID] = cleaned
	}

	// アクティブIDは現在のmerchant配下に限る
	if _, ok := lookup(out, out.ActiveCartID); !ok {
		out.ActiveCartID = ""
	}
	return out
}

// 同一商品はまとめ、数量1未満や価格不正の行は捨てる
func normalizeLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	index := map[string]int{}
	for _, l := range lines {
		if l.Product.ID == "" || l.Quantity < 1 || l.Product.Price.IsNegative() {
			continue
		}
		if i, ok := index[l.Product.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Product.ID] = len(out)
		out = append(out, l)
	}
	return out
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
