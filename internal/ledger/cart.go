package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartType string

const (
	CartTypeInStore  CartType = "inStore"
	CartTypeTakeAway CartType = "takeAway"
	CartTypeReserved CartType = "reserved"
)

// 既知のタイプかどうか
func (t CartType) Valid() bool {
	switch t {
	case CartTypeInStore, CartTypeTakeAway, CartTypeReserved:
		return true
	}
	return false
}

// Product は追加時点の商品スナップショット。
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// 1商品につき1行、数量は常に1以上
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// 小計
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart は1件の会計単位。Totalは明細から必ず再計算する。
type Cart struct {
	ID         string          `json:"id"`
	MerchantID string          `json:"merchantId"`
	Name       string          `json:"name"`
	Lines      []CartLine      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
	Note       string          `json:"note"`
	Type       CartType        `json:"type"`
	Notified   bool            `json:"notified"`
}

// 明細から合計を計算
func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// 商品IDで明細の位置を探す
func (c Cart) lineIndex(productID string) int {
	for i, l := range c.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// 明細を差し替えて合計を再計算したコピーを返す
func (c Cart) withLines(lines []CartLine) Cart {
	c.Lines = lines
	c.Total = SumLines(lines)
	return c
}

func (c Cart) clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	return c
}

// ItemCount は数量の合計
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}
