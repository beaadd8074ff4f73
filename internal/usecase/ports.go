package usecase

import (
	"time"

	"pos/internal/ledger"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// カート操作の入力チェック。ledger自体は不正な入力を黙って無視するので、UI向けのエラーはここで作る。
type CartValidator interface {
	ValidateCartName(name string) error
	ValidateNote(note string) error
	ValidateCartType(typ string) error
	ValidateQuantity(quantity int) error
	ValidateProduct(p ledger.Product) error
}

// Actor はJWTから取り出した操作者
type Actor struct {
	EmployeeID   string
	EmployeeName string
}
