package validator

import (
	"errors"
	"strings"
	"unicode/utf8"

	"pos/internal/ledger"
	"pos/internal/usecase"
)

var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidNote     = errors.New("note too long")
	ErrInvalidCartType = errors.New("invalid type")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidProduct  = errors.New("invalid product")
)

const (
	maxNameLen     = 100
	maxNoteLen     = 500
	maxQuantity    = 9999
	maxProductID   = 64
	maxProductName = 255
)

type cartValidator struct{}

// Usecaseは interface を依存注入
func NewCartValidator() usecase.CartValidator {
	return &cartValidator{}
}

// 空白だけの名前は不可
func (v *cartValidator) ValidateCartName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return ErrInvalidName
	}
	return nil
}

func (v *cartValidator) ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > maxNoteLen {
		return ErrInvalidNote
	}
	return nil
}

func (v *cartValidator) ValidateCartType(typ string) error {
	if !ledger.CartType(typ).Valid() {
		return ErrInvalidCartType
	}
	return nil
}

// 0は削除の意味なので許可
func (v *cartValidator) ValidateQuantity(quantity int) error {
	if quantity < 0 || quantity > maxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// 価格は0以上、小数は2桁まで
func (v *cartValidator) ValidateProduct(p ledger.Product) error {
	id := strings.TrimSpace(p.ID)
	if id == "" || id != p.ID || len(id) > maxProductID {
		return ErrInvalidProduct
	}
	if utf8.RuneCountInString(p.Name) > maxProductName {
		return ErrInvalidProduct
	}
	if p.Price.IsNegative() || !p.Price.Equal(p.Price.Round(2)) {
		return ErrInvalidProduct
	}
	return nil
}
