package identity

import (
	"encoding/json"
	"errors"

	"pos/internal/domain/model"
)

var ErrMalformedProfile = errors.New("malformed profile")

// Provider はカート側から見た「誰が・どのmerchantで」操作しているか。読み取り専用。
type Provider interface {
	EmployeeID() string
	EmployeeName() string
	SelectedMerchantID() string
	AccessibleMerchants() []model.Merchant
}

// Profile はログイン中の従業員の情報。変更は新しい値を返す。
type Profile struct {
	employeeID          string
	employeeName        string
	selectedMerchantID  string
	accessibleMerchants []model.Merchant
}

var _ Provider = Profile{}

func (p Profile) EmployeeID() string         { return p.employeeID }
func (p Profile) EmployeeName() string       { return p.employeeName }
func (p Profile) SelectedMerchantID() string { return p.selectedMerchantID }

func (p Profile) AccessibleMerchants() []model.Merchant {
	out := make([]model.Merchant, len(p.accessibleMerchants))
	copy(out, p.accessibleMerchants)
	return out
}

// CanAccess はmerchantが一覧に含まれるか
func (p Profile) CanAccess(merchantID string) bool {
	for _, m := range p.accessibleMerchants {
		if m.ID == merchantID {
			return true
		}
	}
	return false
}

func (p Profile) WithEmployee(id, name string) Profile {
	p.employeeID = id
	p.employeeName = name
	return p
}

func (p Profile) WithSelectedMerchant(merchantID string) Profile {
	p.selectedMerchantID = merchantID
	return p
}

func (p Profile) WithAccessibleMerchants(merchants []model.Merchant) Profile {
	p.accessibleMerchants = make([]model.Merchant, len(merchants))
	copy(p.accessibleMerchants, merchants)
	return p
}

// Reset はログアウト時の空の状態
func (p Profile) Reset() Profile {
	return Profile{}
}

// 保存形式
type persistedProfile struct {
	EmployeeID          *string          `json:"employeeId"`
	EmployeeName        *string          `json:"employeeName"`
	SelectedMerchantID  *string          `json:"selectedMerchantId"`
	AccessibleMerchants []model.Merchant `json:"accessibleMerchants"`
}

func Encode(p Profile) ([]byte, error) {
	merchants := p.accessibleMerchants
	if merchants == nil {
		merchants = []model.Merchant{}
	}
	return json.Marshal(persistedProfile{
		EmployeeID:          nullable(p.employeeID),
		EmployeeName:        nullable(p.employeeName),
		SelectedMerchantID:  nullable(p.selectedMerchantID),
		AccessibleMerchants: merchants,
	})
}

// Decode は空入力なら空のProfile。zustandの{"state": ...}も読める。
func Decode(data []byte) (Profile, error) {
	if len(data) == 0 {
		return Profile{}, nil
	}

	var envelope struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Profile{}, ErrMalformedProfile
	}
	if len(envelope.State) > 0 {
		data = envelope.State
	}

	var pp persistedProfile
	if err := json.Unmarshal(data, &pp); err != nil {
		return Profile{}, ErrMalformedProfile
	}

	return Profile{
		employeeID:          deref(pp.EmployeeID),
		employeeName:        deref(pp.EmployeeName),
		selectedMerchantID:  deref(pp.SelectedMerchantID),
		accessibleMerchants: pp.AccessibleMerchants,
	}, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
