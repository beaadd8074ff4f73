package usecase

import (
	"context"
	"net/http"
	"strings"

	"pos/internal/domain/model"
	"pos/internal/identity"
	"pos/internal/ledger"
	repo "pos/internal/repository"

	"go.uber.org/zap"
)

// SessionUsecase はログイン中の従業員とmerchant選択
type SessionUsecase struct {
	sessions      *SessionManager
	merchants     repo.MerchantRepository
	resetOnSwitch bool
	logger        *zap.Logger
}

// DI
func NewSessionUsecase(sessions *SessionManager, merchants repo.MerchantRepository, resetOnSwitch bool, logger *zap.Logger) *SessionUsecase {
	return &SessionUsecase{
		sessions:      sessions,
		merchants:     merchants,
		resetOnSwitch: resetOnSwitch,
		logger:        logger,
	}
}

type MeOutput struct {
	EmployeeID          string           `json:"employeeId"`
	EmployeeName        string           `json:"employeeName"`
	SelectedMerchantID  string           `json:"selectedMerchantId"`
	AccessibleMerchants []model.Merchant `json:"accessibleMerchants"`
	CartCount           int              `json:"cartCount"`
	ActiveCartID        string           `json:"activeCartId"`
}

func meOutput(s *Session) MeOutput {
	p := s.Profile()
	out := MeOutput{
		EmployeeID:          p.EmployeeID(),
		EmployeeName:        p.EmployeeName(),
		SelectedMerchantID:  p.SelectedMerchantID(),
		AccessibleMerchants: p.AccessibleMerchants(),
	}
	if out.SelectedMerchantID != "" {
		out.CartCount = s.Ledger.CartCount()
		if c, ok := s.Ledger.ActiveCart(); ok {
			out.ActiveCartID = c.ID
		}
	}
	return out
}

func (u *SessionUsecase) open(ctx context.Context, a Actor) (*Session, error) {
	if a.EmployeeID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	s, err := u.sessions.Open(ctx, a.EmployeeID, a.EmployeeName)
	if err != nil {
		u.logger.Error("open session failed", zap.String("employee_id", a.EmployeeID), zap.Error(err))
		return nil, NewHTTPError(http.StatusInternalServerError, "storage error")
	}
	return s, nil
}

// Me はプロフィールと、DBから取り直したアクセス可能なmerchant一覧
func (u *SessionUsecase) Me(ctx context.Context, a Actor) (MeOutput, error) {
	s, err := u.open(ctx, a)
	if err != nil {
		return MeOutput{}, err
	}
	release := s.lock()
	defer release()

	merchants, err := u.merchants.ListAccessible(ctx, a.EmployeeID)
	if err != nil {
		return MeOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	s.UpdateProfile(func(p identity.Profile) identity.Profile {
		p = p.WithAccessibleMerchants(merchants)
		// 権限が外れたmerchantは選択を解除
		if p.SelectedMerchantID() != "" && !p.CanAccess(p.SelectedMerchantID()) {
			p = p.WithSelectedMerchant("")
		}
		return p
	})
	return meOutput(s), nil
}

// SelectMerchant は作業するmerchantを決める。
// カートが無ければ1つ作り、アクティブが他merchantのものなら一番古いカートに付け替える。
func (u *SessionUsecase) SelectMerchant(ctx context.Context, a Actor, merchantID string) (MeOutput, error) {
	merchantID = strings.TrimSpace(merchantID)
	if merchantID == "" {
		return MeOutput{}, NewHTTPError(http.StatusBadRequest, "merchant_id required")
	}

	s, err := u.open(ctx, a)
	if err != nil {
		return MeOutput{}, err
	}
	release := s.lock()
	defer release()

	merchants, err := u.merchants.ListAccessible(ctx, a.EmployeeID)
	if err != nil {
		return MeOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	profile := identity.Profile{}.WithAccessibleMerchants(merchants)
	if !profile.CanAccess(merchantID) {
		return MeOutput{}, NewHTTPError(http.StatusForbidden, "merchant not accessible")
	}

	previous := s.Profile().SelectedMerchantID()
	if u.resetOnSwitch && previous != "" && previous != merchantID {
		s.Ledger.ResetMerchantCarts(previous)
	}

	s.UpdateProfile(func(p identity.Profile) identity.Profile {
		return p.WithAccessibleMerchants(merchants).WithSelectedMerchant(merchantID)
	})
	s.Ledger.SetCurrentMerchant(merchantID)

	if s.Ledger.CartCount() == 0 {
		s.Ledger.CreateCart(merchantID, NewCartName, "", ledger.CartTypeInStore)
	} else if _, ok := s.Ledger.ActiveCart(); !ok {
		if oldest := s.Ledger.OldestCarts(1); len(oldest) > 0 {
			s.Ledger.SwitchCart(oldest[0].ID)
		}
	}

	u.logger.Info("merchant selected",
		zap.String("employee_id", a.EmployeeID),
		zap.String("merchant_id", merchantID),
		zap.String("previous_merchant_id", previous),
	)
	return meOutput(s), nil
}

// Logout は全カートとプロフィールを消す
func (u *SessionUsecase) Logout(ctx context.Context, a Actor) error {
	if a.EmployeeID == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.sessions.Logout(ctx, a.EmployeeID); err != nil {
		u.logger.Error("logout flush failed", zap.String("employee_id", a.EmployeeID), zap.Error(err))
		return NewHTTPError(http.StatusInternalServerError, "storage error")
	}
	return nil
}
