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

// 会計後やカートが無い時に自動で作るカートの名前
const NewCartName = "New cart"

// CartUsecase はPOS画面のカート操作。状態は従業員ごとのledgerが持つ。
type CartUsecase struct {
	sessions  *SessionManager
	products  repo.ProductRepository
	sales     repo.SaleRepository
	merchants repo.MerchantRepository
	validator CartValidator
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger
}

// DI
func NewCartUsecase(
	sessions *SessionManager,
	products repo.ProductRepository,
	sales repo.SaleRepository,
	merchants repo.MerchantRepository,
	validator CartValidator,
	ids IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		sessions:  sessions,
		products:  products,
		sales:     sales,
		merchants: merchants,
		validator: validator,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

// CartView はカートに件数とアクティブかどうかを足したもの
type CartView struct {
	ledger.Cart
	ItemCount int  `json:"itemCount"`
	Active    bool `json:"active"`
}

type CartListOutput struct {
	MerchantID   string     `json:"merchantId"`
	ActiveCartID string     `json:"activeCartId"`
	Count        int        `json:"count"`
	Carts        []CartView `json:"carts"`
}

type CreateCartInput struct {
	Name string
	Note string
	Type string
}

// nilの項目は変更しない
type UpdateCartInput struct {
	Name *string
	Note *string
	Type *string
}

// CodeかProductのどちらか一方
type AddItemInput struct {
	Code    string
	Product *ledger.Product
}

type CheckoutOutput struct {
	Sale     model.Sale `json:"sale"`
	NextCart CartView   `json:"nextCart"`
}

// open はSessionを開いて操作ロックを取り、選択中のmerchantをledgerに合わせる。
// 権限が外れたmerchantは選択を解除して403。成功時は返したreleaseで必ずロックを解放する。
func (u *CartUsecase) open(ctx context.Context, a Actor) (*Session, string, func(), error) {
	if a.EmployeeID == "" {
		return nil, "", nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	s, err := u.sessions.Open(ctx, a.EmployeeID, a.EmployeeName)
	if err != nil {
		u.logger.Error("open session failed", zap.String("employee_id", a.EmployeeID), zap.Error(err))
		return nil, "", nil, NewHTTPError(http.StatusInternalServerError, "storage error")
	}

	release := s.lock()
	merchantID := s.Profile().SelectedMerchantID()
	if merchantID == "" {
		release()
		return nil, "", nil, NewHTTPError(http.StatusBadRequest, "select a merchant first")
	}

	allowed, err := u.merchants.CanAccess(ctx, a.EmployeeID, merchantID)
	if err != nil {
		release()
		u.logger.Error("merchant access check failed",
			zap.String("employee_id", a.EmployeeID),
			zap.String("merchant_id", merchantID),
			zap.Error(err),
		)
		return nil, "", nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !allowed {
		s.UpdateProfile(func(p identity.Profile) identity.Profile { return p.WithSelectedMerchant("") })
		release()
		u.logger.Warn("selected merchant no longer accessible",
			zap.String("employee_id", a.EmployeeID),
			zap.String("merchant_id", merchantID),
		)
		return nil, "", nil, NewHTTPError(http.StatusForbidden, "merchant not accessible")
	}

	if s.Ledger.CurrentMerchantID() != merchantID {
		s.Ledger.SetCurrentMerchant(merchantID)
	}
	return s, merchantID, release, nil
}

func view(c ledger.Cart, activeID string) CartView {
	return CartView{Cart: c, ItemCount: c.ItemCount(), Active: c.ID == activeID}
}

func activeView(s *Session) (CartView, error) {
	c, ok := s.Ledger.ActiveCart()
	if !ok {
		return CartView{}, NewHTTPError(http.StatusConflict, "create a cart first")
	}
	return view(c, c.ID), nil
}

func listOutput(s *Session, merchantID string, carts []ledger.Cart) CartListOutput {
	activeID := ""
	if c, ok := s.Ledger.ActiveCart(); ok {
		activeID = c.ID
	}
	views := make([]CartView, 0, len(carts))
	for _, c := range carts {
		views = append(views, view(c, activeID))
	}
	return CartListOutput{
		MerchantID:   merchantID,
		ActiveCartID: activeID,
		Count:        s.Ledger.CartCount(),
		Carts:        views,
	}
}

// 選択中merchantのカート一覧（古い順）
func (u *CartUsecase) ListCarts(ctx context.Context, a Actor) (CartListOutput, error) {
	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CartListOutput{}, err
	}
	defer release()
	return listOutput(s, merchantID, s.Ledger.CartList()), nil
}

// ホーム画面用の古いカート
func (u *CartUsecase) OldestCarts(ctx context.Context, a Actor, limit int) (CartListOutput, error) {
	if limit < 1 || limit > 50 {
		return CartListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CartListOutput{}, err
	}
	defer release()
	return listOutput(s, merchantID, s.Ledger.OldestCarts(limit)), nil
}

// 作ったカートがアクティブになる
func (u *CartUsecase) CreateCart(ctx context.Context, a Actor, in CreateCartInput) (CartView, error) {
	if strings.TrimSpace(in.Name) != "" {
		if err := u.validator.ValidateCartName(in.Name); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if err := u.validator.ValidateNote(in.Note); err != nil {
		return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.Type != "" {
		if err := u.validator.ValidateCartType(in.Type); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()

	if _, ok := s.Ledger.CreateCart(merchantID, in.Name, in.Note, ledger.CartType(in.Type)); !ok {
		return CartView{}, NewHTTPError(http.StatusInternalServerError, "create cart failed")
	}
	return activeView(s)
}

func (u *CartUsecase) ActiveCart(ctx context.Context, a Actor) (CartView, error) {
	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	c, ok := s.Ledger.ActiveCart()
	if !ok {
		return CartView{}, NewHTTPError(http.StatusNotFound, "no active cart")
	}
	return view(c, c.ID), nil
}

func (u *CartUsecase) SwitchCart(ctx context.Context, a Actor, cartID string) (CartView, error) {
	if strings.TrimSpace(cartID) == "" {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "cart_id required")
	}
	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	if !s.Ledger.SwitchCart(cartID) {
		return CartView{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return activeView(s)
}

// 名前・メモ・タイプの変更
func (u *CartUsecase) UpdateCart(ctx context.Context, a Actor, cartID string, in UpdateCartInput) (CartView, error) {
	if in.Name == nil && in.Note == nil && in.Type == nil {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if in.Name != nil {
		if err := u.validator.ValidateCartName(*in.Name); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if in.Note != nil {
		if err := u.validator.ValidateNote(*in.Note); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if in.Type != nil {
		if err := u.validator.ValidateCartType(*in.Type); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()

	ok := true
	if in.Name != nil {
		ok = ok && s.Ledger.RenameCart(cartID, strings.TrimSpace(*in.Name))
	}
	if in.Note != nil {
		ok = ok && s.Ledger.AddCartNote(cartID, *in.Note)
	}
	if in.Type != nil {
		ok = ok && s.Ledger.UpdateCartType(cartID, ledger.CartType(*in.Type))
	}
	if !ok {
		return CartView{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return u.findView(s, cartID)
}

// 通知済みにする（予約カートなど）
func (u *CartUsecase) MarkNotified(ctx context.Context, a Actor, cartID string) (CartView, error) {
	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	if !s.Ledger.MarkCartNotified(cartID) {
		return CartView{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return u.findView(s, cartID)
}

// アクティブを消した場合は一番古いカートがアクティブになる
func (u *CartUsecase) DeleteCart(ctx context.Context, a Actor, cartID string) (CartListOutput, error) {
	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CartListOutput{}, err
	}
	defer release()
	if !s.Ledger.DeleteCart(cartID) {
		return CartListOutput{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return listOutput(s, merchantID, s.Ledger.CartList()), nil
}

// ResetMerchantCarts は指定merchantのカートを全部消す
func (u *CartUsecase) ResetMerchantCarts(ctx context.Context, a Actor, merchantID string) (CartListOutput, error) {
	if strings.TrimSpace(merchantID) == "" {
		return CartListOutput{}, NewHTTPError(http.StatusBadRequest, "merchant id required")
	}
	s, selected, release, err := u.open(ctx, a)
	if err != nil {
		return CartListOutput{}, err
	}
	defer release()
	s.Ledger.ResetMerchantCarts(merchantID)
	return listOutput(s, selected, s.Ledger.CartList()), nil
}

// AddItem はバーコード（商品ID）か商品そのものをアクティブカートに追加する
func (u *CartUsecase) AddItem(ctx context.Context, a Actor, in AddItemInput) (CartView, error) {
	code := strings.TrimSpace(in.Code)
	if (code == "") == (in.Product == nil) {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "code or product required")
	}
	if in.Product != nil {
		if err := u.validator.ValidateProduct(*in.Product); err != nil {
			return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()

	var p ledger.Product
	if in.Product != nil {
		p = *in.Product
	} else {
		found, err := u.products.FindByCode(ctx, merchantID, code)
		if err == repo.ErrNotFound {
			return CartView{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return CartView{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		p = toLedgerProduct(found)
	}

	// スキャン画面と同じく、カートが1つも無ければ作る
	if s.Ledger.CartCount() == 0 {
		s.Ledger.CreateCart(merchantID, NewCartName, "", ledger.CartTypeInStore)
	}

	if !s.Ledger.AddToCart(p) {
		return CartView{}, NewHTTPError(http.StatusConflict, "create a cart first")
	}
	return activeView(s)
}

// 0なら明細を削除
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, a Actor, productID string, quantity int) (CartView, error) {
	if err := u.validator.ValidateQuantity(quantity); err != nil {
		return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	if err := requireLine(s, productID); err != nil {
		return CartView{}, err
	}

	s.Ledger.UpdateQuantity(productID, quantity)
	return activeView(s)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, a Actor, productID string) (CartView, error) {
	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	if err := requireLine(s, productID); err != nil {
		return CartView{}, err
	}

	s.Ledger.RemoveFromCart(productID)
	return activeView(s)
}

// 明細だけ空にする
func (u *CartUsecase) ClearCart(ctx context.Context, a Actor) (CartView, error) {
	s, _, release, err := u.open(ctx, a)
	if err != nil {
		return CartView{}, err
	}
	defer release()
	if !s.Ledger.ClearCart() {
		return CartView{}, NewHTTPError(http.StatusConflict, "create a cart first")
	}
	return activeView(s)
}

// Checkout は売上を記録してからアクティブカートを消し、新しいカートを作る。
// 売上の保存に失敗した場合はカートを残す。
func (u *CartUsecase) Checkout(ctx context.Context, a Actor) (CheckoutOutput, error) {
	s, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return CheckoutOutput{}, err
	}
	defer release()

	cart, ok := s.Ledger.ActiveCart()
	if !ok {
		return CheckoutOutput{}, NewHTTPError(http.StatusConflict, "create a cart first")
	}
	if len(cart.Lines) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	sale := u.buildSale(a.EmployeeID, cart)
	if err := u.sales.Create(ctx, sale); err != nil {
		u.logger.Error("record sale failed",
			zap.String("employee_id", a.EmployeeID),
			zap.String("cart_id", cart.ID),
			zap.Error(err),
		)
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 記録した内容のカートだけを消す
	if _, ok := s.Ledger.CheckoutCartID(cart); !ok {
		u.logger.Error("cart changed during checkout",
			zap.String("employee_id", a.EmployeeID),
			zap.String("cart_id", cart.ID),
			zap.String("sale_id", sale.ID),
		)
		return CheckoutOutput{}, NewHTTPError(http.StatusConflict, "cart changed during checkout")
	}

	s.Ledger.CreateCart(merchantID, NewCartName, "", ledger.CartTypeInStore)
	next, err := activeView(s)
	if err != nil {
		return CheckoutOutput{}, err
	}

	u.logger.Info("checkout",
		zap.String("employee_id", a.EmployeeID),
		zap.String("merchant_id", merchantID),
		zap.String("sale_id", sale.ID),
		zap.String("total", sale.Total.String()),
	)
	return CheckoutOutput{Sale: sale, NextCart: next}, nil
}

// 選択中merchantの売上（新しい順）
func (u *CartUsecase) ListSales(ctx context.Context, a Actor, limit int) ([]model.Sale, error) {
	if limit < 1 || limit > 100 {
		return []model.Sale{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	_, merchantID, release, err := u.open(ctx, a)
	if err != nil {
		return []model.Sale{}, err
	}
	defer release()

	sales, err := u.sales.ListByMerchant(ctx, merchantID, limit)
	if err != nil {
		return []model.Sale{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return sales, nil
}

func (u *CartUsecase) findView(s *Session, cartID string) (CartView, error) {
	c, ok := s.Ledger.FindCart(cartID)
	if !ok {
		return CartView{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	activeID := ""
	if active, ok := s.Ledger.ActiveCart(); ok {
		activeID = active.ID
	}
	return view(c, activeID), nil
}

func requireLine(s *Session, productID string) error {
	c, ok := s.Ledger.ActiveCart()
	if !ok {
		return NewHTTPError(http.StatusConflict, "create a cart first")
	}
	for _, l := range c.Lines {
		if l.Product.ID == productID {
			return nil
		}
	}
	return NewHTTPError(http.StatusNotFound, "item not found")
}

func (u *CartUsecase) buildSale(employeeID string, c ledger.Cart) model.Sale {
	id := u.ids.NewID()
	lines := make([]model.SaleLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, model.SaleLine{
			SaleID:              id,
			ProductID:           l.Product.ID,
			ProductNameSnapshot: l.Product.Name,
			CategorySnapshot:    l.Product.Category,
			UnitPriceSnapshot:   l.Product.Price,
			Quantity:            l.Quantity,
			Subtotal:            l.Subtotal(),
		})
	}
	return model.Sale{
		ID:         id,
		MerchantID: c.MerchantID,
		EmployeeID: employeeID,
		CartID:     c.ID,
		CartName:   c.Name,
		CartType:   string(c.Type),
		Note:       c.Note,
		Total:      c.Total,
		ItemCount:  c.ItemCount(),
		Lines:      lines,
		CreatedAt:  u.clock.Now(),
	}
}

func toLedgerProduct(p model.Product) ledger.Product {
	return ledger.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		ImageURL: p.ImageURL,
	}
}
