package service

import (
	"context"
	"testing"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory stubs for every repository interface. All DB() methods return
// nil so runTx executes the callback without a transaction.

func d(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	dec, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", v, err)
	}
	return dec
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// ── sales ─────────────────────────────────────────────────────────────────────

type stubSaleRepo struct {
	sales   map[uuid.UUID]*model.Sale
	seq     map[uuid.UUID]int64
	methods *stubPaymentMethodRepo
}

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

func newStubSaleRepo(methods *stubPaymentMethodRepo) *stubSaleRepo {
	return &stubSaleRepo{
		sales:   make(map[uuid.UUID]*model.Sale),
		seq:     make(map[uuid.UUID]int64),
		methods: methods,
	}
}

func (r *stubSaleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	for i := range s.Payments {
		if s.Payments[i].ID == uuid.Nil {
			s.Payments[i].ID = uuid.New()
		}
		s.Payments[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// Emulate the Payments.Method preload.
	if r.methods != nil {
		for i := range s.Payments {
			if s.Payments[i].Method == nil {
				s.Payments[i].Method = r.methods.items[s.Payments[i].PaymentMethodID]
			}
		}
	}
	return s, nil
}

func (r *stubSaleRepo) FindCreditNoteFor(ctx context.Context, originalID uuid.UUID) (*model.Sale, error) {
	for _, s := range r.sales {
		if s.IsCreditNote && s.OriginalSaleID != nil && *s.OriginalSaleID == originalID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, reason *string) error {
	s, ok := r.sales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	if reason != nil {
		s.ReversalReason = reason
	}
	return nil
}

func (r *stubSaleRepo) NextTicketNumberTx(tx *gorm.DB, branchID uuid.UUID) (int64, error) {
	r.seq[branchID]++
	return r.seq[branchID], nil
}

func (r *stubSaleRepo) List(ctx context.Context, branchID uuid.UUID, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	var out []model.Sale
	for _, s := range r.sales {
		if s.BranchID != branchID {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

// ── products / stock ──────────────────────────────────────────────────────────

type stubProductRepo struct {
	items map[uuid.UUID]*model.Product
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{items: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) Create(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.items[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	for _, p := range r.items {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) AdjustStockTx(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	p, ok := r.items[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	p.StockGlobal += delta
	return p.StockGlobal, nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

type stubStockMovementRepo struct {
	movements []*model.StockMovement
}

var _ repository.StockMovementRepository = (*stubStockMovementRepo)(nil)

func (r *stubStockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, m)
	return nil
}

func (r *stubStockMovementRepo) List(ctx context.Context, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Reason != "" && m.Reason != filter.Reason {
			continue
		}
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

// ── shifts ────────────────────────────────────────────────────────────────────

type stubShiftRepo struct {
	shifts    map[uuid.UUID]*model.CashShift
	registers map[uuid.UUID]*model.CashRegister
	movements []*model.CashMovement
}

var _ repository.ShiftRepository = (*stubShiftRepo)(nil)

func newStubShiftRepo() *stubShiftRepo {
	return &stubShiftRepo{
		shifts:    make(map[uuid.UUID]*model.CashShift),
		registers: make(map[uuid.UUID]*model.CashRegister),
	}
}

func (r *stubShiftRepo) CreateShiftTx(tx *gorm.DB, s *model.CashShift) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.shifts[s.ID] = s
	return nil
}

func (r *stubShiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashShift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubShiftRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.CashShift, error) {
	for _, s := range r.shifts {
		if s.UserID == userID && s.Status == model.ShiftOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubShiftRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashShift, error) {
	for _, s := range r.shifts {
		if s.RegisterID == registerID && s.Status == model.ShiftOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubShiftRepo) FindRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	reg, ok := r.registers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return reg, nil
}

func (r *stubShiftRepo) CloseShiftTx(tx *gorm.DB, id uuid.UUID, countedCash decimal.Decimal, notes *string) (*model.CashShift, error) {
	s, ok := r.shifts[id]
	if !ok || s.Status != model.ShiftOpen {
		return nil, gorm.ErrRecordNotFound
	}
	diff := countedCash.Sub(s.ExpectedCash)
	now := time.Now()
	s.Status = model.ShiftClosed
	s.CountedCash = &countedCash
	s.CashDifference = &diff
	if notes != nil {
		s.Notes = notes
	}
	s.ClosedAt = &now
	return s, nil
}

func (r *stubShiftRepo) ApplyDeltasTx(tx *gorm.DB, shiftID uuid.UUID, dl repository.ShiftDeltas) (decimal.Decimal, error) {
	s, ok := r.shifts[shiftID]
	if !ok || s.Status != model.ShiftOpen {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	s.ExpectedCash = s.ExpectedCash.Add(dl.ExpectedCash)
	s.TotalSales = s.TotalSales.Add(dl.TotalSales)
	s.TotalCreditNotes = s.TotalCreditNotes.Add(dl.TotalCreditNotes)
	s.TotalCashIn = s.TotalCashIn.Add(dl.TotalCashIn)
	s.TotalCashOut = s.TotalCashOut.Add(dl.TotalCashOut)
	s.TotalByCard = s.TotalByCard.Add(dl.TotalByCard)
	s.TotalByQR = s.TotalByQR.Add(dl.TotalByQR)
	s.TotalByAccount = s.TotalByAccount.Add(dl.TotalByAccount)
	return s.ExpectedCash, nil
}

func (r *stubShiftRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, m)
	return nil
}

func (r *stubShiftRepo) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	var out []model.CashMovement
	for _, m := range r.movements {
		if m.ShiftID == shiftID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubShiftRepo) DB() *gorm.DB { return nil }

// lastMovement returns the most recent drawer movement for a shift.
func (r *stubShiftRepo) lastMovement(shiftID uuid.UUID) *model.CashMovement {
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ShiftID == shiftID {
			return r.movements[i]
		}
	}
	return nil
}

// ── customers ─────────────────────────────────────────────────────────────────

type stubCustomerRepo struct {
	items     map[uuid.UUID]*model.Customer
	movements []*model.CustomerAccountMovement
}

var _ repository.CustomerRepository = (*stubCustomerRepo)(nil)

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{items: make(map[uuid.UUID]*model.Customer)}
}

func (r *stubCustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.items[c.ID] = c
	return nil
}

func (r *stubCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCustomerRepo) ApplyBalanceTx(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	c, ok := r.items[id]
	if !ok {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	c.CurrentBalance = c.CurrentBalance.Add(delta)
	return c.CurrentBalance, nil
}

func (r *stubCustomerRepo) CreateMovementTx(tx *gorm.DB, m *model.CustomerAccountMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, m)
	return nil
}

func (r *stubCustomerRepo) ListMovements(ctx context.Context, customerID uuid.UUID) ([]model.CustomerAccountMovement, error) {
	var out []model.CustomerAccountMovement
	for _, m := range r.movements {
		if m.CustomerID == customerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubCustomerRepo) DB() *gorm.DB { return nil }

// ── payment methods / branches ────────────────────────────────────────────────

type stubPaymentMethodRepo struct {
	items map[uuid.UUID]*model.PaymentMethod
}

var _ repository.PaymentMethodRepository = (*stubPaymentMethodRepo)(nil)

func newStubPaymentMethodRepo() *stubPaymentMethodRepo {
	return &stubPaymentMethodRepo{items: make(map[uuid.UUID]*model.PaymentMethod)}
}

func (r *stubPaymentMethodRepo) Create(ctx context.Context, m *model.PaymentMethod) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.items[m.ID] = m
	return nil
}

func (r *stubPaymentMethodRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (r *stubPaymentMethodRepo) List(ctx context.Context) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	for _, m := range r.items {
		out = append(out, *m)
	}
	return out, nil
}

type stubBranchRepo struct {
	items map[uuid.UUID]*model.Branch
}

var _ repository.BranchRepository = (*stubBranchRepo)(nil)

func newStubBranchRepo() *stubBranchRepo {
	return &stubBranchRepo{items: make(map[uuid.UUID]*model.Branch)}
}

func (r *stubBranchRepo) Create(ctx context.Context, b *model.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.items[b.ID] = b
	return nil
}

func (r *stubBranchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

// ── users ─────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	items map[uuid.UUID]*model.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{items: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.items[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.items {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── invoices ──────────────────────────────────────────────────────────────────

type stubInvoiceRepo struct {
	items map[uuid.UUID]*model.Invoice
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{items: make(map[uuid.UUID]*model.Invoice)}
}

func (r *stubInvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r.items[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inv, nil
}

func (r *stubInvoiceRepo) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Invoice, error) {
	for _, inv := range r.items {
		if inv.SaleID == saleID {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) Update(ctx context.Context, inv *model.Invoice) error {
	r.items[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range r.items {
		if inv.Status == model.InvoicePending && inv.NextRetryAt != nil && !inv.NextRetryAt.After(now) {
			out = append(out, *inv)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
