package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
	"github.com/zerofarias/varo-pos-sub000/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Operator identifies the acting user on every orchestrated operation.
// Handlers fill it from the JWT claims.
type Operator struct {
	UserID   uuid.UUID
	BranchID uuid.UUID
	Role     string
}

type SaleService interface {
	CreateSale(ctx context.Context, op Operator, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	CancelSale(ctx context.Context, op Operator, id uuid.UUID, reason string) error
	CreateCreditNote(ctx context.Context, op Operator, id uuid.UUID, req dto.CreateCreditNoteRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, branchID uuid.UUID, filter repository.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	repo       repository.SaleRepository
	products   repository.ProductRepository
	stockMovs  repository.StockMovementRepository
	shifts     repository.ShiftRepository
	customers  repository.CustomerRepository
	methods    repository.PaymentMethodRepository
	branches   repository.BranchRepository
	dispatcher *worker.Dispatcher
	// taxRatePct is the IVA rate embedded in list prices.
	taxRatePct decimal.Decimal
}

func NewSaleService(
	repo repository.SaleRepository,
	products repository.ProductRepository,
	stockMovs repository.StockMovementRepository,
	shifts repository.ShiftRepository,
	customers repository.CustomerRepository,
	methods repository.PaymentMethodRepository,
	branches repository.BranchRepository,
	dispatcher *worker.Dispatcher,
	taxRatePct int,
) SaleService {
	return &saleService{
		repo:       repo,
		products:   products,
		stockMovs:  stockMovs,
		shifts:     shifts,
		customers:  customers,
		methods:    methods,
		branches:   branches,
		dispatcher: dispatcher,
		taxRatePct: decimal.NewFromInt(int64(taxRatePct)),
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

var hundred = decimal.NewFromInt(100)

// includedTax extracts the IVA portion from a tax-inclusive amount.
func (s *saleService) includedTax(amount decimal.Decimal) decimal.Decimal {
	if s.taxRatePct.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(s.taxRatePct).Div(hundred.Add(s.taxRatePct)).Round(2)
}

// ── CreateSale ────────────────────────────────────────────────────────────────
// One ACID transaction per sale:
//   1. Validate open shift for the operator
//   2. Resolve payment methods and products, compute totals (pre-flight)
//   3. Check stock and credit limit
//   4. BEGIN TX: reserve ticket number, create sale+items+payments,
//      decrement stock + stock movements, debit customer account,
//      cash movement + shift accumulators
//   5. COMMIT
//   6. (async) dispatch fiscal invoicing job if the document is fiscal

func (s *saleService) CreateSale(ctx context.Context, op Operator, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	docType := req.DocType
	if docType == "" {
		docType = model.DocTypeTicket
	}

	// 1. Open shift gate
	shift, err := s.shifts.FindOpenByUser(ctx, op.UserID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNoOpenShift, "no open cash shift for this operator")
	}

	// 2. Resolve payment methods
	type resolvedPayment struct {
		method    *model.PaymentMethod
		amount    decimal.Decimal
		reference *string
	}
	payments := make([]resolvedPayment, 0, len(req.Payments))
	paymentAdjustment := decimal.Zero
	cashTendered := decimal.Zero
	accountAmount := decimal.Zero
	tendered := decimal.Zero

	for _, p := range req.Payments {
		mid, err := uuid.Parse(p.PaymentMethodID)
		if err != nil {
			return nil, apierror.New(apierror.CodeValidation, "invalid payment_method_id")
		}
		m, err := s.methods.FindByID(ctx, mid)
		if err != nil {
			return nil, apierror.New(apierror.CodeValidation, fmt.Sprintf("payment method %s is not registered", p.PaymentMethodID))
		}
		paymentAdjustment = paymentAdjustment.Add(m.Adjustment(p.Amount))
		if m.AffectsCash() {
			cashTendered = cashTendered.Add(p.Amount)
		}
		if m.IsAccount() {
			accountAmount = accountAmount.Add(p.Amount)
		}
		tendered = tendered.Add(p.Amount)
		payments = append(payments, resolvedPayment{method: m, amount: p.Amount, reference: p.Reference})
	}

	// 3. Resolve products, compute line totals, check stock
	type resolvedItem struct {
		product   *model.Product
		unitPrice decimal.Decimal
		quantity  int
		discount  decimal.Decimal
		subtotal  decimal.Decimal
	}
	items := make([]resolvedItem, 0, len(req.Items))
	subtotal := decimal.Zero

	for _, it := range req.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, apierror.New(apierror.CodeValidation, "invalid product_id")
		}
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			return nil, apierror.New(apierror.CodeProductNotFound, fmt.Sprintf("product %s not found", it.ProductID))
		}
		if p.TracksStock() && !p.AllowNegativeStock && p.StockGlobal < it.Quantity {
			return nil, apierror.New(apierror.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s: requested %d, short by %d", p.Name, it.Quantity, it.Quantity-p.StockGlobal))
		}

		unitPrice := p.ListPrice
		if p.IsGeneric && it.UnitPrice != nil {
			unitPrice = *it.UnitPrice
		}
		lineSubtotal := unitPrice.
			Mul(decimal.NewFromInt(int64(it.Quantity))).
			Mul(hundred.Sub(it.DiscountPct)).Div(hundred).
			Round(2)
		subtotal = subtotal.Add(lineSubtotal)
		items = append(items, resolvedItem{
			product:   p,
			unitPrice: unitPrice,
			quantity:  it.Quantity,
			discount:  it.DiscountPct,
			subtotal:  lineSubtotal,
		})
	}

	discountAmount := subtotal.Mul(req.DiscountPct).Div(hundred).Round(2)
	afterDiscount := subtotal.Sub(discountAmount)
	total := afterDiscount.Add(paymentAdjustment)
	taxAmount := s.includedTax(afterDiscount)

	// 4. Credit limit gate — a customer is mandatory for account payments.
	var customer *model.Customer
	if req.CustomerID != nil {
		cid, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			return nil, apierror.New(apierror.CodeValidation, "invalid customer_id")
		}
		c, err := s.customers.FindByID(ctx, cid)
		if err != nil {
			return nil, apierror.New(apierror.CodeNotFound, "customer not found")
		}
		customer = c
	}
	if accountAmount.IsPositive() {
		if customer == nil {
			return nil, apierror.New(apierror.CodeCustomerRequired, "account payments require a customer")
		}
		if customer.BlockOnLimit && customer.CurrentBalance.Add(accountAmount).GreaterThan(customer.CreditLimit) {
			return nil, apierror.New(apierror.CodeCreditLimitExceeded,
				fmt.Sprintf("credit limit exceeded for %s: balance %s + charge %s > limit %s",
					customer.Name, customer.CurrentBalance, accountAmount, customer.CreditLimit))
		}
	}

	// Tendered vs total is deliberately not enforced: some callers run
	// partial-payment flows. Log the mismatch for reconciliation.
	if !tendered.Equal(total) {
		log.Warn().
			Str("user_id", op.UserID.String()).
			Str("tendered", tendered.String()).
			Str("total", total.String()).
			Msg("sale payments do not match computed total")
	}

	branch, err := s.branches.FindByID(ctx, op.BranchID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "branch not found")
	}

	// 5. ACID transaction
	var sale model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		num, err := s.repo.NextTicketNumberTx(tx, op.BranchID)
		if err != nil {
			return err
		}

		shiftID := shift.ID
		sale = model.Sale{
			Number:         fmt.Sprintf("T-%s-%06d", branch.Code, num),
			DocType:        docType,
			BranchID:       op.BranchID,
			UserID:         op.UserID,
			ShiftID:        &shiftID,
			Subtotal:       subtotal,
			DiscountPct:    req.DiscountPct,
			DiscountAmount: discountAmount,
			TaxAmount:      taxAmount,
			Total:          total,
			Status:         model.SaleCompleted,
		}
		if customer != nil {
			cid := customer.ID
			sale.CustomerID = &cid
		}
		for _, it := range items {
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID:   it.product.ID,
				ProductName: it.product.Name,
				SKU:         it.product.SKU,
				UnitPrice:   it.unitPrice,
				CostPrice:   it.product.CostPrice,
				Quantity:    it.quantity,
				DiscountPct: it.discount,
				Subtotal:    it.subtotal,
			})
		}
		for _, p := range payments {
			sale.Payments = append(sale.Payments, model.Payment{
				PaymentMethodID: p.method.ID,
				Amount:          p.amount,
				Reference:       p.reference,
			})
		}
		if err := s.repo.CreateTx(tx, &sale); err != nil {
			return err
		}

		// Stock ledger: atomic decrement + movement with post-update snapshot
		for _, it := range items {
			if !it.product.TracksStock() {
				continue
			}
			newQty, err := s.products.AdjustStockTx(tx, it.product.ID, -it.quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", it.product.Name, err)
			}
			saleRef := sale.ID
			mov := &model.StockMovement{
				ProductID:   it.product.ID,
				BranchID:    op.BranchID,
				Direction:   model.StockOut,
				Reason:      model.StockReasonSale,
				Quantity:    it.quantity,
				PreviousQty: newQty + it.quantity,
				NewQty:      newQty,
				SaleID:      &saleRef,
			}
			if err := s.stockMovs.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		// Customer account ledger
		if accountAmount.IsPositive() {
			newBalance, err := s.customers.ApplyBalanceTx(tx, customer.ID, accountAmount)
			if err != nil {
				return err
			}
			saleRef := sale.ID
			mov := &model.CustomerAccountMovement{
				CustomerID:  customer.ID,
				Type:        model.AccountDebit,
				Amount:      accountAmount,
				Balance:     newBalance,
				Description: fmt.Sprintf("Sale %s on account", sale.Number),
				SaleID:      &saleRef,
			}
			if err := s.customers.CreateMovementTx(tx, mov); err != nil {
				return err
			}
		}

		// Cash-shift ledger: only TotalSales moves when no cash was tendered
		deltas := repository.ShiftDeltas{TotalSales: total}
		for _, p := range payments {
			switch p.method.Kind {
			case model.KindCard:
				deltas.TotalByCard = deltas.TotalByCard.Add(p.amount)
			case model.KindQR:
				deltas.TotalByQR = deltas.TotalByQR.Add(p.amount)
			case model.KindAccount:
				deltas.TotalByAccount = deltas.TotalByAccount.Add(p.amount)
			}
		}
		if cashTendered.IsPositive() {
			deltas.ExpectedCash = cashTendered
			deltas.TotalCashIn = cashTendered
		}
		balance, err := s.shifts.ApplyDeltasTx(tx, shift.ID, deltas)
		if err != nil {
			return err
		}
		if cashTendered.IsPositive() {
			saleRef := sale.ID
			mov := &model.CashMovement{
				ShiftID:     shift.ID,
				Direction:   model.CashIn,
				Reason:      model.CashReasonSale,
				Amount:      cashTendered,
				Balance:     balance,
				Description: fmt.Sprintf("Sale %s", sale.Number),
				SaleID:      &saleRef,
			}
			if err := s.shifts.CreateMovementTx(tx, mov); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		if apiErr, ok := txErr.(*apierror.Error); ok {
			return nil, apiErr
		}
		return nil, txErr
	}

	// 6. Fiscal invoicing runs outside the transaction boundary: a slow or
	// failing tax service must never hold ledger locks or undo the sale.
	if s.dispatcher != nil && docType == model.DocTypeInvoice {
		payload := worker.InvoiceJobPayload{SaleID: sale.ID.String()}
		if req.CustomerEmail != nil && *req.CustomerEmail != "" {
			payload.CustomerEmail = req.CustomerEmail
		}
		if err := s.dispatcher.EnqueueInvoice(ctx, payload); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("failed to enqueue invoice job")
		}
	}

	resp := saleToResponse(&sale)
	for i, p := range payments {
		resp.Payments[i].Method = p.method.Name
		resp.Payments[i].Kind = string(p.method.Kind)
	}
	return resp, nil
}

// ── CancelSale ────────────────────────────────────────────────────────────────
// Full reversal: restock every item, inverse cash movement, reverse any
// account charge, status → CANCELLED. No new document is created; for a
// customer-facing reversing document use CreateCreditNote.

func (s *saleService) CancelSale(ctx context.Context, op Operator, id uuid.UUID, reason string) error {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apierror.New(apierror.CodeNotFound, "sale not found")
	}
	switch {
	case sale.IsCreditNote:
		return apierror.New(apierror.CodeValidation, "a credit note cannot be cancelled")
	case sale.Status == model.SaleCancelled:
		return apierror.New(apierror.CodeAlreadyCancelled, "sale is already cancelled")
	case sale.Status == model.SaleRefunded:
		return apierror.New(apierror.CodeAlreadyRefunded, "sale has already been refunded")
	}

	cashPaid, accountPaid := paidByBehavior(sale.Payments)

	// The inverse cash movement lands on the acting operator's open shift.
	var shift *model.CashShift
	if cashPaid.IsPositive() {
		shift, err = s.shifts.FindOpenByUser(ctx, op.UserID)
		if err != nil {
			return apierror.New(apierror.CodeNoOpenShift, "no open cash shift for this operator")
		}
	}

	// Resolve products up front so a missing row aborts before any write.
	products := make(map[uuid.UUID]*model.Product, len(sale.Items))
	for _, it := range sale.Items {
		p, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return fmt.Errorf("resolve product %s: %w", it.ProductID, err)
		}
		products[it.ProductID] = p
	}

	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, it := range sale.Items {
			p := products[it.ProductID]
			if !p.TracksStock() {
				continue
			}
			newQty, err := s.products.AdjustStockTx(tx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			saleRef := sale.ID
			mov := &model.StockMovement{
				ProductID:   it.ProductID,
				BranchID:    sale.BranchID,
				Direction:   model.StockIn,
				Reason:      model.StockReasonCancellation,
				Quantity:    it.Quantity,
				PreviousQty: newQty - it.Quantity,
				NewQty:      newQty,
				SaleID:      &saleRef,
			}
			if err := s.stockMovs.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		if cashPaid.IsPositive() {
			deltas := repository.ShiftDeltas{
				ExpectedCash: cashPaid.Neg(),
				TotalCashOut: cashPaid,
			}
			balance, err := s.shifts.ApplyDeltasTx(tx, shift.ID, deltas)
			if err != nil {
				return err
			}
			saleRef := sale.ID
			mov := &model.CashMovement{
				ShiftID:     shift.ID,
				Direction:   model.CashOut,
				Reason:      model.CashReasonCancellation,
				Amount:      cashPaid,
				Balance:     balance,
				Description: fmt.Sprintf("Cancellation of %s — %s", sale.Number, reason),
				SaleID:      &saleRef,
			}
			if err := s.shifts.CreateMovementTx(tx, mov); err != nil {
				return err
			}
		}

		if accountPaid.IsPositive() && sale.CustomerID != nil {
			newBalance, err := s.customers.ApplyBalanceTx(tx, *sale.CustomerID, accountPaid.Neg())
			if err != nil {
				return err
			}
			saleRef := sale.ID
			mov := &model.CustomerAccountMovement{
				CustomerID:  *sale.CustomerID,
				Type:        model.AccountCredit,
				Amount:      accountPaid,
				Balance:     newBalance,
				Description: fmt.Sprintf("Cancellation of %s", sale.Number),
				SaleID:      &saleRef,
			}
			if err := s.customers.CreateMovementTx(tx, mov); err != nil {
				return err
			}
		}

		return s.repo.UpdateStatusTx(tx, sale.ID, model.SaleCancelled, &reason)
	})
}

// ── CreateCreditNote ──────────────────────────────────────────────────────────
// Creates a new reversing Sale (negated amounts, NC- number) instead of
// mutating the original. At most one credit note per sale; a full refund
// flips the original to REFUNDED, a partial one leaves it COMPLETED.

func (s *saleService) CreateCreditNote(ctx context.Context, op Operator, id uuid.UUID, req dto.CreateCreditNoteRequest) (*dto.SaleResponse, error) {
	original, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "sale not found")
	}
	switch {
	case original.IsCreditNote:
		return nil, apierror.New(apierror.CodeValidation, "cannot issue a credit note against a credit note")
	case original.Status == model.SaleRefunded:
		return nil, apierror.New(apierror.CodeAlreadyRefunded, "sale has already been refunded")
	case original.Status == model.SaleCancelled:
		return nil, apierror.New(apierror.CodeAlreadyCancelled, "sale is cancelled")
	}
	if _, err := s.repo.FindCreditNoteFor(ctx, original.ID); err == nil {
		return nil, apierror.New(apierror.CodeAlreadyRefunded, "a credit note already exists for this sale")
	}

	// Item selection — empty request means full refund.
	refundQty := make(map[uuid.UUID]int, len(original.Items))
	if len(req.Items) == 0 {
		for _, it := range original.Items {
			refundQty[it.ID] = it.Quantity
		}
	} else {
		byID := make(map[uuid.UUID]model.SaleItem, len(original.Items))
		for _, it := range original.Items {
			byID[it.ID] = it
		}
		for _, r := range req.Items {
			itemID, err := uuid.Parse(r.SaleItemID)
			if err != nil {
				return nil, apierror.New(apierror.CodeValidation, "invalid sale_item_id")
			}
			orig, ok := byID[itemID]
			if !ok {
				return nil, apierror.New(apierror.CodeValidation, fmt.Sprintf("item %s does not belong to this sale", r.SaleItemID))
			}
			if r.Quantity > orig.Quantity {
				return nil, apierror.New(apierror.CodeQuantityExceedsOriginal,
					fmt.Sprintf("cannot refund %d of %s: original quantity is %d", r.Quantity, orig.ProductName, orig.Quantity))
			}
			refundQty[itemID] = r.Quantity
		}
	}

	// Refund math. Line amounts are taken proportionally from the original
	// line subtotal so item-level discounts reverse exactly; tax and total
	// reverse proportionally to the refunded share of the subtotal.
	refundedSubtotal := decimal.Zero
	fullRefund := true
	type refundLine struct {
		item     model.SaleItem
		quantity int
		subtotal decimal.Decimal
	}
	lines := make([]refundLine, 0, len(refundQty))
	for _, it := range original.Items {
		qty, ok := refundQty[it.ID]
		if !ok || qty == 0 {
			fullRefund = false
			continue
		}
		if qty < it.Quantity {
			fullRefund = false
		}
		lineSubtotal := it.Subtotal
		if qty < it.Quantity {
			lineSubtotal = it.Subtotal.
				Mul(decimal.NewFromInt(int64(qty))).
				Div(decimal.NewFromInt(int64(it.Quantity))).
				Round(2)
		}
		refundedSubtotal = refundedSubtotal.Add(lineSubtotal)
		lines = append(lines, refundLine{item: it, quantity: qty, subtotal: lineSubtotal})
	}
	if len(lines) == 0 {
		return nil, apierror.New(apierror.CodeValidation, "nothing to refund")
	}

	ratio := decimal.NewFromInt(1)
	if !original.Subtotal.IsZero() {
		ratio = refundedSubtotal.Div(original.Subtotal)
	}
	ncTax := original.TaxAmount.Mul(ratio).Round(2).Neg()
	ncDiscount := original.DiscountAmount.Mul(ratio).Round(2).Neg()
	ncTotal := original.Total.Mul(ratio).Round(2).Neg()
	refundAmount := ncTotal.Neg()

	// The account portion reverses proportionally; only the remainder of the
	// refunded amount comes back out of the drawer, capped by the cash that
	// was actually tendered. The two reversals together never exceed the
	// refunded amount.
	cashPaid, accountPaid := paidByBehavior(original.Payments)
	accountRefund := decimal.Min(accountPaid.Mul(ratio).Round(2), refundAmount)
	cashRefund := decimal.Min(cashPaid, refundAmount.Sub(accountRefund))
	if cashRefund.IsNegative() {
		cashRefund = decimal.Zero
	}

	// Cash refunds move physical money: they need the acting operator's
	// open shift. Card/account refunds do not touch the drawer, but the
	// credit-note accumulator still lands on the shift when one is open.
	shift, shiftErr := s.shifts.FindOpenByUser(ctx, op.UserID)
	if cashRefund.IsPositive() && shiftErr != nil {
		return nil, apierror.New(apierror.CodeNoOpenShift, "no open cash shift for this operator")
	}

	products := make(map[uuid.UUID]*model.Product, len(lines))
	for _, l := range lines {
		p, err := s.products.FindByID(ctx, l.item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", l.item.ProductID, err)
		}
		products[l.item.ProductID] = p
	}

	branch, err := s.branches.FindByID(ctx, original.BranchID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "branch not found")
	}

	var creditNote model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		num, err := s.repo.NextTicketNumberTx(tx, original.BranchID)
		if err != nil {
			return err
		}

		originalID := original.ID
		creditNote = model.Sale{
			Number:         fmt.Sprintf("NC-%s-%06d", branch.Code, num),
			DocType:        original.DocType,
			BranchID:       original.BranchID,
			UserID:         op.UserID,
			CustomerID:     original.CustomerID,
			Subtotal:       refundedSubtotal.Neg(),
			DiscountPct:    original.DiscountPct,
			DiscountAmount: ncDiscount,
			TaxAmount:      ncTax,
			Total:          ncTotal,
			Status:         model.SaleCompleted,
			IsCreditNote:   true,
			OriginalSaleID: &originalID,
			ReversalReason: req.Reason,
		}
		if shiftErr == nil {
			shiftID := shift.ID
			creditNote.ShiftID = &shiftID
		}
		for _, l := range lines {
			creditNote.Items = append(creditNote.Items, model.SaleItem{
				ProductID:   l.item.ProductID,
				ProductName: l.item.ProductName,
				SKU:         l.item.SKU,
				UnitPrice:   l.item.UnitPrice,
				CostPrice:   l.item.CostPrice,
				Quantity:    l.quantity,
				DiscountPct: l.item.DiscountPct,
				Subtotal:    l.subtotal.Neg(),
			})
		}
		if err := s.repo.CreateTx(tx, &creditNote); err != nil {
			return err
		}

		// Restock refunded items
		for _, l := range lines {
			p := products[l.item.ProductID]
			if !p.TracksStock() {
				continue
			}
			newQty, err := s.products.AdjustStockTx(tx, l.item.ProductID, l.quantity)
			if err != nil {
				return err
			}
			ncRef := creditNote.ID
			mov := &model.StockMovement{
				ProductID:   l.item.ProductID,
				BranchID:    original.BranchID,
				Direction:   model.StockIn,
				Reason:      model.StockReasonCreditNote,
				Quantity:    l.quantity,
				PreviousQty: newQty - l.quantity,
				NewQty:      newQty,
				SaleID:      &ncRef,
			}
			if err := s.stockMovs.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		// Cash-shift ledger
		if shiftErr == nil {
			deltas := repository.ShiftDeltas{TotalCreditNotes: refundAmount}
			if cashRefund.IsPositive() {
				deltas.ExpectedCash = cashRefund.Neg()
				deltas.TotalCashOut = cashRefund
			}
			balance, err := s.shifts.ApplyDeltasTx(tx, shift.ID, deltas)
			if err != nil {
				return err
			}
			if cashRefund.IsPositive() {
				ncRef := creditNote.ID
				mov := &model.CashMovement{
					ShiftID:     shift.ID,
					Direction:   model.CashOut,
					Reason:      model.CashReasonCreditNote,
					Amount:      cashRefund,
					Balance:     balance,
					Description: fmt.Sprintf("Credit note %s for %s", creditNote.Number, original.Number),
					SaleID:      &ncRef,
				}
				if err := s.shifts.CreateMovementTx(tx, mov); err != nil {
					return err
				}
			}
		}

		// Customer account reversal
		if accountRefund.IsPositive() && original.CustomerID != nil {
			newBalance, err := s.customers.ApplyBalanceTx(tx, *original.CustomerID, accountRefund.Neg())
			if err != nil {
				return err
			}
			ncRef := creditNote.ID
			mov := &model.CustomerAccountMovement{
				CustomerID:  *original.CustomerID,
				Type:        model.AccountCredit,
				Amount:      accountRefund,
				Balance:     newBalance,
				Description: fmt.Sprintf("Credit note %s for %s", creditNote.Number, original.Number),
				SaleID:      &ncRef,
			}
			if err := s.customers.CreateMovementTx(tx, mov); err != nil {
				return err
			}
		}

		if fullRefund {
			return s.repo.UpdateStatusTx(tx, original.ID, model.SaleRefunded, req.Reason)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Fiscal credit note: only when the original was fiscal; linked to the
	// original CAE as associated voucher. Failures are recorded on the
	// invoice record, never rolled back into the ledgers.
	if s.dispatcher != nil && original.DocType == model.DocTypeInvoice {
		payload := worker.InvoiceJobPayload{
			SaleID:         creditNote.ID.String(),
			OriginalSaleID: strPtr(original.ID.String()),
		}
		if err := s.dispatcher.EnqueueInvoice(ctx, payload); err != nil {
			log.Error().Err(err).Str("sale_id", creditNote.ID.String()).Msg("failed to enqueue credit note invoicing")
		}
	}

	return saleToResponse(&creditNote), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "sale not found")
	}
	return saleToResponse(sale), nil
}

func (s *saleService) ListSales(ctx context.Context, branchID uuid.UUID, filter repository.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, branchID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// paidByBehavior splits a sale's payments into the cash-affecting and
// account-charging portions. Requires Payments preloaded with Method.
func paidByBehavior(payments []model.Payment) (cash, account decimal.Decimal) {
	for _, p := range payments {
		if p.Method == nil {
			continue
		}
		if p.Method.AffectsCash() {
			cash = cash.Add(p.Amount)
		}
		if p.Method.IsAccount() {
			account = account.Add(p.Amount)
		}
	}
	return cash, account
}

func strPtr(s string) *string { return &s }

func saleToResponse(v *model.Sale) *dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, dto.SaleItemResponse{
			Product:     it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			DiscountPct: it.DiscountPct,
			Subtotal:    it.Subtotal,
		})
	}
	payments := make([]dto.SalePaymentResponse, 0, len(v.Payments))
	for _, p := range v.Payments {
		pr := dto.SalePaymentResponse{Amount: p.Amount, Reference: p.Reference}
		if p.Method != nil {
			pr.Method = p.Method.Name
			pr.Kind = string(p.Method.Kind)
		}
		payments = append(payments, pr)
	}
	resp := &dto.SaleResponse{
		ID:             v.ID.String(),
		Number:         v.Number,
		DocType:        v.DocType,
		Status:         v.Status,
		IsCreditNote:   v.IsCreditNote,
		Subtotal:       v.Subtotal,
		DiscountPct:    v.DiscountPct,
		DiscountAmount: v.DiscountAmount,
		TaxAmount:      v.TaxAmount,
		Total:          v.Total,
		Items:          items,
		Payments:       payments,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	if v.OriginalSaleID != nil {
		id := v.OriginalSaleID.String()
		resp.OriginalSaleID = &id
	}
	return resp
}
