package dto

import "github.com/shopspring/decimal"

type OpenShiftRequest struct {
	RegisterID  string          `json:"register_id"  validate:"required,uuid"`
	OpeningCash decimal.Decimal `json:"opening_cash" validate:"min=0"`
}

type CloseShiftRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
	Notes       *string         `json:"notes"`
}

// Manual drawer movements. DEPOSIT puts cash in, WITHDRAWAL takes it out.
type CashMovementRequest struct {
	Type        string          `json:"type"   validate:"required,oneof=DEPOSIT WITHDRAWAL"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"required,min=3"`
}

type ShiftResponse struct {
	ID               string           `json:"id"`
	RegisterID       string           `json:"register_id"`
	UserID           string           `json:"user_id"`
	Status           string           `json:"status"`
	OpeningCash      decimal.Decimal  `json:"opening_cash"`
	ExpectedCash     decimal.Decimal  `json:"expected_cash"`
	CountedCash      *decimal.Decimal `json:"counted_cash,omitempty"`
	CashDifference   *decimal.Decimal `json:"cash_difference,omitempty"`
	TotalSales       decimal.Decimal  `json:"total_sales"`
	TotalCreditNotes decimal.Decimal  `json:"total_credit_notes"`
	TotalByCard      decimal.Decimal  `json:"total_by_card"`
	TotalByQR        decimal.Decimal  `json:"total_by_qr"`
	TotalByAccount   decimal.Decimal  `json:"total_by_account"`
	Notes            *string          `json:"notes,omitempty"`
	OpenedAt         string           `json:"opened_at"`
	ClosedAt         *string          `json:"closed_at,omitempty"`
}

type CashMovementResponse struct {
	ID          string          `json:"id"`
	Direction   string          `json:"direction"`
	Reason      string          `json:"reason"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
	SaleID      *string         `json:"sale_id,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type ShiftReportResponse struct {
	Shift     ShiftResponse          `json:"shift"`
	Movements []CashMovementResponse `json:"movements"`
}
