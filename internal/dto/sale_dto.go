package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleItemRequest struct {
	ProductID   string          `json:"product_id" validate:"required,uuid"`
	Quantity    int             `json:"quantity"   validate:"required,min=1"`
	DiscountPct decimal.Decimal `json:"discount_pct" validate:"min=0,max=100"`
	// UnitPrice overrides the list price; honored only for generic
	// (free-price) products.
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty"`
}

type SalePaymentRequest struct {
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"            validate:"required"`
	Reference       *string         `json:"reference"`
}

type CreateSaleRequest struct {
	DocType     string             `json:"doc_type"     validate:"omitempty,oneof=TICKET INVOICE"`
	CustomerID  *string            `json:"customer_id"  validate:"omitempty,uuid"`
	DiscountPct decimal.Decimal    `json:"discount_pct" validate:"min=0,max=100"`
	Items       []SaleItemRequest  `json:"items"        validate:"required,min=1,dive"`
	Payments    []SalePaymentRequest `json:"payments"   validate:"required,min=1,dive"`
	// CustomerEmail: optional — when present, the invoice worker mails the
	// PDF receipt.
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

type CreditNoteItemRequest struct {
	SaleItemID string `json:"sale_item_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity"     validate:"required,min=1"`
}

// CreateCreditNoteRequest: an empty Items list means a full refund of every
// original item at its original quantity.
type CreateCreditNoteRequest struct {
	Reason *string                 `json:"reason"`
	Items  []CreditNoteItemRequest `json:"items" validate:"omitempty,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	Product     string          `json:"product"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SalePaymentResponse struct {
	Method    string          `json:"method"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Reference *string         `json:"reference,omitempty"`
}

type SaleResponse struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	DocType        string                `json:"doc_type"`
	Status         string                `json:"status"`
	IsCreditNote   bool                  `json:"is_credit_note"`
	OriginalSaleID *string               `json:"original_sale_id,omitempty"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	DiscountPct    decimal.Decimal       `json:"discount_pct"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	Total          decimal.Decimal       `json:"total"`
	Items          []SaleItemResponse    `json:"items"`
	Payments       []SalePaymentResponse `json:"payments"`
	CreatedAt      string                `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
