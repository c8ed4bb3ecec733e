package dto

import "github.com/shopspring/decimal"

type InvoiceResponse struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	Type          string          `json:"type"`
	Number        *int64          `json:"number,omitempty"`
	CAE           *string         `json:"cae,omitempty"`
	CAEDue        *string         `json:"cae_due,omitempty"`
	AssociatedCAE *string         `json:"associated_cae,omitempty"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	LastError     *string         `json:"last_error,omitempty"`
	CreatedAt     string          `json:"created_at"`
}
