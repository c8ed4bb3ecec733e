package dto

import "github.com/shopspring/decimal"

type CustomerPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description"`
}

type CustomerPaymentResponse struct {
	CustomerID      string          `json:"customer_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

type CustomerBalanceResponse struct {
	CustomerID     string          `json:"customer_id"`
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	BlockOnLimit   bool            `json:"block_on_limit"`
}

type AccountMovementResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
	SaleID      *string         `json:"sale_id,omitempty"`
	CreatedAt   string          `json:"created_at"`
}
