package dto

import "github.com/shopspring/decimal"

type PaymentMethodResponse struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	SurchargePct decimal.Decimal `json:"surcharge_pct"`
}
