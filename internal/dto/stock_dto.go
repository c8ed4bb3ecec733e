package dto

// AdjustStockRequest applies a manual stock correction. Delta is signed.
type AdjustStockRequest struct {
	Delta       int    `json:"delta"       validate:"required"`
	Description string `json:"description" validate:"required,min=3"`
}

type StockMovementResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	Product     string  `json:"product,omitempty"`
	Direction   string  `json:"direction"`
	Reason      string  `json:"reason"`
	Quantity    int     `json:"quantity"`
	PreviousQty int     `json:"previous_qty"`
	NewQty      int     `json:"new_qty"`
	SaleID      *string `json:"sale_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
