package service

import (
	"context"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type StockService interface {
	// AdjustStock applies a signed manual correction and records it in the
	// movement ledger atomically.
	AdjustStock(ctx context.Context, op Operator, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockMovementResponse, error)
	ListMovements(ctx context.Context, filter repository.StockMovementFilter) (*dto.StockMovementListResponse, error)
}

type stockService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewStockService(products repository.ProductRepository, movements repository.StockMovementRepository) StockService {
	return &stockService{products: products, movements: movements}
}

func (s *stockService) AdjustStock(ctx context.Context, op Operator, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockMovementResponse, error) {
	if req.Delta == 0 {
		return nil, apierror.New(apierror.CodeValidation, "delta must be non-zero")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, apierror.New(apierror.CodeProductNotFound, "product not found")
	}
	if !product.TracksStock() {
		return nil, apierror.New(apierror.CodeValidation, "product does not track stock")
	}
	if req.Delta < 0 && !product.AllowNegativeStock && product.StockGlobal+req.Delta < 0 {
		return nil, apierror.New(apierror.CodeInsufficientStock, "adjustment would leave negative stock")
	}

	direction := model.StockIn
	quantity := req.Delta
	if req.Delta < 0 {
		direction = model.StockOut
		quantity = -req.Delta
	}

	var mov *model.StockMovement
	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		newQty, err := s.products.AdjustStockTx(tx, productID, req.Delta)
		if err != nil {
			return err
		}
		mov = &model.StockMovement{
			ProductID:   productID,
			BranchID:    op.BranchID,
			Direction:   direction,
			Reason:      model.StockReasonAdjustment,
			Quantity:    quantity,
			PreviousQty: newQty - req.Delta,
			NewQty:      newQty,
		}
		return s.movements.CreateTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", productID.String()).
		Str("user_id", op.UserID.String()).
		Int("delta", req.Delta).
		Str("description", req.Description).
		Msg("manual stock adjustment")

	resp := stockMovementToResponse(mov)
	resp.Product = product.Name
	return resp, nil
}

func (s *stockService) ListMovements(ctx context.Context, filter repository.StockMovementFilter) (*dto.StockMovementListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	movements, total, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.StockMovementResponse, 0, len(movements))
	for i := range movements {
		r := stockMovementToResponse(&movements[i])
		if movements[i].Product != nil {
			r.Product = movements[i].Product.Name
		}
		data = append(data, *r)
	}
	return &dto.StockMovementListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func stockMovementToResponse(m *model.StockMovement) *dto.StockMovementResponse {
	resp := &dto.StockMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		Direction:   m.Direction,
		Reason:      m.Reason,
		Quantity:    m.Quantity,
		PreviousQty: m.PreviousQty,
		NewQty:      m.NewQty,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.SaleID != nil {
		id := m.SaleID.String()
		resp.SaleID = &id
	}
	return resp
}
