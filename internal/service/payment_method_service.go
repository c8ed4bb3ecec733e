package service

import (
	"context"

	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
)

type PaymentMethodService interface {
	List(ctx context.Context) ([]dto.PaymentMethodResponse, error)
}

type paymentMethodService struct {
	repo repository.PaymentMethodRepository
}

func NewPaymentMethodService(repo repository.PaymentMethodRepository) PaymentMethodService {
	return &paymentMethodService{repo: repo}
}

func (s *paymentMethodService) List(ctx context.Context) ([]dto.PaymentMethodResponse, error) {
	methods, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PaymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, dto.PaymentMethodResponse{
			ID:           m.ID.String(),
			Code:         m.Code,
			Name:         m.Name,
			Kind:         string(m.Kind),
			SurchargePct: m.SurchargePct,
		})
	}
	return out, nil
}
