package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerService interface {
	// RegisterPayment settles part or all of a customer's debt with cash:
	// credits the account and deposits the money into the operator's drawer,
	// atomically.
	RegisterPayment(ctx context.Context, op Operator, customerID uuid.UUID, req dto.CustomerPaymentRequest) (*dto.CustomerPaymentResponse, error)
	Balance(ctx context.Context, customerID uuid.UUID) (*dto.CustomerBalanceResponse, error)
	Movements(ctx context.Context, customerID uuid.UUID) ([]dto.AccountMovementResponse, error)
}

type customerService struct {
	repo   repository.CustomerRepository
	shifts repository.ShiftRepository
}

func NewCustomerService(repo repository.CustomerRepository, shifts repository.ShiftRepository) CustomerService {
	return &customerService{repo: repo, shifts: shifts}
}

func (s *customerService) RegisterPayment(ctx context.Context, op Operator, customerID uuid.UUID, req dto.CustomerPaymentRequest) (*dto.CustomerPaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.New(apierror.CodeInvalidAmount, "amount must be greater than zero")
	}
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "customer not found")
	}
	shift, err := s.shifts.FindOpenByUser(ctx, op.UserID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNoOpenShift, "no open cash shift for this operator")
	}

	description := fmt.Sprintf("Account payment from %s", customer.Name)
	if req.Description != nil && *req.Description != "" {
		description = *req.Description
	}

	resp := &dto.CustomerPaymentResponse{CustomerID: customer.ID.String()}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		newBalance, err := s.repo.ApplyBalanceTx(tx, customer.ID, req.Amount.Neg())
		if err != nil {
			return err
		}
		resp.PreviousBalance = newBalance.Add(req.Amount)
		resp.NewBalance = newBalance

		accMov := &model.CustomerAccountMovement{
			CustomerID:  customer.ID,
			Type:        model.AccountCredit,
			Amount:      req.Amount,
			Balance:     newBalance,
			Description: description,
		}
		if err := s.repo.CreateMovementTx(tx, accMov); err != nil {
			return err
		}

		deltas := repository.ShiftDeltas{
			ExpectedCash: req.Amount,
			TotalCashIn:  req.Amount,
		}
		drawer, err := s.shifts.ApplyDeltasTx(tx, shift.ID, deltas)
		if err != nil {
			return err
		}
		cashMov := &model.CashMovement{
			ShiftID:     shift.ID,
			Direction:   model.CashIn,
			Reason:      model.CashReasonDeposit,
			Amount:      req.Amount,
			Balance:     drawer,
			Description: description,
		}
		return s.shifts.CreateMovementTx(tx, cashMov)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *customerService) Balance(ctx context.Context, customerID uuid.UUID) (*dto.CustomerBalanceResponse, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "customer not found")
	}
	return &dto.CustomerBalanceResponse{
		CustomerID:     customer.ID.String(),
		Name:           customer.Name,
		CurrentBalance: customer.CurrentBalance,
		CreditLimit:    customer.CreditLimit,
		BlockOnLimit:   customer.BlockOnLimit,
	}, nil
}

func (s *customerService) Movements(ctx context.Context, customerID uuid.UUID) ([]dto.AccountMovementResponse, error) {
	if _, err := s.repo.FindByID(ctx, customerID); err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "customer not found")
	}
	movements, err := s.repo.ListMovements(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AccountMovementResponse, 0, len(movements))
	for _, m := range movements {
		r := dto.AccountMovementResponse{
			ID:          m.ID.String(),
			Type:        m.Type,
			Amount:      m.Amount,
			Balance:     m.Balance,
			Description: m.Description,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		}
		if m.SaleID != nil {
			id := m.SaleID.String()
			r.SaleID = &id
		}
		out = append(out, r)
	}
	return out, nil
}
