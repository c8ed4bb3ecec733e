package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShiftService interface {
	Open(ctx context.Context, op Operator, req dto.OpenShiftRequest) (*dto.ShiftResponse, error)
	Close(ctx context.Context, op Operator, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error)
	AddCashMovement(ctx context.Context, op Operator, req dto.CashMovementRequest) (*dto.CashMovementResponse, error)
	Active(ctx context.Context, op Operator) (*dto.ShiftResponse, error)
	Report(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftReportResponse, error)
}

type shiftService struct {
	repo repository.ShiftRepository
}

func NewShiftService(repo repository.ShiftRepository) ShiftService {
	return &shiftService{repo: repo}
}

func (s *shiftService) Open(ctx context.Context, op Operator, req dto.OpenShiftRequest) (*dto.ShiftResponse, error) {
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, apierror.New(apierror.CodeValidation, "invalid register_id")
	}
	register, err := s.repo.FindRegister(ctx, registerID)
	if err != nil {
		return nil, apierror.New(apierror.CodeRegisterNotFound, "cash register not found")
	}
	if _, err := s.repo.FindOpenByUser(ctx, op.UserID); err == nil {
		return nil, apierror.New(apierror.CodeShiftAlreadyOpen, "operator already has an open shift")
	}
	if _, err := s.repo.FindOpenByRegister(ctx, registerID); err == nil {
		return nil, apierror.New(apierror.CodeShiftAlreadyOpen, fmt.Sprintf("register %s already has an open shift", register.Name))
	}

	shift := &model.CashShift{
		RegisterID:   register.ID,
		UserID:       op.UserID,
		BranchID:     register.BranchID,
		OpeningCash:  req.OpeningCash,
		ExpectedCash: req.OpeningCash,
		Status:       model.ShiftOpen,
		OpenedAt:     time.Now(),
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateShiftTx(tx, shift); err != nil {
			return err
		}
		mov := &model.CashMovement{
			ShiftID:     shift.ID,
			Direction:   model.CashIn,
			Reason:      model.CashReasonOpening,
			Amount:      req.OpeningCash,
			Balance:     req.OpeningCash,
			Description: "Opening float",
		}
		return s.repo.CreateMovementTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}
	return shiftToResponse(shift), nil
}

// Close performs a blind count: the operator declares the counted cash
// without seeing the expected figure, and the difference is recorded.
// Only the owning operator or an admin may close a shift.
func (s *shiftService) Close(ctx context.Context, op Operator, shiftID uuid.UUID, req dto.CloseShiftRequest) (*dto.ShiftResponse, error) {
	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "shift not found")
	}
	if shift.UserID != op.UserID && op.Role != model.RoleAdmin {
		return nil, apierror.New(apierror.CodeForbidden, "only the shift owner or an admin may close it")
	}

	// The status flip and the difference are handled by a single guarded
	// UPDATE: events that land on the shift after the read above are still
	// counted, and two concurrent closes cannot both succeed.
	var closed *model.CashShift
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		c, err := s.repo.CloseShiftTx(tx, shiftID, req.CountedCash, req.Notes)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.New(apierror.CodeNotOpen, "shift is not open")
			}
			return err
		}
		closed = c
		mov := &model.CashMovement{
			ShiftID:     closed.ID,
			Direction:   model.CashOut,
			Reason:      model.CashReasonClosing,
			Amount:      req.CountedCash,
			Balance:     decimal.Zero,
			Description: fmt.Sprintf("Closing count (difference %s)", closed.CashDifference),
		}
		return s.repo.CreateMovementTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}
	return shiftToResponse(closed), nil
}

func (s *shiftService) AddCashMovement(ctx context.Context, op Operator, req dto.CashMovementRequest) (*dto.CashMovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.New(apierror.CodeInvalidAmount, "amount must be greater than zero")
	}
	shift, err := s.repo.FindOpenByUser(ctx, op.UserID)
	if err != nil {
		return nil, apierror.New(apierror.CodeShiftNotOpen, "no open cash shift for this operator")
	}

	var (
		deltas    repository.ShiftDeltas
		direction string
		reason    string
	)
	if req.Type == "DEPOSIT" {
		direction = model.CashIn
		reason = model.CashReasonDeposit
		deltas.ExpectedCash = req.Amount
		deltas.TotalCashIn = req.Amount
	} else {
		direction = model.CashOut
		reason = model.CashReasonWithdrawal
		deltas.ExpectedCash = req.Amount.Neg()
		deltas.TotalCashOut = req.Amount
	}

	var mov *model.CashMovement
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		balance, err := s.repo.ApplyDeltasTx(tx, shift.ID, deltas)
		if err != nil {
			return err
		}
		mov = &model.CashMovement{
			ShiftID:     shift.ID,
			Direction:   direction,
			Reason:      reason,
			Amount:      req.Amount,
			Balance:     balance,
			Description: req.Description,
		}
		return s.repo.CreateMovementTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}
	return cashMovementToResponse(mov), nil
}

func (s *shiftService) Active(ctx context.Context, op Operator) (*dto.ShiftResponse, error) {
	shift, err := s.repo.FindOpenByUser(ctx, op.UserID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNoOpenShift, "no open cash shift for this operator")
	}
	return shiftToResponse(shift), nil
}

func (s *shiftService) Report(ctx context.Context, shiftID uuid.UUID) (*dto.ShiftReportResponse, error) {
	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "shift not found")
	}
	movements, err := s.repo.ListMovements(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	movs := make([]dto.CashMovementResponse, 0, len(movements))
	for i := range movements {
		movs = append(movs, *cashMovementToResponse(&movements[i]))
	}
	return &dto.ShiftReportResponse{
		Shift:     *shiftToResponse(shift),
		Movements: movs,
	}, nil
}

func shiftToResponse(v *model.CashShift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:               v.ID.String(),
		RegisterID:       v.RegisterID.String(),
		UserID:           v.UserID.String(),
		Status:           v.Status,
		OpeningCash:      v.OpeningCash,
		ExpectedCash:     v.ExpectedCash,
		CountedCash:      v.CountedCash,
		CashDifference:   v.CashDifference,
		TotalSales:       v.TotalSales,
		TotalCreditNotes: v.TotalCreditNotes,
		TotalByCard:      v.TotalByCard,
		TotalByQR:        v.TotalByQR,
		TotalByAccount:   v.TotalByAccount,
		Notes:            v.Notes,
		OpenedAt:         v.OpenedAt.Format(time.RFC3339),
	}
	if v.ClosedAt != nil {
		closed := v.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	return resp
}

func cashMovementToResponse(v *model.CashMovement) *dto.CashMovementResponse {
	resp := &dto.CashMovementResponse{
		ID:          v.ID.String(),
		Direction:   v.Direction,
		Reason:      v.Reason,
		Amount:      v.Amount,
		Balance:     v.Balance,
		Description: v.Description,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
	if v.SaleID != nil {
		id := v.SaleID.String()
		resp.SaleID = &id
	}
	return resp
}
