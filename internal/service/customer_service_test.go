package service

import (
	"context"
	"testing"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customerFixture struct {
	svc      CustomerService
	repo     *stubCustomerRepo
	shifts   *stubShiftRepo
	op       Operator
	shift    *model.CashShift
	customer *model.Customer
}

func buildCustomerSvc(t *testing.T, openShift bool) *customerFixture {
	t.Helper()
	f := &customerFixture{
		repo:   newStubCustomerRepo(),
		shifts: newStubShiftRepo(),
		op:     Operator{UserID: uuid.New(), BranchID: uuid.New(), Role: model.RoleCashier},
	}
	f.customer = &model.Customer{
		ID:             uuid.New(),
		Name:           "Perez SRL",
		CurrentBalance: d(t, "12000"),
		CreditLimit:    d(t, "50000"),
		BlockOnLimit:   true,
		Active:         true,
	}
	f.repo.items[f.customer.ID] = f.customer
	if openShift {
		f.shift = &model.CashShift{
			ID:           uuid.New(),
			RegisterID:   uuid.New(),
			UserID:       f.op.UserID,
			BranchID:     f.op.BranchID,
			OpeningCash:  d(t, "5000"),
			ExpectedCash: d(t, "5000"),
			Status:       model.ShiftOpen,
			OpenedAt:     time.Now(),
		}
		f.shifts.shifts[f.shift.ID] = f.shift
	}
	f.svc = NewCustomerService(f.repo, f.shifts)
	return f
}

func TestRegisterPayment_SettlesDebtIntoDrawer(t *testing.T) {
	f := buildCustomerSvc(t, true)

	resp, err := f.svc.RegisterPayment(context.Background(), f.op, f.customer.ID, dto.CustomerPaymentRequest{
		Amount: d(t, "5000"),
	})
	require.NoError(t, err)

	assertDecimal(t, "12000", resp.PreviousBalance)
	assertDecimal(t, "7000", resp.NewBalance)
	assertDecimal(t, "7000", f.customer.CurrentBalance)

	require.Len(t, f.repo.movements, 1)
	accMov := f.repo.movements[0]
	assert.Equal(t, model.AccountCredit, accMov.Type)
	assertDecimal(t, "5000", accMov.Amount)
	assertDecimal(t, "7000", accMov.Balance)

	// The money lands in the open drawer.
	assertDecimal(t, "10000", f.shift.ExpectedCash)
	assertDecimal(t, "5000", f.shift.TotalCashIn)
	cashMov := f.shifts.lastMovement(f.shift.ID)
	require.NotNil(t, cashMov)
	assert.Equal(t, model.CashIn, cashMov.Direction)
	assert.Equal(t, model.CashReasonDeposit, cashMov.Reason)
	assertDecimal(t, "10000", cashMov.Balance)
}

func TestRegisterPayment_OverpaymentGoesNegative(t *testing.T) {
	f := buildCustomerSvc(t, true)

	resp, err := f.svc.RegisterPayment(context.Background(), f.op, f.customer.ID, dto.CustomerPaymentRequest{
		Amount: d(t, "15000"),
	})
	require.NoError(t, err)
	assertDecimal(t, "-3000", resp.NewBalance)
	assertDecimal(t, "-3000", f.customer.CurrentBalance)
}

func TestRegisterPayment_InvalidAmount(t *testing.T) {
	f := buildCustomerSvc(t, true)

	_, err := f.svc.RegisterPayment(context.Background(), f.op, f.customer.ID, dto.CustomerPaymentRequest{
		Amount: d(t, "-100"),
	})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.CodeInvalidAmount, apiErr.Code)
}

func TestRegisterPayment_NoOpenShift(t *testing.T) {
	f := buildCustomerSvc(t, false)

	_, err := f.svc.RegisterPayment(context.Background(), f.op, f.customer.ID, dto.CustomerPaymentRequest{
		Amount: d(t, "5000"),
	})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.CodeNoOpenShift, apiErr.Code)
	assertDecimal(t, "12000", f.customer.CurrentBalance)
}

func TestRegisterPayment_CustomerNotFound(t *testing.T) {
	f := buildCustomerSvc(t, true)

	_, err := f.svc.RegisterPayment(context.Background(), f.op, uuid.New(), dto.CustomerPaymentRequest{
		Amount: d(t, "5000"),
	})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.CodeNotFound, apiErr.Code)
}

func TestCustomerBalance(t *testing.T) {
	f := buildCustomerSvc(t, false)

	resp, err := f.svc.Balance(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Perez SRL", resp.Name)
	assertDecimal(t, "12000", resp.CurrentBalance)
	assertDecimal(t, "50000", resp.CreditLimit)
	assert.True(t, resp.BlockOnLimit)
}

func TestCustomerMovements(t *testing.T) {
	f := buildCustomerSvc(t, true)

	_, err := f.svc.RegisterPayment(context.Background(), f.op, f.customer.ID, dto.CustomerPaymentRequest{
		Amount: d(t, "2000"),
	})
	require.NoError(t, err)

	movs, err := f.svc.Movements(context.Background(), f.customer.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, model.AccountCredit, movs[0].Type)

	_, err = f.svc.Movements(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "customer not found")
}
