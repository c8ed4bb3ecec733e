package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/infra"
	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceTypeFor(t *testing.T) {
	customerID := uuid.New()

	assert.Equal(t, model.InvoiceTypeC, invoiceTypeFor(&model.Sale{}))
	assert.Equal(t, model.InvoiceTypeB, invoiceTypeFor(&model.Sale{CustomerID: &customerID}))
	assert.Equal(t, model.InvoiceTypeCreditNote, invoiceTypeFor(&model.Sale{IsCreditNote: true, CustomerID: &customerID}))
}

func TestVoucherCodeFor(t *testing.T) {
	assert.Equal(t, infra.CbteFacturaB, voucherCodeFor(model.InvoiceTypeB))
	assert.Equal(t, infra.CbteFacturaC, voucherCodeFor(model.InvoiceTypeC))
	assert.Equal(t, infra.CbteNotaCreditoB, voucherCodeFor(model.InvoiceTypeCreditNote))
}

func TestParseCAEDate(t *testing.T) {
	due, err := parseCAEDate("20260915")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *due)

	_, err = parseCAEDate("15/09/2026")
	assert.Error(t, err)
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("sidecar down")
	calls := 0
	err := withRetry(context.Background(), 3, func(attempt int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 3, func(attempt int) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, computeRetryBackoff(1))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(3))
	assert.Equal(t, 16*time.Minute, computeRetryBackoff(5))
	// Capped so a stuck invoice still retries twice an hour.
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(10))
}
