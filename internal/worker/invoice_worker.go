package worker

// invoice_worker.go
// Processes fiscal invoicing jobs from QueueInvoicing. Runs strictly after
// the sale transaction committed: an AFIP failure marks the invoice for
// retry but never touches the sale or its ledgers.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/infra"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InvoiceJobPayload is the job envelope sent to QueueInvoicing.
type InvoiceJobPayload struct {
	SaleID string `json:"sale_id"`
	// OriginalSaleID is set for credit notes — the CAE of the original
	// sale's invoice is attached as the associated voucher.
	OriginalSaleID *string `json:"original_sale_id,omitempty"`
	CustomerEmail  *string `json:"customer_email,omitempty"`
}

// InvoiceWorker calls the AFIP sidecar and stores the CAE result, then
// generates the PDF receipt and optionally enqueues an email job.
type InvoiceWorker struct {
	afipClient     *infra.AFIPClient
	invoices       repository.InvoiceRepository
	sales          repository.SaleRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
	businessName   string
	taxID          string
	pointOfSale    int
}

func NewInvoiceWorker(
	afipClient *infra.AFIPClient,
	invoices repository.InvoiceRepository,
	sales repository.SaleRepository,
	dispatcher *Dispatcher,
	pdfStoragePath string,
	businessName string,
	taxID string,
	pointOfSale int,
) *InvoiceWorker {
	return &InvoiceWorker{
		afipClient:     afipClient,
		invoices:       invoices,
		sales:          sales,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		businessName:   businessName,
		taxID:          taxID,
		pointOfSale:    pointOfSale,
	}
}

// Process handles a single invoicing job:
//  1. Fetch the sale (with items + payments)
//  2. Create (or reuse) the invoice record in PENDING
//  3. Call the AFIP sidecar with exponential backoff
//  4. Update the invoice (CAE / status / error)
//  5. Generate the PDF receipt
//  6. Optionally enqueue an email job
func (w *InvoiceWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload InvoiceJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("invoice_worker: invalid payload")
		return
	}

	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("invoice_worker: invalid sale_id")
		return
	}

	sale, err := w.sales.FindByID(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("invoice_worker: sale not found")
		return
	}

	// Reuse an existing invoice record (manual retry path); never re-issue
	// one that already carries a CAE.
	inv, err := w.invoices.FindBySaleID(ctx, saleID)
	switch {
	case err == nil && inv.Status == model.InvoiceIssued:
		log.Info().Str("sale_id", payload.SaleID).Msg("invoice_worker: already issued, skipping")
		return
	case err == gorm.ErrRecordNotFound:
		inv = &model.Invoice{
			SaleID:      saleID,
			Type:        invoiceTypeFor(sale),
			NetAmount:   sale.Total.Abs().Sub(sale.TaxAmount.Abs()),
			TaxAmount:   sale.TaxAmount.Abs(),
			TotalAmount: sale.Total.Abs(),
			Status:      model.InvoicePending,
		}
		if err := w.invoices.Create(ctx, inv); err != nil {
			log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("invoice_worker: failed to create invoice")
			return
		}
	case err != nil:
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("invoice_worker: failed to load invoice")
		return
	}

	// Credit notes must reference the CAE of the invoice they reverse.
	if payload.OriginalSaleID != nil {
		if originalID, err := uuid.Parse(*payload.OriginalSaleID); err == nil {
			if orig, err := w.invoices.FindBySaleID(ctx, originalID); err == nil && orig.CAE != nil {
				inv.AssociatedCAE = orig.CAE
			}
		}
	}

	afipPayload := infra.AFIPPayload{
		VoucherType: voucherCodeFor(inv.Type),
		PointOfSale: w.pointOfSale,
		TaxID:       w.taxID,
		NetAmount:   inv.NetAmount.InexactFloat64(),
		TaxAmount:   inv.TaxAmount.InexactFloat64(),
		TotalAmount: inv.TotalAmount.InexactFloat64(),
		SaleID:      payload.SaleID,
	}
	if inv.AssociatedCAE != nil {
		afipPayload.AssociatedCAE = *inv.AssociatedCAE
	}

	// AFIP call with exponential backoff: attempt 1 immediate, then 1s, 2s
	var afipResp *infra.AFIPResponse
	afipErr := withRetry(ctx, 3, func(attempt int) error {
		resp, err := w.afipClient.Issue(ctx, afipPayload)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("sale_id", payload.SaleID).
				Msg("invoice_worker: AFIP attempt failed, retrying")
			return err
		}
		afipResp = resp
		return nil
	})

	switch {
	case afipErr != nil:
		// Stays PENDING — the retry cron picks it up from next_retry_at.
		inv.RetryCount++
		errMsg := afipErr.Error()
		inv.LastError = &errMsg
		next := time.Now().Add(computeRetryBackoff(inv.RetryCount))
		inv.NextRetryAt = &next
		_ = w.invoices.Update(ctx, inv)
		log.Error().Err(afipErr).Str("sale_id", payload.SaleID).Msg("invoice_worker: AFIP failed, scheduled for retry")

	case afipResp.Result == "A":
		inv.Status = model.InvoiceIssued
		cae := afipResp.CAE
		inv.CAE = &cae
		if afipResp.VoucherNumber > 0 {
			n := afipResp.VoucherNumber
			inv.Number = &n
		}
		if due, err := parseCAEDate(afipResp.CAEDue); err == nil {
			inv.CAEDue = due
		}
		inv.NextRetryAt = nil
		inv.LastError = nil
		_ = w.invoices.Update(ctx, inv)
		log.Info().Str("cae", cae).Str("sale_id", payload.SaleID).Msg("invoice_worker: CAE obtained")

	default:
		inv.Status = model.InvoiceRejected
		reason := fmt.Sprintf("AFIP rejected the voucher: result=%s", afipResp.Result)
		if len(afipResp.Observations) > 0 {
			reason = fmt.Sprintf("%s (%d: %s)", reason, afipResp.Observations[0].Code, afipResp.Observations[0].Message)
		}
		inv.LastError = &reason
		_ = w.invoices.Update(ctx, inv)
		log.Warn().Str("result", afipResp.Result).Str("sale_id", payload.SaleID).Msg("invoice_worker: AFIP rejected")
	}

	pdfPath, pdfErr := infra.GenerateReceiptPDF(sale, w.businessName, w.pdfStoragePath)
	if pdfErr != nil {
		log.Warn().Err(pdfErr).Str("sale_id", payload.SaleID).Msg("invoice_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("sale_id", payload.SaleID).Msg("invoice_worker: PDF generated")

	if payload.CustomerEmail != nil && *payload.CustomerEmail != "" {
		emailJob := EmailJobPayload{
			ToEmail: *payload.CustomerEmail,
			Subject: fmt.Sprintf("%s — receipt %s", w.businessName, sale.Number),
			Body:    fmt.Sprintf("Your receipt is attached.\nTotal: $%s", sale.Total.Abs().StringFixed(2)),
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", *payload.CustomerEmail).Msg("invoice_worker: failed to enqueue email")
		}
	}
}

func invoiceTypeFor(sale *model.Sale) string {
	if sale.IsCreditNote {
		return model.InvoiceTypeCreditNote
	}
	if sale.CustomerID != nil {
		return model.InvoiceTypeB
	}
	return model.InvoiceTypeC
}

func voucherCodeFor(invoiceType string) int {
	switch invoiceType {
	case model.InvoiceTypeCreditNote:
		return infra.CbteNotaCreditoB
	case model.InvoiceTypeB:
		return infra.CbteFacturaB
	default:
		return infra.CbteFacturaC
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// parseCAEDate parses the date format returned by AFIP ("YYYYMMDD").
func parseCAEDate(s string) (*time.Time, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
