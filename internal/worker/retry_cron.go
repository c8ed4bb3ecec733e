package worker

// retry_cron.go
// Background goroutine that periodically re-attempts AFIP calls for
// invoices stuck in PENDING with a next_retry_at in the past. Uses the
// circuit breaker to avoid hammering a downed sidecar.

import (
	"context"
	"fmt"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/infra"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxInvoiceRetries is the cutoff after which an invoice is parked on
	// the dead-letter list with status ERROR.
	MaxInvoiceRetries = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Invoices    repository.InvoiceRepository
	AFIPClient  *infra.AFIPClient
	CB          *infra.CircuitBreaker
	RDB         *redis.Client
	TaxID       string
	PointOfSale int
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending invoices, and re-attempts AFIP calls through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed sidecar
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	invoices, err := cfg.Invoices.ListPendingRetries(ctx, time.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(invoices) == 0 {
		return
	}

	log.Info().Int("count", len(invoices)).Msg("retry_cron: processing pending invoices")

	for i := range invoices {
		inv := &invoices[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		payload := infra.AFIPPayload{
			VoucherType: voucherCodeFor(inv.Type),
			PointOfSale: cfg.PointOfSale,
			TaxID:       cfg.TaxID,
			NetAmount:   inv.NetAmount.InexactFloat64(),
			TaxAmount:   inv.TaxAmount.InexactFloat64(),
			TotalAmount: inv.TotalAmount.InexactFloat64(),
			SaleID:      inv.SaleID.String(),
		}
		if inv.AssociatedCAE != nil {
			payload.AssociatedCAE = *inv.AssociatedCAE
		}

		var afipResp *infra.AFIPResponse
		cbErr := cfg.CB.Execute(func() error {
			resp, err := cfg.AFIPClient.Issue(ctx, payload)
			if err != nil {
				return err
			}
			afipResp = resp
			return nil
		})

		if cbErr != nil {
			// Failure — increment retry count, schedule next attempt
			inv.RetryCount++
			errMsg := cbErr.Error()
			inv.LastError = &errMsg
			next := time.Now().Add(computeRetryBackoff(inv.RetryCount))
			inv.NextRetryAt = &next

			if inv.RetryCount >= MaxInvoiceRetries {
				inv.Status = model.InvoiceError
				inv.NextRetryAt = nil
				log.Error().
					Str("invoice_id", inv.ID.String()).
					Str("sale_id", inv.SaleID.String()).
					Int("retries", inv.RetryCount).
					Msg("retry_cron: max retries exceeded, parking job")

				deadPayload := fmt.Sprintf(`{"sale_id":"%s","invoice_id":"%s"}`, inv.SaleID, inv.ID)
				ParkJob(ctx, cfg.RDB, QueueInvoicing, "invoicing", []byte(deadPayload),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxInvoiceRetries, errMsg),
					inv.RetryCount)
			} else {
				log.Warn().
					Str("invoice_id", inv.ID.String()).
					Int("retry_count", inv.RetryCount).
					Time("next_retry_at", *inv.NextRetryAt).
					Msg("retry_cron: AFIP retry failed, scheduled next attempt")
			}

			_ = cfg.Invoices.Update(ctx, inv)
			continue
		}

		// Success path
		if afipResp != nil && afipResp.Result == "A" {
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
			_ = cfg.Invoices.Update(ctx, inv)

			log.Info().
				Str("cae", cae).
				Str("invoice_id", inv.ID.String()).
				Int("total_retries", inv.RetryCount).
				Msg("retry_cron: CAE obtained after retry")
		} else if afipResp != nil {
			inv.Status = model.InvoiceRejected
			reason := fmt.Sprintf("AFIP rejected on retry: result=%s", afipResp.Result)
			inv.LastError = &reason
			inv.NextRetryAt = nil
			_ = cfg.Invoices.Update(ctx, inv)
			log.Warn().
				Str("result", afipResp.Result).
				Str("invoice_id", inv.ID.String()).
				Msg("retry_cron: AFIP rejected on retry")
		}
	}
}

// computeRetryBackoff doubles the wait per retry: 1m, 2m, 4m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	backoff := time.Minute << uint(retryCount-1)
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}
