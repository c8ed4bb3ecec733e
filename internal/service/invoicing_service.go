package service

import (
	"context"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
	"github.com/zerofarias/varo-pos-sub000/internal/worker"

	"github.com/google/uuid"
)

type InvoicingService interface {
	FindBySale(ctx context.Context, saleID uuid.UUID) (*dto.InvoiceResponse, error)
	// Retry requeues a REJECTED or ERROR invoice for immediate processing.
	Retry(ctx context.Context, invoiceID uuid.UUID) error
}

type invoicingService struct {
	repo       repository.InvoiceRepository
	dispatcher *worker.Dispatcher
}

func NewInvoicingService(repo repository.InvoiceRepository, dispatcher *worker.Dispatcher) InvoicingService {
	return &invoicingService{repo: repo, dispatcher: dispatcher}
}

func (s *invoicingService) FindBySale(ctx context.Context, saleID uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindBySaleID(ctx, saleID)
	if err != nil {
		return nil, apierror.New(apierror.CodeNotFound, "no invoice for this sale")
	}
	return invoiceToResponse(inv), nil
}

func (s *invoicingService) Retry(ctx context.Context, invoiceID uuid.UUID) error {
	inv, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return apierror.New(apierror.CodeNotFound, "invoice not found")
	}
	if inv.Status == model.InvoiceIssued {
		return apierror.New(apierror.CodeValidation, "invoice is already issued")
	}
	inv.Status = model.InvoicePending
	inv.NextRetryAt = nil
	inv.LastError = nil
	if err := s.repo.Update(ctx, inv); err != nil {
		return err
	}
	return s.dispatcher.EnqueueInvoice(ctx, worker.InvoiceJobPayload{SaleID: inv.SaleID.String()})
}

func invoiceToResponse(inv *model.Invoice) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:            inv.ID.String(),
		SaleID:        inv.SaleID.String(),
		Type:          inv.Type,
		Number:        inv.Number,
		CAE:           inv.CAE,
		AssociatedCAE: inv.AssociatedCAE,
		NetAmount:     inv.NetAmount,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		Status:        inv.Status,
		LastError:     inv.LastError,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.CAEDue != nil {
		due := inv.CAEDue.Format("2006-01-02")
		resp.CAEDue = &due
	}
	return resp
}
