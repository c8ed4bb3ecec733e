package handler

import (
	"net/http"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
	"github.com/zerofarias/varo-pos-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// CreateSale registers a sale atomically: stock decrement, cash movement,
// customer account debit, and asynchronous fiscal dispatch.
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateSale(c.Request.Context(), operatorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CancelSale reverses a sale in full: restock, inverse cash movement,
// account reversal.
func (h *SalesHandler) CancelSale(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.CancelSale(c.Request.Context(), operatorFrom(c), id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCreditNote issues a full or partial reversing document for a sale.
func (h *SalesHandler) CreateCreditNote(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateCreditNoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateCreditNote(c.Request.Context(), operatorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSales returns the operator branch's sales, paginated, today by
// default.
func (h *SalesHandler) ListSales(c *gin.Context) {
	var filter repository.SaleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, err.Error()))
		return
	}
	resp, err := h.svc.ListSales(c.Request.Context(), operatorFrom(c).BranchID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
