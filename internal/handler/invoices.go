package handler

import (
	"net/http"

	"github.com/zerofarias/varo-pos-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type InvoicesHandler struct{ svc service.InvoicingService }

func NewInvoicesHandler(svc service.InvoicingService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

// GetBySale returns the fiscal record attached to a sale.
func (h *InvoicesHandler) GetBySale(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.FindBySale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Retry requeues a rejected or errored invoice (supervisor+).
func (h *InvoicesHandler) Retry(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Retry(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
