package handler

import (
	"net/http"

	"github.com/zerofarias/varo-pos-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentMethodsHandler struct{ svc service.PaymentMethodService }

func NewPaymentMethodsHandler(svc service.PaymentMethodService) *PaymentMethodsHandler {
	return &PaymentMethodsHandler{svc: svc}
}

// List returns the active payment methods with their surcharge rates, so
// the POS frontend can price instrument adjustments before submitting.
func (h *PaymentMethodsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
