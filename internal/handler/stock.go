package handler

import (
	"net/http"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
	"github.com/zerofarias/varo-pos-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// AdjustStock applies a signed manual correction (supervisor+).
func (h *StockHandler) AdjustStock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), operatorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements returns the stock ledger, filterable by product and reason.
func (h *StockHandler) ListMovements(c *gin.Context) {
	var filter repository.StockMovementFilter
	if raw := c.Query("product_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid product_id"))
			return
		}
		filter.ProductID = &pid
	}
	filter.Reason = c.Query("reason")
	filter.Page = queryInt(c, "page", 1)
	filter.Limit = queryInt(c, "limit", 50)

	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
