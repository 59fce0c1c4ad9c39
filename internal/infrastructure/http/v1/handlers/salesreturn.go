package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/id"
	"kardex/internal/domain/documents/salesreturn"
	"kardex/internal/infrastructure/http/v1/dto"
)

// SalesReturnHandler handles HTTP requests for sales return documents.
type SalesReturnHandler struct {
	*BaseHandler
	service *salesreturn.Service
}

// NewSalesReturnHandler creates a new sales return handler.
func NewSalesReturnHandler(base *BaseHandler, service *salesreturn.Service) *SalesReturnHandler {
	return &SalesReturnHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/sales-return.
func (h *SalesReturnHandler) Create(c *gin.Context) {
	var req dto.CreateSalesReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// Get handles GET /document/sales-return/:id.
func (h *SalesReturnHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Update handles PUT /document/sales-return/:id.
func (h *SalesReturnHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateSalesReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(doc)

	if err := h.service.Update(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Delete handles DELETE /document/sales-return/:id.
func (h *SalesReturnHandler) Delete(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Complete handles POST /document/sales-return/:id/complete.
func (h *SalesReturnHandler) Complete(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Complete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "document completed")
}

// Cancel handles POST /document/sales-return/:id/cancel.
func (h *SalesReturnHandler) Cancel(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "document cancelled")
}

// List handles GET /document/sales-return.
func (h *SalesReturnHandler) List(c *gin.Context) {
	var filter salesreturn.ListFilter
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	if v := c.Query("customerId"); v != "" {
		if parsed, err := id.Parse(v); err == nil {
			filter.CustomerID = &parsed
		}
	}
	if v := c.Query("storeId"); v != "" {
		if parsed, err := id.Parse(v); err == nil {
			filter.StoreID = &parsed
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("dateFrom"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if v := c.Query("dateTo"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[*salesreturn.Return]{Items: result.Items, Total: result.Total})
}
