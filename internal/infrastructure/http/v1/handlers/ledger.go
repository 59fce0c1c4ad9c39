package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes the read-only ledger surface and the manual
// reprocess trigger.
type LedgerHandler struct {
	*BaseHandler
	repo   ledger.Repository
	engine *ledger.Engine
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(repo ledger.Repository, engine *ledger.Engine) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: NewBaseHandler(),
		repo:        repo,
		engine:      engine,
	}
}

// GetBalance returns the current aggregate for one (store, product) key.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	storeID, ok := h.ParseID(c, "storeId")
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	agg, err := h.repo.GetAggregate(c.Request.Context(), storeID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAggregate(agg))
}

// ListBalances returns aggregates with filtering.
func (h *LedgerHandler) ListBalances(c *gin.Context) {
	var filter ledger.AggregateFilter

	if v := c.Query("storeId"); v != "" {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid storeId"))
			return
		}
		filter.StoreID = &parsed
	}
	if v := c.Query("productId"); v != "" {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId"))
			return
		}
		filter.ProductID = &parsed
	}
	filter.ExcludeZero = c.Query("excludeZero") == "true"

	aggs, err := h.repo.ListAggregates(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AggregateResponse, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, dto.FromAggregate(agg))
	}
	h.OK(c, dto.ListResponse[dto.AggregateResponse]{Items: items, Total: int64(len(items))})
}

// ListEntries returns ledger entries with filtering.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var filter ledger.EntryFilter

	if v := c.Query("storeId"); v != "" {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid storeId"))
			return
		}
		filter.StoreID = &parsed
	}
	if v := c.Query("productId"); v != "" {
		parsed, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId"))
			return
		}
		filter.ProductID = &parsed
	}
	if v := c.Query("movementType"); v != "" {
		mt := ledger.MovementType(v)
		filter.MovementType = &mt
	}
	if v := c.Query("reason"); v != "" {
		reason := ledger.EntryReason(v)
		filter.Reason = &reason
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date"))
			return
		}
		filter.FromDate = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date"))
			return
		}
		filter.ToDate = &t
	}

	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	entries, err := h.repo.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for _, en := range entries {
		items = append(items, dto.FromEntry(en))
	}
	h.OK(c, dto.ListResponse[dto.EntryResponse]{Items: items, Total: int64(len(items))})
}

// Reprocess re-derives one key's history from a date.
func (h *LedgerHandler) Reprocess(c *gin.Context) {
	var req dto.ReprocessRequest
	if !h.BindJSON(c, &req) {
		return
	}

	storeID, err := id.Parse(req.StoreID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid storeId"))
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId"))
		return
	}

	if err := h.engine.Reprocess(c.Request.Context(), storeID, productID, req.From, id.New()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reprocessing completed")
}
