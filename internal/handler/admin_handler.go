package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fletes-app/service-quote/internal/application"
	"github.com/fletes-app/service-quote/internal/common/response"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

// AdminRequestHandler handles the admin requests inbox.
type AdminRequestHandler struct {
	ledger *application.SlotLedger
}

// NewAdminRequestHandler creates a new AdminRequestHandler.
func NewAdminRequestHandler(ledger *application.SlotLedger) *AdminRequestHandler {
	return &AdminRequestHandler{ledger: ledger}
}

// RegisterRoutes registers admin request routes.
func (h *AdminRequestHandler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/api/requests")
	{
		requests.GET("", h.ListRequests)
		requests.POST("/:id/confirm", h.ConfirmRequest)
		requests.POST("/:id/reject", h.RejectRequest)
		requests.DELETE("/:id", h.DeleteRequest)
	}
}

// ListRequests handles GET /api/requests?status=pending|historicos|all.
func (h *AdminRequestHandler) ListRequests(c *gin.Context) {
	view, err := quote.ParseView(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.ledger.List(c.Request.Context(), view)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"status": view, "items": items})
}

// ConfirmRequest handles POST /api/requests/:id/confirm.
func (h *AdminRequestHandler) ConfirmRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.ledger.Confirm(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RejectRequest handles POST /api/requests/:id/reject.
func (h *AdminRequestHandler) RejectRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.ledger.Reject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteRequest handles DELETE /api/requests/:id. Only rejected requests can be deleted.
func (h *AdminRequestHandler) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"id": id, "deleted": true})
}
