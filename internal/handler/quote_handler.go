package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/application"
	"github.com/fletes-app/service-quote/internal/common/response"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

// QuoteHandler handles the public quote endpoints.
type QuoteHandler struct {
	service *application.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(service *application.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// RegisterRoutes registers all quote routes on the given router group.
func (h *QuoteHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/quote", h.Preview)
	r.POST("/api/quote/send", h.Send)

	quotes := r.Group("/api/quotes")
	{
		quotes.GET("/:id", h.GetQuote)
		quotes.GET("/:id/pdf", h.GetQuotePDF)
	}
}

// Preview handles POST /api/quote.
func (h *QuoteHandler) Preview(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Send handles POST /api/quote/send.
func (h *QuoteHandler) Send(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetQuote handles GET /api/quotes/:id.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetQuotePDF handles GET /api/quotes/:id/pdf.
func (h *QuoteHandler) GetQuotePDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	out, number, err := h.service.RenderPDF(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "presupuesto-"+number+".pdf"))
	c.Data(http.StatusOK, "application/pdf", out)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
