package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fletes-app/service-quote/internal/application"
	"github.com/fletes-app/service-quote/internal/common/response"
)

// AvailabilityHandler handles the calendar endpoints.
type AvailabilityHandler struct {
	service *application.AvailabilityService
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(service *application.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// RegisterRoutes registers the public and admin calendar routes.
func (h *AvailabilityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/availability", h.PublicMonth)

	admin := r.Group("/api/admin")
	{
		admin.GET("/availability", h.AdminMonth)
		admin.POST("/availability/day", h.UpsertDay)
		admin.GET("/bookings/day", h.BookedSlots)
	}
}

// PublicMonth handles GET /api/availability?month=YYYY-MM.
func (h *AvailabilityHandler) PublicMonth(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.BadRequest(c, "month is required")
		return
	}

	days, err := h.service.PublicMonth(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"month": month, "days": days})
}

// AdminMonth handles GET /api/admin/availability?month=YYYY-MM.
func (h *AvailabilityHandler) AdminMonth(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.BadRequest(c, "month is required")
		return
	}

	days, err := h.service.AdminMonth(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"month": month, "items": days})
}

// UpsertDay handles POST /api/admin/availability/day.
func (h *AvailabilityHandler) UpsertDay(c *gin.Context) {
	var req application.UpsertDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpsertDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BookedSlots handles GET /api/admin/bookings/day?date=YYYY-MM-DD.
func (h *AvailabilityHandler) BookedSlots(c *gin.Context) {
	date := c.Query("date")
	slots, err := h.service.BookedSlots(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"date": date, "ocupados": slots})
}
