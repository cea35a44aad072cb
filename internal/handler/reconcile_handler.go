package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradejournal/internal/middleware"
	"github.com/tradejournal/internal/service"
	"github.com/tradejournal/pkg/response"
)

// ReconcileHandler handles reconciliation API requests
type ReconcileHandler struct {
	reconcileService *service.ReconcileService
}

// NewReconcileHandler creates a new ReconcileHandler
func NewReconcileHandler(reconcileService *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// RegisterRoutes registers reconciliation routes
func (h *ReconcileHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/reconciliation", authMiddleware, h.ReconcileDay)
}

// ReconcileDay reconciles a user's fills for one day into legs and P&L
// GET /api/v1/reconciliation?date=2025-01-17
func (h *ReconcileHandler) ReconcileDay(c *gin.Context) {
	userID := middleware.GetUserID(c)

	dateStr := c.Query("date")
	if dateStr == "" {
		response.BadRequest(c, "date is required (YYYY-MM-DD)")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.reconcileService.ReconcileDay(c.Request.Context(), userID, day)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}
