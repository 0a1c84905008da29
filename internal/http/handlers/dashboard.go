package handlers

import (
	"net/http"

	"github.com/blong711/Proxy-Manager/internal/report"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the aggregated dashboard summary.
type DashboardHandler struct {
	reporter *report.Reporter
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(reporter *report.Reporter) *DashboardHandler {
	return &DashboardHandler{reporter: reporter}
}

// Summary returns the status histogram, expiring-soon list and billing rollups.
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, errSummary := h.reporter.Summary(c.Request.Context())
	if errSummary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
