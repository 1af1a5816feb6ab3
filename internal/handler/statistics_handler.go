package handler

import (
	"net/http"
	"time"

	"taller/internal/service"
	"taller/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", h.GetStatistics)
		statsGroup.GET("/ledger", h.GetLedgerBalances)
	}
}

// parseBound accepts RFC3339 or a plain YYYY-MM-DD. A plain end date covers the whole day.
func parseBound(value string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, true
}

// @Summary      Get Dashboard Statistics
// @Description  Repair revenue, pending balances, orders and material consumption bounded by time
// @Tags         Statistics
// @Produce      json
// @Param        start_date query string false "Start date (RFC3339 or YYYY-MM-DD, default first day of the month)"
// @Param        end_date   query string false "End date (RFC3339 or YYYY-MM-DD, default now)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	if raw := c.Query("start_date"); raw != "" {
		var ok bool
		if startDate, ok = parseBound(raw, false); !ok {
			badRequest(c, "invalid start_date format, expected RFC3339 or YYYY-MM-DD")
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		var ok bool
		if endDate, ok = parseBound(raw, true); !ok {
			badRequest(c, "invalid end_date format, expected RFC3339 or YYYY-MM-DD")
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// @Summary      Ledger reconciliation for every material
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} response.Response{data=[]model.LedgerBalance}
// @Security     BearerAuth
// @Router       /api/statistics/ledger [get]
func (h *StatisticsHandler) GetLedgerBalances(c *gin.Context) {
	balances, err := h.statisticsService.GetLedgerBalances(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, balances))
}
