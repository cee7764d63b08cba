package user

import (
	"net/http"

	"github.com/cptrack/cptrack/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getDashboardStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, stats, "ok")
}

// getPublicUserStats serves another user's dashboard through the same
// aggregation path.
func (h *Handler) getPublicUserStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, stats, "ok")
}

func (h *Handler) getHeatmap(c *gin.Context) {
	heatmap, err := h.service.Heatmap(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, heatmap, "ok")
}

func (h *Handler) getContests(c *gin.Context) {
	total, rankings, err := h.service.Contests(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"total": total, "rankings": rankings}, "ok")
}

func (h *Handler) getAnalyticsData(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, analytics, "ok")
}

func (h *Handler) getAnalyticsProgress(c *gin.Context) {
	progress, err := h.service.Progress(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, progress, "ok")
}

func (h *Handler) getAnalyticsTrends(c *gin.Context) {
	trends, err := h.service.Trends(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, trends, "ok")
}

func (h *Handler) getDailyProblem(c *gin.Context) {
	daily, err := h.leetcode.FetchDailyProblem(c.Request.Context())
	if err != nil {
		util.Error(c, http.StatusServiceUnavailable, "daily problem unavailable")
		return
	}
	util.Success(c, daily, "ok")
}
