package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
	"github.com/cptrack/cptrack/internal/tracker"
	"github.com/cptrack/cptrack/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func parsePlatform(s string) (models.Platform, bool) {
	switch models.Platform(s) {
	case models.PlatformLeetCode:
		return models.PlatformLeetCode, true
	case models.PlatformCodeforces:
		return models.PlatformCodeforces, true
	default:
		return "", false
	}
}

func (h *Handler) listPlatformProfiles(c *gin.Context) {
	userID := c.GetString("userID")
	profiles, err := database.GetPlatformProfiles(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, profiles, "ok")
}

// linkHandle validates the handle against the platform and runs the full sync
// in the request. HandleNotFound is the only upstream error surfaced
// verbatim; anything else is a generic failure.
func (h *Handler) linkHandle(c *gin.Context) {
	userID := c.GetString("userID")
	plat, ok := parsePlatform(c.Param("platform"))
	if !ok {
		util.Error(c, http.StatusBadRequest, "unknown platform")
		return
	}

	var req struct {
		Handle string `json:"handle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	profile, err := h.syncer.LinkHandle(c.Request.Context(), userID, plat, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, platform.ErrHandleNotFound):
			util.Error(c, http.StatusNotFound, "invalid handle")
		case errors.Is(err, tracker.ErrPlatformNotSupported):
			util.Error(c, http.StatusBadRequest, "platform not supported")
		default:
			zap.S().Errorf("handle link failed for user %s on %s: %v", userID, plat, err)
			util.Error(c, http.StatusInternalServerError, "failed to link handle")
		}
		return
	}
	util.Success(c, profile, "Handle linked and synced")
}

func (h *Handler) unlinkHandle(c *gin.Context) {
	userID := c.GetString("userID")
	plat, ok := parsePlatform(c.Param("platform"))
	if !ok {
		util.Error(c, http.StatusBadRequest, "unknown platform")
		return
	}

	if err := h.syncer.Unlink(c.Request.Context(), userID, plat); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "no handle linked for this platform")
			return
		}
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, nil, "Handle unlinked")
}

// resync re-runs the sync workflow in the background. Progress is streamed on
// the sync websocket; the request returns immediately.
func (h *Handler) resync(c *gin.Context) {
	userID := c.GetString("userID")
	plat, ok := parsePlatform(c.Param("platform"))
	if !ok {
		util.Error(c, http.StatusBadRequest, "unknown platform")
		return
	}

	profile, err := database.GetPlatformProfile(h.db, userID, plat)
	if err != nil {
		if database.IsNotFound(err) {
			util.Error(c, http.StatusNotFound, "no handle linked for this platform")
			return
		}
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	go func() {
		// Detached from the request lifetime; per-call timeouts inside the
		// syncer bound each upstream fetch.
		if _, err := h.syncer.LinkHandle(context.Background(), userID, plat, profile.Handle); err != nil {
			zap.S().Errorf("background resync failed for user %s on %s: %v", userID, plat, err)
		}
	}()

	c.JSON(http.StatusAccepted, util.Response{
		Code:    0,
		Data:    gin.H{"topic": tracker.SyncTopic(userID, plat)},
		Message: "Sync started",
	})
}
