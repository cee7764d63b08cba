package user

import (
	"net/http"

	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getUserProfile(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}

	profiles, err := database.GetPlatformProfiles(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"user": user, "platforms": profiles}, "ok")
}

func (h *Handler) updateUserProfile(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}
	var reqBody struct {
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&reqBody); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	user.Nickname = reqBody.Nickname
	if reqBody.AvatarURL != "" {
		user.AvatarURL = reqBody.AvatarURL
	}
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, user, "Profile updated")
}

// deleteUserAccount unlinks every platform first so imported history and
// cached aggregates never outlive the account.
func (h *Handler) deleteUserAccount(c *gin.Context) {
	userID := c.GetString("userID")

	profiles, err := database.GetPlatformProfiles(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	for _, profile := range profiles {
		if err := h.syncer.Unlink(c.Request.Context(), userID, profile.Platform); err != nil {
			util.Error(c, http.StatusInternalServerError, err)
			return
		}
	}

	if err := database.DeleteUser(h.db, userID); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	zap.S().Infof("user account %s deleted", userID)
	util.Success(c, nil, "Account deleted")
}
