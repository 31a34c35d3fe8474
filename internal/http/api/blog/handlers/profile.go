package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/models"
)

// ProfileHandler handles the current user's profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Me returns the current user's profile, creating it on first access.
func (h *ProfileHandler) Me(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	profile, errProfile := h.getOrCreateProfile(c, user.ID)
	if errProfile != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Profile lookup failed."})
		return
	}
	c.JSON(http.StatusOK, profileResponse(user, profile))
}

// updateProfileRequest defines the request body for profile updates.
// Pointer fields distinguish "absent" from "set to empty".
type updateProfileRequest struct {
	Bio         *string `json:"bio"`
	DisplayName *string `json:"display_name"`
}

// UpdateMe applies a partial update to the current user's profile.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}

	profile, errProfile := h.getOrCreateProfile(c, user.ID)
	if errProfile != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Profile lookup failed."})
		return
	}

	updates := map[string]any{}
	if body.Bio != nil {
		updates["bio"] = *body.Bio
		profile.Bio = *body.Bio
	}
	if body.DisplayName != nil {
		updates["display_name"] = *body.DisplayName
		profile.DisplayName = *body.DisplayName
	}
	if len(updates) > 0 {
		if errUpdate := h.db.WithContext(c.Request.Context()).Model(profile).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Profile update failed."})
			return
		}
	}
	c.JSON(http.StatusOK, profileResponse(user, profile))
}

// getOrCreateProfile loads the user's profile row, creating it lazily.
func (h *ProfileHandler) getOrCreateProfile(c *gin.Context, userID uint64) (*models.Profile, error) {
	var profile models.Profile
	errFind := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&profile).Error
	if errFind == nil {
		return &profile, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}
	profile = models.Profile{UserID: userID}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&profile).Error; errCreate != nil {
		return nil, errCreate
	}
	return &profile, nil
}

// profileResponse renders the profile JSON shape.
func profileResponse(user *models.User, profile *models.Profile) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"bio":          profile.Bio,
		"display_name": profile.DisplayName,
	}
}
