package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/models"
	"github.com/inkwell-hq/inkwell/internal/security"
)

// UsersHandler manages user accounts via the admin portal.
type UsersHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(db *gorm.DB, recorder *audit.Recorder) *UsersHandler {
	return &UsersHandler{db: db, recorder: recorder}
}

// List returns all non-superuser accounts, newest first.
func (h *UsersHandler) List(c *gin.Context) {
	var users []models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_superuser = ?", false).
		Order("created_at DESC").
		Find(&users).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User list failed."})
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, user := range users {
		out = append(out, gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// createUserRequest defines the request body for user creation.
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Create creates a regular (non-staff) user account.
func (h *UsersHandler) Create(c *gin.Context) {
	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password required."})
		return
	}

	var existing models.User
	if errCheck := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error; errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already exists."})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User creation failed."})
		return
	}

	user := models.User{
		Username: username,
		Password: hash,
		Email:    strings.TrimSpace(body.Email),
		IsActive: true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already exists."})
		return
	}

	h.audit(c, audit.ActionAdminUserCreate, map[string]any{"username": user.Username})
	c.JSON(http.StatusCreated, gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
	})
}

// Get returns a single non-superuser account.
func (h *UsersHandler) Get(c *gin.Context) {
	user, found := h.findMutableUser(c)
	if !found {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
		"last_login": user.LastLogin,
	})
}

// updateUserRequest defines the request body for user updates.
// Pointer fields distinguish "absent" from "set to zero value".
type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

// Update modifies a non-superuser account.
func (h *UsersHandler) Update(c *gin.Context) {
	user, found := h.findMutableUser(c)
	if !found {
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}

	updates := map[string]any{}
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		updates["email"] = email
		user.Email = email
	}
	if body.Password != nil && *body.Password != "" {
		hash, errHash := security.HashPassword(*body.Password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "User update failed."})
			return
		}
		updates["password"] = hash
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
		user.IsActive = *body.IsActive
	}
	if len(updates) > 0 {
		if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "User update failed."})
			return
		}
	}

	h.audit(c, audit.ActionAdminUserUpdate, map[string]any{"user_id": user.ID, "username": user.Username})
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
	})
}

// Delete removes a non-superuser account. Audit rows referencing the user
// keep their data; the user reference nulls out via the FK constraint.
func (h *UsersHandler) Delete(c *gin.Context) {
	user, found := h.findMutableUser(c)
	if !found {
		return
	}
	username := user.Username
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&models.User{}, user.ID).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User deletion failed."})
		return
	}
	h.audit(c, audit.ActionAdminUserDelete, map[string]any{"username": username})
	c.Status(http.StatusNoContent)
}

// Ban deactivates a non-superuser account. The row is kept, not deleted.
func (h *UsersHandler) Ban(c *gin.Context) {
	user, found := h.findMutableUser(c)
	if !found {
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).Update("is_active", false).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User ban failed."})
		return
	}
	h.audit(c, audit.ActionAdminUserBan, map[string]any{"user_id": user.ID, "username": user.Username})
	c.JSON(http.StatusOK, gin.H{"is_active": false})
}

// Unban reactivates an account.
func (h *UsersHandler) Unban(c *gin.Context) {
	user, found := h.findUser(c)
	if !found {
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).Update("is_active", true).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User unban failed."})
		return
	}
	h.audit(c, audit.ActionAdminUserUnban, map[string]any{"user_id": user.ID, "username": user.Username})
	c.JSON(http.StatusOK, gin.H{"is_active": true})
}

// findUser loads the path user, writing the error response itself on
// failure.
func (h *UsersHandler) findUser(c *gin.Context) (*models.User, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user id."})
		return nil, false
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "User lookup failed."})
		return nil, false
	}
	return &user, true
}

// findMutableUser is findUser plus the superuser write-protection check.
func (h *UsersHandler) findMutableUser(c *gin.Context) (*models.User, bool) {
	user, found := h.findUser(c)
	if !found {
		return nil, false
	}
	if user.IsSuperuser {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot modify superuser."})
		return nil, false
	}
	return user, true
}

// audit records an admin action attributed to the current staff user.
func (h *UsersHandler) audit(c *gin.Context, action string, details map[string]any) {
	var userID *uint64
	if current, ok := internalhttp.CurrentUser(c); ok {
		userID = &current.ID
	}
	h.recorder.Record(c.Request.Context(), audit.Entry{
		UserID:    userID,
		IPAddress: internalhttp.ClientIP(c.Request),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
		Action:    action,
		Details:   details,
	})
}
