package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/config"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/models"
	"github.com/inkwell-hq/inkwell/internal/security"
)

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 8

// errSetupConflict marks a lost race or repeated setup inside the
// bootstrap transaction.
var errSetupConflict = errors.New("admin already configured")

// SetupHandler handles one-time admin bootstrap.
type SetupHandler struct {
	db         *gorm.DB
	sessionCfg config.SessionConfig
	recorder   *audit.Recorder
}

// NewSetupHandler constructs a SetupHandler.
func NewSetupHandler(db *gorm.DB, sessionCfg config.SessionConfig, recorder *audit.Recorder) *SetupHandler {
	return &SetupHandler{db: db, sessionCfg: sessionCfg, recorder: recorder}
}

// Status reports whether admin bootstrap has completed. Public, and never
// errors: a missing row or a failed read both mean "not configured".
func (h *SetupHandler) Status(c *gin.Context) {
	configured := false
	var setup models.AdminSetup
	if errFind := h.db.WithContext(c.Request.Context()).First(&setup, models.AdminSetupID).Error; errFind == nil {
		configured = setup.Configured
	}
	c.JSON(http.StatusOK, gin.H{"configured": configured})
}

// setupRequest defines the request body for bootstrap.
type setupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Setup performs one-time admin bootstrap: creates the staff superuser,
// flips the singleton flag, and logs the new admin in. The flag flip and
// user creation are a single transaction; the singleton's fixed primary key
// guarantees at most one caller ever succeeds.
func (h *SetupHandler) Setup(c *gin.Context) {
	var setup models.AdminSetup
	if errFind := h.db.WithContext(c.Request.Context()).First(&setup, models.AdminSetupID).Error; errFind == nil && setup.Configured {
		c.JSON(http.StatusConflict, gin.H{"detail": "Admin is already configured."})
		return
	}

	var body setupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required."})
		return
	}
	if len(body.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must be at least 8 characters."})
		return
	}

	var existing models.User
	if errCheck := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error; errCheck == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already exists."})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Setup failed."})
		return
	}

	now := time.Now().UTC()
	admin := models.User{
		Username:    username,
		Password:    hash,
		IsStaff:     true,
		IsSuperuser: true,
		IsActive:    true,
		LastLogin:   &now,
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AdminSetup{}).
			Where("id = ? AND configured = ?", models.AdminSetupID, false).
			Update("configured", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// No unconfigured row to flip: either the row is missing and we
			// claim it, or another caller already configured it and the
			// fixed primary key makes this insert fail.
			if errCreate := tx.Create(&models.AdminSetup{ID: models.AdminSetupID, Configured: true}).Error; errCreate != nil {
				return errSetupConflict
			}
		}
		if errCreate := tx.Create(&admin).Error; errCreate != nil {
			// Unique username index: a concurrent setup or registration won.
			return errSetupConflict
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, errSetupConflict) {
			c.JSON(http.StatusConflict, gin.H{"detail": "Admin is already configured."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Setup failed."})
		return
	}

	token, errToken := security.GenerateSessionToken(h.sessionCfg.Secret, admin.ID, admin.Username, h.sessionCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Setup failed."})
		return
	}
	internalhttp.SetSessionCookie(c, h.sessionCfg, token)

	h.recorder.Record(c.Request.Context(), audit.Entry{
		UserID:    &admin.ID,
		IPAddress: internalhttp.ClientIP(c.Request),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
		Action:    audit.ActionAdminSetup,
		Details:   map[string]any{"username": admin.Username},
	})
	c.JSON(http.StatusCreated, gin.H{
		"id":       admin.ID,
		"username": admin.Username,
	})
}
