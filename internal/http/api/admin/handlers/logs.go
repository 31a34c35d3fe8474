package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/models"
)

// Log listing limits: default when the limit query parameter is missing or
// unparseable, hard cap regardless of the requested value.
const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

// LogsHandler serves audit, traffic, and attack log reads.
type LogsHandler struct {
	db *gorm.DB
}

// NewLogsHandler constructs a LogsHandler.
func NewLogsHandler(db *gorm.DB) *LogsHandler {
	return &LogsHandler{db: db}
}

// Audit returns the newest audit rows.
func (h *LogsHandler) Audit(c *gin.Context) {
	var rows []models.AuditLog
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Order("created_at DESC").
		Limit(logLimit(c)).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Audit log read failed."})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		var username any
		if row.User != nil {
			username = row.User.Username
		}
		out = append(out, gin.H{
			"id":         row.ID,
			"user":       row.UserID,
			"username":   username,
			"ip_address": row.IPAddress,
			"path":       row.Path,
			"method":     row.Method,
			"action":     row.Action,
			"details":    row.Details,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Traffic returns the newest traffic rows with display-truncated user agents.
func (h *LogsHandler) Traffic(c *gin.Context) {
	var rows []models.TrafficLog
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(logLimit(c)).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Traffic log read failed."})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"ip_address":  row.IPAddress,
			"path":        row.Path,
			"method":      row.Method,
			"status_code": row.StatusCode,
			"user_agent":  audit.DisplayUserAgent(row.UserAgent),
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Attacks returns the newest unauthorized-attempt audit rows.
func (h *LogsHandler) Attacks(c *gin.Context) {
	var rows []models.AuditLog
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("action = ?", audit.ActionUnauthorizedAttempt).
		Order("created_at DESC").
		Limit(logLimit(c)).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Attack log read failed."})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"ip_address": row.IPAddress,
			"path":       row.Path,
			"method":     row.Method,
			"details":    row.Details,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// logLimit reads the limit query parameter and clamps it to the hard cap.
func logLimit(c *gin.Context) int {
	limit, errParse := strconv.Atoi(c.Query("limit"))
	if errParse != nil || limit <= 0 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}
