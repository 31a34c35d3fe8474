// Package audit appends security and traffic events to the database.
// Writes are best-effort observability, not a correctness dependency:
// every failure is discarded after a warning and a metric tick.
package audit

import (
	"context"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/metrics"
	"github.com/inkwell-hq/inkwell/internal/models"
)

// Audit action tags.
const (
	ActionLogin               = "login"
	ActionLogout              = "logout"
	ActionAdminSetup          = "admin_setup"
	ActionAdminLogin          = "admin_login"
	ActionAdminLogout         = "admin_logout"
	ActionAdminUserCreate     = "admin_user_create"
	ActionAdminUserUpdate     = "admin_user_update"
	ActionAdminUserDelete     = "admin_user_delete"
	ActionAdminUserBan        = "admin_user_ban"
	ActionAdminUserUnban      = "admin_user_unban"
	ActionAdminIPBan          = "admin_ip_ban"
	ActionAdminIPUnban        = "admin_ip_unban"
	ActionUnauthorizedAttempt = "unauthorized_attempt"
)

// maxUserAgentLen caps stored user-agent strings.
const maxUserAgentLen = 500

// displayUserAgentLen caps user-agent strings in list responses.
const displayUserAgentLen = 80

// Entry describes one audit event.
type Entry struct {
	UserID    *uint64        // Acting user, nil for anonymous events.
	IPAddress string         // Resolved client address.
	Path      string         // Request path.
	Method    string         // Request method.
	Action    string         // One of the Action constants.
	Details   map[string]any // Free-form event context.
}

// Recorder appends audit and traffic rows.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one audit row. The error, if any, is dropped here on
// purpose: audit logging never fails the request it describes.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	row := models.AuditLog{
		UserID:    entry.UserID,
		IPAddress: entry.IPAddress,
		Path:      entry.Path,
		Method:    entry.Method,
		Action:    entry.Action,
		Details:   datatypes.JSONMap(entry.Details),
	}
	if row.Details == nil {
		row.Details = datatypes.JSONMap{}
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		metrics.AuditLogDrops.Inc()
		log.WithError(errCreate).WithField("action", entry.Action).Warn("audit log write dropped")
	}
}

// Traffic appends one traffic row for a completed request. Errors are
// dropped the same way as Record.
func (r *Recorder) Traffic(ctx context.Context, ip, path, method string, statusCode int, userAgent string) {
	row := models.TrafficLog{
		IPAddress:  ip,
		Path:       path,
		Method:     method,
		StatusCode: statusCode,
		UserAgent:  TruncateUserAgent(userAgent),
	}
	if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		metrics.TrafficLogDrops.Inc()
		log.WithError(errCreate).Warn("traffic log write dropped")
	}
}

// TruncateUserAgent caps a user-agent string to the stored length.
func TruncateUserAgent(userAgent string) string {
	if len(userAgent) > maxUserAgentLen {
		return truncateAtRuneBoundary(userAgent, maxUserAgentLen)
	}
	return userAgent
}

// DisplayUserAgent shortens a stored user-agent string for list responses.
func DisplayUserAgent(userAgent string) string {
	if len(userAgent) > displayUserAgentLen {
		return truncateAtRuneBoundary(userAgent, displayUserAgentLen) + "..."
	}
	return userAgent
}

// truncateAtRuneBoundary cuts s to at most n bytes without splitting a
// multi-byte rune. The caller guarantees n < len(s).
func truncateAtRuneBoundary(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
