package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/bans"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
)

// BannedIPsHandler manages the IP ban list.
type BannedIPsHandler struct {
	store    *bans.Store
	recorder *audit.Recorder
}

// NewBannedIPsHandler constructs a BannedIPsHandler.
func NewBannedIPsHandler(store *bans.Store, recorder *audit.Recorder) *BannedIPsHandler {
	return &BannedIPsHandler{store: store, recorder: recorder}
}

// List returns all banned addresses, newest first.
func (h *BannedIPsHandler) List(c *gin.Context) {
	rows, errList := h.store.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Ban list read failed."})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"ip_address": row.IPAddress,
			"reason":     row.Reason,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// banRequest defines the request body for banning an address.
type banRequest struct {
	IPAddress string `json:"ip_address"`
	Reason    string `json:"reason"`
}

// Create bans an address.
func (h *BannedIPsHandler) Create(c *gin.Context) {
	var body banRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	ip := strings.TrimSpace(body.IPAddress)
	if ip == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "ip_address required."})
		return
	}

	banned, errBan := h.store.Ban(c.Request.Context(), ip, strings.TrimSpace(body.Reason))
	if errBan != nil {
		if errors.Is(errBan, bans.ErrAlreadyBanned) {
			c.JSON(http.StatusConflict, gin.H{"detail": "IP already banned."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Ban failed."})
		return
	}

	h.audit(c, audit.ActionAdminIPBan, map[string]any{"ip_address": banned.IPAddress})
	c.JSON(http.StatusCreated, gin.H{
		"id":         banned.ID,
		"ip_address": banned.IPAddress,
		"reason":     banned.Reason,
	})
}

// Delete lifts a ban by row id.
func (h *BannedIPsHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid ban id."})
		return
	}

	banned, errUnban := h.store.Unban(c.Request.Context(), id)
	if errUnban != nil {
		if errors.Is(errUnban, bans.ErrNotBanned) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Unban failed."})
		return
	}

	h.audit(c, audit.ActionAdminIPUnban, map[string]any{"ip_address": banned.IPAddress})
	c.Status(http.StatusNoContent)
}

// audit records an admin action attributed to the current staff user.
func (h *BannedIPsHandler) audit(c *gin.Context, action string, details map[string]any) {
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
