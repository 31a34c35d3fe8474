// Package admin registers the self-service admin portal routes.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/bans"
	"github.com/inkwell-hq/inkwell/internal/config"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/http/api/admin/handlers"
)

// RegisterAdminRoutes registers the admin portal under /api/admin. Status,
// setup, and login are reachable without a session (the pipeline allow-list
// matches them); everything else behind staffRequiredMiddleware.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, sessionCfg config.SessionConfig, store *bans.Store, recorder *audit.Recorder) {
	grp := r.Group("/api/admin")

	setupHandler := handlers.NewSetupHandler(db, sessionCfg, recorder)
	grp.GET("/status/", setupHandler.Status)
	grp.POST("/setup/", setupHandler.Setup)

	authHandler := handlers.NewAuthHandler(db, sessionCfg, recorder)
	grp.POST("/login/", authHandler.Login)
	grp.POST("/logout/", authHandler.Logout)

	staff := grp.Group("", staffRequiredMiddleware())
	staff.GET("/me/", authHandler.Me)

	usersHandler := handlers.NewUsersHandler(db, recorder)
	staff.GET("/users/", usersHandler.List)
	staff.POST("/users/", usersHandler.Create)
	staff.GET("/users/:id/", usersHandler.Get)
	staff.PUT("/users/:id/", usersHandler.Update)
	staff.DELETE("/users/:id/", usersHandler.Delete)
	staff.POST("/users/:id/ban/", usersHandler.Ban)
	staff.POST("/users/:id/unban/", usersHandler.Unban)

	logsHandler := handlers.NewLogsHandler(db)
	staff.GET("/audit/", logsHandler.Audit)
	staff.GET("/traffic/", logsHandler.Traffic)
	staff.GET("/attacks/", logsHandler.Attacks)

	bannedIPsHandler := handlers.NewBannedIPsHandler(store, recorder)
	staff.GET("/banned-ips/", bannedIPsHandler.List)
	staff.POST("/banned-ips/", bannedIPsHandler.Create)
	staff.DELETE("/banned-ips/:id/", bannedIPsHandler.Delete)
}

// staffRequiredMiddleware rejects non-staff sessions. Unauthenticated
// requests are normally cut off earlier with 401 by the pipeline; this gate
// turns any that reach it, and all non-staff sessions, into 403.
func staffRequiredMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := internalhttp.CurrentUser(c)
		if !ok || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Forbidden"})
			return
		}
		c.Next()
	}
}
