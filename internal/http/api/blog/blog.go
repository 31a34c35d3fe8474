// Package blog registers the public-facing blog API routes.
package blog

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/config"
	"github.com/inkwell-hq/inkwell/internal/http/api/blog/handlers"
)

// RegisterBlogRoutes registers auth, profile, and post routes under /api.
// Session enforcement for the protected routes happens in the pipeline's
// unauthorized-access stage; handlers still verify the session user.
func RegisterBlogRoutes(r *gin.Engine, db *gorm.DB, sessionCfg config.SessionConfig, recorder *audit.Recorder) {
	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(db, sessionCfg, recorder)
	api.POST("/auth/register/", authHandler.Register)
	api.POST("/auth/login/", authHandler.Login)
	api.POST("/auth/logout/", authHandler.Logout)

	profileHandler := handlers.NewProfileHandler(db)
	api.GET("/auth/me/", profileHandler.Me)
	api.PUT("/auth/me/", profileHandler.UpdateMe)

	postsHandler := handlers.NewPostsHandler(db)
	api.GET("/posts/", postsHandler.PublicList)
	api.GET("/my-posts/", postsHandler.ListMine)
	api.POST("/my-posts/", postsHandler.CreateMine)
	api.GET("/my-posts/:id/", postsHandler.GetMine)
	api.PUT("/my-posts/:id/", postsHandler.UpdateMine)
}
