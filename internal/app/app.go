package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/bans"
	"github.com/inkwell-hq/inkwell/internal/config"
	"github.com/inkwell-hq/inkwell/internal/db"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/http/api/admin"
	"github.com/inkwell-hq/inkwell/internal/http/api/blog"
)

// landingPage is served at the root path. The real front-end is deployed
// separately behind the same proxy; this keeps bare hits presentable.
const landingPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Inkwell</title></head>
<body><h1>Inkwell</h1><p>The blog API is running. See /api/posts/ for the public feed.</p></body>
</html>`

// Migrate opens the database and runs schema migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the blog platform: database, ban store, audit recorder,
// the middleware pipeline, and all route groups. Blocks until ctx is
// canceled or the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Infof("ban cache enabled via redis at %s", cfg.Redis.Addr)
	}

	store := bans.NewStore(conn, cache)
	recorder := audit.NewRecorder(conn)
	engine := NewEngine(conn, cfg, store, recorder)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown")
		}
	}()

	log.Infof("listening on %s", cfg.Server.Addr)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}
	return nil
}

// NewEngine assembles the gin engine with the fixed middleware order:
// security headers, ban check, traffic log, session resolution,
// unauthorized-access enforcement. The order is load-bearing: the ban check
// must short-circuit before the traffic logger registers anything, and the
// traffic logger must observe the unauthorized 401s.
func NewEngine(conn *gorm.DB, cfg config.Config, store *bans.Store, recorder *audit.Recorder) *gin.Engine {
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		internalhttp.SecurityHeadersMiddleware(),
		internalhttp.BlockBannedIPMiddleware(store),
		internalhttp.TrafficLogMiddleware(recorder),
		internalhttp.SessionMiddleware(conn, cfg.Session),
		internalhttp.UnauthorizedAccessMiddleware(recorder),
	)

	blog.RegisterBlogRoutes(engine, conn, cfg.Session, recorder)
	admin.RegisterAdminRoutes(engine, conn, cfg.Session, store, recorder)

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
	})
	engine.GET("/health/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/status/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "inkwell"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return engine
}
