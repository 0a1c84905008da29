// Package app wires configuration, storage, the check engine and the HTTP
// surface into a runnable service.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"github.com/blong711/Proxy-Manager/internal/checker"
	"github.com/blong711/Proxy-Manager/internal/config"
	"github.com/blong711/Proxy-Manager/internal/db"
	httpapi "github.com/blong711/Proxy-Manager/internal/http"
	"github.com/blong711/Proxy-Manager/internal/logging"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/report"
	"github.com/blong711/Proxy-Manager/internal/security"
	"github.com/blong711/Proxy-Manager/internal/settings"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds the assembled service.
type App struct {
	cfg    config.Config
	db     *gorm.DB
	engine *gin.Engine
	server *nethttp.Server
}

// New loads config, opens storage, runs migrations and wires the engine.
func New(configPath string) (*App, error) {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return nil, errLoad
	}
	logging.Setup(cfg.Log)

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		secret, errSecret := randomSecret()
		if errSecret != nil {
			return nil, errSecret
		}
		cfg.JWT.Secret = secret
		log.Warn("jwt secret not configured; generated an ephemeral one, sessions will not survive a restart")
	}

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return nil, errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errRefresh := settings.Refresh(bootCtx, conn); errRefresh != nil {
		return nil, errRefresh
	}
	if errSeed := seedAdminUser(bootCtx, conn); errSeed != nil {
		return nil, errSeed
	}

	app := &App{cfg: cfg, db: conn}
	app.engine = buildEngine(cfg, conn)
	app.server = &nethttp.Server{
		Addr:              cfg.Server.Listen,
		Handler:           app.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// buildEngine constructs the gin engine with all routes registered.
func buildEngine(cfg config.Config, conn *gorm.DB) *gin.Engine {
	proxies := store.NewProxyStore(conn, cfg.Policy.DeleteBound)
	accounts := store.NewAccountStore(conn)
	check := checker.NewChecker(cfg.Checker)
	orch := checker.NewOrchestrator(context.Background(), proxies, check, cfg.Checker)

	var cache *redis.Client
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	reporter := report.NewReporter(conn, proxies, cache, time.Duration(cfg.Redis.TTLSeconds)*time.Second)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:           conn,
		JWT:          cfg.JWT,
		Proxies:      proxies,
		Accounts:     accounts,
		Orchestrator: orch,
		Reporter:     reporter,
	})
	return engine
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", a.cfg.Server.Listen)
		if errServe := a.server.ListenAndServe(); errServe != nil && !errors.Is(errServe, nethttp.ErrServerClosed) {
			errCh <- errServe
			return
		}
		errCh <- nil
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := a.server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	return <-errCh
}

// Engine exposes the router, mainly for tests.
func (a *App) Engine() *gin.Engine {
	return a.engine
}

// seedAdminUser creates the initial admin when the user table is empty. The
// password comes from PROXY_MANAGER_ADMIN_PASSWORD or is generated and
// printed once.
func seedAdminUser(ctx context.Context, conn *gorm.DB) error {
	var total int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).Count(&total).Error; errCount != nil {
		return errCount
	}
	if total > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv("PROXY_MANAGER_ADMIN_PASSWORD"))
	generated := false
	if password == "" {
		secret, errSecret := randomSecret()
		if errSecret != nil {
			return errSecret
		}
		password = secret[:16]
		generated = true
	}

	hashed, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	admin := models.User{
		Username: "admin",
		Password: hashed,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}

	if generated {
		log.Warnf("created initial admin user with generated password: %s", password)
	} else {
		log.Info("created initial admin user")
	}
	return nil
}

// requestLogger logs one line per request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("request")
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("app: generate secret: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}
