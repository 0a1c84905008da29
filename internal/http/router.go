package http

import (
	"github.com/blong711/Proxy-Manager/internal/checker"
	"github.com/blong711/Proxy-Manager/internal/config"
	"github.com/blong711/Proxy-Manager/internal/http/handlers"
	"github.com/blong711/Proxy-Manager/internal/report"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	DB           *gorm.DB
	JWT          config.JWTConfig
	Proxies      *store.ProxyStore
	Accounts     *store.AccountStore
	Orchestrator *checker.Orchestrator
	Reporter     *report.Reporter
}

// RegisterRoutes wires all API routes onto the engine.
func RegisterRoutes(engine *gin.Engine, deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.DB)
	engine.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	engine.POST("/api/auth/login", authHandler.Login)

	authed := engine.Group("/api", AuthMiddleware(deps.JWT.Secret))
	authed.GET("/auth/me", withActor(authHandler.Me))

	proxyHandler := handlers.NewProxyHandler(deps.Proxies, deps.Orchestrator)
	authed.GET("/proxies", proxyHandler.List)
	authed.POST("/proxies", withActor(proxyHandler.Create))
	authed.POST("/proxies/import", withActor(proxyHandler.Import))
	authed.POST("/proxies/check-all", proxyHandler.CheckAll)
	authed.GET("/proxies/check-all/:job_id", proxyHandler.CheckJob)
	authed.GET("/proxies/:id", proxyHandler.Get)
	authed.PUT("/proxies/:id", proxyHandler.Update)
	authed.DELETE("/proxies/:id", proxyHandler.Delete)
	authed.POST("/proxies/:id/check", proxyHandler.CheckOne)

	accountHandler := handlers.NewAccountHandler(deps.Accounts)
	authed.GET("/accounts", accountHandler.List)
	authed.POST("/accounts", accountHandler.Create)
	authed.GET("/accounts/:id", accountHandler.Get)
	authed.PUT("/accounts/:id", accountHandler.Update)
	authed.DELETE("/accounts/:id", accountHandler.Delete)

	providerHandler := handlers.NewProviderHandler(deps.DB)
	authed.GET("/providers", providerHandler.List)
	authed.POST("/providers", providerHandler.Create)
	authed.GET("/providers/:id", providerHandler.Get)
	authed.PUT("/providers/:id", providerHandler.Update)
	authed.DELETE("/providers/:id", providerHandler.Delete)

	dashboardHandler := handlers.NewDashboardHandler(deps.Reporter)
	authed.GET("/dashboard", dashboardHandler.Summary)

	settingsHandler := handlers.NewSettingsHandler(deps.DB)
	admin := authed.Group("", RequireAdmin())
	admin.GET("/settings", settingsHandler.List)
	admin.PUT("/settings/:key", settingsHandler.Put)
}

// withActor adapts an actor-taking handler to a gin handler.
func withActor(fn handlers.ActorHandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing actor"})
			return
		}
		fn(c, actor)
	}
}
