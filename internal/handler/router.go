package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/requestid"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger

	Tokens   middleware.TokenValidator
	Observer middleware.RequestObserver
	Audit    middleware.AuditWriter

	Auth          *AuthHandler
	Feed          *FeedHandler
	Events        *EventHandler
	Announcements *AnnouncementHandler
	Calendars     *CalendarHandler
	Welcome       *WelcomeHandler
	Notifications *NotificationHandler
	Metrics       *MetricsHandler
}

// NewRouter builds the HTTP engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logr := cfg.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", cfg.Metrics.Health)
	r.GET("/ready", cfg.Metrics.Ready)
	r.GET("/metrics", cfg.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", cfg.Auth.Login)
	auth.POST("/refresh", cfg.Auth.Refresh)
	auth.GET("/me", middleware.JWT(cfg.Tokens), cfg.Auth.Me)

	// Display surfaces are public.
	api.GET("/time", cfg.Feed.Time)
	api.GET("/signage/feed", cfg.Feed.Signage)
	api.GET("/welcome", cfg.Welcome.Public)
	api.GET("/welcome/media", cfg.Welcome.Media)

	member := api.Group("")
	member.Use(middleware.JWT(cfg.Tokens))
	member.POST("/auth/logout", cfg.Auth.Logout)
	member.GET("/feed", cfg.Feed.Feed)
	member.GET("/calendars", cfg.Calendars.List)
	member.GET("/calendars/:id", cfg.Calendars.Get)
	member.GET("/calendars/:id/ics", cfg.Calendars.ICS)
	member.GET("/events", cfg.Events.List)
	member.GET("/events/active", cfg.Events.Active)
	member.GET("/events/:id", cfg.Events.Get)
	member.GET("/announcements", cfg.Announcements.List)
	member.GET("/announcements/active", cfg.Announcements.Active)
	member.GET("/announcements/:id", cfg.Announcements.Get)
	member.GET("/notifications", cfg.Notifications.List)
	member.GET("/notifications/unread-count", cfg.Notifications.UnreadCount)
	member.POST("/notifications/read-all", cfg.Notifications.MarkAllRead)
	member.POST("/notifications/:id/read", cfg.Notifications.MarkRead)

	manage := api.Group("")
	manage.Use(middleware.JWT(cfg.Tokens), middleware.RequireContentManager())
	audited := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(cfg.Audit, logr, action, resource)
	}

	manage.GET("/events/export", cfg.Events.Export)
	manage.GET("/announcements/export", cfg.Announcements.Export)

	manage.POST("/calendars", audited("CREATE", "calendar"), cfg.Calendars.Create)
	manage.PUT("/calendars/:id", audited("UPDATE", "calendar"), cfg.Calendars.Update)
	manage.DELETE("/calendars/:id", audited("DELETE", "calendar"), cfg.Calendars.Delete)

	manage.POST("/events", audited("CREATE", "event"), cfg.Events.Create)
	manage.PUT("/events/:id", audited("UPDATE", "event"), cfg.Events.Update)
	manage.DELETE("/events/:id", audited("DELETE", "event"), cfg.Events.Delete)

	manage.POST("/announcements", audited("CREATE", "announcement"), cfg.Announcements.Create)
	manage.PUT("/announcements/:id", audited("UPDATE", "announcement"), cfg.Announcements.Update)
	manage.DELETE("/announcements/:id", audited("DELETE", "announcement"), cfg.Announcements.Delete)

	manage.GET("/welcome/assets", cfg.Welcome.List)
	manage.GET("/welcome/assets/:id", cfg.Welcome.Get)
	manage.POST("/welcome/assets", audited("CREATE", "welcome_asset"), cfg.Welcome.Create)
	manage.POST("/welcome/assets/reorder", audited("REORDER", "welcome_asset"), cfg.Welcome.Reorder)
	manage.PUT("/welcome/assets/:id", audited("UPDATE", "welcome_asset"), cfg.Welcome.Update)
	manage.DELETE("/welcome/assets/:id", audited("DELETE", "welcome_asset"), cfg.Welcome.Delete)

	manage.POST("/notifications", audited("CREATE", "notification"), cfg.Notifications.Create)

	return r
}
