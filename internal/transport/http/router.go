package httptransport

import (
	"html/template"
	"log/slog"

	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Session   *handler.SessionHandler
	User      *handler.UserHandler
	Dashboard *handler.DashboardHandler
}

type RouterConfig struct {
	Sessions  *session.Store
	Cookie    middleware.CookieConfig
	Templates *template.Template
	HSTS      bool
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, gate *middleware.Gate, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.HSTS))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(gate.Attach())

	r.SetHTMLTemplate(cfg.Templates)

	// Browser pages: session identity unless the client asks for JSON.
	web := r.Group("", middleware.Negotiate(), middleware.Sessions(cfg.Sessions, cfg.Cookie, logger))
	web.GET("/", h.Session.New)
	web.GET("/login", h.Session.New)
	web.POST("/login", h.Session.Create)
	web.GET("/signup", h.User.New)
	web.POST("/signup", h.User.Create)
	web.DELETE("/logout", h.Session.Destroy)
	web.POST("/logout", h.Session.Destroy)

	webProtected := web.Group("", gate.Authenticate(), gate.RequireLogin())
	webProtected.GET("/dashboard", h.Dashboard.Index)
	webProtected.GET("/users", h.User.Index)

	// API: always JSON, bearer identity.
	v1 := r.Group("/api/v1", middleware.ForceJSON())
	v1.POST("/auth/login", h.Session.Create)
	v1.POST("/auth/register", h.User.Create)
	v1.DELETE("/auth/logout", h.Session.Destroy)
	v1.POST("/auth/refresh", h.Session.Refresh)
	v1.GET("/users/me", h.User.Me)

	v1Protected := v1.Group("", gate.Authenticate(), gate.RequireLogin())
	v1Protected.GET("/users", h.User.Index)
	v1Protected.GET("/dashboard", h.Dashboard.Index)

	api := r.Group("/api", middleware.ForceJSON())
	api.POST("/login", h.Session.Create)
	api.POST("/register", h.User.Create)
	api.DELETE("/logout", h.Session.Destroy)
	api.POST("/refresh", h.Session.Refresh)
	api.GET("/me", h.User.Me)

	apiProtected := api.Group("", gate.Authenticate(), gate.RequireLogin())
	apiProtected.GET("/users", h.User.Index)
	apiProtected.GET("/dashboard", h.Dashboard.Index)

	return r
}
