package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/glowcup/pkg/api/handlers"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup/schema"
	"github.com/urmzd/glowcup/pkg/db"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	svc       *core.Service
	history   db.DispatchStore
	validator *schema.Validator
}

// NewRouter creates a new API router. history may be nil, in which case
// the dispatch history routes are not registered.
func NewRouter(svc *core.Service, history db.DispatchStore, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:    engine,
		svc:       svc,
		history:   history,
		validator: validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(r.svc)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		scanHandler := handlers.NewScanHandler(r.svc)
		v1.POST("/scan", scanHandler.StartScan)
		v1.DELETE("/scan", scanHandler.StopScan)

		cupsHandler := handlers.NewCupsHandler(r.svc)
		cups := v1.Group("/cups")
		{
			cups.GET("", cupsHandler.ListCups)
			cups.GET("/:id", cupsHandler.GetCup)
			cups.POST("/:id/connect", cupsHandler.Connect)
			cups.POST("/:id/disconnect", cupsHandler.Disconnect)
			cups.POST("/:id/select", cupsHandler.Select)
			cups.DELETE("/:id/select", cupsHandler.Deselect)
		}

		selection := v1.Group("/selection")
		{
			selection.GET("", cupsHandler.GetSelection)
			selection.POST("/all", cupsHandler.SelectAll)
			selection.DELETE("", cupsHandler.DeselectAll)
		}

		commandsHandler := handlers.NewCommandsHandler(r.svc, r.validator)
		commands := v1.Group("/commands")
		{
			commands.POST("/color", commandsHandler.SetColor)
			commands.POST("/brightness", commandsHandler.SetBrightness)
			commands.POST("/mode", commandsHandler.SetMode)
			commands.POST("/battery", commandsHandler.QueryBattery)
		}

		stateHandler := handlers.NewStateHandler(r.svc)
		v1.GET("/state", stateHandler.GetState)
		v1.GET("/state/events", stateHandler.Events)

		eventsHandler := handlers.NewEventsHandler(r.svc.Events())
		v1.GET("/events", eventsHandler.List)
		v1.GET("/events/stream", eventsHandler.Stream)

		if r.history != nil {
			dispatchesHandler := handlers.NewDispatchesHandler(r.history)
			v1.GET("/dispatches", dispatchesHandler.List)
			v1.GET("/dispatches/:id", dispatchesHandler.Get)
		}
	}
}

// Handler returns the engine as an http.Handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
