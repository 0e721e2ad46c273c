package router

import (
	"net/http"

	"chronos/app/handler"
	"chronos/app/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	taskHandler   *handler.TaskHandler
	rosterHandler *handler.RosterHandler
	reportHandler *handler.ReportHandler
	auditHandler  *handler.AuditHandler

	apiKey      string
	corsOrigins []string
}

// NewRouter creates a new Router
func NewRouter(taskHandler *handler.TaskHandler, rosterHandler *handler.RosterHandler, reportHandler *handler.ReportHandler, auditHandler *handler.AuditHandler) *Router {
	return &Router{
		taskHandler:   taskHandler,
		rosterHandler: rosterHandler,
		reportHandler: reportHandler,
		auditHandler:  auditHandler,
	}
}

// WithAPIKey protects mutating routes, an empty key leaves them open
func (r *Router) WithAPIKey(apiKey string) *Router {
	r.apiKey = apiKey
	return r
}

// WithCORSOrigins sets the dashboard origins allowed to call the API
func (r *Router) WithCORSOrigins(origins []string) *Router {
	r.corsOrigins = origins
	return r
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(cors.New(corsConfig(r.corsOrigins)))

	api := engine.Group("/api/v1")
	{
		api.GET("/dashboard", r.taskHandler.Dashboard)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", r.taskHandler.ListTasks)
			tasks.GET("/:id", r.taskHandler.GetTask)
		}

		employees := api.Group("/employees")
		{
			employees.GET("", r.rosterHandler.ListEmployees)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", r.rosterHandler.ListProjects)
			projects.GET("/:name/dependencies", r.reportHandler.DependencyOptions)
			projects.GET("/:name/dependencies/suggest-start", r.reportHandler.SuggestStart)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/late", r.reportHandler.LateTasks)
			reports.GET("/timeline", r.reportHandler.Timeline)
			reports.GET("/performance", r.reportHandler.Performance)
		}

		if r.auditHandler != nil {
			api.GET("/audit", r.auditHandler.ListEvents)
		}

		// Mutating routes
		write := api.Group("")
		write.Use(middleware.AuthMiddleware(r.apiKey))
		{
			write.POST("/refresh", r.taskHandler.Refresh)

			write.POST("/tasks", r.taskHandler.CreateTasks)
			write.PUT("/tasks/:id", r.taskHandler.UpdateTask)
			write.DELETE("/tasks/:id", r.taskHandler.DeleteTask)

			write.PUT("/rows/:index", r.taskHandler.UpdateRow)
			write.DELETE("/rows/:index", r.taskHandler.DeleteRow)

			write.POST("/employees", r.rosterHandler.AddEmployee)
			write.PUT("/employees/:id", r.rosterHandler.RenameEmployee)
			write.DELETE("/employees/:name", r.rosterHandler.DeleteEmployee)

			write.POST("/projects", r.rosterHandler.AddProject)
			write.PUT("/projects/:id", r.rosterHandler.RenameProject)
			write.DELETE("/projects/:name", r.rosterHandler.DeleteProject)
		}
	}

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// corsConfig allows every origin when origins is empty or contains "*"
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-API-Key", middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
