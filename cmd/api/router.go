package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/shared/middleware"
	"library-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		metrics.GinMiddleware(),
	)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthorRoutes(v1, c)
		setupBookRoutes(v1, c)
		setupLeaseRoutes(v1, c)
	}

	return router
}

// ========================================
// AUTHOR ROUTES
// ========================================
func setupAuthorRoutes(v1 *gin.RouterGroup, c *container.Container) {
	if c.AuthorHandler == nil {
		return
	}

	authors := v1.Group("/authors")
	{
		authors.GET("", c.AuthorHandler.List)
		authors.POST("", c.AuthorHandler.Create)
		authors.GET("/:id", c.AuthorHandler.GetByID)
		authors.DELETE("/:id", c.AuthorHandler.Delete)
		authors.GET("/:id/books", c.BookHandler.ListAuthorBooks)
		authors.POST("/:id/books", c.BookHandler.CreateAuthorBook)
	}
}

// ========================================
// BOOK ROUTES
// ========================================
func setupBookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	if c.BookHandler == nil {
		return
	}

	books := v1.Group("/books")
	{
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/:id", c.BookHandler.GetBookByID)
		books.DELETE("/:id", c.BookHandler.DeleteBook)
	}
}

// ========================================
// LEASE ROUTES
// ========================================
func setupLeaseRoutes(v1 *gin.RouterGroup, c *container.Container) {
	books := v1.Group("/books/:id")
	{
		toggle := []gin.HandlerFunc{middleware.RequireHolder()}
		if c.RateLimiter != nil {
			toggle = append(toggle, c.RateLimiter.Handler())
		}
		toggle = append(toggle, c.LeaseHandler.Toggle)

		books.PUT("/leases", toggle...)
		books.GET("/leases", c.LeaseHandler.History)
		books.GET("/leases/export", c.LeaseHandler.Export)
		books.GET("/availability", c.LeaseHandler.Availability)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		statusCode := http.StatusOK
		services := gin.H{}

		for name, err := range appCtx.HealthCheck(ctx) {
			if err != nil {
				services[name] = "error: " + err.Error()
				status = "degraded"
				if name == "database" {
					statusCode = http.StatusServiceUnavailable
				}
				continue
			}
			services[name] = "ok"
		}

		c.JSON(statusCode, gin.H{
			"status":      status,
			"timestamp":   time.Now().Format(time.RFC3339),
			"version":     appCtx.Config.App.Version,
			"lease_store": appCtx.Config.Lease.StoreDriver,
			"services":    services,
		})
	}
}
