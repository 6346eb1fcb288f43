package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"library-backend/internal/infrastructure/metrics"
	"library-backend/pkg/container"
)

const healthAddr = ":9999"

// startServices runs startup checks and exposes /health, /ready and /metrics
func startServices(c *container.Container) error {
	log.Info().Msg("============================================")
	log.Info().Msg("Library Worker Starting...")
	log.Info().Msg("============================================")

	if err := checkAll(c); err != nil {
		return err
	}

	go startHealthCheckServer(c)
	return nil
}

func checkAll(c *container.Container) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, err := range c.HealthCheck(ctx) {
		if err != nil {
			log.Error().Err(err).Str("check", name).Msg("[Startup] check failed")
			return fmt.Errorf("%s failed: %w", name, err)
		}
		log.Info().Str("check", name).Msg("[Startup] OK")
	}
	return nil
}

func healthRouter(c *container.Container) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "library-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		if err := checkAll(c); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return router
}

func startHealthCheckServer(c *container.Container) {
	log.Info().Str("addr", healthAddr).Msg("[Health] Starting health check server")
	if err := http.ListenAndServe(healthAddr, healthRouter(c)); err != nil {
		log.Error().Err(err).Msg("[Health] Failed to start")
	}
}
