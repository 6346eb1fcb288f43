package main

import (
	"github.com/hibiken/asynq"

	leaseJob "library-backend/internal/domains/lease/job"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/shared"
	"library-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	availabilitySync *leaseJob.AvailabilitySyncHandler
	reconcile        *leaseJob.ReconcileHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	ttl := c.Config.Job.SnapshotTTL

	return &HandlerRegistry{
		availabilitySync: leaseJob.NewAvailabilitySyncHandler(c.Resolver, c.Cache, ttl),
		reconcile:        leaseJob.NewReconcileHandler(c.LeaseStore, c.Cache, ttl, metrics.SetActiveLeases),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeLeaseAvailabilitySync, h.availabilitySync.ProcessTask)
	mux.HandleFunc(shared.TypeLeaseReconcile, h.reconcile.ProcessTask)
}
