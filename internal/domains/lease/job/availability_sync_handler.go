package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/service"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AvailabilitySyncHandler refreshes the cached availability projection of one
// book after a committed transition.
type AvailabilitySyncHandler struct {
	resolver service.AvailabilityReader
	cache    cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewAvailabilitySyncHandler(resolver service.AvailabilityReader, c cache.Cache, ttl time.Duration) *AvailabilitySyncHandler {
	return &AvailabilitySyncHandler{
		resolver: resolver,
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
	}
}

// ProcessTask
// 1. Parse payload.
// 2. Resolve availability from the ledger (never from the payload).
// 3. Write the snapshot to lease:book:{id}:availability.
func (h *AvailabilitySyncHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.AvailabilitySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("AvailabilitySync: failed to unmarshal payload", err)
		return fmt.Errorf("unmarshal availability sync payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.BookID <= 0 {
		return fmt.Errorf("availability sync: invalid book_id %d: %w", payload.BookID, asynq.SkipRetry)
	}

	key := model.SnapshotKey(payload.BookID)

	av, err := h.resolver.GetAvailability(ctx, payload.BookID)
	if errors.Is(err, model.ErrBookNotFound) {
		// book deleted since the event was queued
		return h.cache.Delete(ctx, key)
	}
	if err != nil {
		logger.Error("AvailabilitySync: resolve failed", err)
		return err
	}

	snapshot := model.NewSnapshot(*av, h.now())
	if err := h.cache.Set(ctx, key, snapshot, h.ttl); err != nil {
		return fmt.Errorf("write availability snapshot: %w", err)
	}

	logger.Info("AvailabilitySync: cache updated", map[string]interface{}{
		"book_id":     payload.BookID,
		"available":   snapshot.Available,
		"outcome":     payload.Outcome,
		"lease_id":    payload.LeaseID,
		"correlation": payload.CorrelationID,
	})

	return nil
}
