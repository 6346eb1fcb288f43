package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/repository"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

// ReconcileHandler rebuilds every availability snapshot from one
// latest-per-book query. Scheduled by cron; repairs projections whose
// sync task was lost.
type ReconcileHandler struct {
	store    repository.Store
	cache    cache.Cache
	ttl      time.Duration
	now      func() time.Time
	onActive func(active int)
}

func NewReconcileHandler(store repository.Store, c cache.Cache, ttl time.Duration, onActive func(active int)) *ReconcileHandler {
	if onActive == nil {
		onActive = func(int) {}
	}
	return &ReconcileHandler{
		store:    store,
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
		onActive: onActive,
	}
}

func (h *ReconcileHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	start := h.now()

	heads, err := h.store.LatestPerBook(ctx, repository.HeadFilter{})
	if err != nil {
		logger.Error("Reconcile: latest per book failed", err)
		return err
	}

	active := 0
	for _, head := range heads {
		av := model.Resolve(head)
		if !av.Available {
			active++
		}
		if err := h.cache.Set(ctx, model.SnapshotKey(head.BookID), model.NewSnapshot(av, start), h.ttl); err != nil {
			return fmt.Errorf("write snapshot for book %d: %w", head.BookID, err)
		}
	}

	h.onActive(active)

	logger.Info("Reconcile: snapshots refreshed", map[string]interface{}{
		"books":         len(heads),
		"active_leases": active,
		"duration":      h.now().Sub(start).String(),
	})
	return nil
}
