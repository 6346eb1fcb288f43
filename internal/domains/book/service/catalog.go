package service

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/domains/book/repository"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

const DefaultExistsTTL = 15 * time.Minute

func existsKey(bookID int64) string {
	return fmt.Sprintf("book:exists:%d", bookID)
}

// CatalogLookup answers "does this book exist" for the lease engine.
// Positive answers are cached; a cache failure falls through to the database.
type CatalogLookup struct {
	repo  repository.RepositoryInterface
	cache cache.Cache
	ttl   time.Duration
}

func NewCatalogLookup(repo repository.RepositoryInterface, c cache.Cache, ttl time.Duration) *CatalogLookup {
	if ttl <= 0 {
		ttl = DefaultExistsTTL
	}
	return &CatalogLookup{repo: repo, cache: c, ttl: ttl}
}

func (l *CatalogLookup) Exists(ctx context.Context, bookID int64) (bool, error) {
	if bookID <= 0 {
		return false, nil
	}

	key := existsKey(bookID)
	if l.cache != nil {
		var cached bool
		found, err := l.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("book exists cache read failed", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
		} else if found && cached {
			return true, nil
		}
	}

	exists, err := l.repo.Exists(ctx, bookID)
	if err != nil {
		return false, err
	}

	// misses are not cached, a book created right after must be seen
	if exists && l.cache != nil {
		if err := l.cache.Set(ctx, key, true, l.ttl); err != nil {
			logger.Warn("book exists cache write failed", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
		}
	}
	return exists, nil
}

// Invalidate drops the cached answer after a delete.
func (l *CatalogLookup) Invalidate(ctx context.Context, bookID int64) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, existsKey(bookID)); err != nil {
		logger.Warn("book exists cache invalidate failed", map[string]interface{}{
			"book_id": bookID,
			"error":   err.Error(),
		})
	}
}
