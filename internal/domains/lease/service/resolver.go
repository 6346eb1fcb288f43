package service

import (
	"context"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/repository"
)

// Resolver derives availability from the ledger. It never stores a flag:
// every answer goes through model.IsAvailable on the latest record.
type Resolver struct {
	store   repository.Store
	catalog CatalogLookup
}

func NewResolver(store repository.Store, catalog CatalogLookup) *Resolver {
	return &Resolver{store: store, catalog: catalog}
}

func (r *Resolver) GetAvailability(ctx context.Context, bookID int64) (*model.BookAvailability, error) {
	if err := r.requireBook(ctx, bookID); err != nil {
		return nil, err
	}

	latest, err := r.store.Latest(ctx, bookID)
	if err != nil {
		return nil, err
	}

	availability := model.Resolve(model.BookHead{BookID: bookID, Latest: latest})
	return &availability, nil
}

// ListBooksByAvailability returns catalog book ids in ascending order.
func (r *Resolver) ListBooksByAvailability(ctx context.Context, available bool) ([]int64, error) {
	heads, err := r.store.LatestPerBook(ctx, repository.HeadFilter{})
	if err != nil {
		return nil, err
	}
	return model.FilterHeads(heads, available), nil
}

// AvailabilityByBook resolves many books in one query. Unknown ids are absent from the map.
func (r *Resolver) AvailabilityByBook(ctx context.Context, bookIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	heads, err := r.store.LatestPerBook(ctx, repository.HeadFilter{BookIDs: bookIDs})
	if err != nil {
		return nil, err
	}
	for _, h := range heads {
		out[h.BookID] = model.IsAvailable(h.Latest)
	}
	return out, nil
}

// GetLeaseHistory returns the book's ledger ordered by leased_at ascending.
func (r *Resolver) GetLeaseHistory(ctx context.Context, bookID int64) ([]model.LeaseRecord, error) {
	if err := r.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	return r.store.ListByBook(ctx, bookID)
}

func (r *Resolver) requireBook(ctx context.Context, bookID int64) error {
	exists, err := r.catalog.Exists(ctx, bookID)
	if err != nil {
		return catalogError(err)
	}
	if !exists {
		return model.NewBookNotFoundError(bookID)
	}
	return nil
}
