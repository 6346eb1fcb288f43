package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"library-backend/internal/domains/lease/model"
)

// MemoryStore is an in-process Store. It enforces the same invariants as the
// postgres store (one outstanding record per book, single return) and is used
// by tests and by LEASE_STORE=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	books   map[int64]*sync.Mutex
	ledgers map[int64][]*model.LeaseRecord
	byID    map[int64]*model.LeaseRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[int64]*sync.Mutex),
		ledgers: make(map[int64][]*model.LeaseRecord),
		byID:    make(map[int64]*model.LeaseRecord),
	}
}

// AddBook registers catalog book ids. Ledgers can only be locked for known books.
func (s *MemoryStore) AddBook(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.books[id]; !ok {
			s.books[id] = &sync.Mutex{}
		}
	}
}

// RemoveBook drops a book that has no ledger.
func (s *MemoryStore) RemoveBook(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ledgers[id]) > 0 {
		return fmt.Errorf("%w: book %d has lease records", model.ErrIntegrityViolation, id)
	}
	delete(s.books, id)
	return nil
}

// Exists reports whether the book is registered.
func (s *MemoryStore) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.books[id]
	return ok, nil
}

func (s *MemoryStore) Latest(ctx context.Context, bookID int64) (*model.LeaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestLocked(bookID), nil
}

func (s *MemoryStore) Append(ctx context.Context, bookID int64, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(bookID, holderID, leasedAt)
}

func (s *MemoryStore) MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReturnedLocked(recordID, returnedAt)
}

func (s *MemoryStore) ListByBook(ctx context.Context, bookID int64) ([]model.LeaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.ledgers[bookID]
	out := make([]model.LeaseRecord, 0, len(ledger))
	for _, rec := range ledger {
		out = append(out, copyRecord(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LeasedAt.Equal(out[j].LeasedAt) {
			return out[i].LeasedAt.Before(out[j].LeasedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) LatestPerBook(ctx context.Context, filter HeadFilter) ([]model.BookHead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	if len(filter.BookIDs) > 0 {
		seen := make(map[int64]struct{}, len(filter.BookIDs))
		for _, id := range filter.BookIDs {
			if _, ok := s.books[id]; !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	} else {
		ids = make([]int64, 0, len(s.books))
		for id := range s.books {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	heads := make([]model.BookHead, 0, len(ids))
	for _, id := range ids {
		heads = append(heads, model.BookHead{BookID: id, Latest: s.latestLocked(id)})
	}
	return heads, nil
}

func (s *MemoryStore) WithBookLock(ctx context.Context, bookID int64, fn func(Ledger) error) error {
	s.mu.RLock()
	bookMu, ok := s.books[bookID]
	s.mu.RUnlock()
	if !ok {
		return model.NewBookNotFoundError(bookID)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	bookMu.Lock()
	defer bookMu.Unlock()

	l := &memLedger{store: s, bookID: bookID}
	if err := fn(l); err != nil {
		l.rollback()
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════════
// INTERNALS (caller holds s.mu)
// ════════════════════════════════════════════════════════════════

func (s *MemoryStore) latestLocked(bookID int64) *model.LeaseRecord {
	var head *model.LeaseRecord
	for _, rec := range s.ledgers[bookID] {
		if head == nil ||
			rec.LeasedAt.After(head.LeasedAt) ||
			(rec.LeasedAt.Equal(head.LeasedAt) && rec.ID > head.ID) {
			head = rec
		}
	}
	if head == nil {
		return nil
	}
	c := copyRecord(head)
	return &c
}

func (s *MemoryStore) appendLocked(bookID int64, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	if _, ok := s.books[bookID]; !ok {
		return nil, fmt.Errorf("%w: book %d does not exist", model.ErrIntegrityViolation, bookID)
	}
	for _, rec := range s.ledgers[bookID] {
		if rec.IsActive() {
			return nil, fmt.Errorf("%w: concurrent active lease", model.ErrAborted)
		}
	}

	s.nextID++
	rec := &model.LeaseRecord{
		ID:       s.nextID,
		BookID:   bookID,
		HolderID: holderID,
		LeasedAt: leasedAt.UTC(),
	}
	s.ledgers[bookID] = append(s.ledgers[bookID], rec)
	s.byID[rec.ID] = rec

	c := copyRecord(rec)
	return &c, nil
}

func (s *MemoryStore) markReturnedLocked(recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	rec, ok := s.byID[recordID]
	if !ok {
		return nil, model.NewLeaseNotFoundError(recordID)
	}
	if !rec.IsActive() {
		return nil, model.NewAlreadyReturnedError(recordID)
	}

	t := returnedAt.UTC()
	rec.ReturnedAt = &t

	c := copyRecord(rec)
	return &c, nil
}

func (s *MemoryStore) removeLocked(recordID int64) {
	rec, ok := s.byID[recordID]
	if !ok {
		return
	}
	delete(s.byID, recordID)
	ledger := s.ledgers[rec.BookID]
	for i, r := range ledger {
		if r.ID == recordID {
			s.ledgers[rec.BookID] = append(ledger[:i], ledger[i+1:]...)
			break
		}
	}
}

func copyRecord(rec *model.LeaseRecord) model.LeaseRecord {
	c := *rec
	if rec.ReturnedAt != nil {
		t := *rec.ReturnedAt
		c.ReturnedAt = &t
	}
	return c
}

// memLedger records undo steps so a failed callback leaves no trace
type memLedger struct {
	store  *MemoryStore
	bookID int64
	undo   []func()
}

func (l *memLedger) BookID() int64 { return l.bookID }

func (l *memLedger) Latest(ctx context.Context) (*model.LeaseRecord, error) {
	return l.store.Latest(ctx, l.bookID)
}

func (l *memLedger) Append(ctx context.Context, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := l.store.Append(ctx, l.bookID, holderID, leasedAt)
	if err != nil {
		return nil, err
	}
	id := rec.ID
	l.undo = append(l.undo, func() { l.store.removeLocked(id) })
	return rec, nil
}

func (l *memLedger) MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := l.store.MarkReturned(ctx, recordID, returnedAt)
	if err != nil {
		return nil, err
	}
	l.undo = append(l.undo, func() {
		if r, ok := l.store.byID[recordID]; ok {
			r.ReturnedAt = nil
		}
	})
	return rec, nil
}

func (l *memLedger) rollback() {
	if len(l.undo) == 0 {
		return
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for i := len(l.undo) - 1; i >= 0; i-- {
		l.undo[i]()
	}
	l.undo = nil
}
