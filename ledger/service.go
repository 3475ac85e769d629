package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the write path of the audit chain. It is safe for
// concurrent use; all cross-writer coordination happens inside
// [Store.Append]'s locked transaction.
type Service struct {
	store Store

	mu          sync.Mutex
	initialized bool
	// cursor mirrors the chain tail after the last append seen by this
	// process. It is observability state only; Append re-reads the
	// persisted tail under the chain lock and never trusts this value.
	cursor string
}

// NewService creates a ledger service on the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Initialize primes the in-process cursor from the persisted chain tail.
// It is idempotent and safe to call concurrently: exactly one tail read
// is performed no matter how many callers race the first use, and a
// failed read leaves the service uninitialized so the next call retries.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	tail, err := s.store.TailHash(ctx)
	if err != nil {
		return err
	}
	if tail == "" {
		tail = Genesis
	}

	s.cursor = tail
	s.initialized = true
	return nil
}

// Log appends one event to the chain. ID and Timestamp are filled when
// absent; PreviousHash and EventHash are always computed here, against
// the tail hash read inside the same transaction that inserts the row.
func (s *Service) Log(ctx context.Context, e Event) (*Event, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var appended *Event
	err := s.store.Append(ctx, func(prevHash string) (*Event, error) {
		ev := e
		ev.PreviousHash = prevHash
		ev.EventHash = ComputeHash(&ev, prevHash, ev.Timestamp)
		appended = &ev
		return &ev, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cursor = appended.EventHash
	s.mu.Unlock()

	return appended, nil
}

// Query returns events matching q, newest first. It never mutates chain
// state.
func (s *Service) Query(ctx context.Context, q Query) ([]Event, error) {
	return s.store.ReadEvents(ctx, q)
}

// LastHash returns the cursor as of the last append or initialization
// observed by this process.
func (s *Service) LastHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
