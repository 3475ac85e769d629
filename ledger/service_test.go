package ledger

import (
	"context"
	"sync"
	"testing"
	"time"
)

// chainStore is an in-memory Store that counts tail reads so the tests
// can assert the initialize-once contract.
type chainStore struct {
	mu        sync.Mutex
	events    []Event
	tailReads int
	readDelay time.Duration
}

func (c *chainStore) Append(_ context.Context, fn func(prevHash string) (*Event, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := Genesis
	if n := len(c.events); n > 0 {
		prev = c.events[n-1].EventHash
	}
	ev, err := fn(prev)
	if err != nil {
		return err
	}
	c.events = append(c.events, *ev)
	return nil
}

func (c *chainStore) TailHash(_ context.Context) (string, error) {
	c.mu.Lock()
	c.tailReads++
	delay := c.readDelay
	c.mu.Unlock()

	// Widen the race window for the concurrent-initialize test.
	time.Sleep(delay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.events); n > 0 {
		return c.events[n-1].EventHash, nil
	}
	return Genesis, nil
}

func (c *chainStore) ReadEvents(_ context.Context, q Query) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Event
	for i := len(c.events) - 1; i >= 0; i-- {
		e := c.events[i]
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.EventType != "" && e.EventType != q.EventType {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func TestService_GenesisAndLinkage(t *testing.T) {
	store := &chainStore{}
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Log(ctx, Event{EventType: EventLoginSuccess, UserID: "u1"})
	if err != nil {
		t.Fatalf("first Log failed: %v", err)
	}
	if first.PreviousHash != Genesis {
		t.Fatalf("first event previousHash = %q, want %q", first.PreviousHash, Genesis)
	}
	if first.ID == "" || first.Timestamp.IsZero() {
		t.Fatal("Log must fill ID and Timestamp")
	}

	second, err := svc.Log(ctx, Event{EventType: EventTokenCreated, UserID: "u1"})
	if err != nil {
		t.Fatalf("second Log failed: %v", err)
	}
	if second.PreviousHash != first.EventHash {
		t.Fatalf("second event previousHash = %q, want first eventHash %q", second.PreviousHash, first.EventHash)
	}

	if err := VerifyChain(store.events); err != nil {
		t.Fatalf("persisted chain failed verification: %v", err)
	}
}

func TestService_InitializeOnce(t *testing.T) {
	store := &chainStore{readDelay: 10 * time.Millisecond}
	svc := NewService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Initialize(ctx); err != nil {
				t.Errorf("Initialize failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.tailReads != 1 {
		t.Fatalf("expected exactly one tail read, got %d", store.tailReads)
	}
	if svc.LastHash() != Genesis {
		t.Fatalf("cursor = %q, want genesis", svc.LastHash())
	}
}

func TestService_ConcurrentAppendsNeverFork(t *testing.T) {
	store := &chainStore{}
	svc := NewService(store)
	ctx := context.Background()

	const writers = 24
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Log(ctx, Event{EventType: EventDataRead, UserID: "u1"}); err != nil {
				t.Errorf("Log failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(store.events) != writers {
		t.Fatalf("expected %d events, got %d", writers, len(store.events))
	}
	seen := map[string]string{}
	for _, e := range store.events {
		if prior, dup := seen[e.PreviousHash]; dup {
			t.Fatalf("forked chain: events %s and %s share previousHash %s", prior, e.ID, e.PreviousHash)
		}
		seen[e.PreviousHash] = e.ID
	}
	if err := VerifyChain(store.events); err != nil {
		t.Fatalf("chain failed verification: %v", err)
	}
}

func TestService_QueryFilters(t *testing.T) {
	store := &chainStore{}
	svc := NewService(store)
	ctx := context.Background()

	for _, in := range []Event{
		{EventType: EventLoginSuccess, UserID: "u1"},
		{EventType: EventLoginFailure, UserID: "u2"},
		{EventType: EventLoginFailure, UserID: "u1"},
	} {
		if _, err := svc.Log(ctx, in); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := svc.Query(ctx, Query{UserID: "u1", EventType: EventLoginFailure})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u1" || got[0].EventType != EventLoginFailure {
		t.Fatalf("unexpected query result: %+v", got)
	}

	limited, err := svc.Query(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: got %d events", len(limited))
	}
	// Newest first.
	if !limited[0].Timestamp.After(limited[1].Timestamp) && !limited[0].Timestamp.Equal(limited[1].Timestamp) {
		t.Fatal("query results are not newest-first")
	}
}
