package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestDispatcher_DeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(DispatcherConfig{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{ID: "e1", EventType: EventLoginSuccess})

	select {
	case got := <-sink.Events():
		if got.ID != "e1" {
			t.Fatalf("unexpected event %q", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("event never reached sink")
	}
}

func TestDispatcher_DisabledIsNil(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}
	// nil receivers are no-ops, not panics.
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

// blockingSink parks deliveries until released so the buffer can fill.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	seen    int
}

func (s *blockingSink) Emit(_ context.Context, _ Event) {
	<-s.release
	s.mu.Lock()
	s.seen++
	s.mu.Unlock()
}

func TestDispatcher_DropIfFullCountsDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event occupies the worker, one fills the buffer; the rest drop.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), Event{})
	}

	close(sink.release)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if uint64(sink.seen)+d.Dropped() != 6 {
		t.Fatalf("delivered %d + dropped %d != emitted 6", sink.seen, d.Dropped())
	}
}

func TestJSONWriterSink_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{ID: "e1", EventType: EventDataRead})
	sink.Emit(context.Background(), Event{ID: "e2", EventType: EventDataRead})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal(lines[0], &ev); err != nil || ev.ID != "e1" {
		t.Fatalf("first line did not decode to e1: %v", err)
	}
}
