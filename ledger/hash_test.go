package ledger

import (
	"strings"
	"testing"
	"time"
)

func baseEvent() Event {
	return Event{
		ID:        "ev-1",
		EventType: EventLoginSuccess,
		UserID:    "u1",
		SessionID: "s1",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
		Details:   map[string]any{"method": "password", "attempt": float64(1)},
		RiskScore: 0.1,
	}
}

func TestComputeHash_Deterministic(t *testing.T) {
	e := baseEvent()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	h1 := ComputeHash(&e, Genesis, ts)
	h2 := ComputeHash(&e, Genesis, ts)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 || h1 != strings.ToLower(h1) {
		t.Fatalf("hash must be 64 lowercase hex chars, got %q", h1)
	}
}

func TestComputeHash_Avalanche(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	base := baseEvent()
	variants := map[string]func() string{
		"different event field": func() string {
			e := baseEvent()
			e.UserID = "u2"
			return ComputeHash(&e, Genesis, ts)
		},
		"different details": func() string {
			e := baseEvent()
			e.Details = map[string]any{"method": "oauth"}
			return ComputeHash(&e, Genesis, ts)
		},
		"different prevHash": func() string {
			e := baseEvent()
			return ComputeHash(&e, "0000", ts)
		},
		"different timestamp": func() string {
			e := baseEvent()
			return ComputeHash(&e, Genesis, ts.Add(time.Nanosecond))
		},
	}

	want := ComputeHash(&base, Genesis, ts)
	seen := map[string]string{"base": want}
	for name, fn := range variants {
		got := fn()
		for prior, h := range seen {
			if got == h {
				t.Fatalf("%s collides with %s: %s", name, prior, got)
			}
		}
		seen[name] = got
	}
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var events []Event
	prev := Genesis
	for i := 0; i < 3; i++ {
		e := baseEvent()
		e.ID = "ev-" + string(rune('a'+i))
		e.Timestamp = ts.Add(time.Duration(i) * time.Second)
		e.PreviousHash = prev
		e.EventHash = ComputeHash(&e, prev, e.Timestamp)
		prev = e.EventHash
		events = append(events, e)
	}

	if err := VerifyChain(events); err != nil {
		t.Fatalf("intact chain failed verification: %v", err)
	}

	// Mutating an early event must break every later link.
	tampered := make([]Event, len(events))
	copy(tampered, events)
	tampered[0].UserID = "intruder"
	if err := VerifyChain(tampered); err == nil {
		t.Fatal("tampered chain passed verification")
	}
}
