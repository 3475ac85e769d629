package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// canonicalEvent pins the field order of the hashed serialization.
// encoding/json emits struct fields in declaration order and sorts map
// keys, so the same event always canonicalizes to the same bytes.
// PreviousHash and EventHash are deliberately absent: the predecessor
// hash and timestamp are appended outside the JSON body.
type canonicalEvent struct {
	EventType    string         `json:"eventType"`
	UserID       string         `json:"userId"`
	SessionID    string         `json:"sessionId"`
	ServiceID    string         `json:"serviceId"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	IPAddress    string         `json:"ipAddress"`
	UserAgent    string         `json:"userAgent"`
	Details      map[string]any `json:"details"`
	RiskScore    float64        `json:"riskScore"`
	AnomalyFlags []string       `json:"anomalyFlags"`
}

// ComputeHash returns the lowercase hex SHA-256 of the event's canonical
// serialization concatenated with prevHash and the timestamp. Any change
// to a hashed field, the predecessor hash, or the timestamp yields a
// different digest.
func ComputeHash(e *Event, prevHash string, ts time.Time) string {
	body, err := json.Marshal(canonicalEvent{
		EventType:    e.EventType,
		UserID:       e.UserID,
		SessionID:    e.SessionID,
		ServiceID:    e.ServiceID,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Details:      e.Details,
		RiskScore:    e.RiskScore,
		AnomalyFlags: e.AnomalyFlags,
	})
	if err != nil {
		// Only unmarshalable Details values can land here; fold the
		// failure into the digest input rather than silently hashing an
		// empty body.
		body = []byte("canonicalize-error:" + err.Error())
	}

	sum := sha256.Sum256(append(append(body, prevHash...), ts.UTC().Format(time.RFC3339Nano)...))
	return hex.EncodeToString(sum[:])
}

// VerifyChain checks an oldest-first slice of events for linkage and
// recomputable hashes, starting from the genesis sentinel. It reports
// the first event that breaks the chain.
func VerifyChain(events []Event) error {
	return verifyFrom(events, Genesis)
}

// VerifyTail checks an oldest-first window of events that need not reach
// back to genesis: linkage is seeded from the first event's own
// PreviousHash, then every hash is recomputed and every link checked.
func VerifyTail(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	return verifyFrom(events, events[0].PreviousHash)
}

func verifyFrom(events []Event, prev string) error {
	for i := range events {
		e := &events[i]
		if e.PreviousHash != prev {
			return fmt.Errorf("event %s: previousHash %q does not link to %q", e.ID, e.PreviousHash, prev)
		}
		if got := ComputeHash(e, e.PreviousHash, e.Timestamp); got != e.EventHash {
			return fmt.Errorf("event %s: stored hash %q does not match recomputed %q", e.ID, e.EventHash, got)
		}
		prev = e.EventHash
	}
	return nil
}
