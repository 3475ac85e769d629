package password

import (
	"errors"
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2 {
	t.Helper()
	// Small but valid parameters keep the test fast.
	h, err := NewArgon2(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	ok, err := h.Verify("correct horse battery staple", encoded)
	if err != nil || !ok {
		t.Fatalf("correct password rejected: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong password", encoded)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher(t)

	a, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	heavy := testHasher(t)
	encoded, err := heavy.Hash("migrating user")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// A hasher with different costs must still verify old hashes.
	light, err := NewArgon2(Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	ok, err := light.Verify("migrating user", encoded)
	if err != nil || !ok {
		t.Fatalf("hash with embedded params rejected: ok=%v err=%v", ok, err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	h := testHasher(t)
	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$not-base64!$aGFzaA",
		"$argon2id$v=19$m=8192$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	} {
		if _, err := h.Verify("x", bad); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q): expected ErrMalformedHash, got %v", bad, err)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	weak := Config{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	if _, err := NewArgon2(weak); err == nil {
		t.Fatal("expected weak memory config to be rejected")
	}
	short := Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	if _, err := NewArgon2(short); err == nil {
		t.Fatal("expected short salt config to be rejected")
	}
}
