package token

import (
	"strings"
	"testing"
)

func TestGenerate_FormatRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeSession, TypeService, TypeMCP, TypeDevice} {
		tok, err := Generate(typ)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", typ, err)
		}

		if !IsValidFormat(tok.Raw) {
			t.Fatalf("Generate(%s) produced invalid format: %q", typ, tok.Raw)
		}

		got, ok := TypeOf(tok.Raw)
		if !ok || got != typ {
			t.Fatalf("TypeOf(%q) = %q, %v; want %q", tok.Raw, got, ok, typ)
		}

		if !strings.HasPrefix(tok.Raw, "ps_"+string(typ)+"_") {
			t.Fatalf("raw token %q missing ps_%s_ prefix", tok.Raw, typ)
		}
	}
}

func TestGenerate_Artifacts(t *testing.T) {
	tok, err := Generate(TypeSession)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(tok.Hash) != 64 || tok.Hash != strings.ToLower(tok.Hash) {
		t.Fatalf("hash must be 64 lowercase hex chars, got %q", tok.Hash)
	}
	if tok.Hash != HashRaw(tok.Raw) {
		t.Fatal("stored hash does not match HashRaw of the raw token")
	}
	// Hashing is deterministic.
	if HashRaw(tok.Raw) != HashRaw(tok.Raw) {
		t.Fatal("HashRaw is not deterministic")
	}

	if tok.Prefix != tok.Raw[:PrefixLength] {
		t.Fatalf("prefix %q is not the first %d chars of the raw token", tok.Prefix, PrefixLength)
	}
}

func TestGenerate_UniqueAcrossCalls(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := Generate(TypeDevice)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, dup := seen[tok.Raw]; dup {
			t.Fatalf("duplicate raw token after %d generations", i)
		}
		seen[tok.Raw] = struct{}{}
	}
}

func TestGenerate_UnknownType(t *testing.T) {
	if _, err := Generate(Type("sid")); err != ErrUnknownType {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestIsValidFormat_Rejections(t *testing.T) {
	good, err := Generate(TypeSession)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	bad := []string{
		"",
		"ps_",
		"ps_sess_",
		"ps_sid_" + good.Raw[8:],             // unknown tag
		"xx_sess_" + good.Raw[8:],            // wrong wire prefix
		good.Raw[:len(good.Raw)-1],           // truncated segment
		good.Raw + "A",                       // oversized segment
		"ps_sess_" + strings.Repeat("!", 43), // invalid alphabet
	}
	for _, raw := range bad {
		if IsValidFormat(raw) {
			t.Fatalf("IsValidFormat(%q) = true, want false", raw)
		}
	}
}

func TestTypeOf_SegmentMayContainUnderscores(t *testing.T) {
	// The base64url alphabet includes '_'; a parser that splits on
	// underscores would misread this token.
	raw := "ps_dev_" + strings.Repeat("_", 43)
	typ, ok := TypeOf(raw)
	if !ok || typ != TypeDevice {
		t.Fatalf("TypeOf(%q) = %q, %v; want dev, true", raw, typ, ok)
	}
}
