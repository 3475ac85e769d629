package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// Type is the short tag embedded in a raw token between the "ps_" prefix
// and the random segment.
type Type string

const (
	// TypeSession tags interactive user session tokens.
	TypeSession Type = "sess"
	// TypeService tags service-to-service tokens.
	TypeService Type = "svc"
	// TypeMCP tags MCP client tokens.
	TypeMCP Type = "mcp"
	// TypeDevice tags long-lived device refresh tokens.
	TypeDevice Type = "dev"
)

const (
	wirePrefix = "ps_"

	// randomBytes is 32 bytes of crypto/rand entropy; RawURLEncoding of
	// 32 bytes is always exactly 43 characters.
	randomBytes = 32
	segmentLen  = 43

	// PrefixLength is how many leading characters of the raw token are
	// persisted for candidate lookup.
	PrefixLength = 12
)

var knownTypes = [...]Type{TypeSession, TypeService, TypeMCP, TypeDevice}

// Token carries the three artifacts derived from one minting: the raw
// value (shown to the caller once), its SHA-256 hex digest, and the
// stored lookup prefix.
type Token struct {
	Raw    string
	Hash   string
	Prefix string
}

// Generate mints a raw token of the given type together with its stored
// artifacts. The raw value draws 32 bytes from crypto/rand, so two calls
// never collide in practice.
func Generate(t Type) (Token, error) {
	if !knownType(t) {
		return Token{}, ErrUnknownType
	}

	var seed [randomBytes]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return Token{}, err
	}

	raw := wirePrefix + string(t) + "_" + base64.RawURLEncoding.EncodeToString(seed[:])
	return Token{
		Raw:    raw,
		Hash:   HashRaw(raw),
		Prefix: PrefixOf(raw),
	}, nil
}

// HashRaw returns the lowercase hex SHA-256 digest of a raw token. The
// digest is what the store persists and compares against.
func HashRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// PrefixOf returns the stored lookup prefix of a raw token.
func PrefixOf(raw string) string {
	if len(raw) < PrefixLength {
		return raw
	}
	return raw[:PrefixLength]
}

// IsValidFormat reports whether raw has the exact ps_<type>_<43 chars>
// shape with a known type tag and a well-formed base64url segment.
func IsValidFormat(raw string) bool {
	_, ok := TypeOf(raw)
	return ok
}

// TypeOf extracts the type tag from a raw token. The random segment may
// itself contain underscores (base64url alphabet), so the token is
// parsed front-to-back rather than split.
func TypeOf(raw string) (Type, bool) {
	rest, ok := strings.CutPrefix(raw, wirePrefix)
	if !ok {
		return "", false
	}

	for _, t := range knownTypes {
		seg, ok := strings.CutPrefix(rest, string(t)+"_")
		if !ok {
			continue
		}
		if validSegment(seg) {
			return t, true
		}
		return "", false
	}
	return "", false
}

func knownType(t Type) bool {
	for _, k := range knownTypes {
		if t == k {
			return true
		}
	}
	return false
}

func validSegment(seg string) bool {
	if len(seg) != segmentLen {
		return false
	}
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// ErrUnknownType is returned by Generate for a type tag outside the
// accepted set.
var ErrUnknownType = errors.New("unknown token type")
