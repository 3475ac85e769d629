package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testIssuer runs a local JWKS endpoint with one RSA signing key.
type testIssuer struct {
	key     *rsa.PrivateKey
	kid     string
	server  *httptest.Server
	fetches atomic.Int64
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	iss := &testIssuer{key: key, kid: "test-key-1"}
	iss.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		iss.fetches.Add(1)
		doc := map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": iss.kid,
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(iss.server.Close)
	return iss
}

func (i *testIssuer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = i.kid
	signed, err := tok.SignedString(i.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestVerifier(iss *testIssuer) *Verifier {
	return NewVerifier(Config{
		GoogleAudiences: []string{"web-client", "ios-client"},
		AppleAudiences:  []string{"com.example.app"},
		GoogleJWKSURL:   iss.server.URL,
		GoogleIssuers:   []string{"https://test-issuer.example"},
		AppleJWKSURL:    iss.server.URL,
		AppleIssuers:    []string{"https://test-issuer.example"},
	})
}

func googleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://test-issuer.example",
		"aud":            "web-client",
		"sub":            "10769150350006150715113082367",
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice Example",
		"picture":        "https://example.com/alice.png",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func TestVerifyGoogle_Success(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	id, err := v.VerifyGoogle(context.Background(), iss.sign(t, googleClaims()))
	if err != nil {
		t.Fatalf("VerifyGoogle failed: %v", err)
	}
	if id.ProviderID != "10769150350006150715113082367" ||
		id.Email != "alice@example.com" ||
		!id.EmailVerified ||
		id.Name != "Alice Example" ||
		id.Provider != ProviderGoogle {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyGoogle_SecondAudienceAccepted(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	claims := googleClaims()
	claims["aud"] = "ios-client"
	if _, err := v.VerifyGoogle(context.Background(), iss.sign(t, claims)); err != nil {
		t.Fatalf("second configured audience rejected: %v", err)
	}
}

func TestVerifyGoogle_AudienceMismatch(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	claims := googleClaims()
	claims["aud"] = "someone-else"
	_, err := v.VerifyGoogle(context.Background(), iss.sign(t, claims))
	if err == nil || !strings.Contains(err.Error(), "audience") {
		t.Fatalf("expected audience mismatch, got %v", err)
	}
}

func TestVerifyGoogle_Expired(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	claims := googleClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err := v.VerifyGoogle(context.Background(), iss.sign(t, claims))
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected library expiry error to pass through, got %v", err)
	}
}

func TestVerifyGoogle_BadSignature(t *testing.T) {
	iss := newTestIssuer(t)
	other := newTestIssuer(t)
	v := newTestVerifier(iss)

	// Token signed by a different key under the same kid.
	other.kid = iss.kid
	_, err := v.VerifyGoogle(context.Background(), other.sign(t, googleClaims()))
	if err == nil {
		t.Fatal("token signed by the wrong key verified")
	}
}

func TestVerifyApple_OmittedNameIsNotAnError(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	id, err := v.VerifyApple(context.Background(), iss.sign(t, jwt.MapClaims{
		"iss":            "https://test-issuer.example",
		"aud":            "com.example.app",
		"sub":            "001234.abcdef",
		"email":          "relay@privaterelay.appleid.com",
		"email_verified": "true", // Apple's string spelling
		"exp":            time.Now().Add(time.Hour).Unix(),
	}))
	if err != nil {
		t.Fatalf("VerifyApple failed: %v", err)
	}
	if id.Name != "" || id.Picture != "" {
		t.Fatalf("expected empty name/picture, got %+v", id)
	}
	if !id.EmailVerified || id.Provider != ProviderApple {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerify_MissingEmailFailsInvalidClaims(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)

	claims := googleClaims()
	delete(claims, "email")
	_, err := v.VerifyGoogle(context.Background(), iss.sign(t, claims))
	if !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	iss := newTestIssuer(t)
	v := NewVerifier(Config{GoogleJWKSURL: iss.server.URL})
	_, err := v.VerifyGoogle(context.Background(), "anything")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestKeyCache_SingleFetchAcrossVerifications(t *testing.T) {
	iss := newTestIssuer(t)
	v := newTestVerifier(iss)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := v.VerifyGoogle(ctx, iss.sign(t, googleClaims())); err != nil {
			t.Fatalf("verification %d failed: %v", i, err)
		}
	}
	if got := iss.fetches.Load(); got != 1 {
		t.Fatalf("expected one JWKS fetch, got %d", got)
	}
}
