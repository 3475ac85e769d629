package oauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider identifies the identity issuer.
type Provider string

const (
	// ProviderGoogle verifies Google Sign-In ID tokens.
	ProviderGoogle Provider = "google"
	// ProviderApple verifies Sign in with Apple ID tokens.
	ProviderApple Provider = "apple"
)

var (
	// ErrNotConfigured is returned when a provider has no audience
	// configured.
	ErrNotConfigured = errors.New("oauth provider not configured")
	// ErrInvalidClaims is returned when a cryptographically valid token
	// lacks a required claim (subject or email).
	ErrInvalidClaims = errors.New("oauth token missing required claims")
)

// Identity is the normalized result of a verified ID token. Name and
// Picture are best-effort; Apple usually omits both.
type Identity struct {
	ProviderID    string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Provider      Provider
}

// Config tunes the verifier. Only the audience lists are required; the
// endpoint and issuer fields exist so tests can stand up their own
// issuer and default to the real providers.
type Config struct {
	GoogleAudiences []string
	AppleAudiences  []string

	HTTPClient  *http.Client
	KeyCacheTTL time.Duration

	GoogleJWKSURL string
	GoogleIssuers []string
	AppleJWKSURL  string
	AppleIssuers  []string
}

const (
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	appleJWKSURL  = "https://appleid.apple.com/auth/keys"
)

var (
	// Google tokens appear with either issuer spelling in the wild.
	googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}
	appleIssuers  = []string{"https://appleid.apple.com"}
)

// Verifier validates Google and Apple ID tokens against their published
// key sets. Safe for concurrent use.
type Verifier struct {
	cfg    Config
	google *keyCache
	apple  *keyCache
	parser *jwt.Parser
}

// NewVerifier creates a Verifier. Providers without configured
// audiences stay dormant and fail with ErrNotConfigured.
func NewVerifier(cfg Config) *Verifier {
	if cfg.GoogleJWKSURL == "" {
		cfg.GoogleJWKSURL = googleJWKSURL
	}
	if len(cfg.GoogleIssuers) == 0 {
		cfg.GoogleIssuers = googleIssuers
	}
	if cfg.AppleJWKSURL == "" {
		cfg.AppleJWKSURL = appleJWKSURL
	}
	if len(cfg.AppleIssuers) == 0 {
		cfg.AppleIssuers = appleIssuers
	}

	return &Verifier{
		cfg:    cfg,
		google: newKeyCache(cfg.GoogleJWKSURL, cfg.HTTPClient, cfg.KeyCacheTTL),
		apple:  newKeyCache(cfg.AppleJWKSURL, cfg.HTTPClient, cfg.KeyCacheTTL),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// VerifyGoogle validates a Google ID token and extracts its identity.
func (v *Verifier) VerifyGoogle(ctx context.Context, idToken string) (*Identity, error) {
	return v.verify(ctx, ProviderGoogle, idToken, v.google, v.cfg.GoogleAudiences, v.cfg.GoogleIssuers)
}

// VerifyApple validates a Sign in with Apple ID token and extracts its
// identity.
func (v *Verifier) VerifyApple(ctx context.Context, idToken string) (*Identity, error) {
	return v.verify(ctx, ProviderApple, idToken, v.apple, v.cfg.AppleAudiences, v.cfg.AppleIssuers)
}

func (v *Verifier) verify(ctx context.Context, provider Provider, idToken string, keys *keyCache, audiences, issuers []string) (*Identity, error) {
	if len(audiences) == 0 {
		return nil, ErrNotConfigured
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return keys.Key(ctx, kid)
	})
	if err != nil {
		// Library errors (bad signature, expired, malformed) pass
		// through with their original message. Never log the token.
		log.Printf("authcore: %s id token rejected: %v", provider, err)
		return nil, err
	}

	if err := checkIssuer(claims, issuers); err != nil {
		log.Printf("authcore: %s id token rejected: %v", provider, err)
		return nil, err
	}
	if err := checkAudience(claims, audiences); err != nil {
		log.Printf("authcore: %s id token rejected: %v", provider, err)
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, ErrInvalidClaims
	}

	id := &Identity{
		ProviderID:    sub,
		Email:         email,
		EmailVerified: boolClaim(claims["email_verified"]),
		Provider:      provider,
	}
	id.Name, _ = claims["name"].(string)
	id.Picture, _ = claims["picture"].(string)
	return id, nil
}

func checkIssuer(claims jwt.MapClaims, issuers []string) error {
	iss, _ := claims["iss"].(string)
	for _, want := range issuers {
		if iss == want {
			return nil
		}
	}
	return fmt.Errorf("unexpected issuer %q", iss)
}

func checkAudience(claims jwt.MapClaims, audiences []string) error {
	var got []string
	switch aud := claims["aud"].(type) {
	case string:
		got = []string{aud}
	case []any:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				got = append(got, s)
			}
		}
	}
	for _, want := range audiences {
		for _, g := range got {
			if g == want {
				return nil
			}
		}
	}
	return errors.New("audience mismatch")
}

// boolClaim accepts the bool and "true"/"false" string spellings;
// Apple serializes email_verified as a string.
func boolClaim(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	}
	return false
}
