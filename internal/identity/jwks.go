package identity

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWKSPath is where the provider publishes its signing keys.
const JWKSPath = "/auth/v1/.well-known/jwks.json"

// JWKSVerifier verifies ES256 tokens against the provider's published keys.
// Keys are cached for ttl; a token naming an unknown kid forces one refresh
// so key rotation is picked up without waiting for expiry.
type JWKSVerifier struct {
	url    string
	apiKey string
	ttl    time.Duration
	http   *http.Client
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string]*ecdsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSVerifier builds a verifier for the provider at baseURL.  apiKey is
// sent as the apikey header on every fetch.
func NewJWKSVerifier(baseURL, apiKey string, ttl time.Duration) *JWKSVerifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &JWKSVerifier{
		url:    strings.TrimRight(baseURL, "/") + JWKSPath,
		apiKey: apiKey,
		ttl:    ttl,
		http:   &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: token missing kid", ErrUnauthorized)
		}
		return v.key(ctx, kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, classify(err)
	}
	return identityFromClaims(claims)
}

// key returns the public key for kid, refreshing the cache when it is stale
// or does not know kid.
func (v *JWKSVerifier) key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	refreshed := false
	if v.keys == nil || v.now().Sub(v.fetchedAt) >= v.ttl {
		if err := v.refreshLocked(ctx); err != nil {
			return nil, err
		}
		refreshed = true
	}
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	if !refreshed {
		if err := v.refreshLocked(ctx); err != nil {
			return nil, err
		}
		if k, ok := v.keys[kid]; ok {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: public key not found for kid", ErrUnauthorized)
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (v *JWKSVerifier) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return &FetchError{Err: err}
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return &FetchError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &FetchError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &FetchError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return &FetchError{Err: fmt.Errorf("decode: %w", err)}
	}

	keys := make(map[string]*ecdsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kid == "" || k.Kty != "EC" || k.Crv != "P-256" {
			continue
		}
		pub, err := ecPublicKey(k.X, k.Y)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	v.keys = keys
	v.fetchedAt = v.now()
	return nil
}

// ecPublicKey decodes base64url x/y coordinates into a P-256 key, rejecting
// points that are not on the curve.
func ecPublicKey(x64, y64 string) (*ecdsa.PublicKey, error) {
	x, err := base64.RawURLEncoding.DecodeString(x64)
	if err != nil {
		return nil, err
	}
	y, err := base64.RawURLEncoding.DecodeString(y64)
	if err != nil {
		return nil, err
	}
	if len(x) != 32 || len(y) != 32 {
		return nil, fmt.Errorf("bad coordinate length")
	}
	point := append(append([]byte{4}, x...), y...)
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
