// Package auth verifies operator bearer tokens issued by Clerk.
package auth

import (
	"context"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Identity is the verified operator behind a request.
type Identity struct {
	Subject        string `json:"subject"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

type Config struct {
	Issuer          string
	JWKSURL         string
	DevToken        string
	DevOrganization string
}

// minRefetchInterval bounds how often an unknown kid can trigger a JWKS fetch.
const minRefetchInterval = 30 * time.Second

// Authenticator verifies RS256 session tokens against the issuer's JWKS.
// Keys are cached per kid. A miss refetches the set at most once per
// minRefetchInterval.
type Authenticator struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	fetchMu   sync.Mutex
	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time
}

func New(cfg Config) *Authenticator {
	if cfg.JWKSURL == "" && cfg.Issuer != "" {
		cfg.JWKSURL = strings.TrimRight(cfg.Issuer, "/") + "/.well-known/jwks.json"
	}
	return &Authenticator{
		cfg:  cfg,
		http: &http.Client{Timeout: 5 * time.Second},
		now:  time.Now,
		keys: make(map[string]*rsa.PublicKey),
	}
}

func errIdentity() error     { return support.Unauthorized("Identity not found") }
func errOrganization() error { return support.Unauthorized("Organization not found") }

// Authenticate verifies a bearer token and returns the operator identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errIdentity()
	}
	if a.cfg.DevToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.DevToken)) == 1 {
		return Identity{Subject: "dev", OrganizationID: a.cfg.DevOrganization, Name: "Developer"}, nil
	}
	if a.cfg.JWKSURL == "" {
		return Identity{}, errIdentity()
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired()}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	claims := &clerkClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return a.keyForKID(ctx, kid)
	})
	if err != nil || claims.Subject == "" {
		return Identity{}, errIdentity()
	}

	id := Identity{
		Subject:        claims.Subject,
		OrganizationID: firstNonEmpty(claims.OrgID, claims.Org.ID),
		Name:           firstNonEmpty(claims.FamilyName, claims.Name, claims.Subject),
	}
	if id.OrganizationID == "" {
		return Identity{}, errOrganization()
	}
	return id, nil
}

// cached returns the key for kid and whether a refetch is allowed yet.
func (a *Authenticator) cached(kid string) (*rsa.PublicKey, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if key, ok := a.keys[kid]; ok {
		return key, false
	}
	return nil, a.lastFetch.IsZero() || a.now().Sub(a.lastFetch) >= minRefetchInterval
}

func (a *Authenticator) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, refetch := a.cached(kid)
	if key != nil {
		return key, nil
	}
	if !refetch {
		return nil, errors.New("kid not found")
	}

	// Concurrent misses wait for one fetch instead of each starting their own.
	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()
	key, refetch = a.cached(kid)
	if key != nil {
		return key, nil
	}
	if !refetch {
		return nil, errors.New("kid not found")
	}

	a.mu.Lock()
	a.lastFetch = a.now()
	a.mu.Unlock()

	keys, err := a.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range keys {
		a.keys[k] = v
	}
	if key, ok := a.keys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("kid not found")
}

func (a *Authenticator) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks status %d", res.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(res.Body).Decode(&jwks); err != nil {
		return nil, err
	}

	out := make(map[string]*rsa.PublicKey)
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || (k.Alg != "" && k.Alg != "RS256") || k.Kid == "" {
			continue
		}
		pub, err := jwkToPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		out[k.Kid] = pub
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no jwk keys")
	}
	return out, nil
}

func jwkToPublicKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

// clerkClaims covers both the v1 (org_id) and v2 (o.id) session token shapes.
type clerkClaims struct {
	jwt.RegisteredClaims

	OrgID      string   `json:"org_id"`
	Org        orgClaim `json:"o"`
	Name       string   `json:"name"`
	FamilyName string   `json:"family_name"`
}

type orgClaim struct {
	ID string `json:"id"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type ctxKey struct{}

// WithIdentity attaches an identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity set by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Middleware authenticates each request and stores the identity on its
// context. Failures are handed to fail.
func (a *Authenticator) Middleware(fail func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				fail(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
