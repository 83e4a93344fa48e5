package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testProject = "spending-test"

// Key generation is slow enough to share across the package's tests.
var (
	testKey      = sync.OnceValue(func() *rsa.PrivateKey { return mustKey() })
	otherTestKey = sync.OnceValue(func() *rsa.PrivateKey { return mustKey() })
)

func mustKey() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}

// jwksServer serves a JWKS document and counts how often it was fetched.
type jwksServer struct {
	*httptest.Server

	mu           sync.Mutex
	keys         map[string]*rsa.PublicKey
	cacheControl string
	status       int
	hits         atomic.Int32
}

func newJWKSServer(t *testing.T, keys map[string]*rsa.PublicKey) *jwksServer {
	t.Helper()
	s := &jwksServer{
		keys:         keys,
		cacheControl: "public, max-age=3600, must-revalidate",
		status:       http.StatusOK,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		set := jose.JSONWebKeySet{}
		for kid, pub := range s.keys {
			set.Keys = append(set.Keys, jose.JSONWebKey{
				Key:       pub,
				KeyID:     kid,
				Algorithm: "RS256",
				Use:       "sig",
			})
		}
		w.Header().Set("Cache-Control", s.cacheControl)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKeys(keys map[string]*rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

func (s *jwksServer) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// validClaims returns claims that pass verification for testProject.
func validClaims(sub string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    issuerPrefix + testProject,
		Audience:  jwt.ClaimStrings{testProject},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

// signToken signs claims with key under the given kid.
func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

// newTestVerifier wires a Verifier to a JWKS server publishing testKey as "k1".
func newTestVerifier(t *testing.T) (*Verifier, *jwksServer) {
	t.Helper()
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	return NewVerifier(testProject, NewKeySet(srv.URL, srv.Client())), srv
}
