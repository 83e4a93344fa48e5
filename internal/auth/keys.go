package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/time/rate"
)

// FirebaseJWKSURL publishes the public keys that sign Firebase ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// defaultKeyTTL applies when the key endpoint sends no usable max-age.
const defaultKeyTTL = time.Hour

// unknownKidInterval is the minimum spacing between refetches triggered by an
// unknown kid while the cached set is still fresh. Expiry refetches are not
// limited.
const unknownKidInterval = time.Minute

var (
	// ErrUnknownKey means the token's kid is not in the key set, even after a
	// refetch.
	ErrUnknownKey = errors.New("auth: unknown signing key")

	// ErrKeysUnavailable means the key set could not be fetched or parsed.
	ErrKeysUnavailable = errors.New("auth: signing keys unavailable")
)

// KeySet fetches and caches the identity provider's RSA public keys.
//
// The set is kept until the max-age from the last response's Cache-Control
// header runs out. A kid that is not in the cached set triggers a refetch,
// since the provider rotates keys ahead of the advertised expiry. Those
// refetches are limited to one per unknownKidInterval, so tokens with made-up
// kids cannot turn every request into a call to the provider.
type KeySet struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time

	// fetchMu serializes refetches so a burst of unknown kids hits the
	// endpoint once.
	fetchMu sync.Mutex
	refetch *rate.Limiter
}

// NewKeySet creates a KeySet reading from url. A nil client uses a client
// with a 10 second timeout.
func NewKeySet(url string, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		url:     url,
		client:  client,
		now:     time.Now,
		refetch: rate.NewLimiter(rate.Every(unknownKidInterval), 1),
	}
}

// Key returns the public key for kid.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, fresh := k.lookup(kid); key != nil && fresh {
		return key, nil
	}

	if err := k.refresh(ctx, kid); err != nil {
		return nil, err
	}

	key, _ := k.lookup(kid)
	if key == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}
	return key, nil
}

func (k *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.keys[kid], k.now().Before(k.expires)
}

// refresh refetches the key set unless another caller already did so and
// the result contains kid. A fresh set missing kid is only refetched when the
// limiter allows it; otherwise the caller sees kid as unknown.
func (k *KeySet) refresh(ctx context.Context, kid string) error {
	k.fetchMu.Lock()
	defer k.fetchMu.Unlock()

	key, fresh := k.lookup(kid)
	if key != nil && fresh {
		return nil
	}
	if fresh && !k.refetch.AllowN(k.now(), 1) {
		return nil
	}

	keys, ttl, err := k.fetch(ctx)
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.keys = keys
	k.expires = k.now().Add(ttl)
	k.mu.Unlock()
	return nil
}

func (k *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: building request: %v", ErrKeysUnavailable, err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: status %d", ErrKeysUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading body: %v", ErrKeysUnavailable, err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding key set: %v", ErrKeysUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		pub, ok := jwk.Key.(*rsa.PublicKey)
		if !ok || jwk.KeyID == "" {
			continue
		}
		keys[jwk.KeyID] = pub
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("%w: no RSA keys in response", ErrKeysUnavailable)
	}

	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

// maxAge extracts max-age from a Cache-Control header value.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.Atoi(strings.Trim(value, `"`))
		if err != nil || secs <= 0 {
			return defaultKeyTTL
		}
		return time.Duration(secs) * time.Second
	}
	return defaultKeyTTL
}
