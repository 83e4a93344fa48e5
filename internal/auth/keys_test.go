package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySet_CachesWithinMaxAge(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	ks := NewKeySet(srv.URL, srv.Client())

	for i := 0; i < 3; i++ {
		key, err := ks.Key(context.Background(), "k1")
		require.NoError(t, err)
		assert.True(t, key.Equal(&testKey().PublicKey))
	}
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestKeySet_RefetchesAfterExpiry(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	ks := NewKeySet(srv.URL, srv.Client())

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ks.now = func() time.Time { return now }

	_, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())

	now = now.Add(2 * time.Minute)
	_, err = ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestKeySet_UnknownKidTriggersRefetch(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	ks := NewKeySet(srv.URL, srv.Client())

	_, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)

	// The provider rotates in a new key before the cached set expires.
	srv.setKeys(map[string]*rsa.PublicKey{
		"k1": &testKey().PublicKey,
		"k2": &otherTestKey().PublicKey,
	})

	key, err := ks.Key(context.Background(), "k2")
	require.NoError(t, err)
	assert.True(t, key.Equal(&otherTestKey().PublicKey))
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestKeySet_UnknownKidRefetchesAreLimited(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	ks := NewKeySet(srv.URL, srv.Client())

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ks.now = func() time.Time { return now }

	_, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := ks.Key(context.Background(), fmt.Sprintf("made-up-%d", i))
		assert.ErrorIs(t, err, ErrUnknownKey)
	}
	assert.Equal(t, int32(2), srv.hits.Load(), "one initial fetch plus one unknown-kid refetch")

	// Known keys keep resolving from the cache meanwhile.
	_, err = ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())

	// Once the interval passes, a rotated-in key is picked up.
	srv.setKeys(map[string]*rsa.PublicKey{
		"k1": &testKey().PublicKey,
		"k2": &otherTestKey().PublicKey,
	})
	now = now.Add(unknownKidInterval + time.Second)

	key, err := ks.Key(context.Background(), "k2")
	require.NoError(t, err)
	assert.True(t, key.Equal(&otherTestKey().PublicKey))
	assert.Equal(t, int32(3), srv.hits.Load())
}

func TestKeySet_UnknownKidAfterRefetch(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"k1": &testKey().PublicKey})
	ks := NewKeySet(srv.URL, srv.Client())

	_, err := ks.Key(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestKeySet_ErrorStatus(t *testing.T) {
	srv := newJWKSServer(t, nil)
	srv.setStatus(http.StatusServiceUnavailable)
	ks := NewKeySet(srv.URL, srv.Client())

	_, err := ks.Key(context.Background(), "k1")
	assert.ErrorIs(t, err, ErrKeysUnavailable)
}

func TestKeySet_EmptySet(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{})
	ks := NewKeySet(srv.URL, srv.Client())

	_, err := ks.Key(context.Background(), "k1")
	assert.ErrorIs(t, err, ErrKeysUnavailable)
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"public, max-age=19302, must-revalidate, no-transform", 19302 * time.Second},
		{"max-age=60", time.Minute},
		{"Max-Age=120", 2 * time.Minute},
		{"no-cache", defaultKeyTTL},
		{"max-age=abc", defaultKeyTTL},
		{"max-age=0", defaultKeyTTL},
		{"", defaultKeyTTL},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, maxAge(tt.header), "header %q", tt.header)
	}
}
