package cisco

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-toolbox/supportwatch/internal/cache"
)

// recordingStore captures the TTL of stored entries.
type recordingStore struct {
	*cache.MemoryStore

	lastKey string
	lastTTL time.Duration
}

func (r *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.lastKey = key
	r.lastTTL = ttl

	return r.MemoryStore.Set(ctx, key, value, ttl)
}

func newTokenEndpoint(t *testing.T, expiresIn int, exchanges *int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(exchanges, 1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok","token_type":"Bearer","expires_in":%d}`, expiresIn)
	}))
	t.Cleanup(server.Close)

	return server
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = logrus.PanicLevel

	return logger
}

func TestTokenCachedInSharedStore(t *testing.T) {
	exchanges := int32(0)
	server := newTokenEndpoint(t, 3600, &exchanges)

	store := cache.NewMemoryStore()
	tokens := NewTokenCache("client-id-12345", "secret", server.URL, store, server.Client(), quietLogger())

	first, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", first)

	second, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.EqualValues(t, 1, atomic.LoadInt32(&exchanges))

	// the shared-store key carries only a truncated client id
	_, found := store.Get(context.Background(), "cisco:token:client-i")
	assert.True(t, found)
}

func TestTokenTTLClamp(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		wantMin   time.Duration
		wantMax   time.Duration
	}{
		{
			"reported expiry less the refresh margin",
			3600,
			50 * time.Minute,
			55 * time.Minute,
		},
		{
			"short lived token clamped to the floor",
			120,
			60 * time.Second,
			60 * time.Second,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exchanges := int32(0)
			server := newTokenEndpoint(t, tc.expiresIn, &exchanges)

			store := &recordingStore{MemoryStore: cache.NewMemoryStore()}
			tokens := NewTokenCache("client-id-12345", "secret", server.URL, store, server.Client(), quietLogger())

			_, err := tokens.Token(context.Background())
			require.NoError(t, err)

			assert.GreaterOrEqual(t, store.lastTTL, tc.wantMin)
			assert.LessOrEqual(t, store.lastTTL, tc.wantMax)
		})
	}
}

func TestTokenInvalidate(t *testing.T) {
	exchanges := int32(0)
	server := newTokenEndpoint(t, 3600, &exchanges)

	store := cache.NewMemoryStore()
	tokens := NewTokenCache("client-id-12345", "secret", server.URL, store, server.Client(), quietLogger())

	_, err := tokens.Token(context.Background())
	require.NoError(t, err)

	tokens.Invalidate(context.Background())

	_, found := store.Get(context.Background(), "cisco:token:client-i")
	assert.False(t, found)

	_, err = tokens.Token(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&exchanges))
}

func TestTokenExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	store := cache.NewMemoryStore()
	tokens := NewTokenCache("client-id-12345", "secret", server.URL, store, server.Client(), quietLogger())

	_, err := tokens.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)

	// no token cached after a failed exchange
	_, found := store.Get(context.Background(), "cisco:token:client-i")
	assert.False(t, found)
}

func TestTokenCacheKeyShortClientID(t *testing.T) {
	assert.Equal(t, "cisco:token:abc", tokenCacheKey("abc"))
	assert.Equal(t, "cisco:token:abcdefgh", tokenCacheKey("abcdefghij"))
}
