package cisco

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/netops-toolbox/supportwatch/internal/cache"
	"github.com/netops-toolbox/supportwatch/internal/metrics"
)

const (
	// a token is cached for its reported lifetime less this margin,
	// never below the floor.
	tokenTTLMargin = 300 * time.Second
	tokenTTLFloor  = 60 * time.Second

	// assumed lifetime when the token endpoint reports no expiry.
	tokenDefaultLifetime = 3600 * time.Second
)

// TokenCache owns the OAuth2 client-credentials token shared by all support
// API requests. Tokens are cached in the shared store and locally, refreshed
// lazily on the next use after expiry and invalidated eagerly when a data
// call is rejected with a 401.
type TokenCache struct {
	conf       *clientcredentials.Config
	store      cache.Store
	httpClient *http.Client
	logger     *logrus.Logger
	cacheKey   string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenCache(clientID, clientSecret, tokenURL string, store cache.Store, httpClient *http.Client, logger *logrus.Logger) *TokenCache {
	return &TokenCache{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		cacheKey:   tokenCacheKey(clientID),
	}
}

// tokenCacheKey derives the shared-store key from a truncated client id so
// the full identifier never lands in the store keyspace.
func tokenCacheKey(clientID string) string {
	truncated := clientID
	if len(truncated) > 8 {
		truncated = truncated[:8]
	}

	return "cisco:token:" + truncated
}

// Token returns a valid bearer token, performing a client-credentials
// exchange when neither the shared store nor the local copy holds one.
func (t *TokenCache) Token(ctx context.Context) (string, error) {
	if cached, found := t.store.Get(ctx, t.cacheKey); found {
		return string(cached), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiry) {
		return t.token, nil
	}

	token, ttl, err := t.exchange(ctx)
	if err != nil {
		metrics.TokenExchangeCount.With(prometheus.Labels{"outcome": "failed"}).Inc()

		t.logger.WithError(err).Error("support API token exchange failed")

		return "", errors.Wrap(ErrAuth, err.Error())
	}

	metrics.TokenExchangeCount.With(prometheus.Labels{"outcome": "success"}).Inc()

	if err := t.store.Set(ctx, t.cacheKey, []byte(token), ttl); err != nil {
		t.logger.WithError(err).Warn("token not stored in shared cache")
	}

	t.token = token
	t.expiry = time.Now().Add(ttl)

	t.logger.Debug("support API token obtained")

	return token, nil
}

func (t *TokenCache) exchange(ctx context.Context) (string, time.Duration, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)

	token, err := t.conf.Token(ctx)
	if err != nil {
		return "", 0, err
	}

	lifetime := tokenDefaultLifetime
	if !token.Expiry.IsZero() {
		lifetime = time.Until(token.Expiry)
	}

	ttl := lifetime - tokenTTLMargin
	if ttl < tokenTTLFloor {
		ttl = tokenTTLFloor
	}

	return token.AccessToken, ttl, nil
}

// Invalidate drops the shared and local token copies so the next call
// performs a fresh exchange.
func (t *TokenCache) Invalidate(ctx context.Context) {
	if err := t.store.Delete(ctx, t.cacheKey); err != nil {
		t.logger.WithError(err).Warn("token not removed from shared cache")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.token = ""
	t.expiry = time.Time{}
}
