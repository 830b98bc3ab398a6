package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

func testMailConfig(tokenBase string) config.MailConfig {
	return config.MailConfig{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenBaseURL: tokenBase,
	}
}

func newTestCache(t *testing.T, handler http.HandlerFunc) (*CredentialCache, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cache := NewCredentialCache(testMailConfig(server.URL), zap.NewNop())
	cache.sleep = func(time.Duration) {}
	return cache, server
}

func TestTokenMissingConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MailConfig
	}{
		{"no tenant", config.MailConfig{ClientID: "c", ClientSecret: "s"}},
		{"no client id", config.MailConfig{TenantID: "t", ClientSecret: "s"}},
		{"no client secret", config.MailConfig{TenantID: "t", ClientID: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCredentialCache(tt.cfg, zap.NewNop())
			_, err := cache.Token(context.Background())
			require.Error(t, err)
			assert.Equal(t, "CONFIGURATION_MISSING", errorutil.ToDomainError(err).Code)
		})
	}
}

func TestTokenExchangeAndReuse(t *testing.T) {
	var calls atomic.Int64
	cache, _ := newTestCache(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "client", r.FormValue("client_id"))
		assert.Equal(t, "secret", r.FormValue("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// cached token is reused while valid
	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int64(1), calls.Load())
}

func TestTokenRefreshesBeforeExpiry(t *testing.T) {
	var calls atomic.Int64
	cache, _ := newTestCache(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})

	base := time.Now()
	now := base
	cache.now = func() time.Time { return now }

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	// 61 seconds before expiry the cached token is still used
	now = base.Add(3600*time.Second - 61*time.Second)
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// inside the 60 second skew window a refresh happens
	now = base.Add(3600*time.Second - 30*time.Second)
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestTokenRetriesThenFails(t *testing.T) {
	var calls atomic.Int64
	cache, _ := newTestCache(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := cache.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, "UPSTREAM_AUTH_FAILED", errorutil.ToDomainError(err).Code)
	assert.Equal(t, int64(3), calls.Load())
}

func TestTokenRecoversOnRetry(t *testing.T) {
	var calls atomic.Int64
	cache, _ := newTestCache(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int64(3), calls.Load())
}
