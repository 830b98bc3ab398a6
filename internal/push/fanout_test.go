package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/internal/observability"
)

type fakeTokenRepo struct {
	tokens map[string][]string // lowercased email -> tokens
	err    error
}

func (f *fakeTokenRepo) TokensFor(_ context.Context, email string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[strings.ToLower(strings.TrimSpace(email))], nil
}

type gatewayFixture struct {
	mu       sync.Mutex
	requests []multicastRequest
}

func newGateway(t *testing.T, status int) (*gatewayFixture, *httptest.Server) {
	t.Helper()
	fx := &gatewayFixture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req multicastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fx.mu.Lock()
		fx.requests = append(fx.requests, req)
		fx.mu.Unlock()
		w.WriteHeader(status)
		if status < 400 {
			_, _ = w.Write([]byte(`{"success":2,"failure":0}`))
		}
	}))
	t.Cleanup(server.Close)
	return fx, server
}

func newFanout(repo *fakeTokenRepo, gatewayURL string) *Fanout {
	return NewFanout(repo, config.PushConfig{GatewayURL: gatewayURL, Enabled: true},
		observability.NewMetrics(), zap.NewNop())
}

func TestNotifyMulticastsDedupedTokens(t *testing.T) {
	repo := &fakeTokenRepo{tokens: map[string][]string{
		"a@x.com": {"token-1", "token-2"},
		"b@x.com": {"token-2", "token-3"},
	}}
	gateway, server := newGateway(t, http.StatusOK)
	fanout := newFanout(repo, server.URL)

	fanout.Notify(context.Background(), []string{"a@x.com", "B@X.COM"}, "title", "body",
		map[string]string{"ticket_id": "T-1"})

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.ElementsMatch(t, []string{"token-1", "token-2", "token-3"}, req.Tokens)
	assert.Equal(t, "title", req.Title)
	assert.Equal(t, "body", req.Body)
	assert.Equal(t, "T-1", req.Data["ticket_id"])
}

func TestNotifyNoTokensIsNoOp(t *testing.T) {
	gateway, server := newGateway(t, http.StatusOK)
	fanout := newFanout(&fakeTokenRepo{}, server.URL)

	fanout.Notify(context.Background(), []string{"nobody@x.com"}, "title", "body", nil)

	assert.Empty(t, gateway.requests)
}

func TestNotifyEmptyAddressListIsNoOp(t *testing.T) {
	gateway, server := newGateway(t, http.StatusOK)
	fanout := newFanout(&fakeTokenRepo{tokens: map[string][]string{"a@x.com": {"tok"}}}, server.URL)

	fanout.Notify(context.Background(), nil, "title", "body", nil)

	assert.Empty(t, gateway.requests)
}

func TestNotifySwallowsLookupErrors(t *testing.T) {
	repo := &fakeTokenRepo{err: errors.New("redis down")}
	gateway, server := newGateway(t, http.StatusOK)
	fanout := newFanout(repo, server.URL)

	// must not panic or surface the error
	fanout.Notify(context.Background(), []string{"a@x.com"}, "title", "body", nil)

	assert.Empty(t, gateway.requests)
}

func TestNotifySwallowsGatewayFailures(t *testing.T) {
	repo := &fakeTokenRepo{tokens: map[string][]string{"a@x.com": {"tok"}}}
	gateway, server := newGateway(t, http.StatusBadGateway)
	fanout := newFanout(repo, server.URL)

	fanout.Notify(context.Background(), []string{"a@x.com"}, "title", "body", nil)

	assert.Len(t, gateway.requests, 1)
}

func TestNotifyDisabledIsNoOp(t *testing.T) {
	repo := &fakeTokenRepo{tokens: map[string][]string{"a@x.com": {"tok"}}}
	fanout := NewFanout(repo, config.PushConfig{GatewayURL: "", Enabled: true},
		observability.NewMetrics(), zap.NewNop())

	fanout.Notify(context.Background(), []string{"a@x.com"}, "title", "body", nil)
}
