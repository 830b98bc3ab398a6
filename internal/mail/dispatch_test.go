package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

type sendFixture struct {
	mu       sync.Mutex
	attempts int
	bodies   []map[string]any
	handler  http.HandlerFunc
	slept    []time.Duration
	disp     *Dispatcher
}

func newSendFixture(t *testing.T) *sendFixture {
	t.Helper()
	fx := &sendFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		fx.mu.Lock()
		fx.attempts++
		if raw, err := io.ReadAll(r.Body); err == nil {
			var body map[string]any
			if json.Unmarshal(raw, &body) == nil {
				fx.bodies = append(fx.bodies, body)
			}
		}
		fx.mu.Unlock()
		fx.handler(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	creds := NewCredentialCache(testMailConfig(server.URL), zap.NewNop())
	graph := NewGraphClient(server.URL, creds, zap.NewNop())
	fx.disp = NewDispatcher(graph, zap.NewNop())
	fx.disp.sleep = func(d time.Duration) { fx.slept = append(fx.slept, d) }
	return fx
}

func TestSendMailSuccess(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/sender-id/sendMail", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}

	err := fx.disp.SendMail(context.Background(), "sender-id", "subject", "<p>body</p>",
		[]string{"a@x.com"}, []string{"b@x.com"})
	require.NoError(t, err)
	require.Equal(t, 1, fx.attempts)

	message := fx.bodies[0]["message"].(map[string]any)
	assert.Equal(t, "subject", message["subject"])
	body := message["body"].(map[string]any)
	assert.Equal(t, "HTML", body["contentType"])
	assert.Equal(t, "<p>body</p>", body["content"])
	assert.Len(t, message["toRecipients"], 1)
	assert.Len(t, message["ccRecipients"], 1)
}

func TestSendMailRetriesTransientFailures(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		fx.mu.Lock()
		attempt := fx.attempts
		fx.mu.Unlock()
		if attempt < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}

	err := fx.disp.SendMail(context.Background(), "sender-id", "subject", "body",
		[]string{"a@x.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, fx.attempts)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond}, fx.slept)
}

func TestSendMailExhaustsRetryBudget(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	err := fx.disp.SendMail(context.Background(), "sender-id", "subject", "body",
		[]string{"a@x.com"}, nil)
	require.Error(t, err)
	assert.Equal(t, "DELIVERY_FAILED", errorutil.ToDomainError(err).Code)
	assert.Equal(t, 3, fx.attempts)
	assert.Len(t, fx.slept, 2)
}

func TestSendMailNonTransientAbortsImmediately(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}

	err := fx.disp.SendMail(context.Background(), "sender-id", "subject", "body",
		[]string{"a@x.com"}, nil)
	require.Error(t, err)
	assert.Equal(t, "DELIVERY_FAILED", errorutil.ToDomainError(err).Code)
	assert.Equal(t, 1, fx.attempts)
	assert.Empty(t, fx.slept)
}

func TestSendMailNoRecipients(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no send expected")
	}

	err := fx.disp.SendMail(context.Background(), "sender-id", "subject", "body", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "NO_RECIPIENTS", errorutil.ToDomainError(err).Code)
}

func TestSendMailMissingSenderIdentity(t *testing.T) {
	fx := newSendFixture(t)
	fx.handler = func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no send expected")
	}

	err := fx.disp.SendMail(context.Background(), "", "subject", "body", []string{"a@x.com"}, nil)
	require.Error(t, err)
	assert.Equal(t, "CONFIGURATION_MISSING", errorutil.ToDomainError(err).Code)
}

func TestIsTransientClassification(t *testing.T) {
	assert.False(t, isTransient(nil, nil))
	assert.True(t, isTransient(nil, context.DeadlineExceeded))
	assert.False(t, isTransient(nil, io.EOF))
}
