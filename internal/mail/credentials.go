package mail

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

const (
	// tokens are refreshed this long before expiry to tolerate clock skew
	// and in-flight requests
	expirySkew = 60 * time.Second

	tokenMaxAttempts    = 3
	tokenInitialBackoff = 500 * time.Millisecond
)

// CredentialCache obtains and caches the bearer credential for the mail
// provider. A single instance is shared by every component needing send
// authority; refreshes are idempotent, so concurrent callers at worst repeat
// the exchange.
type CredentialCache struct {
	cfg    config.MailConfig
	http   *resty.Client
	logger *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewCredentialCache builds the cache for the configured tenant.
func NewCredentialCache(cfg config.MailConfig, logger *zap.Logger) *CredentialCache {
	return &CredentialCache{
		cfg:    cfg,
		http:   resty.New().SetTimeout(30 * time.Second),
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a credential that is valid at the time of use, exchanging
// client credentials with the provider on cache miss or near-expiry.
func (c *CredentialCache) Token(ctx context.Context) (string, error) {
	switch {
	case c.cfg.TenantID == "":
		return "", errorutil.NewMissingConfiguration("MAIL_TENANT_ID")
	case c.cfg.ClientID == "":
		return "", errorutil.NewMissingConfiguration("MAIL_CLIENT_ID")
	case c.cfg.ClientSecret == "":
		return "", errorutil.NewMissingConfiguration("MAIL_CLIENT_SECRET")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiry.Add(-expirySkew)) {
		return c.token, nil
	}

	var lastErr error
	for attempt := 0; attempt < tokenMaxAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(tokenInitialBackoff << (attempt - 1))
		}

		token, expiresIn, err := c.exchange(ctx)
		if err == nil {
			c.token = token
			c.expiry = c.now().Add(time.Duration(expiresIn) * time.Second)
			c.logger.Debug("mail credential refreshed",
				zap.Time("expiry", c.expiry))
			return c.token, nil
		}

		lastErr = err
		c.logger.Warn("credential exchange attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return "", errorutil.NewUpstreamAuthError(lastErr)
}

func (c *CredentialCache) exchange(ctx context.Context) (string, int64, error) {
	var result tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"scope":         "https://graph.microsoft.com/.default",
		}).
		SetResult(&result).
		Post(c.cfg.TokenURL())
	if err != nil {
		return "", 0, err
	}
	if resp.IsError() {
		return "", 0, statusError(resp)
	}
	if result.AccessToken == "" {
		return "", 0, statusError(resp)
	}
	return result.AccessToken, result.ExpiresIn, nil
}
