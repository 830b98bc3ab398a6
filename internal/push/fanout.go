package push

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/internal/events"
	"github.com/ticketops/ticket-notifier/internal/observability"
	"github.com/ticketops/ticket-notifier/internal/repository"
)

// Fanout mirrors a delivered notification to registered device tokens. It is
// strictly best-effort: every failure is logged and swallowed, and the
// primary email path never observes its outcome.
type Fanout struct {
	tokens     repository.DeviceTokenRepository
	http       *resty.Client
	gatewayURL string
	enabled    bool
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewFanout builds the push side channel.
func NewFanout(tokens repository.DeviceTokenRepository, cfg config.PushConfig, metrics *observability.Metrics, logger *zap.Logger) *Fanout {
	return &Fanout{
		tokens:     tokens,
		http:       resty.New().SetTimeout(15 * time.Second),
		gatewayURL: cfg.GatewayURL,
		enabled:    cfg.Enabled && cfg.GatewayURL != "",
		metrics:    metrics,
		logger:     logger,
	}
}

// Register subscribes the fanout to notification events. Delivery runs on
// its own goroutine so the publisher never waits on the gateway.
func (f *Fanout) Register(dispatcher events.Dispatcher) {
	handler := func(_ context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.NotificationSentPayload)
		if !ok {
			return nil
		}
		go f.Notify(context.Background(), payload.Recipients, payload.Title, payload.Message, payload.Data)
		return nil
	}
	dispatcher.Subscribe(events.EventWarningSent, handler)
	dispatcher.Subscribe(events.EventNotificationSent, handler)
}

type multicastRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Notify resolves device tokens for the addresses and sends one multicast
// push. It never returns an error; success and failure counts are reported
// via logging only.
func (f *Fanout) Notify(ctx context.Context, addresses []string, title, body string, data map[string]string) {
	if !f.enabled || len(addresses) == 0 {
		return
	}

	tokens := f.collectTokens(ctx, addresses)
	if len(tokens) == 0 {
		return
	}

	var result multicastResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetBody(multicastRequest{Tokens: tokens, Title: title, Body: body, Data: data}).
		SetResult(&result).
		Post(f.gatewayURL)
	if err != nil {
		f.metrics.RecordDispatch("push", "failed")
		f.logger.Warn("push multicast failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		f.metrics.RecordDispatch("push", "failed")
		f.logger.Warn("push gateway rejected multicast",
			zap.Int("status", resp.StatusCode()))
		return
	}

	f.metrics.RecordDispatch("push", "sent")
	f.logger.Info("push multicast sent",
		zap.Int("tokens", len(tokens)),
		zap.Int("success", result.Success),
		zap.Int("failure", result.Failure))
}

func (f *Fanout) collectTokens(ctx context.Context, addresses []string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, addr := range addresses {
		found, err := f.tokens.TokensFor(ctx, addr)
		if err != nil {
			f.logger.Warn("device token lookup failed",
				zap.String("address", addr),
				zap.Error(err))
			continue
		}
		for _, token := range found {
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}
