package mail

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

const (
	sendMaxAttempts    = 3
	sendInitialBackoff = 300 * time.Millisecond
)

// Sender delivers a composed message through the mail provider.
type Sender interface {
	SendMail(ctx context.Context, senderID, subject, htmlBody string, to, cc []string) error
}

// Dispatcher sends through the provider's sendMail endpoint with bounded
// retry on transient failure. Non-transient failures abort immediately.
type Dispatcher struct {
	graph  *GraphClient
	logger *zap.Logger

	maxAttempts    int
	initialBackoff time.Duration
	sleep          func(time.Duration)
}

// NewDispatcher builds the dispatch engine.
func NewDispatcher(graph *GraphClient, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		graph:          graph,
		logger:         logger,
		maxAttempts:    sendMaxAttempts,
		initialBackoff: sendInitialBackoff,
		sleep:          time.Sleep,
	}
}

type emailAddress struct {
	Address string `json:"address"`
}

type messageRecipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type sendMailRequest struct {
	Message         messagePayload `json:"message"`
	SaveToSentItems bool           `json:"saveToSentItems"`
}

type messagePayload struct {
	Subject      string             `json:"subject"`
	Body         messageBody        `json:"body"`
	ToRecipients []messageRecipient `json:"toRecipients"`
	CcRecipients []messageRecipient `json:"ccRecipients,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// SendMail delivers the message, retrying transient failures with
// exponential backoff. Exhausting the retry budget surfaces the last
// underlying error.
func (d *Dispatcher) SendMail(ctx context.Context, senderID, subject, htmlBody string, to, cc []string) error {
	if len(to) == 0 && len(cc) == 0 {
		return errorutil.NewNoRecipients("")
	}
	if senderID == "" {
		return errorutil.NewMissingConfiguration("sender identity")
	}

	payload := sendMailRequest{
		Message: messagePayload{
			Subject:      subject,
			Body:         messageBody{ContentType: "HTML", Content: htmlBody},
			ToRecipients: toRecipients(to),
			CcRecipients: toRecipients(cc),
		},
	}

	path := "/users/" + url.PathEscape(senderID) + "/sendMail"

	var lastErr error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			d.sleep(d.initialBackoff << (attempt - 1))
		}

		resp, err := d.graph.postJSON(ctx, path, payload)
		var domainErr *errorutil.DomainError
		if errors.As(err, &domainErr) {
			// credential acquisition failures carry their own kind
			return err
		}
		if err == nil && !resp.IsError() {
			d.logger.Info("mail delivered",
				zap.String("subject", subject),
				zap.Int("to", len(to)),
				zap.Int("cc", len(cc)),
				zap.Int("attempt", attempt+1))
			return nil
		}

		if err == nil {
			err = statusError(resp)
		}
		lastErr = err

		if !isTransient(resp, err) {
			d.logger.Error("mail delivery failed permanently",
				zap.String("subject", subject),
				zap.Error(err))
			return errorutil.NewDeliveryError(err)
		}
		d.logger.Warn("transient mail delivery failure",
			zap.String("subject", subject),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return errorutil.NewDeliveryError(lastErr)
}

func toRecipients(addresses []string) []messageRecipient {
	if len(addresses) == 0 {
		return nil
	}
	out := make([]messageRecipient, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, messageRecipient{EmailAddress: emailAddress{Address: addr}})
	}
	return out
}

// isTransient classifies failures likely to succeed on retry: server errors,
// timeouts, connection resets/refusals and name resolution failures.
func isTransient(resp *resty.Response, err error) bool {
	if resp != nil && resp.StatusCode() >= 500 {
		return true
	}
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
