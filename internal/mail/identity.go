package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

// SenderResolver maps a human-readable sender address to the provider's
// internal identity for it.
type SenderResolver interface {
	Resolve(ctx context.Context, senderAddress string) (string, error)
}

// IdentityResolver walks an ordered cascade of directory lookups until one
// yields the sender's object id. Directory schemas vary across tenants, so
// each strategy's failure only falls through to the next.
type IdentityResolver struct {
	graph    *GraphClient
	override string
	logger   *zap.Logger
}

// NewIdentityResolver builds the resolver. A non-empty override short-circuits
// every lookup.
func NewIdentityResolver(graph *GraphClient, override string, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{graph: graph, override: override, logger: logger}
}

type directoryUser struct {
	ID string `json:"id"`
}

type directoryPage struct {
	Value []directoryUser `json:"value"`
}

type lookupStrategy struct {
	name string
	run  func(ctx context.Context, address string) (string, error)
}

// Resolve returns the provider-internal identity for the sender address.
func (r *IdentityResolver) Resolve(ctx context.Context, senderAddress string) (string, error) {
	if r.override != "" {
		return r.override, nil
	}

	localPart := senderAddress
	if at := strings.Index(senderAddress, "@"); at > 0 {
		localPart = senderAddress[:at]
	}

	strategies := []lookupStrategy{
		{"direct lookup", r.lookupDirect},
		{"mail match", r.filterLookup("mail eq '%s'", senderAddress)},
		{"principal name match", r.filterLookup("userPrincipalName eq '%s'", senderAddress)},
		{"principal name prefix", r.filterLookup("startswith(userPrincipalName,'%s')", localPart)},
		{"alias prefix", r.filterLookup("startswith(mailNickname,'%s')", localPart)},
	}

	var lastErr error
	for _, strategy := range strategies {
		id, err := strategy.run(ctx, senderAddress)
		if err == nil && id != "" {
			r.logger.Debug("sender identity resolved",
				zap.String("strategy", strategy.name),
				zap.String("sender", senderAddress))
			return id, nil
		}
		if err == nil {
			err = fmt.Errorf("no match")
		}
		lastErr = err
		r.logger.Warn("sender lookup strategy failed",
			zap.String("strategy", strategy.name),
			zap.String("sender", senderAddress),
			zap.Error(err))
	}

	return "", errorutil.NewSenderUnresolved(senderAddress, lastErr)
}

func (r *IdentityResolver) lookupDirect(ctx context.Context, address string) (string, error) {
	var user directoryUser
	resp, err := r.graph.get(ctx, "/users/"+url.PathEscape(address), nil, &user)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return user.ID, nil
}

func (r *IdentityResolver) filterLookup(filterFormat, value string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, _ string) (string, error) {
		var page directoryPage
		resp, err := r.graph.get(ctx, "/users", map[string]string{
			"$filter": fmt.Sprintf(filterFormat, value),
			"$top":    "1",
		}, &page)
		if err != nil {
			return "", err
		}
		if resp.IsError() {
			return "", statusError(resp)
		}
		if len(page.Value) == 0 {
			return "", fmt.Errorf("no directory entry matched")
		}
		return page.Value[0].ID, nil
	}
}
