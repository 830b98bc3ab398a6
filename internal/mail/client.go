package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GraphClient issues authenticated requests against the mail provider's
// directory and send endpoints, attaching a cached bearer credential.
type GraphClient struct {
	http   *resty.Client
	creds  *CredentialCache
	logger *zap.Logger
}

// NewGraphClient builds a client rooted at the provider base URL.
func NewGraphClient(baseURL string, creds *CredentialCache, logger *zap.Logger) *GraphClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")

	return &GraphClient{http: client, creds: creds, logger: logger}
}

func (g *GraphClient) get(ctx context.Context, path string, query map[string]string, out any) (*resty.Response, error) {
	token, err := g.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	req := g.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if out != nil {
		req.SetResult(out)
	}
	return req.Get(path)
}

func (g *GraphClient) postJSON(ctx context.Context, path string, body any) (*resty.Response, error) {
	token, err := g.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	return g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
}

func statusError(resp *resty.Response) error {
	return fmt.Errorf("provider returned %d: %s", resp.StatusCode(), resp.String())
}
