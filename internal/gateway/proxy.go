package gateway

import (
	"context"
	"net/http"
	"strconv"
)

const (
	userIDHeader         = "X-User-ID"
	idempotencyKeyHeader = "Idempotency-Key"
)

// forwardedHeaders are copied from the client request as-is.
var forwardedHeaders = []string{"Content-Type", "Accept", idempotencyKeyHeader}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays r against the upstream service at path, keeping the
// query string. The user id header is set only from the verified token,
// never copied from the client.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if userID, ok := UserIDFromContext(ctx); ok {
		req.Header.Set(userIDHeader, strconv.FormatInt(userID, 10))
	}

	return p.client.Do(req)
}
