package clients

import (
	"context"
	"fmt"
	"net/http"

	"order-orchestrator/internal/clientauth"
	"order-orchestrator/internal/correlation"
)

// httpBase is embedded by every HTTP-backed adapter: it owns the base
// URL, the shared *http.Client (carrying the per-request timeout), the
// M2M token source, and the correlation-id/auth header attachment
// every outbound call needs per spec §4.4 and §4.2.
type httpBase struct {
	baseURL    string
	httpClient *http.Client
	tokens     *clientauth.Source
}

func newHTTPBase(baseURL string, httpClient *http.Client, tokens *clientauth.Source) httpBase {
	return httpBase{baseURL: baseURL, httpClient: httpClient, tokens: tokens}
}

func (b httpBase) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := newRequestWithBody(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if id := correlation.IDOrEmpty(ctx); id != "" {
		req.Header.Set(correlation.HeaderName, id)
	}
	if b.tokens != nil {
		token, err := b.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch m2m token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}
