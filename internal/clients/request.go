package clients

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

func newRequestWithBody(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}
	return http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
}

func closeBody(body io.ReadCloser) {
	_ = body.Close()
}
