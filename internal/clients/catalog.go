package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"order-orchestrator/internal/clientauth"
	"order-orchestrator/internal/models"
)

// HTTPCatalog is the production Catalog adapter: a thin GET against
// the catalog service's event lookup endpoint.
type HTTPCatalog struct {
	httpBase
}

func NewHTTPCatalog(baseURL string, httpClient *http.Client, tokens *clientauth.Source) *HTTPCatalog {
	return &HTTPCatalog{httpBase: newHTTPBase(baseURL, httpClient, tokens)}
}

func (c *HTTPCatalog) GetEvent(ctx context.Context, eventID int64) (*models.CatalogEvent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/internal/v1/events/%d", eventID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog service error: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var event models.CatalogEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("decode catalog event: %w", err)
	}
	return &event, nil
}
