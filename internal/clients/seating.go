package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"order-orchestrator/internal/clientauth"
	"order-orchestrator/internal/models"
)

// HTTPSeating is the production Seating adapter implementing the four
// narrow operations of spec §4.2.
type HTTPSeating struct {
	httpBase
}

func NewHTTPSeating(baseURL string, httpClient *http.Client, tokens *clientauth.Source) *HTTPSeating {
	return &HTTPSeating{httpBase: newHTTPBase(baseURL, httpClient, tokens)}
}

func (s *HTTPSeating) GetSeats(ctx context.Context, eventID int64) ([]models.Seat, error) {
	req, err := s.newRequest(ctx, http.MethodGet, fmt.Sprintf("/internal/v1/events/%d/seats", eventID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seating service error: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seating service returned status %d", resp.StatusCode)
	}

	var seats []models.Seat
	if err := json.NewDecoder(resp.Body).Decode(&seats); err != nil {
		return nil, fmt.Errorf("decode seats: %w", err)
	}
	return seats, nil
}

func (s *HTTPSeating) ReserveSeats(ctx context.Context, reqBody models.ReserveSeatsRequest) (*models.ReserveSeatsResponse, error) {
	var out models.ReserveSeatsResponse
	if err := s.post(ctx, "/internal/v1/seats/reserve", reqBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSeating) AllocateSeats(ctx context.Context, reqBody models.AllocateSeatsRequest) error {
	return s.post(ctx, "/internal/v1/seats/allocate", reqBody, nil)
}

func (s *HTTPSeating) ReleaseSeats(ctx context.Context, reqBody models.ReleaseSeatsRequest) error {
	return s.post(ctx, "/internal/v1/seats/release", reqBody, nil)
}

func (s *HTTPSeating) post(ctx context.Context, path string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, path, encoded)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("seating service error: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("seating service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
