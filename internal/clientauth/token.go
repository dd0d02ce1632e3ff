// Package clientauth fetches and caches the machine-to-machine bearer
// token the outbound clients attach to calls against Catalog, Seating,
// and Payment, the way the ticketing platform's internal/auth package
// does for its own service-to-service calls.
package clientauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"order-orchestrator/internal/logger"
)

const cacheKey = "order_service:m2m_token"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Source fetches an M2M bearer token from a client-credentials token
// endpoint, caching it in Redis until it is within a minute of expiry.
type Source struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	redis        *redis.Client
	log          *logger.Logger
}

func NewSource(tokenURL, clientID, clientSecret string, httpClient *http.Client, redisClient *redis.Client, log *logger.Logger) *Source {
	return &Source{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		redis:        redisClient,
		log:          log,
	}
}

// Token returns a valid bearer token, reusing the cached one unless it
// is absent, unparseable, or within 60 seconds of its exp claim.
func (s *Source) Token(ctx context.Context) (string, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil && s.stillValid(cached) {
			return cached, nil
		}
	}

	token, expiresIn, err := s.requestToken(ctx)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		ttl := time.Duration(expiresIn-60) * time.Second
		if ttl <= 0 {
			ttl = time.Duration(expiresIn) * time.Second
		}
		if err := s.redis.Set(ctx, cacheKey, token, ttl).Err(); err != nil && s.log != nil {
			s.log.Warn("CLIENTAUTH", fmt.Sprintf("failed to cache m2m token: %v", err))
		}
	}
	return token, nil
}

func (s *Source) stillValid(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().Add(60 * time.Second).Before(exp.Time)
}

func (s *Source) requestToken(ctx context.Context) (string, int, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("m2m token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("m2m token request failed: status=%s body=%s", resp.Status, string(body))
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("decode m2m token response: %w", err)
	}
	return parsed.AccessToken, parsed.ExpiresIn, nil
}
