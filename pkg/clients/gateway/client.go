package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/floorlog/internal/config"
)

const accessConfigPath = "/rest/v1/auth_config"

// ErrNoAccessCode is returned when the gateway holds no access code row.
var ErrNoAccessCode = errors.New("gateway has no access code")

// APIClient reads the shared access code through a PostgREST-compatible REST
// gateway authenticated with a service key.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a gateway client using the provided configuration values.
func NewClient(cfg config.GatewayConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(cfg.URL).
		SetHeader("apikey", cfg.ServiceKey).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.ServiceKey)).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)

	return &APIClient{httpClient: restyClient}
}

type accessConfigRow struct {
	AccessCode string `json:"access_code"`
}

// apiError represents a PostgREST error payload.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Hint    string `json:"hint"`
}

// AccessCode fetches the stored access code.
func (c *APIClient) AccessCode(ctx context.Context) (string, error) {
	var rows []accessConfigRow
	if err := c.fetchAccessConfig(ctx, "access_code", &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 || rows[0].AccessCode == "" {
		return "", ErrNoAccessCode
	}
	return rows[0].AccessCode, nil
}

// Ping probes the gateway with a one-row read bounded by a five second timeout.
func (c *APIClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rows []map[string]any
	return c.fetchAccessConfig(ctx, "*", &rows)
}

func (c *APIClient) fetchAccessConfig(ctx context.Context, columns string, result any) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("select", columns).
		SetQueryParam("limit", "1").
		SetResult(result).
		SetError(apiErr).
		Get(accessConfigPath)
	if err != nil {
		return fmt.Errorf("query gateway access config: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("gateway api error: status=%d, code=%s, message=%s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}

	return nil
}
