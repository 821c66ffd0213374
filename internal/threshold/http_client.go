package threshold

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClientConfig configures the external threshold service client.
type HTTPClientConfig struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	Retries    int
	HTTPClient *http.Client
}

// HTTPClient queries the external threshold service. Failures are expected
// and handled by the caller via Resolve's fallback.
type HTTPClient struct {
	baseURL string
	path    string
	client  *http.Client
	retries int
}

// NewHTTPClient validates the config and applies defaults.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("threshold base url required")
	}
	path := cfg.Path
	if path == "" {
		path = "/thresholds/lookup"
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		path:    path,
		client:  client,
		retries: retries,
	}, nil
}

func (c *HTTPClient) LookupThreshold(ctx context.Context, jurisdiction string) (Threshold, error) {
	endpoint := c.baseURL + c.path + "?jurisdiction=" + url.QueryEscape(jurisdiction)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		th, err := c.lookupOnce(ctx, endpoint, jurisdiction)
		if err == nil {
			return th, nil
		}
		lastErr = err
	}
	return Threshold{}, lastErr
}

func (c *HTTPClient) lookupOnce(ctx context.Context, endpoint, jurisdiction string) (Threshold, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Threshold{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Threshold{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Threshold{}, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, jurisdiction)
	}
	if resp.StatusCode != http.StatusOK {
		return Threshold{}, fmt.Errorf("threshold service status %d", resp.StatusCode)
	}

	var body struct {
		Value  float64 `json:"value"`
		Source string  `json:"source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Threshold{}, fmt.Errorf("decode threshold response: %w", err)
	}
	if body.Source == "" {
		body.Source = "threshold_service"
	}
	return Threshold{Value: body.Value, Source: body.Source}, nil
}
