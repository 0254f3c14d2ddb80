package peers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
)

// ClientConfig tunes the HTTP provider's retry and connection behaviour.
type ClientConfig struct {
	MaxRetries      int
	RetryDelayBase  time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// HTTPProvider fetches peer averages from a comparative-analytics service:
//
//	GET {base}/peer-averages?category=BROILER
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
	cfg        ClientConfig
}

// peerAveragesResponse is the service's JSON shape. The body may be a bare
// null, and sampleSize is optional: an answer without it counts as one peer.
type peerAveragesResponse struct {
	Category         string  `json:"category"`
	SampleSize       *int    `json:"sampleSize"`
	AvgAge           float64 `json:"avgAge"`
	AvgWeight        float64 `json:"avgWeight"`
	AvgMortalityRate float64 `json:"avgMortalityRate"`
	AvgGrowthRate    float64 `json:"avgGrowthRate"`
	AvgMarginPercent float64 `json:"avgMarginPercent"`
}

// NewHTTPProvider creates a provider against baseURL.
func NewHTTPProvider(baseURL string, timeout time.Duration, cfg ClientConfig) *HTTPProvider {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = 500 * time.Millisecond
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	return &HTTPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    cfg.MaxIdleConns,
				IdleConnTimeout: cfg.IdleConnTimeout,
			},
		},
		cfg: cfg,
	}
}

// PeerAverages implements forecast.PeerAverageProvider.
// A 404 means the service has no peers for the category and yields (nil, nil).
func (p *HTTPProvider) PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error) {
	u := fmt.Sprintf("%s/peer-averages?category=%s", p.baseURL, url.QueryEscape(string(category)))

	resp, err := p.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch peer averages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from peer service", resp.StatusCode)
	}

	var body *peerAveragesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode peer averages: %w", err)
	}
	if body == nil {
		return nil, nil
	}

	sampleSize := 1
	if body.SampleSize != nil {
		sampleSize = *body.SampleSize
	}

	return &models.PeerAverages{
		Category:         category,
		SampleSize:       sampleSize,
		AvgAge:           body.AvgAge,
		AvgWeight:        body.AvgWeight,
		AvgMortalityRate: body.AvgMortalityRate,
		AvgGrowthRate:    body.AvgGrowthRate,
		AvgMarginPercent: body.AvgMarginPercent,
	}, nil
}

// doRequest performs HTTP request with retry logic on transport errors and 5xx.
func (p *HTTPProvider) doRequest(ctx context.Context, u string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < p.cfg.MaxRetries; i++ {
		if i > 0 {
			delay := p.cfg.RetryDelayBase * time.Duration(i)
			logger.Debug("peer service retry %d/%d in %v: %v", i, p.cfg.MaxRetries-1, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
