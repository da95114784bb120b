package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const dexscreenerURL = "https://api.dexscreener.com/latest/dex/tokens"

// DexScreener looks up token pair info on DexScreener.
type DexScreener struct {
	client  *http.Client
	baseURL string
}

// DexScreenerOption configures a DexScreener client.
type DexScreenerOption func(*DexScreener)

// WithDexScreenerURL overrides the API base URL.
func WithDexScreenerURL(url string) DexScreenerOption {
	return func(d *DexScreener) { d.baseURL = url }
}

// WithDexScreenerHTTPClient sets a custom HTTP client.
func WithDexScreenerHTTPClient(client *http.Client) DexScreenerOption {
	return func(d *DexScreener) { d.client = client }
}

// NewDexScreener creates a DexScreener client.
func NewDexScreener(opts ...DexScreenerOption) *DexScreener {
	d := &DexScreener{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: dexscreenerURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BoostInfo reports whether any pair for mint carries active boosts and
// the active boost count of the last boosted pair.
func (d *DexScreener) BoostInfo(ctx context.Context, mint string) (bool, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/"+mint, nil)
	if err != nil {
		return false, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("fetch token info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Pairs []struct {
			Boosts *struct {
				Active int `json:"active"`
			} `json:"boosts"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, fmt.Errorf("decode token info: %w", err)
	}

	boosted := false
	boosts := 0
	for _, pair := range body.Pairs {
		if pair.Boosts != nil {
			boosted = true
			boosts = pair.Boosts.Active
		}
	}
	return boosted, boosts, nil
}
