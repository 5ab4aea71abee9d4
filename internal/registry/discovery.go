package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"predictarb/internal/money"
	"predictarb/pkg/ratelimit"
	"predictarb/pkg/retry"
)

// discoveredMarket is the shape the discovery API returns for one market.
// Venue-specific REST pagination is out of scope here; DiscoveryClient's
// job is only to produce []Market for Registry.Refresh.
type discoveredMarket struct {
	Venue       string  `json:"venue"`
	ConditionID string  `json:"condition_id"`
	Asset       string  `json:"asset"`
	Timeframe   string  `json:"timeframe"`
	YesToken    string  `json:"yes_token"`
	NoToken     string  `json:"no_token"`
	EndTime     int64   `json:"end_time_unix"`
	FeeRate     float64 `json:"fee_rate"`
}

type discoveryResponse struct {
	Markets []discoveredMarket `json:"markets"`
	Matches [][2]string        `json:"matches"`
}

// DiscoveryClient fetches the active-market list from an external discovery
// API over REST, wrapped in the package's retry/rate-limit collaborators so
// a slow or flaky discovery service degrades gracefully rather than
// spinning the refresh loop.
type DiscoveryClient struct {
	http    *resty.Client
	limiter *ratelimit.RateLimiter
	log     *zap.Logger
}

func NewDiscoveryClient(baseURL string, timeout time.Duration, log *zap.Logger) *DiscoveryClient {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &DiscoveryClient{
		http:    client,
		limiter: ratelimit.NewRateLimiter(5, 10), // 5 req/s sustained, burst 10
		log:     log,
	}
}

// FetchActiveMarkets pulls the current active-market-and-matches snapshot
// from the discovery API, retrying transient failures with bounded backoff.
func (c *DiscoveryClient) FetchActiveMarkets(ctx context.Context, assets []string) ([]Market, [][2]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var body discoveryResponse
	err := retry.Do(ctx, func() error {
		req := c.http.R().SetContext(ctx).SetResult(&body)
		if len(assets) > 0 {
			req.SetQueryParam("assets", joinAssets(assets))
		}
		resp, err := req.Get("/markets/active")
		if err != nil {
			return retry.Temporary(err)
		}
		if resp.IsError() {
			return fmt.Errorf("discovery API returned %s", resp.Status())
		}
		return nil
	}, retry.NetworkConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch active markets: %w", err)
	}

	out := make([]Market, 0, len(body.Markets))
	for _, dm := range body.Markets {
		out = append(out, Market{
			ID:          dm.Venue + ":" + dm.ConditionID,
			Venue:       dm.Venue,
			ConditionID: dm.ConditionID,
			Asset:       dm.Asset,
			Timeframe:   dm.Timeframe,
			YesToken:    dm.YesToken,
			NoToken:     dm.NoToken,
			EndTime:     time.Unix(dm.EndTime, 0).UTC(),
			Active:      true,
			FeeRate:     money.NewPrice(fmt.Sprintf("%.6f", dm.FeeRate)),
		})
	}
	return out, body.Matches, nil
}

func joinAssets(assets []string) string {
	out := ""
	for i, a := range assets {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}
