package vehicles

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryCacheKey = "vehicles:fleet-summary"

// SummaryCache stores the fleet summary in redis so dashboard polling does
// not hit the database on every request.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache constructs a SummaryCache. A nil client disables caching.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary, or ok=false on miss or redis failure.
func (c *SummaryCache) Get(ctx context.Context) (FleetSummary, bool) {
	if c == nil || c.client == nil {
		return FleetSummary{}, false
	}
	raw, err := c.client.Get(ctx, summaryCacheKey).Bytes()
	if err != nil {
		return FleetSummary{}, false
	}
	var summary FleetSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return FleetSummary{}, false
	}
	return summary, true
}

// Set stores the summary, ignoring redis failures.
func (c *SummaryCache) Set(ctx context.Context, summary FleetSummary) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, summaryCacheKey, raw, c.ttl).Err()
}

// Bust drops the cached summary after allocation state changes.
func (c *SummaryCache) Bust(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, summaryCacheKey).Err()
}
