package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/model"
)

// CachedCatalog is a read-through Redis cache in front of another Catalog.
// Cache failures degrade to the upstream; they are logged, never surfaced.
type CachedCatalog struct {
	upstream Catalog
	rdb      *redis.Client
	ttl      time.Duration
	log      zerolog.Logger
}

func NewCachedCatalog(upstream Catalog, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		upstream: upstream,
		rdb:      rdb,
		ttl:      ttl,
		log:      log.With().Str("component", "catalog_cache").Logger(),
	}
}

func poiKey(id uuid.UUID) string {
	return "wayplan:poi:" + id.String()
}

func (c *CachedCatalog) GetPOI(ctx context.Context, id uuid.UUID) (*model.POI, error) {
	key := poiKey(id)
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		poi := &model.POI{}
		if err := json.Unmarshal(data, poi); err == nil {
			return poi, nil
		}
		// Corrupt entry: drop it and fall through to upstream.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("poi_id", id.String()).Msg("cache read failed")
	}

	poi, err := c.upstream.GetPOI(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(poi); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("poi_id", id.String()).Msg("cache write failed")
		}
	}
	return poi, nil
}

// Search is not cached: queries are too varied to key usefully, and the
// upstream index is already cheap.
func (c *CachedCatalog) Search(ctx context.Context, q Query) ([]model.POI, error) {
	pois, err := c.upstream.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog search %q: %w", q.Destination, err)
	}
	return pois, nil
}

var _ Catalog = (*CachedCatalog)(nil)
