// Package catalog exposes the POI catalog the planner draws candidates from.
// The catalog is read-only for the planning core; a cached decorator sits in
// front of it in production.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/pkg/geo"
)

// ErrPOINotFound is returned when a POI id does not resolve.
var ErrPOINotFound = errors.New("poi not found")

// Query filters a destination's POIs.
type Query struct {
	Destination string
	Tags        []string // match any
	NearBy      *model.Location
	WithinKm    float64 // used only when NearBy is set
	Limit       int
}

// Catalog is the POI lookup surface.
type Catalog interface {
	GetPOI(ctx context.Context, id uuid.UUID) (*model.POI, error)
	Search(ctx context.Context, q Query) ([]model.POI, error)
}

// ─── In-memory catalog ──────────────────────────────────────

// MemoryCatalog serves POIs from a per-destination index. It backs tests and
// local development; production wraps it (or a real upstream) in CachedCatalog.
type MemoryCatalog struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]model.POI
	byDest map[string][]uuid.UUID
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		byID:   make(map[uuid.UUID]model.POI),
		byDest: make(map[string][]uuid.UUID),
	}
}

// Put registers a POI under the given destination. A zero id gets one assigned.
func (c *MemoryCatalog) Put(destination string, poi model.POI) model.POI {
	c.mu.Lock()
	defer c.mu.Unlock()
	if poi.ID == uuid.Nil {
		poi.ID = uuid.New()
	}
	key := normalizeDest(destination)
	if _, ok := c.byID[poi.ID]; !ok {
		c.byDest[key] = append(c.byDest[key], poi.ID)
	}
	c.byID[poi.ID] = poi
	return poi
}

func (c *MemoryCatalog) GetPOI(ctx context.Context, id uuid.UUID) (*model.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	poi, ok := c.byID[id]
	if !ok {
		return nil, ErrPOINotFound
	}
	return &poi, nil
}

func (c *MemoryCatalog) Search(ctx context.Context, q Query) ([]model.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byDest[normalizeDest(q.Destination)]
	var out []model.POI
	for _, id := range ids {
		poi := c.byID[id]
		if !matchesTags(poi, q.Tags) {
			continue
		}
		if q.NearBy != nil && !geo.WithinKm(poi.Location, *q.NearBy, q.WithinKm) {
			continue
		}
		out = append(out, poi)
	}
	// Stable order keeps generation deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchesTags(poi model.POI, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if poi.HasTag(t) {
			return true
		}
	}
	return false
}

func normalizeDest(dest string) string {
	return strings.ToLower(strings.TrimSpace(dest))
}

var _ Catalog = (*MemoryCatalog)(nil)
