package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Itinerary record ───────────────────────────────────────

func (s *PGStore) GetItinerary(ctx context.Context, tripID uuid.UUID) (*model.Itinerary, error) {
	itin := &model.Itinerary{}
	err := s.db.QueryRow(ctx, `
		SELECT trip_id, version, generated_at FROM itineraries WHERE trip_id = $1
	`, tripID).Scan(&itin.TripID, &itin.Version, &itin.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("get itinerary for trip %s: %w", tripID, mapPGErr(err))
	}
	return itin, nil
}

// UpsertItinerary writes the itinerary record. Version must strictly increase;
// a stale version is a conflict, which is how concurrent editors lose.
func (s *PGStore) UpsertItinerary(ctx context.Context, itin *model.Itinerary) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO itineraries (trip_id, version, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (trip_id) DO UPDATE SET
			version = EXCLUDED.version,
			generated_at = EXCLUDED.generated_at
		WHERE itineraries.version < EXCLUDED.version
	`, itin.TripID, itin.Version, itin.GeneratedAt)
	if err != nil {
		return fmt.Errorf("upsert itinerary for trip %s: %w", itin.TripID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert itinerary for trip %s: version %d not newer: %w",
			itin.TripID, itin.Version, ErrConflict)
	}
	return nil
}

// SetItineraryVersion sets the version unconditionally; rollback only.
func (s *PGStore) SetItineraryVersion(ctx context.Context, tripID uuid.UUID, version int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE itineraries SET version = $2 WHERE trip_id = $1
	`, tripID, version)
	if err != nil {
		return fmt.Errorf("set itinerary version for trip %s: %w", tripID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Items ──────────────────────────────────────────────────

const itemColumns = `
	id, trip_id, day, item_type, poi_id, name, location,
	start_time, end_time, duration_minutes, is_pinned, "order",
	route_from_previous, cost_estimate, notes, created_at, updated_at`

func (s *PGStore) scanItem(row pgx.Row) (*model.ItineraryItem, error) {
	it := &model.ItineraryItem{}
	var location, route, cost []byte
	err := row.Scan(
		&it.ID, &it.TripID, &it.Day, &it.Type, &it.POIID, &it.Name, &location,
		&it.StartTime, &it.EndTime, &it.DurationMinutes, &it.IsPinned, &it.Order,
		&route, &cost, &it.Notes, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(location) > 0 {
		it.Location = &model.Location{}
		if err := fromJSON(location, it.Location); err != nil {
			return nil, err
		}
	}
	if len(route) > 0 {
		it.RouteFromPrevious = &model.RouteSegment{}
		if err := fromJSON(route, it.RouteFromPrevious); err != nil {
			return nil, err
		}
	}
	if len(cost) > 0 {
		it.CostEstimate = &model.CostEstimate{}
		if err := fromJSON(cost, it.CostEstimate); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (s *PGStore) listItems(ctx context.Context, query string, args ...any) ([]model.ItineraryItem, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", mapPGErr(err))
	}
	defer rows.Close()

	var items []model.ItineraryItem
	for rows.Next() {
		it, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// ListItems returns the trip's items ordered (day asc, "order" asc).
func (s *PGStore) ListItems(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryItem, error) {
	return s.listItems(ctx, `
		SELECT `+itemColumns+`
		FROM itinerary_items
		WHERE trip_id = $1
		ORDER BY day ASC, "order" ASC
	`, tripID)
}

func (s *PGStore) ListDayItems(ctx context.Context, tripID uuid.UUID, day int) ([]model.ItineraryItem, error) {
	return s.listItems(ctx, `
		SELECT `+itemColumns+`
		FROM itinerary_items
		WHERE trip_id = $1 AND day = $2
		ORDER BY "order" ASC
	`, tripID, day)
}

func (s *PGStore) GetItem(ctx context.Context, itemID uuid.UUID) (*model.ItineraryItem, error) {
	it, err := s.scanItem(s.db.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM itinerary_items WHERE id = $1
	`, itemID))
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, mapPGErr(err))
	}
	return it, nil
}

func (s *PGStore) InsertItem(ctx context.Context, item *model.ItineraryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	location, err := toJSON(item.Location)
	if err != nil {
		return err
	}
	route, err := toJSON(item.RouteFromPrevious)
	if err != nil {
		return err
	}
	cost, err := toJSON(item.CostEstimate)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO itinerary_items
			(id, trip_id, day, item_type, poi_id, name, location,
			 start_time, end_time, duration_minutes, is_pinned, "order",
			 route_from_previous, cost_estimate, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at
	`, item.ID, item.TripID, item.Day, item.Type, item.POIID, item.Name, location,
		item.StartTime, item.EndTime, item.DurationMinutes, item.IsPinned, item.Order,
		route, cost, item.Notes).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) UpdateItem(ctx context.Context, item *model.ItineraryItem) error {
	location, err := toJSON(item.Location)
	if err != nil {
		return err
	}
	route, err := toJSON(item.RouteFromPrevious)
	if err != nil {
		return err
	}
	cost, err := toJSON(item.CostEstimate)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE itinerary_items SET
			day = $2, item_type = $3, poi_id = $4, name = $5, location = $6,
			start_time = $7, end_time = $8, duration_minutes = $9,
			is_pinned = $10, "order" = $11,
			route_from_previous = $12, cost_estimate = $13, notes = $14,
			updated_at = now()
		WHERE id = $1
	`, item.ID, item.Day, item.Type, item.POIID, item.Name, location,
		item.StartTime, item.EndTime, item.DurationMinutes,
		item.IsPinned, item.Order, route, cost, item.Notes)
	if err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM itinerary_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteUnpinnedItems(ctx context.Context, tripID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM itinerary_items WHERE trip_id = $1 AND is_pinned = FALSE
	`, tripID)
	if err != nil {
		return fmt.Errorf("delete unpinned items for trip %s: %w", tripID, mapPGErr(err))
	}
	return nil
}

// ─── Versions (append-only) ─────────────────────────────────

func (s *PGStore) InsertVersion(ctx context.Context, v *model.ItineraryVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	snapshot, err := toJSON(v.Snapshot)
	if err != nil {
		return err
	}
	diff, err := toJSON(v.Diff)
	if err != nil {
		return err
	}
	// The UNIQUE (trip_id, version) index turns version races into conflicts.
	err = s.db.QueryRow(ctx, `
		INSERT INTO itinerary_versions (id, trip_id, version, change_type, changed_by, snapshot, diff)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, v.ID, v.TripID, v.Version, v.ChangeType, v.ChangedBy, snapshot, diff).
		Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert version %d for trip %s: %w", v.Version, v.TripID, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) scanVersion(row pgx.Row) (*model.ItineraryVersion, error) {
	v := &model.ItineraryVersion{}
	var snapshot, diff []byte
	err := row.Scan(&v.ID, &v.TripID, &v.Version, &v.ChangeType, &v.ChangedBy,
		&snapshot, &diff, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(snapshot, &v.Snapshot); err != nil {
		return nil, err
	}
	if len(diff) > 0 {
		v.Diff = &model.VersionDiff{}
		if err := fromJSON(diff, v.Diff); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (s *PGStore) GetVersion(ctx context.Context, tripID uuid.UUID, version int) (*model.ItineraryVersion, error) {
	v, err := s.scanVersion(s.db.QueryRow(ctx, `
		SELECT id, trip_id, version, change_type, changed_by, snapshot, diff, created_at
		FROM itinerary_versions
		WHERE trip_id = $1 AND version = $2
	`, tripID, version))
	if err != nil {
		return nil, fmt.Errorf("get version %d for trip %s: %w", version, tripID, mapPGErr(err))
	}
	return v, nil
}

func (s *PGStore) DeleteVersionsAbove(ctx context.Context, tripID uuid.UUID, version int) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM itinerary_versions
		WHERE trip_id = $1 AND version > $2
	`, tripID, version)
	if err != nil {
		return fmt.Errorf("delete versions above %d for trip %s: %w", version, tripID, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) ListVersions(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryVersion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, version, change_type, changed_by, snapshot, diff, created_at
		FROM itinerary_versions
		WHERE trip_id = $1
		ORDER BY version ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list versions for trip %s: %w", tripID, mapPGErr(err))
	}
	defer rows.Close()

	var versions []model.ItineraryVersion
	for rows.Next() {
		v, err := s.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}
