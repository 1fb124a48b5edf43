package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Event signals ──────────────────────────────────────────

func (s *PGStore) InsertEventSignal(ctx context.Context, e *model.EventSignal) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	location, err := toJSON(e.Location)
	if err != nil {
		return err
	}
	timeSlot, err := toJSON(e.TimeSlot)
	if err != nil {
		return err
	}
	details, err := toJSON(e.Details)
	if err != nil {
		return err
	}
	affected, err := toJSON(e.AffectedItems)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO event_signals
			(id, trip_id, event_type, severity, location, time_slot, details,
			 affected_items, processed, replan_triggered)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, e.ID, e.TripID, e.Type, e.Severity, location, timeSlot, details,
		affected, e.Processed, e.ReplanTriggered).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event signal: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) scanEventSignal(row pgx.Row) (*model.EventSignal, error) {
	e := &model.EventSignal{}
	var location, timeSlot, details, affected []byte
	err := row.Scan(&e.ID, &e.TripID, &e.Type, &e.Severity, &location, &timeSlot,
		&details, &affected, &e.Processed, &e.ReplanTriggered, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(location, &e.Location); err != nil {
		return nil, err
	}
	if err := fromJSON(timeSlot, &e.TimeSlot); err != nil {
		return nil, err
	}
	if err := fromJSON(details, &e.Details); err != nil {
		return nil, err
	}
	if err := fromJSON(affected, &e.AffectedItems); err != nil {
		return nil, err
	}
	return e, nil
}

const eventColumns = `
	id, trip_id, event_type, severity, location, time_slot, details,
	affected_items, processed, replan_triggered, created_at`

func (s *PGStore) GetEventSignal(ctx context.Context, id uuid.UUID) (*model.EventSignal, error) {
	e, err := s.scanEventSignal(s.db.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM event_signals WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get event signal %s: %w", id, mapPGErr(err))
	}
	return e, nil
}

func (s *PGStore) MarkEventProcessed(ctx context.Context, id uuid.UUID, replanTriggered bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE event_signals SET processed = TRUE, replan_triggered = $2 WHERE id = $1
	`, id, replanTriggered)
	if err != nil {
		return fmt.Errorf("mark event %s processed: %w", id, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListUnprocessedEvents(ctx context.Context, tripID uuid.UUID) ([]model.EventSignal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM event_signals
		WHERE trip_id = $1 AND processed = FALSE
		ORDER BY created_at ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events for trip %s: %w", tripID, mapPGErr(err))
	}
	defer rows.Close()

	var events []model.EventSignal
	for rows.Next() {
		e, err := s.scanEventSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event signal: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ─── Triggers ───────────────────────────────────────────────

func (s *PGStore) InsertTrigger(ctx context.Context, t *model.ReplanTrigger) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO replan_triggers (id, trip_id, event_signal_id, reason, priority, processed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.TripID, t.EventSignalID, t.Reason, t.Priority, t.Processed).
		Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert replan trigger: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) GetTrigger(ctx context.Context, id uuid.UUID) (*model.ReplanTrigger, error) {
	t := &model.ReplanTrigger{}
	err := s.db.QueryRow(ctx, `
		SELECT id, trip_id, event_signal_id, reason, priority, processed, created_at
		FROM replan_triggers WHERE id = $1
	`, id).Scan(&t.ID, &t.TripID, &t.EventSignalID, &t.Reason, &t.Priority,
		&t.Processed, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get replan trigger %s: %w", id, mapPGErr(err))
	}
	return t, nil
}

func (s *PGStore) MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE replan_triggers SET processed = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark trigger %s processed: %w", id, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListOpenTriggers(ctx context.Context, tripID uuid.UUID) ([]model.ReplanTrigger, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, event_signal_id, reason, priority, processed, created_at
		FROM replan_triggers
		WHERE trip_id = $1 AND processed = FALSE
		ORDER BY created_at ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list open triggers for trip %s: %w", tripID, mapPGErr(err))
	}
	defer rows.Close()

	var triggers []model.ReplanTrigger
	for rows.Next() {
		var t model.ReplanTrigger
		if err := rows.Scan(&t.ID, &t.TripID, &t.EventSignalID, &t.Reason,
			&t.Priority, &t.Processed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan replan trigger: %w", err)
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// ─── Proposals ──────────────────────────────────────────────

func (s *PGStore) InsertProposal(ctx context.Context, p *model.ReplanProposal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	changes, err := toJSON(p.Changes)
	if err != nil {
		return err
	}
	impact, err := toJSON(p.Impact)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO replan_proposals (id, trip_id, trigger_id, score, explanation, changes, impact)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.TripID, p.TriggerID, p.Score, p.Explanation, changes, impact).
		Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert replan proposal: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) scanProposal(row pgx.Row) (*model.ReplanProposal, error) {
	p := &model.ReplanProposal{}
	var changes, impact []byte
	err := row.Scan(&p.ID, &p.TripID, &p.TriggerID, &p.Score, &p.Explanation,
		&changes, &impact, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(changes, &p.Changes); err != nil {
		return nil, err
	}
	if err := fromJSON(impact, &p.Impact); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PGStore) GetProposal(ctx context.Context, id uuid.UUID) (*model.ReplanProposal, error) {
	p, err := s.scanProposal(s.db.QueryRow(ctx, `
		SELECT id, trip_id, trigger_id, score, explanation, changes, impact, created_at
		FROM replan_proposals WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get replan proposal %s: %w", id, mapPGErr(err))
	}
	return p, nil
}

// ListProposalsByTrigger returns the trigger's proposals, best score first.
func (s *PGStore) ListProposalsByTrigger(ctx context.Context, triggerID uuid.UUID) ([]model.ReplanProposal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, trigger_id, score, explanation, changes, impact, created_at
		FROM replan_proposals
		WHERE trigger_id = $1
		ORDER BY score DESC, created_at ASC
	`, triggerID)
	if err != nil {
		return nil, fmt.Errorf("list proposals for trigger %s: %w", triggerID, mapPGErr(err))
	}
	defer rows.Close()

	var proposals []model.ReplanProposal
	for rows.Next() {
		p, err := s.scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan replan proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// ─── Applications ───────────────────────────────────────────

func (s *PGStore) InsertApplication(ctx context.Context, a *model.ReplanApplication) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// UNIQUE (idempotency_key) rejects apply replays as conflicts.
	err := s.db.QueryRow(ctx, `
		INSERT INTO replan_applications
			(id, trip_id, proposal_id, idempotency_key, applied_version,
			 rollback_available_until, rolled_back, rolled_back_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, a.ID, a.TripID, a.ProposalID, a.IdempotencyKey, a.AppliedVersion,
		a.RollbackAvailableUntil, a.RolledBack, a.RolledBackAt).
		Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert replan application: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) scanApplication(row pgx.Row) (*model.ReplanApplication, error) {
	a := &model.ReplanApplication{}
	err := row.Scan(&a.ID, &a.TripID, &a.ProposalID, &a.IdempotencyKey,
		&a.AppliedVersion, &a.RollbackAvailableUntil, &a.RolledBack,
		&a.RolledBackAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

const applicationColumns = `
	id, trip_id, proposal_id, idempotency_key, applied_version,
	rollback_available_until, rolled_back, rolled_back_at, created_at`

func (s *PGStore) GetApplication(ctx context.Context, id uuid.UUID) (*model.ReplanApplication, error) {
	a, err := s.scanApplication(s.db.QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM replan_applications WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get replan application %s: %w", id, mapPGErr(err))
	}
	return a, nil
}

func (s *PGStore) GetApplicationByKey(ctx context.Context, idempotencyKey string) (*model.ReplanApplication, error) {
	a, err := s.scanApplication(s.db.QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM replan_applications WHERE idempotency_key = $1
	`, idempotencyKey))
	if err != nil {
		return nil, fmt.Errorf("get replan application by key %q: %w", idempotencyKey, mapPGErr(err))
	}
	return a, nil
}

func (s *PGStore) UpdateApplication(ctx context.Context, a *model.ReplanApplication) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE replan_applications SET
			applied_version = $2, rollback_available_until = $3,
			rolled_back = $4, rolled_back_at = $5
		WHERE id = $1
	`, a.ID, a.AppliedVersion, a.RollbackAvailableUntil, a.RolledBack, a.RolledBackAt)
	if err != nil {
		return fmt.Errorf("update replan application %s: %w", a.ID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
