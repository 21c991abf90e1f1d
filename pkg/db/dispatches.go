package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

var ErrDispatchNotFound = errors.New("dispatch not found")

// DefaultDispatchLimit caps List when the caller passes a non-positive limit.
const DefaultDispatchLimit = 50

// DispatchStore persists completed dispatches and their per-cup outcomes.
type DispatchStore interface {
	Record(ctx context.Context, rec dispatch.Record) error
	Get(ctx context.Context, id uuid.UUID) (*dispatch.Record, error)
	List(ctx context.Context, limit int) ([]*dispatch.Record, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Dispatches returns a DispatchStore for this database.
func (db *DB) Dispatches() DispatchStore {
	return &dispatchStore{db: db}
}

type dispatchStore struct {
	db *DB
}

// timeLayout keeps sub-second precision so history sorts in dispatch order.
const timeLayout = "2006-01-02 15:04:05.000000"

func (s *dispatchStore) Record(ctx context.Context, rec dispatch.Record) error {
	command, err := json.Marshal(rec.Command)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dispatches (id, kind, command, started_at, duration_ms, succeeded, total)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID.String(), string(rec.Command.Kind), string(command),
			rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
			rec.Outcomes.Succeeded(), len(rec.Outcomes))
		if err != nil {
			return fmt.Errorf("failed to insert dispatch: %w", err)
		}

		for id, outcome := range rec.Outcomes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO dispatch_outcomes (dispatch_id, cup_id, outcome) VALUES (?, ?, ?)
			`, rec.ID.String(), id, string(outcome)); err != nil {
				return fmt.Errorf("failed to insert outcome for %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *dispatchStore) Get(ctx context.Context, id uuid.UUID) (*dispatch.Record, error) {
	rec, err := scanDispatch(s.db.QueryRowContext(ctx, `
		SELECT id, command, started_at, duration_ms FROM dispatches WHERE id = ?
	`, id.String()))
	if err != nil {
		return nil, err
	}
	if err := s.loadOutcomes(ctx, []*dispatch.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the most recent dispatches, newest first.
func (s *dispatchStore) List(ctx context.Context, limit int) ([]*dispatch.Record, error) {
	if limit <= 0 {
		limit = DefaultDispatchLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, started_at, duration_ms FROM dispatches
		ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []*dispatch.Record
	for rows.Next() {
		rec, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadOutcomes(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Prune deletes all but the newest keep dispatches and returns how many
// were removed.
func (s *dispatchStore) Prune(ctx context.Context, keep int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM dispatches WHERE id NOT IN (
			SELECT id FROM dispatches ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanDispatch(row rowScanner) (*dispatch.Record, error) {
	var (
		id, command, startedAt string
		durationMS             int64
	)
	if err := row.Scan(&id, &command, &startedAt, &durationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDispatchNotFound
		}
		return nil, err
	}

	rec := &dispatch.Record{Outcomes: cup.Outcomes{}}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("dispatch %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(command), &rec.Command); err != nil {
		return nil, fmt.Errorf("dispatch %s: decode command: %w", id, err)
	}
	rec.StartedAt, _ = time.Parse(timeLayout, startedAt)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

func (s *dispatchStore) loadOutcomes(ctx context.Context, recs []*dispatch.Record) error {
	for _, rec := range recs {
		rows, err := s.db.QueryContext(ctx, `
			SELECT cup_id, outcome FROM dispatch_outcomes WHERE dispatch_id = ? ORDER BY cup_id
		`, rec.ID.String())
		if err != nil {
			return err
		}
		for rows.Next() {
			var id, outcome string
			if err := rows.Scan(&id, &outcome); err != nil {
				_ = rows.Close()
				return err
			}
			rec.Outcomes[id] = cup.Outcome(outcome)
			rec.Targets = append(rec.Targets, id)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
		slices.Sort(rec.Targets)
	}
	return nil
}

// RecordDispatches returns a dispatch listener that writes each record to
// history. Failures are logged and never reach the caller of Dispatch.
func (db *DB) RecordDispatches(timeout time.Duration) func(dispatch.Record) {
	store := db.Dispatches()
	return func(rec dispatch.Record) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := store.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Str("dispatch", rec.ID.String()).Msg("Failed to record dispatch")
		}
	}
}
