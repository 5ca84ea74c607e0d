// Package db provides storage for naptrack: a Postgres store and an in-memory
// store behind the same Store interface.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// DB is the Postgres store.
type DB struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

// New creates a new database connection.
func New(databaseURL string, maxOpenConns int) (*DB, error) {
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db: db, q: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.tx != nil {
		return nil
	}
	return d.db.Close()
}

// Migrate applies the embedded schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// WithChild locks the child row for the duration of fn.
func (d *DB) WithChild(ctx context.Context, childID int64, fn func(tx Store) error) error {
	if d.tx != nil {
		return fn(d)
	}
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM children WHERE id = $1 FOR UPDATE`, childID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := fn(&DB{db: d.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func conflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// Child operations

// CreateChild inserts a child and sets its ID.
func (d *DB) CreateChild(ctx context.Context, c *models.Child) error {
	return d.q.QueryRowxContext(ctx, `
		INSERT INTO children (owner_id, name, birth_date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.OwnerID, c.Name, c.BirthDate).Scan(&c.ID, &c.CreatedAt)
}

// GetChild gets a child by ID.
func (d *DB) GetChild(ctx context.Context, id int64) (*models.Child, error) {
	var c models.Child
	err := sqlx.GetContext(ctx, d.q, &c, `SELECT * FROM children WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListChildren lists children owned by or shared with the user.
func (d *DB) ListChildren(ctx context.Context, userID string) ([]models.Child, error) {
	var children []models.Child
	err := sqlx.SelectContext(ctx, d.q, &children, `
		SELECT c.* FROM children c
		WHERE c.owner_id = $1
		   OR EXISTS (SELECT 1 FROM caregivers g WHERE g.child_id = c.id AND g.user_id = $1)
		ORDER BY c.created_at
	`, userID)
	return children, err
}

// GetCaregiverRole returns the user's explicit role on a child.
func (d *DB) GetCaregiverRole(ctx context.Context, childID int64, userID string) (models.Role, error) {
	var role models.Role
	err := sqlx.GetContext(ctx, d.q, &role, `
		SELECT role FROM caregivers WHERE child_id = $1 AND user_id = $2
	`, childID, userID)
	if err != nil {
		return "", notFound(err)
	}
	return role, nil
}

// PutCaregiver grants or replaces a role.
func (d *DB) PutCaregiver(ctx context.Context, c models.Caregiver) error {
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO caregivers (child_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (child_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, c.ChildID, c.UserID, c.Role)
	return err
}

// Session operations

// CreateSession inserts a session and sets its ID and timestamps.
func (d *DB) CreateSession(ctx context.Context, s *models.SleepSession) error {
	err := d.q.QueryRowxContext(ctx, `
		INSERT INTO sleep_sessions (
			child_id, created_by, session_type, nap_number, location, is_ad_hoc, state,
			put_down_at, asleep_at, woke_up_at, out_of_crib_at,
			total_minutes, sleep_minutes, settling_minutes, post_wake_minutes,
			awake_crib_minutes, qualified_rest_minutes, crying_minutes, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at
	`, s.ChildID, s.CreatedBy, s.SessionType, s.NapNumber, s.Location, s.IsAdHoc, s.State,
		s.PutDownAt, s.AsleepAt, s.WokeUpAt, s.OutOfCribAt,
		s.TotalMinutes, s.SleepMinutes, s.SettlingMinutes, s.PostWakeMinutes,
		s.AwakeCribMinutes, s.QualifiedRestMinutes, s.CryingMinutes, s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return conflict(err)
}

// UpdateSession writes every mutable column of a session.
func (d *DB) UpdateSession(ctx context.Context, s *models.SleepSession) error {
	err := d.q.QueryRowxContext(ctx, `
		UPDATE sleep_sessions SET
			state = $3,
			put_down_at = $4,
			asleep_at = $5,
			woke_up_at = $6,
			out_of_crib_at = $7,
			total_minutes = $8,
			sleep_minutes = $9,
			settling_minutes = $10,
			post_wake_minutes = $11,
			awake_crib_minutes = $12,
			qualified_rest_minutes = $13,
			crying_minutes = $14,
			notes = $15,
			updated_at = NOW()
		WHERE id = $1 AND child_id = $2
		RETURNING updated_at
	`, s.ID, s.ChildID, s.State, s.PutDownAt, s.AsleepAt, s.WokeUpAt, s.OutOfCribAt,
		s.TotalMinutes, s.SleepMinutes, s.SettlingMinutes, s.PostWakeMinutes,
		s.AwakeCribMinutes, s.QualifiedRestMinutes, s.CryingMinutes, s.Notes,
	).Scan(&s.UpdatedAt)
	return notFound(err)
}

// DeleteSession deletes a session and, by cascade, its cycles.
func (d *DB) DeleteSession(ctx context.Context, childID, sessionID int64) error {
	result, err := d.q.ExecContext(ctx, `
		DELETE FROM sleep_sessions WHERE id = $1 AND child_id = $2
	`, sessionID, childID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession gets one of a child's sessions.
func (d *DB) GetSession(ctx context.Context, childID, sessionID int64) (*models.SleepSession, error) {
	var s models.SleepSession
	err := sqlx.GetContext(ctx, d.q, &s, `
		SELECT * FROM sleep_sessions WHERE id = $1 AND child_id = $2
	`, sessionID, childID)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ActiveSession gets the child's non-completed session.
func (d *DB) ActiveSession(ctx context.Context, childID int64) (*models.SleepSession, error) {
	var s models.SleepSession
	err := sqlx.GetContext(ctx, d.q, &s, `
		SELECT * FROM sleep_sessions WHERE child_id = $1 AND state <> 'COMPLETED'
	`, childID)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListSessions lists sessions put down in [from, to).
func (d *DB) ListSessions(ctx context.Context, childID int64, from, to time.Time) ([]models.SleepSession, error) {
	var sessions []models.SleepSession
	err := sqlx.SelectContext(ctx, d.q, &sessions, `
		SELECT * FROM sleep_sessions
		WHERE child_id = $1 AND put_down_at >= $2 AND put_down_at < $3
		ORDER BY put_down_at
	`, childID, from, to)
	return sessions, err
}

// ListCycles lists a session's cycles in order.
func (d *DB) ListCycles(ctx context.Context, sessionID int64) ([]models.SleepCycle, error) {
	var cycles []models.SleepCycle
	err := sqlx.SelectContext(ctx, d.q, &cycles, `
		SELECT * FROM sleep_cycles WHERE session_id = $1 ORDER BY cycle_number
	`, sessionID)
	return cycles, err
}

// ReplaceCycles deletes and re-inserts a session's cycles, keeping known IDs.
func (d *DB) ReplaceCycles(ctx context.Context, sessionID int64, cycles []models.SleepCycle) ([]models.SleepCycle, error) {
	if _, err := d.q.ExecContext(ctx, `DELETE FROM sleep_cycles WHERE session_id = $1`, sessionID); err != nil {
		return nil, err
	}
	out := make([]models.SleepCycle, len(cycles))
	for i, c := range cycles {
		c.SessionID = sessionID
		if c.ID != 0 {
			_, err := d.q.ExecContext(ctx, `
				INSERT INTO sleep_cycles (id, session_id, cycle_number, woke_up_at, fell_back_asleep_at, wake_type, sleep_minutes, awake_minutes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, c.ID, c.SessionID, c.CycleNumber, c.WokeUpAt, c.FellBackAsleepAt, c.WakeType, c.SleepMinutes, c.AwakeMinutes)
			if err != nil {
				return nil, err
			}
		} else {
			err := d.q.QueryRowxContext(ctx, `
				INSERT INTO sleep_cycles (session_id, cycle_number, woke_up_at, fell_back_asleep_at, wake_type, sleep_minutes, awake_minutes)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id
			`, c.SessionID, c.CycleNumber, c.WokeUpAt, c.FellBackAsleepAt, c.WakeType, c.SleepMinutes, c.AwakeMinutes).Scan(&c.ID)
			if err != nil {
				return nil, err
			}
		}
		out[i] = c
	}
	return out, nil
}

// Schedule operations

type scheduleRow struct {
	ID        int64               `db:"id"`
	ChildID   int64               `db:"child_id"`
	Type      models.ScheduleType `db:"schedule_type"`
	Config    []byte              `db:"config"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// GetSchedule gets a child's schedule.
func (d *DB) GetSchedule(ctx context.Context, childID int64) (*models.SleepSchedule, error) {
	var row scheduleRow
	err := sqlx.GetContext(ctx, d.q, &row, `SELECT * FROM sleep_schedules WHERE child_id = $1`, childID)
	if err != nil {
		return nil, notFound(err)
	}
	s := &models.SleepSchedule{ID: row.ID, ChildID: row.ChildID, Type: row.Type, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal(row.Config, &s.Config); err != nil {
		return nil, fmt.Errorf("decoding schedule config for child %d: %w", childID, err)
	}
	return s, nil
}

// PutSchedule creates or replaces a child's schedule.
func (d *DB) PutSchedule(ctx context.Context, s *models.SleepSchedule) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return err
	}
	return d.q.QueryRowxContext(ctx, `
		INSERT INTO sleep_schedules (child_id, schedule_type, config)
		VALUES ($1, $2, $3)
		ON CONFLICT (child_id) DO UPDATE SET
			schedule_type = EXCLUDED.schedule_type,
			config = EXCLUDED.config,
			updated_at = NOW()
		RETURNING id, updated_at
	`, s.ChildID, s.Type, config).Scan(&s.ID, &s.UpdatedAt)
}

// Transition operations

// GetTransition gets the child's latest transition.
func (d *DB) GetTransition(ctx context.Context, childID int64) (*models.Transition, error) {
	var t models.Transition
	err := sqlx.GetContext(ctx, d.q, &t, `
		SELECT * FROM schedule_transitions WHERE child_id = $1
		ORDER BY started_at DESC, id DESC LIMIT 1
	`, childID)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// SaveTransition inserts a new transition or updates an existing one.
func (d *DB) SaveTransition(ctx context.Context, t *models.Transition) error {
	if t.ID == 0 {
		return d.q.QueryRowxContext(ctx, `
			INSERT INTO schedule_transitions (child_id, from_type, to_type, current_week, target_weeks, current_nap_time, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, t.ChildID, t.FromType, t.ToType, t.CurrentWeek, t.TargetWeeks, t.CurrentNapTime, t.StartedAt, t.CompletedAt).Scan(&t.ID)
	}
	result, err := d.q.ExecContext(ctx, `
		UPDATE schedule_transitions SET
			current_week = $2,
			target_weeks = $3,
			current_nap_time = $4,
			completed_at = $5
		WHERE id = $1
	`, t.ID, t.CurrentWeek, t.TargetWeeks, t.CurrentNapTime, t.CompletedAt)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// User settings

// GetUserTimezone gets the user's stored IANA timezone.
func (d *DB) GetUserTimezone(ctx context.Context, userID string) (string, error) {
	var tz string
	err := sqlx.GetContext(ctx, d.q, &tz, `SELECT timezone FROM user_settings WHERE user_id = $1`, userID)
	if err != nil {
		return "", notFound(err)
	}
	return tz, nil
}

// SetUserTimezone stores the user's timezone.
func (d *DB) SetUserTimezone(ctx context.Context, userID, timezone string) error {
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, timezone) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone, updated_at = NOW()
	`, userID, timezone)
	return err
}

var _ Store = (*DB)(nil)
