package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/utakatalp/krach-ranker/internal/league"
)

// ErrNoData is returned when nothing has been stored yet.
var ErrNoData = errors.New("no stored data")

// Run is one persisted ranking computation.
type Run struct {
	ID         uuid.UUID
	Division   string
	Iterations int
	Converged  bool
	Params     league.Params
	Standings  []league.Standing
	CreatedAt  time.Time
}

// Store wraps a Postgres connection and provides methods to persist and retrieve schedules and rankings.
type Store struct {
	DB *sql.DB
}

// NewStore opens a Postgres connection using the given connection string.
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// verify early
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate creates the necessary tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS games (
		    id           SERIAL PRIMARY KEY,
		    division     TEXT NOT NULL,
		    schedule_idx INT  NOT NULL,
		    game_idx     INT  NOT NULL,
		    team         TEXT NOT NULL,
		    opponent     TEXT NOT NULL,
		    result       TEXT NOT NULL,
		    UNIQUE (division, schedule_idx, game_idx)
		);`,
		`CREATE TABLE IF NOT EXISTS ranking_runs (
		    id             UUID PRIMARY KEY,
		    division       TEXT NOT NULL,
		    iterations     INT  NOT NULL,
		    converged      BOOLEAN NOT NULL,
		    alpha          DOUBLE PRECISION NOT NULL,
		    scale          DOUBLE PRECISION NOT NULL,
		    max_iterations INT  NOT NULL,
		    tolerance      DOUBLE PRECISION NOT NULL,
		    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS rankings (
		    run_id UUID NOT NULL REFERENCES ranking_runs(id) ON DELETE CASCADE,
		    rank   INT  NOT NULL,
		    team   TEXT NOT NULL,
		    rating DOUBLE PRECISION NOT NULL,
		    PRIMARY KEY (run_id, rank)
		);`,
	}
	for _, q := range queries {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// SaveSchedules replaces the stored schedules of a division. Empty schedules
// are not stored, since they carry no games.
func (s *Store) SaveSchedules(ctx context.Context, division string, schedules [][]league.GameRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SaveSchedules tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE division = $1`, division); err != nil {
		return fmt.Errorf("clearing division %s: %w", division, err)
	}

	const q = `
	INSERT INTO games (division, schedule_idx, game_idx, team, opponent, result)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, schedule := range schedules {
		for j, g := range schedule {
			if _, err := tx.ExecContext(ctx, q, division, i, j, g.Team, g.Opponent, g.Result); err != nil {
				return fmt.Errorf("inserting game %d of schedule %d: %w", j, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit SaveSchedules tx: %w", err)
	}
	return nil
}

// LoadSchedules returns the schedules of a division in the order they were saved.
func (s *Store) LoadSchedules(ctx context.Context, division string) ([][]league.GameRecord, error) {
	const q = `
	SELECT schedule_idx, team, opponent, result
	FROM games
	WHERE division = $1
	ORDER BY schedule_idx, game_idx
	`
	rows, err := s.DB.QueryContext(ctx, q, division)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	var schedules [][]league.GameRecord
	last := -1
	for rows.Next() {
		var idx int
		var g league.GameRecord
		if err := rows.Scan(&idx, &g.Team, &g.Opponent, &g.Result); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		if idx != last {
			schedules = append(schedules, nil)
			last = idx
		}
		schedules[len(schedules)-1] = append(schedules[len(schedules)-1], g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games rows: %w", err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("division %s: %w", division, ErrNoData)
	}
	return schedules, nil
}

// Divisions lists every division with stored games.
func (s *Store) Divisions(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT division FROM games ORDER BY division`)
	if err != nil {
		return nil, fmt.Errorf("querying divisions: %w", err)
	}
	defer rows.Close()

	var divisions []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning division: %w", err)
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}

// SaveRankings persists a run and its standings. A zero run ID is replaced
// with a new one; the ID used is returned.
func (s *Store) SaveRankings(ctx context.Context, run *Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin SaveRankings tx: %w", err)
	}
	defer tx.Rollback()

	const runQ = `
	INSERT INTO ranking_runs (id, division, iterations, converged, alpha, scale, max_iterations, tolerance)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at
	`
	p := run.Params
	err = tx.QueryRowContext(ctx, runQ,
		run.ID, run.Division, run.Iterations, run.Converged,
		p.Alpha, p.Scale, p.MaxIterations, p.Tolerance,
	).Scan(&run.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving run %s: %w", run.ID, err)
	}

	const rankQ = `INSERT INTO rankings (run_id, rank, team, rating) VALUES ($1, $2, $3, $4)`
	for _, st := range run.Standings {
		if _, err := tx.ExecContext(ctx, rankQ, run.ID, st.Rank, st.Team, st.Rating); err != nil {
			return uuid.Nil, fmt.Errorf("saving rank %d (%s): %w", st.Rank, st.Team, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit SaveRankings tx: %w", err)
	}
	return run.ID, nil
}

// LatestRankings returns the most recent run of a division.
func (s *Store) LatestRankings(ctx context.Context, division string) (*Run, error) {
	const runQ = `
	SELECT id, iterations, converged, alpha, scale, max_iterations, tolerance, created_at
	FROM ranking_runs
	WHERE division = $1
	ORDER BY created_at DESC
	LIMIT 1
	`
	run := &Run{Division: division}
	err := s.DB.QueryRowContext(ctx, runQ, division).Scan(
		&run.ID,
		&run.Iterations,
		&run.Converged,
		&run.Params.Alpha,
		&run.Params.Scale,
		&run.Params.MaxIterations,
		&run.Params.Tolerance,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("division %s: %w", division, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT rank, team, rating FROM rankings WHERE run_id = $1 ORDER BY rank`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("querying rankings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st league.Standing
		if err := rows.Scan(&st.Rank, &st.Team, &st.Rating); err != nil {
			return nil, fmt.Errorf("scanning ranking row: %w", err)
		}
		run.Standings = append(run.Standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ranking rows: %w", err)
	}
	return run, nil
}

// DeleteDivision removes the games and rankings of a division.
func (s *Store) DeleteDivision(ctx context.Context, division string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin DeleteDivision tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE division = $1`, division); err != nil {
		return fmt.Errorf("deleting games: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_runs WHERE division = $1`, division); err != nil {
		return fmt.Errorf("deleting rankings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit DeleteDivision tx: %w", err)
	}
	return nil
}
