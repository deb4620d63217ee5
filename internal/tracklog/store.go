// Package tracklog records per-frame tracking results in SQLite so runs
// can be inspected and reported on afterwards.
package tracklog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trackcam/internal/monitoring"
	"github.com/banshee-data/trackcam/internal/tracking"
)

// ErrSessionNotFound is returned by Points for an unknown session.
var ErrSessionNotFound = errors.New("tracklog: session not found")

// Store is a SQLite-backed track log. It implements pipeline.ResultSink.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open track log %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writes from the frame loop.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("track log ready at %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Session summarises one recorded session.
type Session struct {
	ID         string
	StartedAt  time.Time
	StartFrame uint64
	Points     int
	Tracked    int
	Coasted    int
}

// Point is one recorded frame of a session.
type Point struct {
	Frame      uint64
	RecordedAt time.Time
	State      tracking.TrackState
	FailCount  int
	Predicted  *tracking.Point
	Corrected  *tracking.Point
	Region     *tracking.Region
}

// Record stores res. Frames without a session are skipped. The session
// row is created on the frame the session started.
func (s *Store) Record(ctx context.Context, at time.Time, res tracking.Result) error {
	if res.SessionID == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if res.Restarted {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sessions (session_id, started_at, start_frame) VALUES (?, ?, ?)`,
			res.SessionID, at.UnixNano(), res.Frame)
		if err != nil {
			return fmt.Errorf("insert session %s: %w", res.SessionID, err)
		}
	}

	var px, py, cx, cy sql.NullFloat64
	if res.Predicted != nil {
		px = sql.NullFloat64{Float64: res.Predicted.X, Valid: true}
		py = sql.NullFloat64{Float64: res.Predicted.Y, Valid: true}
	}
	if res.Corrected != nil {
		cx = sql.NullFloat64{Float64: res.Corrected.X, Valid: true}
		cy = sql.NullFloat64{Float64: res.Corrected.Y, Valid: true}
	}
	var rx, ry, rw, rh sql.NullInt64
	if r := res.Region; r != nil {
		rx = sql.NullInt64{Int64: int64(r.X), Valid: true}
		ry = sql.NullInt64{Int64: int64(r.Y), Valid: true}
		rw = sql.NullInt64{Int64: int64(r.Width), Valid: true}
		rh = sql.NullInt64{Int64: int64(r.Height), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO track_points (
			session_id, frame, recorded_at, state, fail_count,
			predicted_x, predicted_y, corrected_x, corrected_y,
			region_x, region_y, region_w, region_h
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID, res.Frame, at.UnixNano(), string(res.State), res.FailCount,
		px, py, cx, cy, rx, ry, rw, rh)
	if err != nil {
		return fmt.Errorf("insert frame %d: %w", res.Frame, err)
	}

	return tx.Commit()
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.started_at, s.start_frame,
		       COUNT(p.frame),
		       COALESCE(SUM(CASE WHEN p.state = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN p.state = ? THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN track_points p ON p.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.start_frame, s.started_at`,
		string(tracking.StateTracking), string(tracking.StateCoasting))
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess    Session
			started int64
		)
		if err := rows.Scan(&sess.ID, &started, &sess.StartFrame, &sess.Points, &sess.Tracked, &sess.Coasted); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.Unix(0, started).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Points returns the recorded frames of a session in frame order.
func (s *Store) Points(ctx context.Context, sessionID string) ([]Point, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, recorded_at, state, fail_count,
		       predicted_x, predicted_y, corrected_x, corrected_y,
		       region_x, region_y, region_w, region_h
		FROM track_points
		WHERE session_id = ?
		ORDER BY frame`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p              Point
			recorded       int64
			state          string
			px, py, cx, cy sql.NullFloat64
			rx, ry, rw, rh sql.NullInt64
		)
		if err := rows.Scan(&p.Frame, &recorded, &state, &p.FailCount, &px, &py, &cx, &cy, &rx, &ry, &rw, &rh); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.RecordedAt = time.Unix(0, recorded).UTC()
		p.State = tracking.TrackState(state)
		if px.Valid && py.Valid {
			p.Predicted = &tracking.Point{X: px.Float64, Y: py.Float64}
		}
		if cx.Valid && cy.Valid {
			p.Corrected = &tracking.Point{X: cx.Float64, Y: cy.Float64}
		}
		if rx.Valid && ry.Valid && rw.Valid && rh.Valid {
			p.Region = &tracking.Region{X: int(rx.Int64), Y: int(ry.Int64), Width: int(rw.Int64), Height: int(rh.Int64)}
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
