// Package recorder persists scan and odometry records of simulation
// sessions to a SQLite database.
package recorder

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/rosmsg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUnknownSession is returned when recording into a session that was
// never started.
var ErrUnknownSession = errors.New("recorder: unknown session")

var logf = monitoring.Component("recorder")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Recorder writes session data. It is safe for concurrent use.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db, now: time.Now}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed; closing it would close db.
	m.Log = &migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession creates a session row.
func (r *Recorder) StartSession(id uuid.UUID, notes string) error {
	_, err := r.db.Exec(
		`INSERT INTO sim_sessions (session_id, started_at, notes) VALUES (?, ?, ?)`,
		id.String(), r.now().UnixNano(), notes)
	if err != nil {
		return fmt.Errorf("start session %s: %w", id, err)
	}
	logf("recording session %s", id)
	return nil
}

// EndSession stamps the session end time.
func (r *Recorder) EndSession(id uuid.UUID) error {
	res, err := r.db.Exec(
		`UPDATE sim_sessions SET ended_at = ? WHERE session_id = ?`,
		r.now().UnixNano(), id.String())
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// Session describes a recorded session.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
	Notes     string
	Scans     int
	Odometry  int
}

// Session returns the session summary.
func (r *Recorder) Session(id uuid.UUID) (Session, error) {
	var (
		s       = Session{ID: id}
		started int64
		ended   sql.NullInt64
	)
	err := r.db.QueryRow(`
		SELECT started_at, ended_at, notes,
		       (SELECT COUNT(*) FROM lidar_scans WHERE session_id = s.session_id),
		       (SELECT COUNT(*) FROM odometry WHERE session_id = s.session_id)
		FROM sim_sessions s WHERE session_id = ?`, id.String()).
		Scan(&started, &ended, &s.Notes, &s.Scans, &s.Odometry)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrUnknownSession)
	}
	if err != nil {
		return Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	s.StartedAt = time.Unix(0, started)
	if ended.Valid {
		t := time.Unix(0, ended.Int64)
		s.EndedAt = &t
	}
	return s, nil
}

// encodeSamples marshals samples with NaN and infinities as JSON null.
func encodeSamples(v []float32) (string, error) {
	out := make([]*float32, len(v))
	for i := range v {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[i] = &v[i]
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeSamples(s string) ([]float32, error) {
	var in []*float32
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, err
	}
	out := make([]float32, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = *p
	}
	return out, nil
}

func (r *Recorder) exists(id uuid.UUID) error {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sim_sessions WHERE session_id = ?`, id.String()).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// RecordScan appends a scan to the session and returns its ID.
func (r *Recorder) RecordScan(session uuid.UUID, scan rosmsg.LaserScan) (uuid.UUID, error) {
	if err := r.exists(session); err != nil {
		return uuid.Nil, err
	}
	ranges, err := encodeSamples(scan.Ranges)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode ranges: %w", err)
	}
	intensities, err := encodeSamples(scan.Intensities)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode intensities: %w", err)
	}
	id := uuid.New()
	_, err = r.db.Exec(`
		INSERT INTO lidar_scans (
			scan_id, session_id, seq, stamp_sec, stamp_nanosec, frame_id,
			angle_min, angle_max, angle_increment, time_increment, scan_time,
			range_min, range_max, ranges_json, intensities_json
		) VALUES (?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM lidar_scans WHERE session_id = ?),
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), session.String(), session.String(),
		scan.Header.Stamp.Sec, scan.Header.Stamp.Nanosec, scan.Header.FrameID,
		scan.AngleMin, scan.AngleMax, scan.AngleIncrement, scan.TimeIncrement, scan.ScanTime,
		scan.RangeMin, scan.RangeMax, ranges, intensities)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert scan: %w", err)
	}
	return id, nil
}

// Scans returns the session's scans in recording order.
func (r *Recorder) Scans(session uuid.UUID) ([]rosmsg.LaserScan, error) {
	rows, err := r.db.Query(`
		SELECT stamp_sec, stamp_nanosec, frame_id,
		       angle_min, angle_max, angle_increment, time_increment, scan_time,
		       range_min, range_max, ranges_json, intensities_json
		FROM lidar_scans WHERE session_id = ? ORDER BY seq`, session.String())
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []rosmsg.LaserScan
	for rows.Next() {
		var (
			s                   rosmsg.LaserScan
			ranges, intensities string
		)
		if err := rows.Scan(
			&s.Header.Stamp.Sec, &s.Header.Stamp.Nanosec, &s.Header.FrameID,
			&s.AngleMin, &s.AngleMax, &s.AngleIncrement, &s.TimeIncrement, &s.ScanTime,
			&s.RangeMin, &s.RangeMax, &ranges, &intensities,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if s.Ranges, err = decodeSamples(ranges); err != nil {
			return nil, fmt.Errorf("decode ranges: %w", err)
		}
		if s.Intensities, err = decodeSamples(intensities); err != nil {
			return nil, fmt.Errorf("decode intensities: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordOdometry appends an odometry record to the session.
func (r *Recorder) RecordOdometry(session uuid.UUID, odom rosmsg.Odometry) error {
	if err := r.exists(session); err != nil {
		return err
	}
	pose, err := json.Marshal(odom.Pose)
	if err != nil {
		return fmt.Errorf("encode pose: %w", err)
	}
	twist, err := json.Marshal(odom.Twist)
	if err != nil {
		return fmt.Errorf("encode twist: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO odometry (session_id, stamp_sec, stamp_nanosec, frame_id, child_frame_id, pose_json, twist_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.String(), odom.Header.Stamp.Sec, odom.Header.Stamp.Nanosec,
		odom.Header.FrameID, odom.ChildFrameID, string(pose), string(twist))
	if err != nil {
		return fmt.Errorf("insert odometry: %w", err)
	}
	return nil
}

// Odometry returns the session's odometry records in recording order.
func (r *Recorder) Odometry(session uuid.UUID) ([]rosmsg.Odometry, error) {
	rows, err := r.db.Query(`
		SELECT stamp_sec, stamp_nanosec, frame_id, child_frame_id, pose_json, twist_json
		FROM odometry WHERE session_id = ? ORDER BY odom_id`, session.String())
	if err != nil {
		return nil, fmt.Errorf("query odometry: %w", err)
	}
	defer rows.Close()

	var out []rosmsg.Odometry
	for rows.Next() {
		var (
			o           rosmsg.Odometry
			pose, twist string
		)
		if err := rows.Scan(&o.Header.Stamp.Sec, &o.Header.Stamp.Nanosec,
			&o.Header.FrameID, &o.ChildFrameID, &pose, &twist); err != nil {
			return nil, fmt.Errorf("odometry row: %w", err)
		}
		if err := json.Unmarshal([]byte(pose), &o.Pose); err != nil {
			return nil, fmt.Errorf("decode pose: %w", err)
		}
		if err := json.Unmarshal([]byte(twist), &o.Twist); err != nil {
			return nil, fmt.Errorf("decode twist: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
