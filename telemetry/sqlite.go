package telemetry

import (
	"database/sql"
	"github.com/google/uuid"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS telemetry (
		session_id       TEXT,
		tick             BIGINT,
		lap_time         DOUBLE,
		speed_x          DOUBLE,
		speed_y          DOUBLE,
		speed_z          DOUBLE,
		track_pos        DOUBLE,
		angle            DOUBLE,
		gear             INTEGER,
		rpm              DOUBLE,
		accel            DOUBLE,
		brake            DOUBLE,
		steer            DOUBLE,
		dist_from_start  DOUBLE,
		dist_raced       DOUBLE,
		race_pos         INTEGER,
		track            TEXT,
		wheel_spin_vel   TEXT,
		z                DOUBLE,
		timestamp        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
`

const insertRecord = `
	INSERT INTO telemetry (
		session_id, tick, lap_time, speed_x, speed_y, speed_z, track_pos, angle,
		gear, rpm, accel, brake, steer, dist_from_start, dist_raced, race_pos,
		track, wheel_spin_vel, z
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLite stores records in a telemetry table keyed by a per-run session id.
type SQLite struct {
	db        *sql.DB
	insert    *sql.Stmt
	sessionID string
	tick      int64
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open telemetry database %s", path)
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create telemetry table")
	}
	insert, err := db.Prepare(insertRecord)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to prepare telemetry insert")
	}
	s := &SQLite{
		db:        db,
		insert:    insert,
		sessionID: uuid.New().String(),
	}
	log.WithField("sessionID", s.sessionID).
		WithField("path", path).
		Info("recording telemetry to sqlite")
	return s, nil
}

func (s *SQLite) SessionID() string {
	return s.sessionID
}

func (s *SQLite) Record(r *scrdriver.TelemetryRecord) error {
	_, err := s.insert.Exec(
		s.sessionID, s.tick, r.Time, r.SpeedX, r.SpeedY, r.SpeedZ, r.TrackPos, r.Angle,
		r.Gear, r.RPM, r.Acceleration, r.Brake, r.Steer, r.DistFromStart, r.DistRaced, r.RacePos,
		scrdriver.FormatSequence(r.Track), scrdriver.FormatSequence(r.WheelSpinVel), r.Z,
	)
	if err != nil {
		return errors.Wrap(err, "unable to insert telemetry")
	}
	s.tick++
	return nil
}

func (s *SQLite) Close() error {
	if err := s.insert.Close(); err != nil {
		log.WithField("err", err).Warn("unable to close telemetry statement")
	}
	return s.db.Close()
}
