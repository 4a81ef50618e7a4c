package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// ErrNoData indicates that no frames exist for the given parameters.
var ErrNoData = errors.New("no data available")

// FrameReader provides an iterator-based interface for reading recorded frames
// with optional time filtering.
type FrameReader interface {
	// Session returns metadata about the recording session this reader is accessing.
	Session() *spectrum.ScanSession

	// Next advances the iterator and returns true if there is another frame
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current frame in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *spectrum.Frame

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

// ReaderOption configures a FrameReader with specific filtering criteria.
type ReaderOption func(*SqliteFrameReader)

// WithStartTime excludes frames captured before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes frames captured after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// SqliteFrameReader implements FrameReader for SQLite database backend.
type SqliteFrameReader struct {
	db *sql.DB

	sessionID int64
	session   *spectrum.ScanSession

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	current *spectrum.Frame
	rows    *sql.Rows
	err     error
}

func newSqliteFrameReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteFrameReader, error) {
	fr := &SqliteFrameReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(fr)
	}
	if err := fr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return fr, nil
}

func (fr *SqliteFrameReader) init(ctx context.Context) error {
	if fr.db == nil {
		return errors.New("database connection required")
	}
	if fr.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if fr.startTime != nil && fr.endTime != nil && fr.startTime.After(*fr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", fr.startTime, fr.endTime)
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: fr.loadSession},
		{msg: "initializing query", fn: fr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (fr *SqliteFrameReader) loadSession(ctx context.Context) (err error) {
	fr.session, err = loadSession(ctx, fr.db, fr.sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %d: %w", fr.sessionID, ErrNoData)
	}
	return err
}

func (fr *SqliteFrameReader) initQuery(ctx context.Context) (err error) {
	start, end := int64(math.MinInt64), int64(math.MaxInt64)
	if fr.startTime != nil {
		start = toTimestamp(*fr.startTime)
	}
	if fr.endTime != nil {
		end = toTimestamp(*fr.endTime)
	}

	stmt, err := fr.db.PrepareContext(ctx, selectFramesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if fr.rows, err = stmt.QueryContext(ctx, fr.sessionID, start, end); err != nil {
		return err
	}
	return nil
}

func (fr *SqliteFrameReader) Session() *spectrum.ScanSession {
	return fr.session
}

func (fr *SqliteFrameReader) Next(ctx context.Context) bool {
	if fr.err != nil || fr.rows == nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		fr.err = err
		return false
	}
	if !fr.rows.Next() {
		fr.err = fr.rows.Err()
		return false
	}

	var (
		timestamp int64
		frame     spectrum.Frame
		blob      []byte
	)
	if err := fr.rows.Scan(&timestamp, &frame.CenterFrequency, &frame.SampleRate, &blob); err != nil {
		fr.err = fmt.Errorf("scanning frame: %w", err)
		return false
	}

	power, err := decodePower(blob)
	if err != nil {
		fr.err = fmt.Errorf("decoding frame: %w", err)
		return false
	}

	frame.CapturedAt = fromTimestamp(timestamp)
	frame.Power = power
	fr.current = &frame
	return true
}

func (fr *SqliteFrameReader) Current() *spectrum.Frame {
	return fr.current
}

func (fr *SqliteFrameReader) Error() error {
	return fr.err
}

func (fr *SqliteFrameReader) Close() error {
	if fr.rows == nil {
		return nil
	}
	err := fr.rows.Close()
	fr.rows = nil
	return err
}
