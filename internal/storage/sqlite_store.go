package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// Summary describes the frames recorded for a session.
type Summary struct {
	Frames    int64
	StartTime time.Time
	EndTime   time.Time
	Bins      int
}

// SqliteStore records spectrum sessions in a Sqlite database. Writes go
// through a single WAL connection; reads use a separate read-only handle.
type SqliteStore struct {
	writer *lazyConn
	reader *lazyConn

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{
		writer: newLazyConn("write", dbPath, writeDSNParams, setupWriter),
		reader: newLazyConn("read", dbPath, readDSNParams, nil),
	}
}

func (s *SqliteStore) CreateSession(ctx context.Context, runID, receiver string, config any) (int64, error) {
	configData, err := marshalConfig(config)
	if err != nil {
		return 0, err
	}

	db, err := s.writer.get()
	if err != nil {
		return 0, err
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, runID, receiver, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	return sessionID, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (*spectrum.ScanSession, error) {
	db, err := s.reader.get()
	if err != nil {
		return nil, err
	}
	return loadSession(ctx, db, id)
}

func loadSession(ctx context.Context, db *sql.DB, id int64) (*spectrum.ScanSession, error) {
	sess, err := scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}
	return sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*spectrum.ScanSession, err error) {
	db, err := s.reader.get()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// StoreFrames inserts frames with a single multi-row statement inside a transaction.
// Callers are expected to keep batches small enough for the Sqlite variable limit.
func (s *SqliteStore) StoreFrames(ctx context.Context, sessionID int64, frames []*spectrum.Frame) (err error) {
	if len(frames) == 0 {
		return
	}

	db, err := s.writer.get()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithError(tx, &err)
		}
	}()

	values := make([]any, 0, len(frames)*6)
	valuesPlaceholder := "(?, ?, ?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertFrameSQL)

	for i, frame := range frames {
		values = append(values, toFrameRow(sessionID, frame)...)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting frames: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) Summary(ctx context.Context, sessionID int64) (*Summary, error) {
	db, err := s.reader.get()
	if err != nil {
		return nil, err
	}

	var start, end int64
	var summary Summary
	row := db.QueryRowContext(ctx, selectFrameSummarySQL, sessionID)
	if err = row.Scan(&summary.Frames, &start, &end, &summary.Bins); err != nil {
		return nil, fmt.Errorf("scanning summary: %w", err)
	}

	if summary.Frames > 0 {
		summary.StartTime = fromTimestamp(start)
		summary.EndTime = fromTimestamp(end)
	}
	return &summary, nil
}

// ReadFrames creates a FrameReader over the frames recorded for a session.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - sessionID: Unique identifier of the recording session to read from
//   - opts: Optional time filters (WithStartTime, WithEndTime, WithTimeRange)
//
// Returns error if the session doesn't exist or the filters are inconsistent.
func (s *SqliteStore) ReadFrames(ctx context.Context, sessionID int64, opts ...ReaderOption) (FrameReader, error) {
	db, err := s.reader.get()
	if err != nil {
		return nil, err
	}
	return newSqliteFrameReader(ctx, db, sessionID, opts...)
}

// Close builds the frame index and releases both connections. Indexing
// is deferred to here so inserts during recording stay cheap.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if db := s.writer.opened(); db != nil {
			if _, err := db.Exec(initIndexesSQL); err != nil {
				errs = append(errs, fmt.Errorf("creating indexes: %w", err))
			}
			errs = append(errs, db.Close())
		}

		if db := s.reader.opened(); db != nil {
			errs = append(errs, db.Close())
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
