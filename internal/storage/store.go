package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

// Store provides an interface for persisting power spectrum frames recorded by a detector run.
// Writes are serialised through a single connection; reads use a separate read-only connection.
type Store interface {
	// CreateSession initializes a new recording session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - runID: Identifier of the detector run (the scanner session ID)
	//   - receiver: Address of the rtl_tcp receiver (e.g., "127.0.0.1:1234")
	//   - config: Optional receiver configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, runID, receiver string, config any) (sessionID int64, err error)

	// Session retrieves a specific recording session by its ID.
	Session(ctx context.Context, id int64) (session *spectrum.ScanSession, err error)

	// Sessions returns all recording sessions stored in the database,
	// ordered by start time in ascending order.
	Sessions(ctx context.Context) (sessions []*spectrum.ScanSession, err error)

	// StoreFrames saves a batch of frames for a specific session.
	// All frames in the batch are stored in a single atomic transaction.
	StoreFrames(ctx context.Context, sessionID int64, frames []*spectrum.Frame) error

	// Summary reports the number of frames, the time range and the widest
	// bin count recorded for a session.
	Summary(ctx context.Context, sessionID int64) (*Summary, error)

	// ReadFrames returns a reader over the frames of a session in capture order.
	// The returned reader must be closed after use.
	ReadFrames(ctx context.Context, sessionID int64, opts ...ReaderOption) (FrameReader, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
