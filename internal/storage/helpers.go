package storage

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// encodePower packs power values as little-endian float32.
func encodePower(power []float32) []byte {
	p := make([]byte, len(power)*4)
	for i, v := range power {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return p
}

func decodePower(p []byte) ([]float32, error) {
	if len(p)%4 != 0 {
		return nil, fmt.Errorf("power blob length %d is not a multiple of 4", len(p))
	}
	power := make([]float32, len(p)/4)
	for i := range power {
		power[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return power, nil
}

func toTimestamp(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func toFrameRow(sessionID int64, f *spectrum.Frame) []any {
	return []any{
		sessionID,
		toTimestamp(f.CapturedAt),
		f.CenterFrequency,
		f.SampleRate,
		len(f.Power),
		encodePower(f.Power),
	}
}

// marshalConfig stores strings and byte slices as-is and anything else as JSON.
func marshalConfig(config any) (sql.NullString, error) {
	switch c := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: c, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(c), Valid: true}, nil
	}

	p, err := json.Marshal(config)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
	}
	return sql.NullString{String: string(p), Valid: true}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*spectrum.ScanSession, error) {
	var sess spectrum.ScanSession
	var config sql.NullString
	if err := row.Scan(&sess.ID, &sess.RunID, &sess.StartTime, &sess.Receiver, &config); err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}
