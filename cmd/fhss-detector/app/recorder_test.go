package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
	"github.com/roman-kulish/fhss-detector/internal/storage"
)

func newTestStore(t *testing.T) (*storage.SqliteStore, int64) {
	t.Helper()

	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "recorder.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	id, err := store.CreateSession(context.Background(), "run", "127.0.0.1:1234", nil)
	require.NoError(t, err)
	return store, id
}

func testFrame(i int) spectrum.Frame {
	return spectrum.Frame{
		CenterFrequency: 433_920_000,
		SampleRate:      2_048_000,
		CapturedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Millisecond),
		Power:           []float32{-90, float32(-60 + i), -90, -95},
	}
}

func TestRecorder_StoresEveryNthFrame(t *testing.T) {
	store, id := newTestStore(t)

	recorder := NewRecorder(store, id, WithEveryNth(3), WithMaxBatchSize(2))
	for i := 0; i < 10; i++ {
		recorder.OnSpectrumUpdate(testFrame(i))
	}
	recorder.Close()

	assert.Equal(t, uint64(4), recorder.Stored())
	assert.Zero(t, recorder.Dropped())

	reader, err := store.ReadFrames(context.Background(), id)
	require.NoError(t, err)
	defer reader.Close()

	var peaks []float32
	for reader.Next(context.Background()) {
		peaks = append(peaks, reader.Current().Power[1])
	}
	require.NoError(t, reader.Error())
	assert.Equal(t, []float32{-60, -57, -54, -51}, peaks)
}

func TestRecorder_IgnoresFramesAfterClose(t *testing.T) {
	store, id := newTestStore(t)

	recorder := NewRecorder(store, id)
	recorder.Close()
	recorder.Close()

	recorder.OnSpectrumUpdate(testFrame(0))
	recorder.OnDroneDetected(spectrum.Detection{})
	recorder.OnError(assert.AnError)

	assert.Zero(t, recorder.Stored())
}

type blockingStore struct {
	storage.Store
	release chan struct{}
}

func (s *blockingStore) StoreFrames(context.Context, int64, []*spectrum.Frame) error {
	<-s.release
	return nil
}

func TestRecorder_DropsWhenQueueIsFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}

	recorder := NewRecorder(store, 1, WithQueueSize(1), WithMaxBatchSize(1))
	for i := 0; i < 10; i++ {
		recorder.OnSpectrumUpdate(testFrame(i))
	}

	assert.Positive(t, recorder.Dropped())

	close(store.release)
	recorder.Close()
	assert.Equal(t, uint64(10), recorder.Stored()+recorder.Dropped())
}
