package app

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
	"github.com/roman-kulish/fhss-detector/internal/storage"
)

const flushInterval = time.Second

// WithMaxBatchSize sets the maximum number of frames stored within a single
// database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.maxBatchSize = size
	}
}

// WithEveryNth keeps one frame out of every n.
func WithEveryNth(n int) func(*Recorder) {
	return func(r *Recorder) {
		r.everyNth = uint64(n)
	}
}

// WithQueueSize sets how many frames may wait for the writer before new ones are dropped.
func WithQueueSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.queueSize = size
	}
}

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// Recorder is a scanner observer that writes spectrum frames to a store.
// Frames are queued without blocking the detection worker and written in
// batches by a single goroutine.
type Recorder struct {
	store     storage.Store
	sessionID int64

	everyNth     uint64
	seen         uint64
	maxBatchSize int
	queueSize    int

	mu     sync.RWMutex
	closed bool
	frames chan *spectrum.Frame
	wg     sync.WaitGroup

	stored  atomic.Uint64
	dropped atomic.Uint64

	logger *slog.Logger
}

// NewRecorder starts a recorder writing into sessionID of store.
func NewRecorder(store storage.Store, sessionID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:        store,
		sessionID:    sessionID,
		everyNth:     1,
		maxBatchSize: defaultMaxBatchSize,
		queueSize:    defaultQueueSize,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&r)
	}

	r.everyNth = max(r.everyNth, 1)
	r.maxBatchSize = max(r.maxBatchSize, 1)
	r.frames = make(chan *spectrum.Frame, r.queueSize)

	r.wg.Add(1)
	go r.run()

	return &r
}

// OnSpectrumUpdate queues every Nth frame. It is called from the session worker only.
func (r *Recorder) OnSpectrumUpdate(frame spectrum.Frame) {
	r.seen++
	if (r.seen-1)%r.everyNth != 0 {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.frames <- &frame:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) OnDroneDetected(spectrum.Detection) {}

func (r *Recorder) OnError(error) {}

// Stored returns the number of frames written so far.
func (r *Recorder) Stored() uint64 {
	return r.stored.Load()
}

// Dropped returns the number of frames discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close flushes queued frames and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.frames)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var pending []*spectrum.Frame
	for {
		select {
		case frame, ok := <-r.frames:
			if !ok {
				r.flush(pending)
				return
			}

			pending = append(pending, frame)
			if len(pending) >= r.maxBatchSize {
				r.flush(pending)
				pending = pending[:0]
			}

		case <-ticker.C:
			r.flush(pending)
			pending = pending[:0]
		}
	}
}

func (r *Recorder) flush(frames []*spectrum.Frame) {
	for chunk := range slices.Chunk(frames, r.maxBatchSize) {
		if err := r.store.StoreFrames(context.Background(), r.sessionID, chunk); err != nil {
			r.logger.Error("failed to store frames", slog.Int("frames", len(chunk)), slog.Any("error", err))
			continue
		}
		r.stored.Add(uint64(len(chunk)))
	}
}
