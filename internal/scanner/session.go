package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/fhss-detector/internal/dsp"
	"github.com/roman-kulish/fhss-detector/internal/fhss"
	"github.com/roman-kulish/fhss-detector/internal/sdr/rtltcp"
	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

var (
	// ErrNotConnected is returned by Start when the session has no receiver connection
	ErrNotConnected = errors.New("session is not connected")

	// ErrAlreadyConnected is returned by Connect when a connection is already open
	ErrAlreadyConnected = errors.New("session is already connected")

	// ErrSessionClosed is returned by any lifecycle call after Close
	ErrSessionClosed = errors.New("session is closed")
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateScanning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateScanning:
		return "scanning"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WindowOutcome describes what happened to an analysed hop window.
type WindowOutcome string

const (
	OutcomeDetected     WindowOutcome = "detected"
	OutcomeRejected     WindowOutcome = "rejected"
	OutcomeInsufficient WindowOutcome = "insufficient"
	OutcomeDegenerate   WindowOutcome = "degenerate"
)

// Probe receives pipeline internals that are not part of the Observer
// contract. It is called from the worker goroutine.
type Probe interface {
	ShortRead(got int)
	PeaksDetected(count int)
	WindowAnalyzed(outcome WindowOutcome, stats fhss.Stats)
}

type noopProbe struct{}

func (noopProbe) ShortRead(int)                            {}
func (noopProbe) PeaksDetected(int)                        {}
func (noopProbe) WindowAnalyzed(WindowOutcome, fhss.Stats) {}

// Dialer opens the receiver byte stream and applies the tuning configuration.
type Dialer func(ctx context.Context, cfg rtltcp.Config) (io.ReadCloser, error)

// Status is a point-in-time view of a session.
type Status struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Receiver   string    `json:"receiver"`
	Blocks     uint64    `json:"blocks"`
	ShortReads uint64    `json:"shortReads"`
	Detections uint64    `json:"detections"`
	StartedAt  time.Time `json:"startedAt"`
}

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(
			slog.String("session", s.id),
			slog.String("receiver", s.receiver.Address),
		)
	}
}

// WithObserver adds an event observer; observers are called in the order added
func WithObserver(o Observer) func(s *Session) {
	return func(s *Session) {
		s.observers = append(s.observers, o)
	}
}

// WithProbe sets the receiver of pipeline internals
func WithProbe(p Probe) func(s *Session) {
	return func(s *Session) {
		s.probe = p
	}
}

// WithDialer replaces the rtl_tcp dialer
func WithDialer(d Dialer) func(s *Session) {
	return func(s *Session) {
		s.dial = d
	}
}

// Session owns a receiver connection and the single worker that turns its
// sample stream into spectrum frames and detections. The lifecycle is
// Connect, Start, Stop and Close; Connect and Start may be repeated after a
// Stop or a stream failure.
type Session struct {
	id       string
	receiver rtltcp.Config
	config   Config

	dial      Dialer
	observers Observers
	probe     Probe
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.Mutex // guards lifecycle fields below
	state     State
	source    io.ReadCloser
	done      chan struct{}
	startedAt time.Time

	stopping   atomic.Bool
	blocks     atomic.Uint64
	shortReads atomic.Uint64
	detections atomic.Uint64
}

// New creates a disconnected session.
func New(receiver rtltcp.Config, config Config, options ...func(s *Session)) (*Session, error) {
	if err := receiver.Validate(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := Session{
		id:       uuid.NewString(),
		receiver: receiver,
		config:   config,
		probe:    noopProbe{},
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	s.dial = func(ctx context.Context, cfg rtltcp.Config) (io.ReadCloser, error) {
		return rtltcp.Dial(ctx, cfg, rtltcp.WithLogger(s.logger))
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// Receiver returns the receiver configuration.
func (s *Session) Receiver() rtltcp.Config {
	return s.receiver
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns counters and state for reporting.
func (s *Session) Status() Status {
	s.mu.Lock()
	state, startedAt := s.state, s.startedAt
	s.mu.Unlock()

	return Status{
		ID:         s.id,
		State:      state.String(),
		Receiver:   s.receiver.Address,
		Blocks:     s.blocks.Load(),
		ShortReads: s.shortReads.Load(),
		Detections: s.detections.Load(),
		StartedAt:  startedAt,
	}
}

// Connect opens the receiver connection and tunes it. A failure is reported
// to observers and leaves the session disconnected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateConnected, StateScanning:
		return ErrAlreadyConnected
	}

	source, err := s.dial(ctx, s.receiver)
	if err != nil {
		if !errors.Is(err, rtltcp.ErrConnectionFailed) {
			err = fmt.Errorf("%w: %w", rtltcp.ErrConnectionFailed, err)
		}

		s.logger.Error("failed to connect to receiver", slog.Any("error", err))
		s.observers.OnError(err)
		return err
	}

	s.source = source
	s.state = StateConnected

	return nil
}

// Start launches the worker. Starting a running session is a no-op. The
// worker stops when Stop is called, when ctx is cancelled or when the stream
// fails.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateDisconnected:
		return ErrNotConnected
	case StateScanning:
		s.logger.Warn("already scanning")
		return nil
	}

	p, err := s.newPipeline(s.source)
	if err != nil {
		return err
	}

	done := make(chan struct{})

	s.stopping.Store(false)
	s.done = done
	s.state = StateScanning
	s.startedAt = s.now()

	go s.run(p, s.source, done)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	s.logger.Info("scanning started")

	return nil
}

// Stop signals the worker, closes the byte source to unblock a pending read
// and waits for the worker to exit. It is safe to call repeatedly and from
// any goroutine.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return
	}

	s.stopping.Store(true)
	source, done := s.source, s.done
	s.mu.Unlock()

	if err := source.Close(); err != nil {
		s.logger.Debug("error closing receiver connection", slog.Any("error", err))
	}

	<-done
}

// Close stops the session and releases the connection. The session cannot
// be used afterwards.
func (s *Session) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	var err error
	if s.source != nil {
		err = s.source.Close()
		s.source = nil
	}

	s.state = StateClosed
	return err
}

// pipeline is the per-run state owned by the worker.
type pipeline struct {
	framer      *dsp.Framer
	transformer *dsp.Transformer
	hops        *fhss.HopBuffer
	classifier  *fhss.Classifier
}

func (s *Session) newPipeline(source io.Reader) (*pipeline, error) {
	framer, err := dsp.NewFramer(source, s.config.FFTSize)
	if err != nil {
		return nil, err
	}

	hops, err := fhss.NewHopBuffer(s.config.WindowSize)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		framer:      framer,
		transformer: dsp.NewTransformer(s.config.FFTSize),
		hops:        hops,
		classifier:  fhss.NewClassifier(s.config.Thresholds),
	}, nil
}

func (s *Session) run(p *pipeline, source io.Closer, done chan struct{}) {
	defer close(done)
	defer s.release(source)

	for !s.stopping.Load() {
		samples, err := p.framer.ReadBlock()
		if err != nil {
			var shortRead *dsp.ShortReadError
			if errors.As(err, &shortRead) {
				s.shortReads.Add(1)
				s.probe.ShortRead(shortRead.Got)
				s.logger.Debug("incomplete read", slog.Int("bytes", shortRead.Got))
				continue
			}

			if s.stopping.Load() {
				return // closed on request
			}

			s.logger.Error("stream processing error", slog.Any("error", err))
			s.observers.OnError(err)
			return
		}

		if s.stopping.Load() {
			return
		}

		s.process(p, samples)
	}
}

// release resets the session to disconnected once the worker exits.
func (s *Session) release(source io.Closer) {
	_ = source.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == source {
		s.source = nil
	}
	if s.state == StateScanning {
		s.state = StateDisconnected
	}

	s.logger.Info("scanning stopped")
}

func (s *Session) process(p *pipeline, samples []complex128) {
	coeffs, err := p.transformer.Transform(samples)
	if err != nil {
		s.logger.Error("transform failed", slog.Any("error", err))
		return
	}

	s.handleFrame(p, spectrum.Frame{
		CenterFrequency: s.receiver.CenterFrequency,
		SampleRate:      float64(s.receiver.SampleRate),
		CapturedAt:      s.now(),
		Power:           dsp.PowerSpectrum(coeffs),
	})
}

// handleFrame publishes a frame and feeds its peaks through hop aggregation
// and classification.
func (s *Session) handleFrame(p *pipeline, frame spectrum.Frame) {
	s.blocks.Add(1)
	s.observers.OnSpectrumUpdate(frame)

	peaks := dsp.FramePeaks(frame, s.config.PowerThreshold)
	s.probe.PeaksDetected(len(peaks))

	window := p.hops.Insert(frame, peaks)
	if window == nil {
		return
	}

	detection, stats, err := p.classifier.Classify(window)
	switch {
	case errors.Is(err, fhss.ErrInsufficientHops):
		s.probe.WindowAnalyzed(OutcomeInsufficient, stats)

	case errors.Is(err, fhss.ErrDegenerateWindow):
		s.logger.Debug("hop window skipped", slog.Int("hops", len(window)), slog.String("reason", err.Error()))
		s.probe.WindowAnalyzed(OutcomeDegenerate, stats)

	case err != nil:
		s.logger.Warn("hop window analysis failed", slog.Any("error", err))

	case detection == nil:
		s.logger.Debug("hop window rejected",
			slog.Float64("hopRate", stats.HopRate),
			slog.Float64("bandwidth", stats.Bandwidth),
			slog.Int("uniqueFrequencies", stats.UniqueFrequencies),
		)
		s.probe.WindowAnalyzed(OutcomeRejected, stats)

	default:
		s.detections.Add(1)
		s.probe.WindowAnalyzed(OutcomeDetected, stats)
		s.logger.Info("drone detected",
			slog.String("classification", detection.Classification),
			slog.Float64("frequency", detection.Frequency),
			slog.Float64("confidence", detection.Confidence),
			slog.Float64("hopRate", detection.HopRate),
		)
		s.observers.OnDroneDetected(*detection)
	}
}
