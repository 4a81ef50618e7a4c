package rtltcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/fhss-detector/internal/sdr/driver"
)

const (
	Runtime = "rtl_tcp"

	DefaultStartupDelay = 2 * time.Second
)

// ErrBrokenPipe is returned when there's an error reading from stdout or stderr
var ErrBrokenPipe = errors.New("broken pipe")

// ServerConfig describes an rtl_tcp process managed by the detector. The
// listen address, frequency, sample rate and gain come from the receiver Config.
type ServerConfig struct {
	Enabled      bool         `yaml:"enabled" json:"enabled"`
	DeviceIndex  int          `yaml:"deviceIndex" json:"deviceIndex"`   // -d device_index (default: 0)
	PPMError     int          `yaml:"ppmError" json:"ppmError"`         // -P ppm_error (default: 0)
	Buffers      int          `yaml:"buffers" json:"buffers"`           // -b number of buffers (default: rtl_tcp's)
	BiasTee      bool         `yaml:"biasTee" json:"biasTee"`           // -T enable bias-tee
	StartupDelay TimeDuration `yaml:"startupDelay" json:"startupDelay"` // wait before connecting (default: 2s)
}

func (c *ServerConfig) Validate() error {
	if c.DeviceIndex < 0 {
		return driver.NewConfigError("deviceIndex", fmt.Sprintf("must not be negative: %d", c.DeviceIndex))
	}
	if c.Buffers < 0 {
		return driver.NewConfigError("buffers", fmt.Sprintf("must not be negative: %d", c.Buffers))
	}
	if c.StartupDelay < 0 {
		return driver.NewConfigError("startupDelay", fmt.Sprintf("must not be negative: %s", c.StartupDelay))
	}
	return nil
}

// Args returns the rtl_tcp command line for serving rx.
// See `man rtl_tcp` for more information:
// https://manpages.debian.org/bookworm/rtl-sdr/rtl_tcp.1.en.html
func (c *ServerConfig) Args(rx Config) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := rx.Validate(); err != nil {
		return nil, err
	}

	host, port, _ := net.SplitHostPort(rx.Address)

	args := []string{
		"-a", host,
		"-p", port,
		"-d", strconv.Itoa(c.DeviceIndex),
		"-f", strconv.FormatFloat(rx.CenterFrequency, 'f', 0, 64),
		"-s", strconv.Itoa(rx.SampleRate),
	}

	if rx.GainMode == GainModeManual {
		args = append(args, "-g", strconv.FormatFloat(float64(rx.Gain)/10, 'f', 1, 64))
	}

	if c.PPMError != 0 {
		args = append(args, "-P", strconv.Itoa(c.PPMError))
	}

	if c.Buffers > 0 {
		args = append(args, "-b", strconv.Itoa(c.Buffers))
	}

	if c.BiasTee {
		args = append(args, "-T")
	}

	return args, nil
}

// WithServerLogger sets the logger for the server process
func WithServerLogger(logger *slog.Logger) func(s *Server) {
	return func(s *Server) {
		s.logger = logger.With(slog.String("runtime", Runtime))
	}
}

// Server runs rtl_tcp as a child process and relays its output to the log.
type Server struct {
	binPath string
	args    []string

	isRunning atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger *slog.Logger
}

// NewServer locates the rtl_tcp binary and prepares its arguments.
func NewServer(cfg ServerConfig, rx Config, options ...func(s *Server)) (*Server, error) {
	binPath, err := driver.FindRuntime(Runtime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	args, err := cfg.Args(rx)
	if err != nil {
		return nil, fmt.Errorf("error creating args: %w", err)
	}

	return newServer(binPath, args, options...), nil
}

func newServer(binPath string, args []string, options ...func(s *Server)) *Server {
	s := Server{
		binPath: binPath,
		args:    args,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Start launches the process. The returned channel is closed when the process
// exits and carries an error if it exited abnormally.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	if !s.isRunning.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("server is already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.binPath, s.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		s.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error starting command: %w", err)
	}

	stopped := make(chan error, 1)

	s.wg.Add(1)
	go func() {
		defer close(stopped)
		defer s.wg.Done()

		s.logger.Info("server started", slog.String("args", strings.Join(s.args, " ")))

		done := make(chan error, 3) // expects three results from three goroutines

		go s.relay(stdout, slog.LevelInfo, done)
		go s.relay(stderr, slog.LevelWarn, done)
		go func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				done <- fmt.Errorf("command exited with error: %w", err)
				return
			}
			done <- nil
		}()

		var errs []error
		for i := 0; i < cap(done); i++ {
			if err := <-done; err != nil {
				s.cancel() // cancel context on error
				s.logger.Error(err.Error())

				errs = append(errs, err)
			}
		}

		s.logger.Info("server stopped")
		s.isRunning.Store(false)

		if len(errs) > 0 {
			stopped <- errors.Join(errs...)
		}
	}()

	return stopped, nil
}

// Stop terminates the process and waits for it to exit.
func (s *Server) Stop() {
	if !s.isRunning.Load() {
		return // already stopped
	}

	s.cancel()
	s.wg.Wait()
}

// IsRunning returns true if the process is running
func (s *Server) IsRunning() bool {
	return s.isRunning.Load()
}

// relay logs each non-empty output line at the given level.
func (s *Server) relay(r io.Reader, level slog.Level, done chan<- error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.logger.Log(context.Background(), level, fmt.Sprintf("%s >> %s", Runtime, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}
