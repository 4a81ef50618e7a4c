package rtltcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/dustin/go-humanize"
)

// headerSize is the length of the dongle info header rtl_tcp sends on accept.
const headerSize = 12

var (
	// ErrConnectionFailed is returned when the receiver cannot be reached
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidHeader is returned when the dongle info header has an unexpected magic
	ErrInvalidHeader = errors.New("invalid dongle info header")

	headerMagic = [4]byte{'R', 'T', 'L', '0'}
)

// TunerType identifies the tuner chip reported by rtl_tcp.
type TunerType uint32

const (
	TunerUnknown TunerType = iota
	TunerE4000
	TunerFC0012
	TunerFC0013
	TunerFC2580
	TunerR820T
	TunerR828D
)

func (t TunerType) String() string {
	switch t {
	case TunerE4000:
		return "E4000"
	case TunerFC0012:
		return "FC0012"
	case TunerFC0013:
		return "FC0013"
	case TunerFC2580:
		return "FC2580"
	case TunerR820T:
		return "R820T"
	case TunerR828D:
		return "R828D"
	default:
		return "unknown"
	}
}

// DongleInfo is the header rtl_tcp writes to every new client.
type DongleInfo struct {
	Tuner     TunerType
	GainCount uint32
}

// ReadDongleInfo reads and validates the 12-byte header.
func ReadDongleInfo(r io.Reader) (*DongleInfo, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("error reading dongle info: %w", err)
	}

	if [4]byte(buf[:4]) != headerMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidHeader, buf[:4])
	}

	return &DongleInfo{
		Tuner:     TunerType(binary.BigEndian.Uint32(buf[4:8])),
		GainCount: binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// WithLogger sets the logger for the connection
func WithLogger(logger *slog.Logger) func(c *Conn) {
	return func(c *Conn) {
		c.logger = logger.With(slog.String("receiver", c.config.Address))
	}
}

// Conn is an open, configured rtl_tcp connection. Reads return the raw
// interleaved I/Q byte stream.
type Conn struct {
	conn   net.Conn
	config Config
	info   *DongleInfo
	logger *slog.Logger
}

// Dial connects to the receiver at cfg.Address, optionally reads the dongle
// info header and sends the tuning commands. Failures to send tuning commands
// are logged and do not fail the dial.
func Dial(ctx context.Context, cfg Config, options ...func(c *Conn)) (*Conn, error) {
	c := &Conn{
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(c)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout.Duration())
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Address, err)
	}

	c.conn = conn

	if cfg.Handshake {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}

		info, err := ReadDongleInfo(conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Address, err)
		}

		_ = conn.SetReadDeadline(time.Time{})
		c.info = info

		c.logger.Info("dongle info received",
			slog.String("tuner", info.Tuner.String()),
			slog.Int("gains", int(info.GainCount)),
		)
	}

	_ = Configure(conn, cfg, c.logger)

	c.logger.Info(fmt.Sprintf("connected: %s @ %s",
		humanize.SIWithDigits(cfg.CenterFrequency, 3, "Hz"),
		humanize.SIWithDigits(float64(cfg.SampleRate), 3, "S/s"),
	))

	return c, nil
}

// Read reads raw I/Q bytes.
func (c *Conn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Close closes the connection; a blocked Read returns immediately.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Config returns the configuration the receiver was tuned with.
func (c *Conn) Config() Config {
	return c.config
}

// Info returns the dongle info header, nil when the handshake was not requested.
func (c *Conn) Info() *DongleInfo {
	return c.info
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
