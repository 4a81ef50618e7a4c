package rtltcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// CommandSize is the length of an rtl_tcp command on the wire.
const CommandSize = 5

// Command is an rtl_tcp command code.
type Command byte

const (
	SetFrequency  Command = 0x01
	SetSampleRate Command = 0x02
	SetGainMode   Command = 0x03
	SetGain       Command = 0x04
	SetAGCMode    Command = 0x08
)

func (c Command) String() string {
	switch c {
	case SetFrequency:
		return "SET_FREQUENCY"
	case SetSampleRate:
		return "SET_SAMPLE_RATE"
	case SetGainMode:
		return "SET_GAIN_MODE"
	case SetGain:
		return "SET_GAIN"
	case SetAGCMode:
		return "SET_AGC_MODE"
	default:
		return fmt.Sprintf("COMMAND(0x%02x)", byte(c))
	}
}

// Message is a command with its parameter.
type Message struct {
	Command Command
	Param   uint32
}

// MarshalBinary encodes the message as the command byte followed by the
// big-endian parameter.
func (m Message) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CommandSize)
	buf[0] = byte(m.Command)
	binary.BigEndian.PutUint32(buf[1:], m.Param)
	return buf, nil
}

// Send writes a single message.
func Send(w io.Writer, m Message) error {
	buf, _ := m.MarshalBinary()
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("error sending %s(%d): %w", m.Command, m.Param, err)
	}
	return nil
}

// Configure sends the tuning sequence for cfg. A failed command is logged and
// the remaining commands are still sent; the failures are returned joined.
func Configure(w io.Writer, cfg Config, logger *slog.Logger) error {
	var errs []error
	for _, m := range cfg.Commands() {
		if err := Send(w, m); err != nil {
			logger.Warn(err.Error())
			errs = append(errs, err)
			continue
		}

		logger.Debug("command sent", slog.String("command", m.Command.String()), slog.Any("param", m.Param))
	}
	return errors.Join(errs...)
}
