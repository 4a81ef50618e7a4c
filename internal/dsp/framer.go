package dsp

import (
	"errors"
	"fmt"
	"io"
)

// DefaultFFTSize is the number of complex samples per block.
const DefaultFFTSize = 1024

var (
	// ErrShortRead is returned when a single read delivers fewer bytes than a full block
	ErrShortRead = errors.New("short read")

	// ErrStreamClosed is returned when the byte source reaches end-of-stream or is closed
	ErrStreamClosed = errors.New("stream closed")
)

// ShortReadError reports how many bytes a short read delivered.
type ShortReadError struct {
	Got  int
	Want int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: got %d of %d bytes", e.Got, e.Want)
}

func (e *ShortReadError) Unwrap() error {
	return ErrShortRead
}

// Framer turns an interleaved unsigned 8-bit I/Q byte stream into blocks of
// complex samples. Each ReadBlock call issues exactly one read of 2*size bytes
// and nothing is carried over between calls.
type Framer struct {
	r    io.Reader
	size int
	buf  []byte
}

// NewFramer creates a framer that produces blocks of size complex samples.
func NewFramer(r io.Reader, size int) (*Framer, error) {
	if size <= 1 {
		return nil, fmt.Errorf("invalid block size: %d", size)
	}

	return &Framer{
		r:    r,
		size: size,
		buf:  make([]byte, 2*size),
	}, nil
}

// Size returns the number of complex samples per block.
func (f *Framer) Size() int {
	return f.size
}

// ReadBlock reads a single block. A read that returns fewer than 2*size bytes
// yields a *ShortReadError and the partial data is dropped. Any read error,
// io.EOF included, is reported as ErrStreamClosed.
func (f *Framer) ReadBlock() ([]complex128, error) {
	n, err := f.r.Read(f.buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	if n < len(f.buf) {
		return nil, &ShortReadError{Got: n, Want: len(f.buf)}
	}

	samples := make([]complex128, f.size)
	for i := range samples {
		samples[i] = complex(Normalize(f.buf[2*i]), Normalize(f.buf[2*i+1]))
	}

	return samples, nil
}

// Normalize maps an unsigned 8-bit sample to roughly [-1, 1).
func Normalize(b byte) float64 {
	return (float64(b) - 127.5) / 128.0
}
