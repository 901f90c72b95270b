package source

import (
	"context"
	"errors"
	"io"

	"github.com/opendarc/darc/pkg/l2"
)

const defaultReadSize = 4096

// ReaderSource adapts any io.Reader (stdin, a pipe from the demodulator)
// into a bit source.
type ReaderSource struct {
	r        io.Reader
	format   Format
	readSize int
}

func NewReaderSource(r io.Reader, format Format, readSize int) *ReaderSource {
	if readSize <= 0 {
		readSize = defaultReadSize
	}
	return &ReaderSource{r: r, format: format, readSize: readSize}
}

func (s *ReaderSource) Start(ctx context.Context, bits chan<- *Segment) error {
	buf := make([]byte, s.readSize)
	segNum := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.r.Read(buf)
		if n > 0 {
			segNum++
			seg := &Segment{Number: segNum, Bits: convert(buf[:n], s.format)}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case bits <- seg:
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *ReaderSource) Stop() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func convert(raw []byte, format Format) []byte {
	if format == FormatUnpacked {
		out := make([]byte, len(raw))
		for i, b := range raw {
			out[i] = b & 1
		}
		return out
	}
	return l2.UnpackBits(raw)
}
