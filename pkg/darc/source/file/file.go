// Package file replays captured bit dumps at a configurable pace, standing
// in for a live demodulator during development.
package file

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/opendarc/darc/pkg/darc/source"
	"github.com/opendarc/darc/pkg/l2"
)

type FileSource struct {
	readFile    *os.File
	readSize    int
	timeBetween time.Duration
	format      source.Format
}

func NewFileSource(path string, format source.Format, readSize int, timeBetween time.Duration) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if readSize <= 0 {
		readSize = 4096
	}
	return &FileSource{
		readFile:    f,
		readSize:    readSize,
		timeBetween: timeBetween,
		format:      format,
	}, nil
}

func (f *FileSource) Start(ctx context.Context, bits chan<- *source.Segment) error {
	var tick *time.Ticker
	if f.timeBetween > 0 {
		tick = time.NewTicker(f.timeBetween)
		defer tick.Stop()
	}

	buf := make([]byte, f.readSize)
	segNum := 0
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}

		n, err := f.readFile.Read(buf)
		if n > 0 {
			segNum++
			seg := &source.Segment{Number: segNum}
			if f.format == source.FormatUnpacked {
				seg.Bits = make([]byte, n)
				for i, b := range buf[:n] {
					seg.Bits[i] = b & 1
				}
			} else {
				seg.Bits = l2.UnpackBits(buf[:n])
			}

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

func (f *FileSource) Stop() error {
	return f.readFile.Close()
}
