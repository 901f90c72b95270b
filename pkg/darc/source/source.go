// Package source supplies the decoder with demodulated bits.  Where the
// bits come from (file dump, stdin pipe, live demodulator) is the
// producer's concern; the pipeline only sees ordered segments.
package source

import "context"

// Format describes how bits are laid out in the raw byte stream.
type Format string

const (
	// FormatPacked is eight bits per byte, most significant bit first.
	FormatPacked Format = "packed"
	// FormatUnpacked is one bit per byte, the convention used by SDR
	// demodulator toolchains writing sliced symbols.
	FormatUnpacked Format = "bits"
)

// Segment is a batch of bits, one bit per byte, in transmission order.
type Segment struct {
	Bits   []byte
	Number int
}

// Source produces bit segments until the underlying stream is exhausted.
type Source interface {
	// Start pushes segments into bits until ctx closes or the stream ends.
	// Exhaustion is a clean return, not an error.
	Start(ctx context.Context, bits chan<- *Segment) error
	Stop() error
}
