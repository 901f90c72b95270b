package l2

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	// DefaultBICErrorTolerance is the number of bit errors allowed when
	// matching a BIC.
	DefaultBICErrorTolerance = 2
	// DefaultResyncMissLimit is the number of consecutive boundary misses
	// tolerated before the synchronizer falls back to scanning.
	DefaultResyncMissLimit = 3
)

// Block is a bit-aligned, descrambled block body cut out of the stream by
// the synchronizer.  SyncSuspect marks blocks whose BIC did not match at
// the predicted boundary and was taken on faith.
type Block struct {
	BIC         BIC
	Body        []byte // BlockBodyLength bits, descrambled
	SyncSuspect bool
}

// SyncStats counts synchronizer activity since creation.
type SyncStats struct {
	BitsConsumed   uint64
	Blocks         uint64
	SuspectBlocks  uint64
	Acquired       uint64
	Lost           uint64
	BoundaryMisses uint64
}

// Synchronizer locates block boundaries in the raw bit stream.  It scans
// bit by bit for a BIC match, then reads fixed-stride blocks while the BIC
// keeps matching at each predicted boundary.  Misses beyond the configured
// limit drop it back to scanning.
type Synchronizer struct {
	bicTolerance int
	missLimit    int

	window     uint16
	windowBits int
	locked     bool
	misses     int

	collecting  bool
	bic         BIC
	suspect     bool
	body        []byte
	descrambler *LFSR

	stats      SyncStats
	outputChan chan<- Block
	logger     zerolog.Logger
	ctx        context.Context
}

type SyncOption func(*Synchronizer)

// WithBICErrorTolerance overrides the BIC match tolerance used while
// scanning and at predicted boundaries.
func WithBICErrorTolerance(errors int) SyncOption {
	return func(s *Synchronizer) {
		s.bicTolerance = errors
	}
}

// WithResyncMissLimit overrides the number of boundary misses tolerated
// before synchronization is declared lost.
func WithResyncMissLimit(limit int) SyncOption {
	return func(s *Synchronizer) {
		s.missLimit = limit
	}
}

func NewSynchronizer(ctx context.Context, ch chan<- Block, logger zerolog.Logger, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		bicTolerance: DefaultBICErrorTolerance,
		missLimit:    DefaultResyncMissLimit,
		body:         make([]byte, 0, BlockBodyLength),
		descrambler:  NewScrambler(),
		outputChan:   ch,
		logger:       logger,
		ctx:          ctx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Receive expects a buffer of 1s and 0s, one bit per byte, in transmission
// order.
func (s *Synchronizer) Receive(buf []byte) {
	for _, b := range buf {
		s.receiveBit(b & 1)
	}
}

// Stats returns a snapshot of the synchronizer counters.
func (s *Synchronizer) Stats() SyncStats {
	return s.stats
}

// Locked reports whether the synchronizer currently tracks block boundaries.
func (s *Synchronizer) Locked() bool {
	return s.locked
}

func (s *Synchronizer) receiveBit(bit byte) {
	s.stats.BitsConsumed++

	if s.collecting {
		s.body = append(s.body, bit^s.descrambler.Next())
		if len(s.body) == BlockBodyLength {
			s.emit()
		}
		return
	}

	s.window = s.window<<1 | uint16(bit)
	s.windowBits++

	if !s.locked {
		if bic, _, ok := DetectBIC(s.window, s.bicTolerance); ok {
			s.locked = true
			s.misses = 0
			s.stats.Acquired++
			s.logger.Debug().Str("bic", bic.String()).Msg("synchronization acquired")
			s.startBlock(bic, false)
		}
		return
	}

	if s.windowBits < BICLength {
		return
	}

	bic, dist, ok := DetectBIC(s.window, s.bicTolerance)
	if ok {
		s.misses = 0
		s.startBlock(bic, false)
		return
	}

	s.misses++
	s.stats.BoundaryMisses++
	if s.misses >= s.missLimit {
		s.locked = false
		s.stats.Lost++
		s.logger.Debug().Int("misses", s.misses).Msg("synchronization lost")
		return
	}

	// Assume the BIC itself took the hit and keep the stride; the block is
	// flagged so downstream consumers can weigh it accordingly.
	s.logger.Debug().
		Str("bic", bic.String()).
		Int("distance", dist).
		Int("misses", s.misses).
		Msg("boundary miss, decoding suspect block")
	s.startBlock(bic, true)
}

func (s *Synchronizer) startBlock(bic BIC, suspect bool) {
	s.collecting = true
	s.bic = bic
	s.suspect = suspect
	s.body = s.body[:0]
	s.descrambler.Reset()
	if suspect {
		s.stats.SuspectBlocks++
	}
}

func (s *Synchronizer) emit() {
	body := make([]byte, BlockBodyLength)
	copy(body, s.body)
	blk := Block{BIC: s.bic, Body: body, SyncSuspect: s.suspect}

	s.collecting = false
	s.window = 0
	s.windowBits = 0
	s.stats.Blocks++

	select {
	case <-s.ctx.Done():
	case s.outputChan <- blk:
	}
}
