package l2

import "github.com/rs/zerolog"

// FrameLength is the number of blocks in a Layer-2 frame: 190 information
// blocks interleaved with 82 horizontal parity blocks.
const (
	FrameLength       = 272
	FrameInfoBlocks   = 190
	FrameParityBlocks = 82
)

// FrameStats counts frame assembler activity.
type FrameStats struct {
	Frames             uint64
	ScheduleViolations uint64
	ColumnsCorrected   uint64
	BlocksRepaired     uint64
}

// FrameAssembler collects whole 272-block frames and runs the (272,190)
// code down each of the 190 bit columns, repairing errors the horizontal
// pass could not.  Blocks must follow the frame's positional BIC schedule;
// a violation discards the partial frame.
type FrameAssembler struct {
	blocks []DecodedBlock
	stats  FrameStats
	logger zerolog.Logger
}

func NewFrameAssembler(logger zerolog.Logger) *FrameAssembler {
	return &FrameAssembler{
		blocks: make([]DecodedBlock, 0, FrameLength),
		logger: logger,
	}
}

func (f *FrameAssembler) Stats() FrameStats {
	return f.stats
}

// expectedBIC returns the code required at 1-based frame position n.
func expectedBIC(n int) BIC {
	switch {
	case n <= 13:
		return BIC1
	case n <= 136:
		if n%3 == 1 {
			return BIC4
		}
		return BIC3
	case n <= 149:
		return BIC2
	default:
		if n%3 == 2 {
			return BIC4
		}
		return BIC3
	}
}

// Push adds a block to the frame under assembly.  On the 272nd block the
// frame is corrected vertically and the 190 information blocks are returned
// in arrival order.
func (f *FrameAssembler) Push(blk DecodedBlock) []DecodedBlock {
	position := len(f.blocks) + 1
	if blk.BIC != expectedBIC(position) {
		if len(f.blocks) > 0 {
			f.stats.ScheduleViolations++
			f.logger.Debug().
				Int("position", position).
				Str("bic", blk.BIC.String()).
				Str("expected", expectedBIC(position).String()).
				Msg("frame schedule violation, discarding partial frame")
		}
		f.blocks = f.blocks[:0]
		if blk.BIC != expectedBIC(1) {
			return nil
		}
	}

	f.blocks = append(f.blocks, blk)
	if len(f.blocks) < FrameLength {
		return nil
	}

	out := f.correct()
	f.blocks = f.blocks[:0]
	f.stats.Frames++
	return out
}

// Reset discards any partially assembled frame.
func (f *FrameAssembler) Reset() {
	f.blocks = f.blocks[:0]
}

func (f *FrameAssembler) correct() []DecodedBlock {
	// Information blocks first, parity blocks after, both in arrival order.
	ordered := make([]*DecodedBlock, 0, FrameLength)
	info := make([]*DecodedBlock, 0, FrameInfoBlocks)
	for i := range f.blocks {
		if !f.blocks[i].BIC.IsParity() {
			info = append(info, &f.blocks[i])
		}
	}
	ordered = append(ordered, info...)
	for i := range f.blocks {
		if f.blocks[i].BIC.IsParity() {
			ordered = append(ordered, &f.blocks[i])
		}
	}

	repaired := make(map[int]struct{})
	column := make([]byte, FrameLength)
	for j := 0; j < BlockInfoLength; j++ {
		for i, blk := range ordered {
			column[i] = blk.Body[j]
		}
		if CorrectBody(column) != FECCorrected {
			continue
		}
		f.stats.ColumnsCorrected++
		for i, blk := range ordered {
			if blk.Body[j] != column[i] {
				blk.Body[j] = column[i]
				repaired[i] = struct{}{}
			}
		}
	}

	out := make([]DecodedBlock, 0, FrameInfoBlocks)
	for i, blk := range ordered[:FrameInfoBlocks] {
		if _, ok := repaired[i]; ok {
			f.stats.BlocksRepaired++
			blk.FEC = FECCorrected
			want := uint16(UintMSB(blk.Body[BlockDataLength:BlockInfoLength]))
			blk.CRCValid = want == CRC14(blk.DataPacket())
		}
		out = append(out, *blk)
	}
	return out
}
