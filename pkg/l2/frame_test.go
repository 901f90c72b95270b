package l2

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFrameScheduleCounts(t *testing.T) {
	info, parity := 0, 0
	for n := 1; n <= FrameLength; n++ {
		if expectedBIC(n).IsParity() {
			parity++
		} else {
			info++
		}
	}
	require.Equal(t, FrameInfoBlocks, info)
	require.Equal(t, FrameParityBlocks, parity)
	require.Equal(t, BIC1, expectedBIC(1))
	require.Equal(t, BIC2, expectedBIC(137))
}

// buildFrame constructs a consistent 272-block frame: 190 information
// bodies plus 82 parity bodies whose bit columns all form valid (272,190)
// codewords, interleaved per the positional BIC schedule.
func buildFrame(t *testing.T) []DecodedBlock {
	t.Helper()

	infoBodies := make([][]byte, FrameInfoBlocks)
	for i := range infoBodies {
		data := make([]byte, BlockDataLength)
		for j := range data {
			data[j] = byte((i*j + i + j) & 1)
		}
		infoBodies[i] = EncodeBody(data)[:BlockInfoLength]
	}

	parityBodies := make([][]byte, FrameParityBlocks)
	for p := range parityBodies {
		parityBodies[p] = make([]byte, BlockInfoLength)
	}
	column := make([]byte, FrameInfoBlocks)
	for j := 0; j < BlockInfoLength; j++ {
		for i, body := range infoBodies {
			column[i] = body[j]
		}
		vertical := AppendParity(column)[FrameInfoBlocks:]
		for p := range parityBodies {
			parityBodies[p][j] = vertical[p]
		}
	}

	blocks := make([]DecodedBlock, 0, FrameLength)
	infoIdx, parityIdx := 0, 0
	for n := 1; n <= FrameLength; n++ {
		bic := expectedBIC(n)
		blk := DecodedBlock{BIC: bic, CRCValid: true}
		if bic.IsParity() {
			blk.Body = append([]byte(nil), parityBodies[parityIdx]...)
			parityIdx++
		} else {
			blk.Body = append([]byte(nil), infoBodies[infoIdx]...)
			infoIdx++
		}
		blocks = append(blocks, blk)
	}
	return blocks
}

func TestFrameAssemblerPassesCleanFrame(t *testing.T) {
	blocks := buildFrame(t)
	f := NewFrameAssembler(zerolog.Nop())

	var out []DecodedBlock
	for i, blk := range blocks {
		emitted := f.Push(blk)
		if i < FrameLength-1 {
			require.Nil(t, emitted)
			continue
		}
		out = emitted
	}

	require.Len(t, out, FrameInfoBlocks)
	infoIdx := 0
	for _, blk := range blocks {
		if blk.BIC.IsParity() {
			continue
		}
		require.Equal(t, blk.Body, out[infoIdx].Body)
		require.True(t, out[infoIdx].CRCValid)
		infoIdx++
	}

	stats := f.Stats()
	require.Equal(t, uint64(1), stats.Frames)
	require.Equal(t, uint64(0), stats.ColumnsCorrected)
	require.Equal(t, uint64(0), stats.BlocksRepaired)
}

func TestFrameAssemblerRepairsVertically(t *testing.T) {
	blocks := buildFrame(t)

	// Wreck one information block beyond horizontal repair: twenty errors
	// spread over distinct bit columns, each a single-bit error vertically.
	const victim = 6 // frame position 7, information index 6
	require.False(t, blocks[victim].BIC.IsParity())
	want := append([]byte(nil), blocks[victim].Body...)
	for m := 0; m < 20; m++ {
		blocks[victim].Body[m*9] ^= 1
	}
	blocks[victim].FEC = FECUncorrectable
	blocks[victim].CRCValid = false

	f := NewFrameAssembler(zerolog.Nop())
	var out []DecodedBlock
	for _, blk := range blocks {
		if emitted := f.Push(blk); emitted != nil {
			out = emitted
		}
	}

	require.Len(t, out, FrameInfoBlocks)
	repaired := out[victim]
	require.Equal(t, want, repaired.Body)
	require.Equal(t, FECCorrected, repaired.FEC)
	require.True(t, repaired.CRCValid)
	require.True(t, repaired.Valid())

	stats := f.Stats()
	require.Equal(t, uint64(20), stats.ColumnsCorrected)
	require.Equal(t, uint64(1), stats.BlocksRepaired)
}

func TestFrameAssemblerDiscardsOnScheduleViolation(t *testing.T) {
	f := NewFrameAssembler(zerolog.Nop())

	require.Nil(t, f.Push(DecodedBlock{BIC: BIC3, Body: make([]byte, BlockInfoLength)}))
	require.Equal(t, uint64(0), f.Stats().ScheduleViolations)

	for i := 0; i < 5; i++ {
		require.Nil(t, f.Push(DecodedBlock{BIC: BIC1, Body: make([]byte, BlockInfoLength)}))
	}
	// Position 6 expects BIC1; a parity code here aborts the partial frame.
	require.Nil(t, f.Push(DecodedBlock{BIC: BIC4, Body: make([]byte, BlockInfoLength)}))
	require.Equal(t, uint64(1), f.Stats().ScheduleViolations)

	// The violating block cannot restart a frame either; the next BIC1 can.
	require.Nil(t, f.Push(DecodedBlock{BIC: BIC1, Body: make([]byte, BlockInfoLength)}))
	f.Reset()
}
