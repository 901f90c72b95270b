package l2

import "github.com/rs/zerolog"

// DecodedBlock is the result of horizontal error correction on one block.
// Body holds the 190-bit information field (data packet plus CRC for
// information blocks, vertical parity for parity blocks).
type DecodedBlock struct {
	BIC         BIC
	Body        []byte // BlockInfoLength bits
	FEC         FECOutcome
	CRCValid    bool
	SyncSuspect bool
}

// Valid reports whether the block survived both the error corrector and the
// independent CRC check.
func (b *DecodedBlock) Valid() bool {
	return b.FEC != FECUncorrectable && b.CRCValid
}

// DataPacket returns the 176-bit data packet packed into 22 bytes.  Only
// meaningful for information blocks.
func (b *DecodedBlock) DataPacket() []byte {
	return PackBits(b.Body[:BlockDataLength])
}

// DecoderStats counts block decoder outcomes.
type DecoderStats struct {
	Blocks        uint64
	Corrected     uint64
	Uncorrectable uint64
	CRCMismatches uint64
}

// BlockDecoder applies the (272,190) code and the CRC-14 check to raw
// blocks.  Uncorrectable and checksum-failed blocks are passed through with
// their flags set; deciding their fate is the group assembler's business.
type BlockDecoder struct {
	stats  DecoderStats
	logger zerolog.Logger
}

func NewBlockDecoder(logger zerolog.Logger) *BlockDecoder {
	return &BlockDecoder{logger: logger}
}

func (d *BlockDecoder) Stats() DecoderStats {
	return d.stats
}

func (d *BlockDecoder) Decode(blk Block) DecodedBlock {
	d.stats.Blocks++

	body := make([]byte, BlockBodyLength)
	copy(body, blk.Body)

	outcome := CorrectBody(body)
	switch outcome {
	case FECCorrected:
		d.stats.Corrected++
		d.logger.Debug().Str("bic", blk.BIC.String()).Msg("block corrected")
	case FECUncorrectable:
		d.stats.Uncorrectable++
		d.logger.Debug().Str("bic", blk.BIC.String()).Msg("block uncorrectable")
	}

	out := DecodedBlock{
		BIC:         blk.BIC,
		Body:        body[:BlockInfoLength],
		FEC:         outcome,
		SyncSuspect: blk.SyncSuspect,
		CRCValid:    true,
	}

	if !blk.BIC.IsParity() {
		want := uint16(UintMSB(out.Body[BlockDataLength:BlockInfoLength]))
		got := CRC14(out.DataPacket())
		out.CRCValid = want == got
		if !out.CRCValid {
			d.stats.CRCMismatches++
			d.logger.Debug().
				Str("bic", blk.BIC.String()).
				Uint16("want", want).
				Uint16("got", got).
				Msg("block checksum mismatch")
		}
	}

	return out
}

// EncodeBody builds a complete 272-bit information block body from a
// 176-bit data packet: CRC-14 appended, then the 82 horizontal parity bits.
func EncodeBody(data []byte) []byte {
	info := make([]byte, 0, BlockInfoLength)
	info = append(info, data[:BlockDataLength]...)
	info = AppendUintMSB(info, uint32(CRC14(PackBits(data[:BlockDataLength]))), 14)
	return AppendParity(info)
}

// EncodeBlock serializes a full on-air block: BIC followed by the scrambled
// body.  The counterpart of the synchronizer's cut-and-descramble.
func EncodeBlock(bic BIC, body []byte) []byte {
	out := make([]byte, 0, BlockLength)
	out = AppendUintMSB(out, uint32(bic), BICLength)
	scrambler := NewScrambler()
	for _, b := range body {
		out = append(out, (b&1)^scrambler.Next())
	}
	return out
}
