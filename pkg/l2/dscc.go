package l2

import "sync"

// Error correction for the (272,190) difference set cyclic code.  A received
// body with a zero CRC-82 syndrome is clean.  Non-zero syndromes are matched
// against a precomputed table of burst error patterns up to 8 bits wide;
// anything outside the table is declared uncorrectable and left untouched.

const (
	// BlockBodyLength is the number of scrambled bits following the BIC.
	BlockBodyLength = 272
	// BlockInfoLength is the body length minus the 82 horizontal parity bits.
	BlockInfoLength = 190
	// BlockDataLength is the data packet portion of an information block.
	BlockDataLength = 176

	maxBurstWidth = 8
)

// FECOutcome reports what the error corrector did to a block body.
type FECOutcome int

const (
	FECNone FECOutcome = iota
	FECCorrected
	FECUncorrectable
)

func (o FECOutcome) String() string {
	switch o {
	case FECNone:
		return "none"
	case FECCorrected:
		return "corrected"
	case FECUncorrectable:
		return "uncorrectable"
	}
	return "unknown"
}

type burstError struct {
	offset  uint16 // shift of the pattern from the last transmitted bit
	pattern uint16
	width   uint8
}

var (
	syndromeOnce sync.Once
	syndromeMap  map[CRC82]burstError
)

// Error patterns are enumerated as integers e = pattern << offset over the
// 272-bit body, matching the bit numbering of the syndrome computation:
// integer bit k corresponds to transmission position 271-k.
func buildSyndromeMap() {
	syndromeMap = make(map[CRC82]burstError)
	scratch := make([]byte, BlockBodyLength)
	for width := 1; width <= maxBurstWidth; width++ {
		base := uint16(1)
		if width > 1 {
			base = (1 << (width - 1)) | 1
		}
		midPatterns := 1
		if width > 2 {
			midPatterns = 1 << (width - 2)
		}
		for mid := 0; mid < midPatterns; mid++ {
			pattern := base | uint16(mid)<<1
			for offset := 0; offset <= BlockBodyLength-width; offset++ {
				for i := range scratch {
					scratch[i] = 0
				}
				applyBurst(scratch, burstError{uint16(offset), pattern, uint8(width)})
				syn := CRC82Bits(scratch)
				syndromeMap[syn] = burstError{uint16(offset), pattern, uint8(width)}
			}
		}
	}
}

func applyBurst(bits []byte, e burstError) {
	for k := 0; k < int(e.width); k++ {
		if e.pattern>>k&1 != 0 {
			pos := BlockBodyLength - 1 - (int(e.offset) + k)
			bits[pos] ^= 1
		}
	}
}

// CorrectBody corrects a 272-bit block body in place.
func CorrectBody(bits []byte) FECOutcome {
	syndromeOnce.Do(buildSyndromeMap)

	syn := CRC82Bits(bits)
	if syn.IsZero() {
		return FECNone
	}
	e, ok := syndromeMap[syn]
	if !ok {
		return FECUncorrectable
	}
	applyBurst(bits, e)
	return FECCorrected
}

// AppendParity extends a 190-bit information field with the 82 parity bits
// of the (272,190) code, yielding a body with a zero syndrome.
func AppendParity(info []byte) []byte {
	parity := CRC82Bits(info)
	body := make([]byte, 0, BlockBodyLength)
	body = append(body, info...)
	body = AppendUintMSB(body, uint32(parity.Hi), 18)
	body = AppendUintMSB(body, uint32(parity.Lo>>32), 32)
	body = AppendUintMSB(body, uint32(parity.Lo), 32)
	return body
}
