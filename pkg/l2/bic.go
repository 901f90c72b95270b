package l2

import "math/bits"

// Block Identification Codes.  BIC1 through BIC3 head information blocks,
// BIC4 heads horizontal parity blocks.  The code also encodes the block's
// place in the 272-block frame schedule.
type BIC uint16

const (
	BIC1 BIC = 0x135E
	BIC2 BIC = 0x74A6
	BIC3 BIC = 0xA791
	BIC4 BIC = 0xC875

	// BICLength is the number of bits in a Block Identification Code.
	BICLength = 16
	// BlockLength is the full block: BIC plus scrambled body.
	BlockLength = BICLength + BlockBodyLength
)

var allBICs = [...]BIC{BIC1, BIC2, BIC3, BIC4}

func (b BIC) String() string {
	switch b {
	case BIC1:
		return "BIC1"
	case BIC2:
		return "BIC2"
	case BIC3:
		return "BIC3"
	case BIC4:
		return "BIC4"
	}
	return "BIC?"
}

// IsParity reports whether the BIC marks a horizontal parity block.
func (b BIC) IsParity() bool {
	return b == BIC4
}

// DetectBIC matches a 16-bit window against the four codes, tolerating up
// to maxErrors bit errors.  Returns the matched code, its Hamming distance
// from the window, and whether the distance was within tolerance.
func DetectBIC(window uint16, maxErrors int) (BIC, int, bool) {
	best := allBICs[0]
	bestDist := bits.OnesCount16(window ^ uint16(allBICs[0]))
	for _, bic := range allBICs[1:] {
		if d := bits.OnesCount16(window ^ uint16(bic)); d < bestDist {
			best, bestDist = bic, d
		}
	}
	return best, bestDist, bestDist <= maxErrors
}
