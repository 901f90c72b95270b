package l2

const (
	scramblerSeed       = 0x155
	scramblerPolynomial = 0x110
)

// LFSR is the Galois linear-feedback shift register used to scramble the
// 272-bit block body.  The register is re-seeded at every block boundary.
type LFSR struct {
	state uint16
}

func NewScrambler() *LFSR {
	return &LFSR{state: scramblerSeed}
}

func (l *LFSR) Reset() {
	l.state = scramblerSeed
}

// Next returns the next keystream bit.
func (l *LFSR) Next() byte {
	lsb := l.state & 1
	l.state >>= 1
	if lsb != 0 {
		l.state ^= scramblerPolynomial
		return 1
	}
	return 0
}
