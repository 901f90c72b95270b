package l2

// CRC-82/DARC doubles as the parity generator and syndrome computation for
// the (272,190) difference set cyclic code protecting every block body.
// The 82-bit register is wider than a machine word, so values are carried
// as a hi/lo pair with the top 18 bits in hi.

const (
	crc82PolyHi = 0x0308C
	crc82PolyLo = 0x0111011401440411
	crc82MaskHi = 0x3FFFF
	crc82MSBHi  = 0x20000
)

// CRC82 is an 82-bit CRC value.  Comparable so it can key the syndrome table.
type CRC82 struct {
	Hi uint64 // bits 64..81
	Lo uint64 // bits 0..63
}

func (c CRC82) IsZero() bool {
	return c.Hi == 0 && c.Lo == 0
}

func (c CRC82) xor(o CRC82) CRC82 {
	return CRC82{Hi: c.Hi ^ o.Hi, Lo: c.Lo ^ o.Lo}
}

func (c CRC82) shiftLeft1() CRC82 {
	return CRC82{
		Hi: ((c.Hi << 1) | (c.Lo >> 63)) & crc82MaskHi,
		Lo: c.Lo << 1,
	}
}

func (c CRC82) shiftLeft8() CRC82 {
	return CRC82{
		Hi: ((c.Hi << 8) | (c.Lo >> 56)) & crc82MaskHi,
		Lo: c.Lo << 8,
	}
}

var crc82Table [256]CRC82

func init() {
	poly := CRC82{Hi: crc82PolyHi, Lo: crc82PolyLo}
	for i := 0; i < 256; i++ {
		// Seed the byte at bit offset 74 (82-8).
		value := CRC82{Hi: (uint64(i) << 10) & crc82MaskHi, Lo: 0}
		for b := 0; b < 8; b++ {
			msb := value.Hi & crc82MSBHi
			value = value.shiftLeft1()
			if msb != 0 {
				value = value.xor(poly)
			}
		}
		crc82Table[i] = value
	}
}

// CRC82Bytes computes CRC-82/DARC over packed bytes.
func CRC82Bytes(data []byte) CRC82 {
	var crc CRC82
	for _, b := range data {
		idx := byte(crc.Hi>>10) ^ b
		crc = crc82Table[idx].xor(crc.shiftLeft8())
	}
	return crc
}

// CRC82Bits computes CRC-82/DARC over a bit buffer of arbitrary length.
func CRC82Bits(bits []byte) CRC82 {
	if len(bits)%8 == 0 {
		return CRC82Bytes(PackBits(bits))
	}
	poly := CRC82{Hi: crc82PolyHi, Lo: crc82PolyLo}
	var crc CRC82
	for _, bit := range bits {
		msb := (crc.Hi >> 17) & 1
		crc = crc.shiftLeft1()
		if msb^uint64(bit&1) != 0 {
			crc = crc.xor(poly)
		}
	}
	return crc
}
