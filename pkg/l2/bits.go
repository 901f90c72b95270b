package l2

// Bit buffers throughout the decoder hold one bit per byte, value 0 or 1,
// in over-the-air transmission order.  There is no bit packing except at
// the payload boundary, where PackBits produces MSB-first bytes.

// PackBits packs a bit buffer into bytes, first bit into the MSB of the
// first byte.  Trailing bits of a partial byte are left-aligned.
func PackBits(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b&1 != 0 {
			out[i>>3] |= 0x80 >> (i & 7)
		}
	}
	return out
}

// UnpackBits expands packed MSB-first bytes into one bit per byte.
func UnpackBits(data []byte) []byte {
	out := make([]byte, 8*len(data))
	for i := range out {
		out[i] = (data[i>>3] >> (7 - (i & 7))) & 1
	}
	return out
}

// UintMSB interprets bits as an unsigned integer, first bit most significant.
func UintMSB(bits []byte) uint32 {
	var v uint32
	for _, b := range bits {
		v = v<<1 | uint32(b&1)
	}
	return v
}

// UintLSB interprets bits as an unsigned integer, first bit least
// significant.  DARC header fields are transmitted LSB first.
func UintLSB(bits []byte) uint32 {
	var v uint32
	for i := len(bits) - 1; i >= 0; i-- {
		v = v<<1 | uint32(bits[i]&1)
	}
	return v
}

// AppendUintLSB appends width bits of v, least significant bit first.
func AppendUintLSB(bits []byte, v uint32, width int) []byte {
	for i := 0; i < width; i++ {
		bits = append(bits, byte(v>>i)&1)
	}
	return bits
}

// AppendUintMSB appends width bits of v, most significant bit first.
func AppendUintMSB(bits []byte, v uint32, width int) []byte {
	for i := width - 1; i >= 0; i-- {
		bits = append(bits, byte(v>>i)&1)
	}
	return bits
}
