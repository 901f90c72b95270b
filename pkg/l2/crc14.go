package l2

// CRC-14/DARC protects the 176-bit data packet of every information block.
// Polynomial 0x0805, zero init, no reflection, computed MSB first over the
// packed data bytes.

const crc14Polynomial = 0x0805

var crc14Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		value := uint32(i) << 6
		for b := 0; b < 8; b++ {
			if value&0x2000 != 0 {
				value = (value << 1) ^ crc14Polynomial
			} else {
				value <<= 1
			}
		}
		crc14Table[i] = uint16(value & 0x3FFF)
	}
}

// CRC14 computes CRC-14/DARC over packed bytes.
func CRC14(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc14Table[byte(crc>>6)^b] ^ (crc << 8)
		crc &= 0x3FFF
	}
	return crc
}
