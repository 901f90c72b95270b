package l4

// CRC-16/DARC closes every composition-1 data group.  Polynomial 0x1021,
// zero init, no reflection, MSB first over the packed group buffer.

const crc16Polynomial = 0x1021

var crc16Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		value := uint32(i) << 8
		for b := 0; b < 8; b++ {
			if value&0x8000 != 0 {
				value = (value << 1) ^ crc16Polynomial
			} else {
				value <<= 1
			}
		}
		crc16Table[i] = uint16(value)
	}
}

// CRC16 computes CRC-16/DARC over packed bytes.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc16Table[byte(crc>>8)^b] ^ (crc << 8)
	}
	return crc
}
