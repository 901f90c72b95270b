package l4

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendarc/darc/pkg/l2"
	"github.com/opendarc/darc/pkg/l3"
)

func TestCRC16KnownVector(t *testing.T) {
	require.Equal(t, uint16(0x31C3), CRC16([]byte("123456789")))
	require.Equal(t, uint16(0), CRC16(make([]byte, 8)))
}

// buildGroupBits serializes a composition-1 data group the way it rides the
// channel: LSB-first header and data bytes, zero padding up to a whole
// number of 144-bit data blocks, end marker, MSB-first CRC-16.
func buildGroupBits(t testing.TB, data []byte, link byte) []byte {
	t.Helper()

	size := len(data)
	var bits []byte
	bits = l2.AppendUintLSB(bits, 0x01, 8)
	bits = l2.AppendUintLSB(bits, uint32(size>>8), 7)
	bits = append(bits, link&1)
	bits = l2.AppendUintLSB(bits, uint32(size&0xFF), 8)
	for _, b := range data {
		bits = l2.AppendUintLSB(bits, uint32(b), 8)
	}

	padding := (18 - (6+size)%18) % 18
	bits = append(bits, make([]byte, 8*padding)...)
	bits = l2.AppendUintLSB(bits, 0x03, 8)
	bits = l2.AppendUintMSB(bits, uint32(CRC16(l2.PackBits(bits))), 16)

	require.Zero(t, len(bits)%l3.DataBlockLength1)
	return bits
}

func TestParseHeader(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	g := &DataGroup{Service: 1, GroupNumber: 9, Bits: buildGroupBits(t, data, 1)}

	h, err := g.ParseHeader()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), h.StartOfHeading)
	require.Equal(t, byte(1), h.Link)
	require.Equal(t, len(data), h.Size)
	require.Equal(t, data, h.Data)
	require.Equal(t, byte(0x03), h.EndMarker)
	require.True(t, h.CRCValid)
}

func TestParseHeaderDetectsCorruption(t *testing.T) {
	g := &DataGroup{Service: 2, Bits: buildGroupBits(t, []byte{1, 2, 3}, 0)}
	g.Bits[40] ^= 1

	h, err := g.ParseHeader()
	require.NoError(t, err)
	require.False(t, h.CRCValid)
}

func TestParseHeaderRejects(t *testing.T) {
	short := &DataGroup{Service: 1, Bits: make([]byte, 40)}
	_, err := short.ParseHeader()
	require.Error(t, err)

	unaligned := &DataGroup{Service: 1, Bits: make([]byte, 145)}
	_, err = unaligned.ParseHeader()
	require.Error(t, err)

	ai := &DataGroup{Service: l3.ServiceAdditionalInformation, Bits: make([]byte, 160)}
	_, err = ai.ParseHeader()
	require.Error(t, err)

	oversize := &DataGroup{Service: 1, Bits: buildGroupBits(t, []byte{1}, 0)}
	// Declared size beyond the buffer: set the low size byte to 0xFF.
	for i := 16; i < 24; i++ {
		oversize.Bits[i] = 1
	}
	_, err = oversize.ParseHeader()
	require.Error(t, err)
}

func TestGroupPayloadPacksBits(t *testing.T) {
	g := &DataGroup{Bits: []byte{1, 0, 1, 0, 0, 0, 0, 1}}
	require.Equal(t, []byte{0xA1}, g.Payload())
}
