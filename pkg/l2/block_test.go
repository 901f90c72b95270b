package l2

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodeCleanBlock(t *testing.T) {
	data := make([]byte, BlockDataLength)
	for i := range data {
		data[i] = byte(i) & 1
	}
	dec := NewBlockDecoder(zerolog.Nop())

	out := dec.Decode(Block{BIC: BIC1, Body: EncodeBody(data)})

	require.Equal(t, BIC1, out.BIC)
	require.Equal(t, FECNone, out.FEC)
	require.True(t, out.CRCValid)
	require.True(t, out.Valid())
	require.Equal(t, data, out.Body[:BlockDataLength])
	require.Equal(t, PackBits(data), out.DataPacket())
	require.Equal(t, uint64(1), dec.Stats().Blocks)
}

func TestDecodeCorrectsCorruptedBlock(t *testing.T) {
	data := make([]byte, BlockDataLength)
	data[3] = 1
	data[100] = 1
	body := EncodeBody(data)
	body[42] ^= 1
	body[45] ^= 1

	dec := NewBlockDecoder(zerolog.Nop())
	out := dec.Decode(Block{BIC: BIC3, Body: body})

	require.Equal(t, FECCorrected, out.FEC)
	require.True(t, out.CRCValid)
	require.Equal(t, data, out.Body[:BlockDataLength])
	require.Equal(t, uint64(1), dec.Stats().Corrected)
}

// A body can satisfy the (272,190) code and still carry a bad CRC-14; the
// two checks are independent and both outcomes must be reported.
func TestDecodeChecksumMismatchWithCleanParity(t *testing.T) {
	data := make([]byte, BlockDataLength)
	info := append([]byte(nil), data...)
	wrong := CRC14(PackBits(data)) ^ 0x0001
	info = AppendUintMSB(info, uint32(wrong), 14)

	dec := NewBlockDecoder(zerolog.Nop())
	out := dec.Decode(Block{BIC: BIC2, Body: AppendParity(info)})

	require.Equal(t, FECNone, out.FEC)
	require.False(t, out.CRCValid)
	require.False(t, out.Valid())
	require.Equal(t, uint64(1), dec.Stats().CRCMismatches)
}

func TestDecodeParityBlockSkipsChecksum(t *testing.T) {
	body := AppendParity(make([]byte, BlockInfoLength))
	dec := NewBlockDecoder(zerolog.Nop())

	out := dec.Decode(Block{BIC: BIC4, Body: body})

	require.Equal(t, FECNone, out.FEC)
	require.True(t, out.CRCValid)
	require.Equal(t, uint64(0), dec.Stats().CRCMismatches)
}

func TestEncodeBlockRoundTripsThroughScrambler(t *testing.T) {
	data := make([]byte, BlockDataLength)
	for i := range data {
		data[i] = byte(i%3) & 1
	}
	body := EncodeBody(data)

	onAir := EncodeBlock(BIC1, body)
	require.Len(t, onAir, BlockLength)
	require.Equal(t, BIC(UintMSB(onAir[:BICLength])), BIC1)

	descrambler := NewScrambler()
	recovered := make([]byte, 0, BlockBodyLength)
	for _, bit := range onAir[BICLength:] {
		recovered = append(recovered, bit^descrambler.Next())
	}
	require.Equal(t, body, recovered)
}
