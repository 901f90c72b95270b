package l3

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/opendarc/darc/pkg/l2"
)

func wrapBlock(t *testing.T, bits []byte) l2.DecodedBlock {
	t.Helper()
	require.Len(t, bits, l2.BlockDataLength)
	return l2.DecodedBlock{BIC: l2.BIC1, Body: l2.EncodeBody(bits)[:l2.BlockInfoLength], CRCValid: true}
}

func TestParsePacketRejectsParityBlocks(t *testing.T) {
	_, err := ParsePacket(l2.DecodedBlock{BIC: l2.BIC4, Body: make([]byte, l2.BlockInfoLength)})
	require.Error(t, err)
}

func TestParsePacketComposition1(t *testing.T) {
	data := make([]byte, DataBlockLength1)
	data[0], data[143] = 1, 1

	p := DataPacket{
		Service:          7,
		DecodeID:         1,
		EndOfInformation: true,
		UpdateFlag:       2,
		GroupNumber:      0x2A5,
		PacketNumber:     0x3F,
		Data:             data,
	}

	got, err := ParsePacket(wrapBlock(t, p.AppendBits()))
	require.NoError(t, err)
	require.True(t, got.Valid)
	require.False(t, got.Corrected)
	got.Valid = false
	require.Equal(t, p, got)
}

func TestPacketRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := DataPacket{
			Service:          ServiceID(rapid.IntRange(0, 15).Draw(t, "service")),
			DecodeID:         byte(rapid.IntRange(0, 1).Draw(t, "decode")),
			EndOfInformation: rapid.Bool().Draw(t, "eoi"),
			UpdateFlag:       byte(rapid.IntRange(0, 3).Draw(t, "update")),
		}

		dataLen := DataBlockLength1
		if p.Service == ServiceAdditionalInformation {
			dataLen = DataBlockLength2
			p.GroupNumber = uint16(rapid.IntRange(0, 15).Draw(t, "group"))
			p.PacketNumber = uint16(rapid.IntRange(0, 15).Draw(t, "packet"))
		} else {
			p.GroupNumber = uint16(rapid.IntRange(0, 1<<14-1).Draw(t, "group"))
			p.PacketNumber = uint16(rapid.IntRange(0, 1<<10-1).Draw(t, "packet"))
		}
		packed := rapid.SliceOfN(rapid.Byte(), dataLen/8, dataLen/8).Draw(t, "data")
		p.Data = l2.UnpackBits(packed)

		bits := p.AppendBits()
		require.Len(t, bits, l2.BlockDataLength)

		got, err := ParsePacket(l2.DecodedBlock{BIC: l2.BIC2, Body: l2.EncodeBody(bits)[:l2.BlockInfoLength], CRCValid: true})
		require.NoError(t, err)
		got.Valid = false
		require.Equal(t, p, got)
	})
}
