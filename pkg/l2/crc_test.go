package l2

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// crc14Reference shifts the raw bit stream through the CRC-14 register one
// bit at a time, independently of the table used by CRC14.
func crc14Reference(bits []byte) uint16 {
	var crc uint16
	for _, bit := range bits {
		fb := (crc>>13)&1 ^ uint16(bit&1)
		crc = crc << 1 & 0x3FFF
		if fb != 0 {
			crc ^= crc14Polynomial
		}
	}
	return crc
}

func TestCRC14MatchesBitwiseReference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
		require.Equal(t, crc14Reference(UnpackBits(data)), CRC14(data))
	})
}

func TestCRC14DetectsSingleBitError(t *testing.T) {
	data := make([]byte, 22)
	for i := range data {
		data[i] = byte(i * 7)
	}
	clean := CRC14(data)
	for i := range data {
		for b := 0; b < 8; b++ {
			data[i] ^= 1 << b
			require.NotEqual(t, clean, CRC14(data))
			data[i] ^= 1 << b
		}
	}
}

// crc82Reference reruns the register in big.Int arithmetic, catching any
// carry mistakes across the hi/lo word boundary.
func crc82Reference(bits []byte) CRC82 {
	poly := new(big.Int)
	poly.SetString("0308C0111011401440411", 16)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 82), big.NewInt(1))

	r := new(big.Int)
	for _, bit := range bits {
		msb := r.Bit(81)
		r.Lsh(r, 1).And(r, mask)
		if msb != uint(bit&1) {
			r.Xor(r, poly)
		}
	}
	lo := new(big.Int).And(r, new(big.Int).SetUint64(^uint64(0)))
	return CRC82{Hi: new(big.Int).Rsh(r, 64).Uint64(), Lo: lo.Uint64()}
}

func TestCRC82MatchesBigIntReference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
		bits := UnpackBits(data)
		// Byte-aligned input exercises the table path, a trimmed copy the
		// bit-serial path.
		require.Equal(t, crc82Reference(bits), CRC82Bits(bits))
		trimmed := bits[:len(bits)-3]
		require.Equal(t, crc82Reference(trimmed), CRC82Bits(trimmed))
	})
}

func TestCRC82ZeroInputIsZero(t *testing.T) {
	require.True(t, CRC82Bits(make([]byte, BlockBodyLength)).IsZero())
	require.True(t, CRC82Bytes(make([]byte, 34)).IsZero())
}

func TestAppendParityYieldsZeroSyndrome(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		packed := rapid.SliceOfN(rapid.Byte(), 24, 24).Draw(t, "info")
		info := UnpackBits(packed)[:BlockInfoLength]

		body := AppendParity(info)
		require.Len(t, body, BlockBodyLength)
		require.Equal(t, info, body[:BlockInfoLength])
		require.True(t, CRC82Bits(body).IsZero())
	})
}
