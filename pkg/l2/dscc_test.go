package l2

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testBody(t testing.TB) []byte {
	t.Helper()
	data := make([]byte, BlockDataLength)
	for i := range data {
		data[i] = byte((i*31 + i/7) & 1)
	}
	return EncodeBody(data)
}

func TestCorrectBodyCleanBlock(t *testing.T) {
	body := testBody(t)
	want := append([]byte(nil), body...)

	require.Equal(t, FECNone, CorrectBody(body))
	require.Equal(t, want, body)
}

func TestCorrectBodySingleBitErrors(t *testing.T) {
	clean := testBody(t)
	for pos := 0; pos < BlockBodyLength; pos++ {
		body := append([]byte(nil), clean...)
		body[pos] ^= 1

		require.Equal(t, FECCorrected, CorrectBody(body), "error at bit %d", pos)
		require.Equal(t, clean, body, "error at bit %d", pos)
	}
}

func TestCorrectBodyBurstErrors(t *testing.T) {
	clean := testBody(t)
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(1, maxBurstWidth).Draw(t, "width")
		pattern := uint16(1)
		if width > 1 {
			pattern = 1<<(width-1) | 1
		}
		if width > 2 {
			pattern |= uint16(rapid.IntRange(0, 1<<(width-2)-1).Draw(t, "mid")) << 1
		}
		offset := rapid.IntRange(0, BlockBodyLength-width).Draw(t, "offset")

		body := append([]byte(nil), clean...)
		for k := 0; k < width; k++ {
			if pattern>>k&1 != 0 {
				body[BlockBodyLength-1-(offset+k)] ^= 1
			}
		}

		require.Equal(t, FECCorrected, CorrectBody(body))
		require.Equal(t, clean, body)
	})
}

func TestCorrectBodyWideErrorsAreUntouched(t *testing.T) {
	clean := testBody(t)
	body := append([]byte(nil), clean...)
	body[10] ^= 1
	body[200] ^= 1
	damaged := append([]byte(nil), body...)

	require.Equal(t, FECUncorrectable, CorrectBody(body))
	require.Equal(t, damaged, body)
}
