package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecDecodeWidths(t *testing.T) {
	c := leCodec{}

	v, err := c.Decode([]byte{0x2a})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = c.Decode([]byte{0x34, 0x12})
	require.NoError(t, err)
	assert.Equal(t, int64(0x1234), v)

	v, err = c.Decode([]byte{0x78, 0x56, 0x34, 0x12})
	require.NoError(t, err)
	assert.Equal(t, int64(0x12345678), v)

	v, err = c.Decode([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCodecDecodeSignExtends(t *testing.T) {
	c := leCodec{}

	v, err := c.Decode([]byte{0xff})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)

	v, err = c.Decode([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestCodecEncodeRoundTrip(t *testing.T) {
	c := leCodec{}

	for _, width := range []int{1, 2, 4, 8} {
		buf := make([]byte, width)
		require.NoError(t, c.Encode(int64(42), buf))
		v, err := c.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v, "width %d", width)
	}
}

func TestCodecEncodeLittleEndianLayout(t *testing.T) {
	c := leCodec{}

	buf := make([]byte, 4)
	require.NoError(t, c.Encode(7, buf))
	assert.Equal(t, []byte{7, 0, 0, 0}, buf)
}

func TestCodecRejectsUnsupportedWidth(t *testing.T) {
	c := leCodec{}

	_, err := c.Decode(make([]byte, 3))
	assert.Error(t, err)
	assert.Error(t, c.Encode(int64(1), make([]byte, 3)))
}

func TestCodecEncodeRejectsOutOfRange(t *testing.T) {
	c := leCodec{}

	buf := make([]byte, 1)
	require.NoError(t, c.Encode(int64(-7), buf))
	assert.Error(t, c.Encode(int64(300), buf), "300 has no 1-byte two's-complement form")
	assert.Equal(t, []byte{0xf9}, buf, "a rejected encode must not touch the region")

	assert.Error(t, c.Encode(int64(-129), make([]byte, 1)))
	assert.Error(t, c.Encode(int64(40000), make([]byte, 2)))
	assert.Error(t, c.Encode(int64(1)<<33, make([]byte, 4)))
	assert.NoError(t, c.Encode(int64(1)<<33, make([]byte, 8)))
}

func TestCodecCanonicalize(t *testing.T) {
	c := leCodec{}

	v, err := c.Canonicalize(5, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = c.Canonicalize(float64(5), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = c.Canonicalize(5.5, 4)
	assert.Error(t, err, "fractional values have no integer canonical form")

	_, err = c.Canonicalize("five", 4)
	assert.Error(t, err)
}

func TestCodecCanonicalizeRespectsWidth(t *testing.T) {
	c := leCodec{}

	v, err := c.Canonicalize(300, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(300), v)

	_, err = c.Canonicalize(300, 1)
	assert.Error(t, err)

	_, err = c.Canonicalize(int64(-32769), 2)
	assert.Error(t, err)
}

func TestCodecCanonicalizeUnsigned(t *testing.T) {
	c := leCodec{}

	v, err := c.Canonicalize(uint(7), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = c.Canonicalize(uint64(7), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = c.Canonicalize(uint64(1)<<63, 8)
	assert.Error(t, err, "values above MaxInt64 overflow the signed codec")
}
