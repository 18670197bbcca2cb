package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLayoutAcceptsAdjacentRegions(t *testing.T) {
	layout := []Binding{
		{Key: "a", Offset: 0, Width: 4},
		{Key: "b", Offset: 4, Width: 4},
		{Key: "c", Offset: 8, Width: 8},
	}
	assert.NoError(t, validateLayout(layout, 16))
}

func TestValidateLayoutRejectsBadWidth(t *testing.T) {
	err := validateLayout([]Binding{{Key: "a", Offset: 0, Width: 3}}, 16)
	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "a", bindErr.Key)
}

func TestValidateLayoutRejectsRegionOutsideMemory(t *testing.T) {
	err := validateLayout([]Binding{{Key: "a", Offset: 14, Width: 4}}, 16)
	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
}

func TestValidateLayoutRejectsOverlap(t *testing.T) {
	layout := []Binding{
		{Key: "a", Offset: 0, Width: 4},
		{Key: "b", Offset: 2, Width: 4},
	}
	err := validateLayout(layout, 16)
	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "b", bindErr.Key)
}

func TestValidateLayoutRejectsDuplicateKey(t *testing.T) {
	layout := []Binding{
		{Key: "a", Offset: 0, Width: 4},
		{Key: "a", Offset: 8, Width: 4},
	}
	assert.Error(t, validateLayout(layout, 16))
}

func TestValidateLayoutRejectsCustomWithoutCodec(t *testing.T) {
	err := validateLayout([]Binding{{Key: "a", Width: 4, Encoding: EncodingCustom}}, 16)
	assert.Error(t, err)
}

func TestParseLayout(t *testing.T) {
	data := []byte(`[
		{"key": "counter", "offset": 0, "width": 4},
		{"key": "flag", "offset": 4, "width": 1, "encoding": "little-endian"}
	]`)

	layout, err := ParseLayout(data)
	require.NoError(t, err)
	require.Len(t, layout, 2)
	assert.Equal(t, "counter", layout[0].Key)
	assert.Equal(t, EncodingLittleEndian, layout[0].Encoding, "encoding defaults to little-endian")
	assert.Equal(t, uint32(4), layout[1].Offset)
}

func TestParseLayoutRejectsUnknownEncoding(t *testing.T) {
	_, err := ParseLayout([]byte(`[{"key": "a", "offset": 0, "width": 4, "encoding": "big-endian"}]`))
	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
}

func TestParseLayoutRejectsMalformedJSON(t *testing.T) {
	_, err := ParseLayout([]byte(`{"not": "an array"`))
	assert.Error(t, err)
}
