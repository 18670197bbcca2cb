package bridge

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Codec translates between a store value and the bytes of a bound memory
// region. The default codec is little-endian two's-complement integer;
// custom codecs cover anything else the compiler lays out.
type Codec interface {
	// Decode turns a bound region's bytes into a store value.
	Decode(buf []byte) (any, error)
	// Encode writes a store value into the bound region.
	Encode(value any, buf []byte) error
}

// Canonicalizer is implemented by codecs whose decoded values carry one
// canonical Go type. Values written to a bound key pass through
// Canonicalize first, so the key's fixed type matches what a pull cycle
// would produce and out-of-range values are rejected before they reach
// the store.
type Canonicalizer interface {
	Canonicalize(value any, width uint32) (any, error)
}

// leCodec is the default little-endian signed integer codec. Decoded
// values always carry type int64 so a key's fixed type stays stable
// across widths.
type leCodec struct{}

func (leCodec) Decode(buf []byte) (any, error) {
	switch len(buf) {
	case 1:
		return int64(int8(buf[0])), nil
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(buf))), nil
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(buf))), nil
	case 8:
		return int64(binary.LittleEndian.Uint64(buf)), nil
	default:
		return nil, fmt.Errorf("unsupported width %d", len(buf))
	}
}

func (leCodec) Encode(value any, buf []byte) error {
	n, err := toInt64(value)
	if err != nil {
		return err
	}
	if err := checkWidth(n, len(buf)); err != nil {
		return err
	}
	switch len(buf) {
	case 1:
		buf[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(n))
	default:
		return fmt.Errorf("unsupported width %d", len(buf))
	}
	return nil
}

func (leCodec) Canonicalize(value any, width uint32) (any, error) {
	n, err := toInt64(value)
	if err != nil {
		return nil, err
	}
	if err := checkWidth(n, int(width)); err != nil {
		return nil, err
	}
	return n, nil
}

// checkWidth rejects values the signed two's-complement region cannot
// represent. Truncating instead would silently corrupt the value on the
// next pull cycle.
func checkWidth(n int64, width int) error {
	var lo, hi int64
	switch width {
	case 1:
		lo, hi = math.MinInt8, math.MaxInt8
	case 2:
		lo, hi = math.MinInt16, math.MaxInt16
	case 4:
		lo, hi = math.MinInt32, math.MaxInt32
	case 8:
		return nil
	default:
		return fmt.Errorf("unsupported width %d", width)
	}
	if n < lo || n > hi {
		return fmt.Errorf("value %d does not fit in %d bytes", n, width)
	}
	return nil
}

// toInt64 normalizes the numeric types a store value can arrive as: native
// ints from Go callers, float64 from JSON decoding.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("value of type %T is not bindable", value)
	}
}
