package bridge

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// Encoding names how a bound region's bytes map to a value.
type Encoding string

const (
	// EncodingLittleEndian is a little-endian two's-complement integer of
	// the binding's width.
	EncodingLittleEndian Encoding = "little-endian"
	// EncodingCustom defers to a caller-supplied Codec.
	EncodingCustom Encoding = "custom"
)

// Binding maps one store key onto a byte range in the sandbox's linear
// memory. Width must be 1, 2, 4 or 8; bindings must not overlap.
type Binding struct {
	Key      string   `json:"key"`
	Offset   uint32   `json:"offset"`
	Width    uint32   `json:"width"`
	Encoding Encoding `json:"encoding,omitempty"`
	// Codec backs EncodingCustom. Only settable programmatically; layout
	// tables parsed from JSON are restricted to little-endian.
	Codec Codec `json:"-"`
}

// codec resolves the effective codec for the binding.
func (b *Binding) codec() Codec {
	if b.Codec != nil {
		return b.Codec
	}
	return leCodec{}
}

// validateLayout checks widths, memory range and overlap before any
// binding becomes active.
func validateLayout(layout []Binding, memSize uint32) error {
	for i := range layout {
		b := &layout[i]
		switch b.Width {
		case 1, 2, 4, 8:
		default:
			return &BindingError{Key: b.Key, Reason: fmt.Sprintf("width %d not in {1,2,4,8}", b.Width)}
		}
		if b.Encoding == EncodingCustom && b.Codec == nil {
			return &BindingError{Key: b.Key, Reason: "custom encoding without codec"}
		}
		end := uint64(b.Offset) + uint64(b.Width)
		if end > uint64(memSize) {
			return &BindingError{
				Key:    b.Key,
				Reason: fmt.Sprintf("region [%d,%d) outside memory of %d bytes", b.Offset, end, memSize),
			}
		}
	}

	byOffset := make([]*Binding, 0, len(layout))
	for i := range layout {
		byOffset = append(byOffset, &layout[i])
	}
	sort.Slice(byOffset, func(i, j int) bool { return byOffset[i].Offset < byOffset[j].Offset })
	for i := 1; i < len(byOffset); i++ {
		prev, cur := byOffset[i-1], byOffset[i]
		if prev.Offset+prev.Width > cur.Offset {
			return &BindingError{
				Key:    cur.Key,
				Reason: fmt.Sprintf("overlaps binding %q at offset %d", prev.Key, prev.Offset),
			}
		}
	}

	seen := make(map[string]bool, len(layout))
	for i := range layout {
		if seen[layout[i].Key] {
			return &BindingError{Key: layout[i].Key, Reason: "duplicate key"}
		}
		seen[layout[i].Key] = true
	}
	return nil
}

// ParseLayout decodes a compiler-exported layout table from JSON. Custom
// encodings cannot travel through JSON; register them programmatically.
func ParseLayout(data []byte) ([]Binding, error) {
	var layout []Binding
	if err := sonic.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parsing layout table: %w", err)
	}
	if err := NormalizeLayout(layout); err != nil {
		return nil, err
	}
	return layout, nil
}

// NormalizeLayout fills in default encodings and rejects encodings that a
// serialized layout table cannot express.
func NormalizeLayout(layout []Binding) error {
	for i := range layout {
		switch layout[i].Encoding {
		case "", EncodingLittleEndian:
			layout[i].Encoding = EncodingLittleEndian
		case EncodingCustom:
			if layout[i].Codec == nil {
				return &BindingError{Key: layout[i].Key, Reason: "custom encoding without codec"}
			}
		default:
			return &BindingError{Key: layout[i].Key, Reason: fmt.Sprintf("unknown encoding %q", layout[i].Encoding)}
		}
	}
	return nil
}
