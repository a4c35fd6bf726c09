package strata

import (
	"bytes"
	"fmt"

	"github.com/golang/snappy"
)

// ComponentName is the globally unique name of a typed column kind
// (e.g. "Position", "Color"). The store attaches no semantics to it.
type ComponentName string

// DataType enumerates the closed set of cell element encodings.
type DataType int

const (
	// DataTypeInt64 is an array of signed 64-bit integers.
	DataTypeInt64 DataType = iota
	// DataTypeFloat32 is an array of 32-bit floats.
	DataTypeFloat32
	// DataTypeFloat64 is an array of 64-bit floats.
	DataTypeFloat64
	// DataTypeString is an array of UTF-8 strings.
	DataTypeString
	// DataTypeBlob is an opaque typed payload the store never interprets.
	DataTypeBlob
)

func (d DataType) String() string {
	switch d {
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat32:
		return "float32"
	case DataTypeFloat64:
		return "float64"
	case DataTypeString:
		return "string"
	case DataTypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value is one component cell: a typed array payload logged for one row.
// Values are immutable once constructed. A nil *Value in a column denotes
// a null cell.
type Value struct {
	typ  DataType
	ints []int64
	f32s []float32
	f64s []float64
	strs []string

	blob           []byte
	blobCompressed bool
	blobRawLen     int
}

// NewInt64Value creates an int64 array cell.
func NewInt64Value(vs ...int64) *Value {
	return &Value{typ: DataTypeInt64, ints: vs}
}

// NewFloat32Value creates a float32 array cell.
func NewFloat32Value(vs ...float32) *Value {
	return &Value{typ: DataTypeFloat32, f32s: vs}
}

// NewFloat64Value creates a float64 array cell.
func NewFloat64Value(vs ...float64) *Value {
	return &Value{typ: DataTypeFloat64, f64s: vs}
}

// NewStringValue creates a string array cell.
func NewStringValue(vs ...string) *Value {
	return &Value{typ: DataTypeString, strs: vs}
}

// NewBlobValue creates an opaque cell. The payload is stored
// snappy-compressed when that is smaller than the raw bytes.
func NewBlobValue(raw []byte) *Value {
	v := &Value{typ: DataTypeBlob, blobRawLen: len(raw)}
	compressed := snappy.Encode(nil, raw)
	if len(compressed) < len(raw) {
		v.blob = compressed
		v.blobCompressed = true
	} else {
		v.blob = append([]byte(nil), raw...)
	}
	return v
}

// Type returns the cell's element encoding.
func (v *Value) Type() DataType {
	return v.typ
}

// Int64s returns the int64 payload, or nil for other types.
func (v *Value) Int64s() []int64 {
	return v.ints
}

// Float32s returns the float32 payload, or nil for other types.
func (v *Value) Float32s() []float32 {
	return v.f32s
}

// Float64s returns the float64 payload, or nil for other types.
func (v *Value) Float64s() []float64 {
	return v.f64s
}

// Strings returns the string payload, or nil for other types.
func (v *Value) Strings() []string {
	return v.strs
}

// Blob returns the decompressed opaque payload.
func (v *Value) Blob() ([]byte, error) {
	if v.typ != DataTypeBlob {
		return nil, fmt.Errorf("value is %s, not blob", v.typ)
	}
	if !v.blobCompressed {
		return v.blob, nil
	}
	return snappy.Decode(nil, v.blob)
}

// NumElements returns the element count of the payload (bytes for blobs).
func (v *Value) NumElements() int {
	switch v.typ {
	case DataTypeInt64:
		return len(v.ints)
	case DataTypeFloat32:
		return len(v.f32s)
	case DataTypeFloat64:
		return len(v.f64s)
	case DataTypeString:
		return len(v.strs)
	case DataTypeBlob:
		return v.blobRawLen
	default:
		return 0
	}
}

// SizeBytes returns the stored size of the cell. Compressed blobs count
// their compressed size, which is what the stats aggregator budgets by.
func (v *Value) SizeBytes() int64 {
	switch v.typ {
	case DataTypeInt64:
		return int64(len(v.ints)) * 8
	case DataTypeFloat32:
		return int64(len(v.f32s)) * 4
	case DataTypeFloat64:
		return int64(len(v.f64s)) * 8
	case DataTypeString:
		var n int64
		for _, s := range v.strs {
			n += int64(len(s))
		}
		return n
	case DataTypeBlob:
		return int64(len(v.blob))
	default:
		return 0
	}
}

// Equal reports whether two cells hold the same type and payload.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case DataTypeInt64:
		return equalSlice(v.ints, other.ints)
	case DataTypeFloat32:
		return equalSlice(v.f32s, other.f32s)
	case DataTypeFloat64:
		return equalSlice(v.f64s, other.f64s)
	case DataTypeString:
		return equalSlice(v.strs, other.strs)
	case DataTypeBlob:
		a, errA := v.Blob()
		b, errB := other.Blob()
		if errA != nil || errB != nil {
			return false
		}
		return bytes.Equal(a, b)
	default:
		return false
	}
}

func equalSlice[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ComponentColumn is a nullable columnar batch of cells for one component.
type ComponentColumn struct {
	name  ComponentName
	cells []*Value
}

// NewComponentColumn creates a column over the given cells. Nil entries
// denote null cells.
func NewComponentColumn(name ComponentName, cells []*Value) ComponentColumn {
	return ComponentColumn{name: name, cells: cells}
}

// Name returns the component name.
func (c ComponentColumn) Name() ComponentName {
	return c.name
}

// Len returns the number of rows.
func (c ComponentColumn) Len() int {
	return len(c.cells)
}

// Cell returns the cell at row i, nil if null.
func (c ComponentColumn) Cell(i int) *Value {
	return c.cells[i]
}

// IsNull reports whether row i holds no value.
func (c ComponentColumn) IsNull(i int) bool {
	return c.cells[i] == nil
}

// SizeBytes returns the summed stored size of all cells.
func (c ComponentColumn) SizeBytes() int64 {
	var n int64
	for _, cell := range c.cells {
		if cell != nil {
			n += cell.SizeBytes()
		}
	}
	return n
}

// Slice returns the column restricted to rows [i, j). Cells are shared;
// they are immutable.
func (c ComponentColumn) Slice(i, j int) ComponentColumn {
	return ComponentColumn{name: c.name, cells: c.cells[i:j]}
}

// Concat returns the column followed by other's rows.
func (c ComponentColumn) Concat(other ComponentColumn) (ComponentColumn, error) {
	if c.name != other.name {
		return ComponentColumn{}, fmt.Errorf("cannot concat column %q with %q", c.name, other.name)
	}
	cells := make([]*Value, 0, len(c.cells)+len(other.cells))
	cells = append(cells, c.cells...)
	cells = append(cells, other.cells...)
	return ComponentColumn{name: c.name, cells: cells}, nil
}
