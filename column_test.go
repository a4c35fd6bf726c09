package strata

import (
	"bytes"
	"testing"
)

func TestValue_Types(t *testing.T) {
	tests := []struct {
		v        *Value
		typ      DataType
		elements int
		size     int64
	}{
		{NewInt64Value(1, 2, 3), DataTypeInt64, 3, 24},
		{NewFloat32Value(1, 2), DataTypeFloat32, 2, 8},
		{NewFloat64Value(1, 2, 3, 4), DataTypeFloat64, 4, 32},
		{NewStringValue("ab", "cde"), DataTypeString, 2, 5},
	}
	for _, tt := range tests {
		if got := tt.v.Type(); got != tt.typ {
			t.Errorf("Type = %v, want %v", got, tt.typ)
		}
		if got := tt.v.NumElements(); got != tt.elements {
			t.Errorf("%v NumElements = %d, want %d", tt.typ, got, tt.elements)
		}
		if got := tt.v.SizeBytes(); got != tt.size {
			t.Errorf("%v SizeBytes = %d, want %d", tt.typ, got, tt.size)
		}
	}
}

func TestValue_BlobCompression(t *testing.T) {
	// Highly repetitive payload compresses well.
	raw := bytes.Repeat([]byte("strata"), 1000)
	v := NewBlobValue(raw)

	if v.SizeBytes() >= int64(len(raw)) {
		t.Errorf("compressible blob stored at %d bytes, raw is %d", v.SizeBytes(), len(raw))
	}
	if got := v.NumElements(); got != len(raw) {
		t.Errorf("NumElements = %d, want raw length %d", got, len(raw))
	}
	back, err := v.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if !bytes.Equal(back, raw) {
		t.Error("blob did not round-trip")
	}
}

func TestValue_BlobIncompressible(t *testing.T) {
	// Short payloads gain nothing from compression and stay raw.
	raw := []byte{0x01, 0xfe, 0x42}
	v := NewBlobValue(raw)

	if v.SizeBytes() != int64(len(raw)) {
		t.Errorf("incompressible blob stored at %d bytes, want %d", v.SizeBytes(), len(raw))
	}
	back, err := v.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if !bytes.Equal(back, raw) {
		t.Error("blob did not round-trip")
	}

	// Stored copy must be independent of the caller's buffer.
	raw[0] = 0xff
	back, _ = v.Blob()
	if back[0] != 0x01 {
		t.Error("blob should not alias the caller's buffer")
	}
}

func TestValue_BlobOnNonBlob(t *testing.T) {
	if _, err := NewInt64Value(1).Blob(); err == nil {
		t.Error("Blob on an int64 cell should fail")
	}
}

func TestValue_Equal(t *testing.T) {
	if !NewFloat64Value(1, 2).Equal(NewFloat64Value(1, 2)) {
		t.Error("equal payloads should compare equal")
	}
	if NewFloat64Value(1, 2).Equal(NewFloat64Value(1, 3)) {
		t.Error("different payloads should not compare equal")
	}
	if NewInt64Value(1).Equal(NewFloat64Value(1)) {
		t.Error("different types should not compare equal")
	}
	if !NewBlobValue([]byte("abc")).Equal(NewBlobValue([]byte("abc"))) {
		t.Error("equal blobs should compare equal")
	}

	var null *Value
	if !null.Equal(nil) {
		t.Error("nil should equal nil")
	}
	if null.Equal(NewInt64Value(1)) || NewInt64Value(1).Equal(nil) {
		t.Error("nil should not equal a value")
	}
}

func TestComponentColumn_Nulls(t *testing.T) {
	col := NewComponentColumn("Position", []*Value{f64(1), nil, f64(3)})

	if col.Len() != 3 {
		t.Fatalf("Len = %d, want 3", col.Len())
	}
	if col.IsNull(0) || !col.IsNull(1) || col.IsNull(2) {
		t.Error("null mask mismatch")
	}
	if col.Cell(1) != nil {
		t.Error("null cell should be nil")
	}
	if got, want := col.SizeBytes(), int64(16); got != want {
		t.Errorf("SizeBytes = %d, want %d (nulls cost nothing)", got, want)
	}
}

func TestComponentColumn_SliceConcat(t *testing.T) {
	a := NewComponentColumn("Position", []*Value{f64(1), f64(2)})
	b := NewComponentColumn("Position", []*Value{f64(3)})

	joined, err := a.Concat(b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if joined.Len() != 3 {
		t.Fatalf("Len = %d, want 3", joined.Len())
	}
	if !joined.Cell(2).Equal(f64(3)) {
		t.Error("concat should append other's rows")
	}

	tail := joined.Slice(1, 3)
	if tail.Len() != 2 || !tail.Cell(0).Equal(f64(2)) {
		t.Error("slice window mismatch")
	}

	if _, err := a.Concat(NewComponentColumn("Color", nil)); err == nil {
		t.Error("concat across component names should fail")
	}
}
