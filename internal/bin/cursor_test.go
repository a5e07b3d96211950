package bin

import "testing"

func TestRoundTripIntegers(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xAB)
	w.WriteI16(-1234)
	w.WriteU24(0xABCDEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteI64(-9)
	w.WriteF32(3.5)
	w.WriteF64(-2.25)

	r := NewReader(w.Bytes())
	if v, err := r.ReadU8(); err != nil || v != 0xAB {
		t.Fatalf("ReadU8 = %v, %v", v, err)
	}
	if v, err := r.ReadI16(); err != nil || v != -1234 {
		t.Fatalf("ReadI16 = %v, %v", v, err)
	}
	if v, err := r.ReadU24(); err != nil || v != 0xABCDEF {
		t.Fatalf("ReadU24 = %v, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("ReadU32 = %v, %v", v, err)
	}
	if v, err := r.ReadI64(); err != nil || v != -9 {
		t.Fatalf("ReadI64 = %v, %v", v, err)
	}
	if v, err := r.ReadF32(); err != nil || v != 3.5 {
		t.Fatalf("ReadF32 = %v, %v", v, err)
	}
	if v, err := r.ReadF64(); err != nil || v != -2.25 {
		t.Fatalf("ReadF64 = %v, %v", v, err)
	}
}

func TestRoundTripStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ascii", "hello world"},
		{"unicode", "café éléphant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			w.WriteStringU8(tt.in)
			if err := w.WriteStringU16(tt.in); err != nil {
				t.Fatalf("WriteStringU16: %v", err)
			}

			r := NewReader(w.Bytes())
			got8, err := r.ReadStringU8()
			if err != nil || got8 != tt.in {
				t.Fatalf("ReadStringU8 = %q, %v; want %q", got8, err, tt.in)
			}
			got16, err := r.ReadStringU16()
			if err != nil || got16 != tt.in {
				t.Fatalf("ReadStringU16 = %q, %v; want %q", got16, err, tt.in)
			}
		})
	}
}

func TestOptionalString(t *testing.T) {
	w := NewWriter()
	w.WriteOptionalStringU8("present", true)
	w.WriteOptionalStringU8("", false)

	r := NewReader(w.Bytes())
	v, err := r.ReadOptionalStringU8()
	if err != nil || v != "present" {
		t.Fatalf("ReadOptionalStringU8 = %q, %v", v, err)
	}
	v, err = r.ReadOptionalStringU8()
	if err != nil || v != "" {
		t.Fatalf("ReadOptionalStringU8(absent) = %q, %v", v, err)
	}
}

func TestInvalidTag(t *testing.T) {
	r := NewReader([]byte{2})
	if _, err := r.ReadOptionalStringU8(); err != ErrInvalidTag {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestFixedSizedString(t *testing.T) {
	w := NewWriter()
	if err := w.WriteFixedSizedString("abc", 8); err != nil {
		t.Fatal(err)
	}
	r := NewReader(w.Bytes())
	v, err := r.ReadFixedSizedString(8)
	if err != nil || v != "abc" {
		t.Fatalf("ReadFixedSizedString = %q, %v", v, err)
	}
}

func TestShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadU32(); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}
