// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bin

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Writer accumulates bytes written in the same little-endian layout the
// Reader consumes. Every WriteX is required to be the byte-exact inverse
// of the matching ReadX for any value the reader accepts.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteU8 appends an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

// WriteI8 appends a signed 8-bit integer.
func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

// WriteBool appends a single 0/1 byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

// WriteU16 appends an unsigned 16-bit little-endian integer.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI16 appends a signed 16-bit little-endian integer.
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

// WriteU24 appends an unsigned 24-bit little-endian integer.
func (w *Writer) WriteU24(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16))
}

// WriteU32 appends an unsigned 32-bit little-endian integer.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI32 appends a signed 32-bit little-endian integer.
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// WriteU64 appends an unsigned 64-bit little-endian integer.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI64 appends a signed 64-bit little-endian integer.
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteF32 appends an IEEE-754 32-bit little-endian float.
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteF64 appends an IEEE-754 64-bit little-endian float.
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteStringU8 appends a u16-length-prefixed UTF-8 string.
func (w *Writer) WriteStringU8(s string) {
	b := []byte(s)
	w.WriteU16(uint16(len(b)))
	w.WriteBytes(b)
}

// WriteStringU16 appends a u16-length-prefixed UTF-16LE string. The length
// prefix counts UTF-16 code units, not bytes.
func (w *Writer) WriteStringU16(s string) error {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	w.WriteU16(uint16(len(encoded) / 2))
	w.WriteBytes(encoded)
	return nil
}

// WriteOptionalStringU8 appends the presence tag and, if present, the string.
func (w *Writer) WriteOptionalStringU8(s string, present bool) {
	w.WriteBool(present)
	if present {
		w.WriteStringU8(s)
	}
}

// WriteOptionalStringU16 appends the presence tag and, if present, the string.
func (w *Writer) WriteOptionalStringU16(s string, present bool) error {
	w.WriteBool(present)
	if present {
		return w.WriteStringU16(s)
	}
	return nil
}

// WriteFixedSizedString encodes s as ISO-8859-1, truncates or zero-pads it
// to exactly n bytes.
func (w *Writer) WriteFixedSizedString(s string, n int) error {
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	b := make([]byte, n)
	copy(b, encoded)
	w.WriteBytes(b)
	return nil
}
