// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package bin provides the little-endian cursor primitives every typed
// payload codec in the packfile toolkit is built on: fixed-width integers,
// IEEE-754 floats, and the three string flavors the container format uses.
package bin

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Errors returned by the cursor readers. Writers of fixed-width values
// never fail; the writers that re-encode text (WriteStringU16,
// WriteOptionalStringU16, WriteFixedSizedString) return the text
// encoder's error. A value a reader produced is written back by the
// matching writer in the same layout.
var (
	// ErrShortBuffer is returned when fewer bytes remain than the read needs.
	ErrShortBuffer = errors.New("bin: short buffer")

	// ErrInvalidTag is returned when an optional-string presence byte is
	// neither 0 nor 1.
	ErrInvalidTag = errors.New("bin: invalid optional-string tag")

	// ErrInvalidUtf8 is returned when a length-prefixed string cannot be
	// decoded under its declared encoding.
	ErrInvalidUtf8 = errors.New("bin: invalid utf-8/utf-16 payload")
)

// Reader is a cursor over an in-memory byte buffer. It never allocates on
// the read path beyond what string decoding requires.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential little-endian reads starting at 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Seek repositions the cursor to an absolute offset.
func (r *Reader) Seek(pos int) { r.pos = pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadBytes reads n raw bytes without interpretation.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads a signed 8-bit integer.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadBool reads a single byte and reports whether it is non-zero.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// ReadU16 reads an unsigned 16-bit little-endian integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadI16 reads a signed 16-bit little-endian integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU24 reads an unsigned 24-bit little-endian integer.
func (r *Reader) ReadU24() (uint32, error) {
	b, err := r.take(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// ReadU32 reads an unsigned 32-bit little-endian integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a signed 32-bit little-endian integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit little-endian integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64 reads a signed 64-bit little-endian integer.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 32-bit little-endian float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE-754 64-bit little-endian float.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadStringU8 reads a u16-length-prefixed UTF-8 string. Decoding is
// permissive: bytes that are not valid UTF-8 are replaced, not rejected,
// matching how the container's text payloads are produced in the wild.
func (r *Reader) ReadStringU8() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

// ReadStringU16 reads a u16-length-prefixed UTF-16LE string. length is the
// number of UTF-16 code units, so 2*length bytes are consumed.
func (r *Reader) ReadStringU16() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n) * 2)
	if err != nil {
		return "", err
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", ErrInvalidUtf8
	}
	return string(decoded), nil
}

// ReadOptionalStringU8 reads a presence byte followed by a StringU8 if set.
func (r *Reader) ReadOptionalStringU8() (string, error) {
	present, err := r.readPresence()
	if err != nil || !present {
		return "", err
	}
	return r.ReadStringU8()
}

// ReadOptionalStringU16 reads a presence byte followed by a StringU16 if set.
func (r *Reader) ReadOptionalStringU16() (string, error) {
	present, err := r.readPresence()
	if err != nil || !present {
		return "", err
	}
	return r.ReadStringU16()
}

func (r *Reader) readPresence() (bool, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidTag
	}
}

// ReadFixedSizedString reads n bytes, trims trailing NUL padding, and
// decodes the remainder as ISO-8859-1 (Latin-1).
func (r *Reader) ReadFixedSizedString(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b[:end])
	if err != nil {
		return "", ErrInvalidUtf8
	}
	return string(decoded), nil
}
