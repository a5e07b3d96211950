// Package codec implements the non-standard compression and the two
// XOR stream ciphers the PackFile container uses for its index and
// payload regions.
package codec

import (
	"bytes"
	"errors"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// ErrCouldNotDecompress mirrors the container's own "data could not be
// decompressed" failure rather than surfacing the underlying LZMA error,
// since callers only ever need to know the payload is unusable.
var ErrCouldNotDecompress = errors.New("codec: packed-file data could not be decompressed")

// lzmaAloneHeaderLen is the length of the non-standard 9-byte header the
// game writes in place of the standard 13-byte "LZMA alone" header.
const lzmaAloneHeaderLen = 9

// lzmaAloneProps is the 5-byte LZMA1 "alone" properties block CA writes:
// the properties byte 0x5D (lc=3, lp=0, pb=2) followed by the
// little-endian u32 dictionary size 0x00400000 (4 MiB).
var lzmaAloneProps = [5]byte{0x5D, 0x00, 0x00, 0x40, 0x00}

// DecodeLZMA decompresses a CA-flavored "LZMA alone" stream. CA truncates
// 4 bytes from the standard 13-byte header and loses 64-bit-length
// support; this reconstructs a standard header before handing the stream
// to a stock LZMA1 decoder.
func DecodeLZMA(data []byte) ([]byte, error) {
	if len(data) < lzmaAloneHeaderLen {
		return nil, ErrCouldNotDecompress
	}

	// fixed = data[4:8] ++ 0x00 ++ data[0:4] ++ 0x00 0x00 0x00 0x00 ++ data[9:]
	fixed := make([]byte, 0, len(data)-lzmaAloneHeaderLen+13)
	fixed = append(fixed, data[4:8]...)
	fixed = append(fixed, 0x00)
	fixed = append(fixed, data[0:4]...)
	fixed = append(fixed, 0, 0, 0, 0)
	fixed = append(fixed, data[9:]...)

	r, err := lzma.NewReader(bytes.NewReader(fixed))
	if err != nil {
		return nil, ErrCouldNotDecompress
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrCouldNotDecompress
	}
	return out, nil
}

// EncodeLZMA compresses raw with lc=3, lp=0, pb=2 and a 4 MiB dictionary,
// the parameters lzmaAloneProps declares (the encoder library has no
// numbered compression levels), and re-applies CA's header truncation: a
// little-endian u32 of the raw length followed by the fixed properties
// bytes, then the inner LZMA1 compressed bytes (no standard 13-byte
// header).
func EncodeLZMA(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		Properties: &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:    1 << 22,
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// buf now holds header(13) + compressed bytes; standard LZMA1 headers
	// emitted by this encoder follow the same byte layout CA truncates,
	// so the compressed payload starts right after the first 13 bytes.
	compressed := buf.Bytes()
	if len(compressed) < 13 {
		return nil, errors.New("codec: lzma encoder produced a truncated stream")
	}
	inner := compressed[13:]

	out := make([]byte, 0, 9+len(inner))
	out = append(out, byte(len(raw)), byte(len(raw)>>8), byte(len(raw)>>16), byte(len(raw)>>24))
	out = append(out, lzmaAloneProps[:]...)
	out = append(out, inner...)
	return out, nil
}
