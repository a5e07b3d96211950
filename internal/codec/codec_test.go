package codec

import "testing"

func TestXorStreamIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset uint64
	}{
		{"short", []byte{1, 2, 3}, 0},
		{"aligned", []byte("0123456789abcdef"), 1024},
		{"odd offset", []byte("the quick brown fox"), 0xDEADBEEF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncryptData(tt.data, tt.offset)
			dec := DecryptData(enc, tt.offset)
			if string(dec) != string(tt.data) {
				t.Fatalf("DecryptData(EncryptData(x)) = %q, want %q", dec, tt.data)
			}

			encIdx := EncryptIndex(tt.data, tt.offset)
			decIdx := DecryptIndex(encIdx, tt.offset)
			if string(decIdx) != string(tt.data) {
				t.Fatalf("DecryptIndex(EncryptIndex(x)) = %q, want %q", decIdx, tt.data)
			}
		})
	}
}

func TestIndexAndDataCiphersDiffer(t *testing.T) {
	data := []byte("0123456789abcdef")
	if string(EncryptIndex(data, 0)) == string(EncryptData(data, 0)) {
		t.Fatal("index and data ciphers produced the same keystream")
	}
}

func TestLZMARoundTrip(t *testing.T) {
	raw := []byte("the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated.")

	compressed, err := EncodeLZMA(raw)
	if err != nil {
		t.Fatalf("EncodeLZMA: %v", err)
	}
	decompressed, err := DecodeLZMA(compressed)
	if err != nil {
		t.Fatalf("DecodeLZMA: %v", err)
	}
	if string(decompressed) != string(raw) {
		t.Fatalf("round-trip mismatch: got %q want %q", decompressed, raw)
	}
}

func TestDecodeLZMAShortInput(t *testing.T) {
	if _, err := DecodeLZMA([]byte{1, 2, 3}); err != ErrCouldNotDecompress {
		t.Fatalf("expected ErrCouldNotDecompress, got %v", err)
	}
}
