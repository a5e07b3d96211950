package pack

import (
	"bytes"
	"testing"

	"github.com/saferwall/packfile/internal/rfile"
)

func identityEncode(f *rfile.RFile) ([]byte, error) {
	if f.Decoded != nil {
		return f.Decoded.Raw, nil
	}
	return f.Bytes, nil
}

func TestEncodeDecodeRoundTripPlain(t *testing.T) {
	for _, version := range []PFHVersion{PFH2, PFH3, PFH4, PFH5, PFH6} {
		t.Run(string(version), func(t *testing.T) {
			p := New(version, Mod)
			p.Bitmask = 0
			if version == PFH5 || version == PFH6 {
				p.Bitmask |= HasIndexWithTimestamps
			}
			p.Dependencies = []Dependency{{IsHard: true, Name: "data"}}
			p.Insert(rfile.NewRFile("db/units_tables/data__", []byte("row-one")))
			p.Insert(rfile.NewRFile("text/db/campaign_text.loc", []byte("loc-bytes")))

			encoded, err := Encode(p, EncodeOptions{}, identityEncode)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			decoded, err := Decode(encoded, DecodeOptions{})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if decoded.FileCount() != p.FileCount() {
				t.Fatalf("file count = %d, want %d", decoded.FileCount(), p.FileCount())
			}
			for _, path := range []string{"db/units_tables/data__", "text/db/campaign_text.loc"} {
				got := decoded.Get(path)
				want := p.Get(path)
				if got == nil {
					t.Fatalf("missing %q after round trip", path)
				}
				if !bytes.Equal(got.Bytes, want.Bytes) {
					t.Errorf("%q payload mismatch: got %q want %q", path, got.Bytes, want.Bytes)
				}
			}
			if len(decoded.Dependencies) != 1 || decoded.Dependencies[0].Name != "data" {
				t.Errorf("dependencies not preserved: %+v", decoded.Dependencies)
			}
		})
	}
}

func TestEncodeDecodeRoundTripEncryptedAndCompressed(t *testing.T) {
	p := New(PFH5, Mod)
	p.Bitmask = HasIndexWithTimestamps
	p.Insert(rfile.NewRFile("script/campaign/big.lua", bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)))

	encoded, err := Encode(p, EncodeOptions{Compress: true, Encrypt: true}, identityEncode)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(encoded, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got := decoded.Get("script/campaign/big.lua")
	if got == nil {
		t.Fatal("missing file after round trip")
	}
	want := p.Get("script/campaign/big.lua")
	if !bytes.Equal(got.Bytes, want.Bytes) {
		t.Errorf("payload mismatch after encrypted+compressed round trip")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	bad := append([]byte("XXXX"), make([]byte, 20)...)
	if _, err := Decode(bad, DecodeOptions{}); err == nil {
		t.Fatal("expected an error for an unrecognized PFH id")
	}
}

func TestEncryptedIndexRejectedForPFH2(t *testing.T) {
	p := New(PFH2, Mod)
	p.Insert(rfile.NewRFile("a.txt", []byte("x")))
	if _, err := Encode(p, EncodeOptions{Encrypt: true}, identityEncode); err == nil {
		t.Fatal("expected PFH2 to reject index encryption")
	}
}

func TestCompressionRejectedForUnsupportedVersion(t *testing.T) {
	p := New(PFH4, Mod)
	p.Insert(rfile.NewRFile("a.txt", []byte("x")))
	if _, err := Encode(p, EncodeOptions{Compress: true}, identityEncode); err == nil {
		t.Fatal("expected PFH4 to reject per-file compression")
	}
}

func TestInsertRemoveRenameExists(t *testing.T) {
	p := New(PFH5, Mod)
	p.Insert(rfile.NewRFile("db/a", []byte("1")))
	if !p.Exists("DB/A") {
		t.Fatal("Exists should be case-insensitive")
	}
	if err := p.Rename("db/a", "db/b"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if p.Exists("db/a") || !p.Exists("db/b") {
		t.Fatal("rename did not move the key")
	}
	if !p.Remove("db/b") {
		t.Fatal("Remove should report success")
	}
	if p.FileCount() != 0 {
		t.Fatalf("FileCount = %d, want 0", p.FileCount())
	}
}
