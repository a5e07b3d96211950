package rfile

import (
	"errors"
	"fmt"

	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

// State is an RFile's position in the Lazy -> Loaded -> Decoded -> Dirty
// -> Encoded lifecycle.
type State int

const (
	StateLazy State = iota
	StateLoaded
	StateDecoded
	StateDirty
	StateEncoded
)

// BackRef is a lazy RFile's pointer into its origin container: bytes are
// fetched on demand rather than held in memory.
type BackRef struct {
	SourcePath  string
	Offset      int64
	Size        int64
	IsCompressed bool
	IsEncrypted bool
}

// Payload is the closed set of decoded typed-payload shapes an RFile's
// decode cache can hold. Exactly one field is non-nil for a Decoded RFile.
type Payload struct {
	Table *table.Table // DB, Loc
	Leaf  *LeafPayload  // Text, Video, Image, PortraitSettings, UnitVariant, Atlas, UIC, SoundBank
	Raw   []byte        // opaque pass-through kinds
}

// RFile is a single logical file inside a Pack.
type RFile struct {
	Path      string
	Timestamp *int64
	FileType  FileType
	State     State

	// Bytes holds owned, not-yet-decoded data; BackRef is set instead when
	// the bytes live in the origin container and haven't been loaded yet.
	Bytes   []byte
	BackRef *BackRef

	Decoded *Payload
}

// NewRFile derives FileType from path on insertion, as the container
// codec does when it first sees a path in the index.
func NewRFile(path string, bytes []byte) *RFile {
	return &RFile{
		Path:     path,
		FileType: GuessFileType(path),
		Bytes:    bytes,
		State:    StateLoaded,
	}
}

// NewLazyRFile builds an RFile whose bytes are not yet resident.
func NewLazyRFile(path string, ref BackRef) *RFile {
	return &RFile{
		Path:     path,
		FileType: GuessFileType(path),
		BackRef:  &ref,
		State:    StateLazy,
	}
}

// ErrNotLoaded is returned when an operation needs resident bytes and the
// RFile is still Lazy with no loader available.
var ErrNotLoaded = errors.New("rfile: backing bytes not loaded")

// Load resolves a Lazy RFile into Loaded, using fetch to pull the raw
// bytes from the back-reference (decrypting/decompressing as recorded).
// It is a no-op once the RFile is already Loaded or past.
func (f *RFile) Load(fetch func(BackRef) ([]byte, error)) error {
	if f.State != StateLazy {
		return nil
	}
	if f.BackRef == nil {
		return ErrNotLoaded
	}
	b, err := fetch(*f.BackRef)
	if err != nil {
		return err
	}
	f.Bytes = b
	f.State = StateLoaded
	return nil
}

// ExtraData carries everything a typed-payload codec might need beyond
// the raw bytes.
type ExtraData struct {
	Schema          *schema.Schema
	GameKey         string
	TableName       string
	EncryptionKey   []byte
	LazyLoad        bool
	SizeHint        int
	DiskFilePath    string
}

// Decode parses f.Bytes into f.Decoded via the dispatch table, or leaves
// opaque types as a raw blob. A failed decode never invalidates the
// RFile: it stays Loaded and can still be re-saved opaquely.
func (f *RFile) Decode(extra ExtraData) error {
	if f.State == StateLazy {
		return ErrNotLoaded
	}
	payload, err := Decode(f.FileType, f.Bytes, extra)
	if err != nil {
		return err
	}
	f.Decoded = payload
	f.State = StateDecoded
	return nil
}

// MarkDirty flips a Decoded/Loaded RFile to Dirty, meaning it must be
// re-encoded through its codec before the next save.
func (f *RFile) MarkDirty() {
	if f.State == StateDecoded || f.State == StateLoaded {
		f.State = StateDirty
	}
}

// Encode materializes f's bytes for saving: if a Decoded/Dirty payload is
// present, re-encodes it through the dispatch table; otherwise returns
// the bytes already resident.
func (f *RFile) Encode(extra ExtraData) ([]byte, error) {
	if f.Decoded != nil {
		b, err := Encode(f.FileType, f.Decoded, extra)
		if err != nil {
			return nil, err
		}
		f.Bytes = b
		f.State = StateEncoded
		return b, nil
	}
	if f.Bytes != nil {
		return f.Bytes, nil
	}
	return nil, fmt.Errorf("rfile: %s: neither decoded payload nor resident bytes to encode", f.Path)
}
