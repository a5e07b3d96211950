package pack

import (
	"errors"
	"fmt"

	"github.com/saferwall/packfile/internal/bin"
	"github.com/saferwall/packfile/internal/codec"
	"github.com/saferwall/packfile/internal/rfile"
)

// Errors surfaced by the container codec.
var (
	ErrUnsupportedPfhVersion               = errors.New("pack: unsupported PFH version")
	ErrEncryptedIndexUnsupportedForVersion = errors.New("pack: encrypted index not supported for this PFH version")
	ErrCompressionUnsupportedForVersion    = errors.New("pack: compression not supported for this PFH version")
)

// DecodeOptions controls how Decode resolves file payload bytes.
type DecodeOptions struct {
	// Lazy defers reading payload bytes; RFiles are left as BackRef and
	// fetched on demand through the caller's own FetchFunc (typically
	// mmap-backed), rather than copied into memory up front.
	Lazy bool

	// DiskFilePath is recorded on every lazily-built RFile's BackRef so a
	// later Load call knows which file to mmap back into.
	DiskFilePath string
}

// Decode parses a full PackFile buffer into a Pack. A failed header or
// index parse is fatal; a failed individual typed-payload decode happens
// later, at RFile.Decode, and never reaches this layer.
func Decode(data []byte, opts DecodeOptions) (*Pack, error) {
	r := bin.NewReader(data)

	idBytes, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	version := PFHVersion(idBytes)
	switch version {
	case PFH2, PFH3, PFH4, PFH5, PFH6:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPfhVersion, idBytes)
	}

	fileTypeRaw, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	bitmaskRaw, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	bitmask := Bitmask(bitmaskRaw)
	if bitmask.has(HasEncryptedIndex) && version == PFH2 {
		return nil, ErrEncryptedIndexUnsupportedForVersion
	}

	packCount, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	packIndexSize, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	fileCount, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}
	fileIndexSize, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pack: header: %w", err)
	}

	var timestamp uint32
	if version == PFH5 || version == PFH6 {
		if timestamp, err = r.ReadU32(); err != nil {
			return nil, fmt.Errorf("pack: header: %w", err)
		}
	}

	var gameVersion uint32
	if bitmask.has(HasExtendedHeader) {
		if gameVersion, err = r.ReadU32(); err != nil {
			return nil, fmt.Errorf("pack: header: %w", err)
		}
	}

	p := New(version, PFHFileType(fileTypeRaw))
	p.Bitmask = bitmask
	p.GameVersion = gameVersion
	p.Timestamp = timestamp
	p.DiskFilePath = opts.DiskFilePath

	// The dependency section and file index are encrypted together when
	// HAS_ENCRYPTED_INDEX is set, keyed by the offset where the data
	// region starts -- exactly where the index ends.
	dataOffset := uint64(r.Pos()) + uint64(packIndexSize) + uint64(fileIndexSize)

	sectionBytes, err := r.ReadBytes(int(packIndexSize) + int(fileIndexSize))
	if err != nil {
		return nil, fmt.Errorf("pack: index: %w", err)
	}
	if bitmask.has(HasEncryptedIndex) {
		sectionBytes = codec.DecryptIndex(sectionBytes, dataOffset)
	}

	sr := bin.NewReader(sectionBytes)
	for i := uint32(0); i < packCount; i++ {
		name, err := readCString(sr)
		if err != nil {
			return nil, fmt.Errorf("pack: dependency %d: %w", i, err)
		}
		p.Dependencies = append(p.Dependencies, Dependency{IsHard: true, Name: name})
	}

	type indexEntry struct {
		size         uint32
		timestamp    *int64
		isCompressed bool
		path         string
	}
	entries := make([]indexEntry, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		size, err := sr.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("pack: file index %d: %w", i, err)
		}
		var ts *int64
		if bitmask.has(HasIndexWithTimestamps) {
			v, err := sr.ReadU32()
			if err != nil {
				return nil, fmt.Errorf("pack: file index %d: %w", i, err)
			}
			tv := int64(v)
			ts = &tv
		}
		var isCompressed bool
		if version == PFH5 || version == PFH6 {
			v, err := sr.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("pack: file index %d: %w", i, err)
			}
			isCompressed = v != 0
		}
		path, err := readCString(sr)
		if err != nil {
			return nil, fmt.Errorf("pack: file index %d: %w", i, err)
		}
		entries = append(entries, indexEntry{size, ts, isCompressed, path})
	}

	// Payload bytes follow the index contiguously, with no padding, in
	// exactly the order the index lists them.
	offset := int64(dataOffset)
	for i, e := range entries {
		var f *rfile.RFile
		if opts.Lazy {
			f = rfile.NewLazyRFile(e.path, rfile.BackRef{
				SourcePath:   opts.DiskFilePath,
				Offset:       offset,
				Size:         int64(e.size),
				IsCompressed: e.isCompressed,
				IsEncrypted:  bitmask.has(HasEncryptedData),
			})
		} else {
			raw, err := r.ReadBytes(int(e.size))
			if err != nil {
				return nil, fmt.Errorf("pack: payload %d (%s): %w", i, e.path, err)
			}
			raw, err = resolvePayload(raw, e.isCompressed, bitmask.has(HasEncryptedData), dataOffset)
			if err != nil {
				return nil, fmt.Errorf("pack: payload %d (%s): %w", i, e.path, err)
			}
			f = rfile.NewRFile(e.path, raw)
		}
		f.Timestamp = e.timestamp
		p.Insert(f)
		offset += int64(e.size)
	}

	return p, nil
}

// resolvePayload turns raw data-region bytes into final usable bytes:
// decrypt first (the cipher runs over the stored bytes, before
// decompression), then decompress if the index flagged this entry as
// compressed. dataOffset is the absolute offset the ciphers are keyed on,
// not this entry's own offset.
func resolvePayload(raw []byte, isCompressed, isEncrypted bool, dataOffset uint64) ([]byte, error) {
	if isEncrypted {
		raw = codec.DecryptData(raw, dataOffset)
	}
	if isCompressed {
		return codec.DecodeLZMA(raw)
	}
	return raw, nil
}

func readCString(r *bin.Reader) (string, error) {
	var out []byte
	for {
		b, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
}

// EncodeOptions controls how Encode materializes a Pack back into bytes.
type EncodeOptions struct {
	Compress bool
	Encrypt  bool
}

// EncodeFunc produces the final bytes for a single RFile, typically
// f.Encode(extra) for some caller-supplied ExtraData.
type EncodeFunc func(*rfile.RFile) ([]byte, error)

// Encode re-encodes p into a full PackFile buffer: header, dependency
// section, file index, then payload bytes in index order with no padding.
// Per-file compression is decided individually -- a file is only stored
// compressed if doing so actually shrinks it.
func Encode(p *Pack, opts EncodeOptions, encodeFile EncodeFunc) ([]byte, error) {
	if opts.Compress && !p.PFHVersion.supportsCompressionFlag() {
		return nil, ErrCompressionUnsupportedForVersion
	}
	if opts.Encrypt && p.PFHVersion == PFH2 {
		return nil, ErrEncryptedIndexUnsupportedForVersion
	}

	type encodedFile struct {
		path         string
		raw          []byte
		isCompressed bool
		timestamp    *int64
	}
	files := p.Files()
	payloads := make([]encodedFile, 0, len(files))
	for _, f := range files {
		raw, err := encodeFile(f)
		if err != nil {
			return nil, fmt.Errorf("pack: encode %q: %w", f.Path, err)
		}
		isCompressed := false
		if opts.Compress {
			if compressed, err := codec.EncodeLZMA(raw); err == nil && len(compressed) < len(raw) {
				raw = compressed
				isCompressed = true
			}
		}
		payloads = append(payloads, encodedFile{f.Path, raw, isCompressed, f.Timestamp})
	}

	idx := bin.NewWriter()
	for _, dep := range p.Dependencies {
		idx.WriteBytes([]byte(dep.Name))
		idx.WriteU8(0)
	}
	packIndexSize := idx.Len()

	hasTimestamps := p.Bitmask.has(HasIndexWithTimestamps)
	hasCompressFlag := p.PFHVersion.supportsCompressionFlag()
	for _, pl := range payloads {
		idx.WriteU32(uint32(len(pl.raw)))
		if hasTimestamps {
			var ts uint32
			if pl.timestamp != nil {
				ts = uint32(*pl.timestamp)
			}
			idx.WriteU32(ts)
		}
		if hasCompressFlag {
			idx.WriteBool(pl.isCompressed)
		}
		idx.WriteBytes([]byte(pl.path))
		idx.WriteU8(0)
	}
	fileIndexSize := idx.Len() - packIndexSize

	headerLen := 28
	if p.PFHVersion == PFH5 || p.PFHVersion == PFH6 {
		headerLen += 4
	}
	if p.Bitmask.has(HasExtendedHeader) {
		headerLen += 4
	}
	dataOffset := uint64(headerLen) + uint64(idx.Len())

	indexBytes := idx.Bytes()
	if opts.Encrypt {
		indexBytes = codec.EncryptIndex(indexBytes, dataOffset)
		p.Bitmask |= HasEncryptedIndex | HasEncryptedData
	} else {
		p.Bitmask &^= HasEncryptedIndex | HasEncryptedData
	}

	w := bin.NewWriter()
	w.WriteBytes([]byte(p.PFHVersion))
	w.WriteU32(uint32(p.PFHFileType))
	w.WriteU32(uint32(p.Bitmask))
	w.WriteU32(uint32(len(p.Dependencies)))
	w.WriteU32(uint32(packIndexSize))
	w.WriteU32(uint32(len(payloads)))
	w.WriteU32(uint32(fileIndexSize))
	if p.PFHVersion == PFH5 || p.PFHVersion == PFH6 {
		w.WriteU32(p.Timestamp)
	}
	if p.Bitmask.has(HasExtendedHeader) {
		w.WriteU32(p.GameVersion)
	}
	w.WriteBytes(indexBytes)

	for _, pl := range payloads {
		raw := pl.raw
		if opts.Encrypt {
			raw = codec.EncryptData(raw, dataOffset)
		}
		w.WriteBytes(raw)
	}

	return w.Bytes(), nil
}
