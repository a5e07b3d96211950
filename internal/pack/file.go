package pack

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/log"
)

// OpenFile is a Pack backed by an mmap'd disk file. Reopening the same
// path twice is safe; each OpenFile owns its own mapping.
type OpenFile struct {
	*Pack
	data       mmap.MMap
	f          *os.File
	dataOffset uint64 // absolute offset of the data region, for the ciphers
}

// Open memory-maps name and eagerly decodes its header, index and every
// payload into memory. Callers that only need a handful of files out of a
// large pack should prefer OpenLazy.
func Open(name string, logger *log.Helper) (*OpenFile, error) {
	return open(name, DecodeOptions{Lazy: false, DiskFilePath: name}, logger)
}

// OpenLazy memory-maps name and decodes only the header and index;
// payload bytes are fetched from the mapping on first access via Load,
// keyed by the BackRef recorded at index-parse time.
func OpenLazy(name string, logger *log.Helper) (*OpenFile, error) {
	return open(name, DecodeOptions{Lazy: true, DiskFilePath: name}, logger)
}

func open(name string, opts DecodeOptions, logger *log.Helper) (*OpenFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	p, err := Decode(data, opts)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	if logger != nil {
		p.SetLogger(logger)
	}

	of := &OpenFile{Pack: p, data: data, f: f}
	for _, rf := range p.Files() {
		if rf.BackRef != nil {
			if of.dataOffset == 0 || uint64(rf.BackRef.Offset) < of.dataOffset {
				of.dataOffset = uint64(rf.BackRef.Offset)
			}
		}
	}
	return of, nil
}

// Load resolves a Lazy RFile's bytes from this OpenFile's mapping,
// decrypting and decompressing exactly as an eager Decode would have.
// It is a no-op if rf is already past StateLazy.
func (of *OpenFile) Load(rf *rfile.RFile) error {
	return rf.Load(of.fetch)
}

func (of *OpenFile) fetch(ref rfile.BackRef) ([]byte, error) {
	end := ref.Offset + ref.Size
	if ref.Offset < 0 || end > int64(len(of.data)) {
		return nil, fmt.Errorf("pack: back-reference out of range for %q", of.f.Name())
	}
	raw := make([]byte, ref.Size)
	copy(raw, of.data[ref.Offset:end])
	return resolvePayload(raw, ref.IsCompressed, ref.IsEncrypted, of.dataOffset)
}

// Close releases the mapping and the underlying file descriptor. It is
// an error to use any lazily-loaded RFile after Close.
func (of *OpenFile) Close() error {
	if of.data != nil {
		_ = of.data.Unmap()
	}
	if of.f != nil {
		return of.f.Close()
	}
	return nil
}
