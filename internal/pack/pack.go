// Package pack implements the PackFile container codec: header, index,
// and payload blob, across the PFH2-PFH6 sub-formats, with optional
// per-file compression and index/data encryption.
package pack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/log"
)

// PFHVersion is the four-byte format id at the start of every pack.
type PFHVersion string

const (
	PFH2 PFHVersion = "PFH2"
	PFH3 PFHVersion = "PFH3"
	PFH4 PFHVersion = "PFH4"
	PFH5 PFHVersion = "PFH5"
	PFH6 PFHVersion = "PFH6"
)

// supportsCompressionFlag reports whether a sub-format's file index carries
// a per-file compression flag (PFH5 and PFH6 only).
func (v PFHVersion) supportsCompressionFlag() bool {
	return v == PFH5 || v == PFH6
}

// PFHFileType is the pack's declared purpose.
type PFHFileType uint32

const (
	Boot PFHFileType = iota
	Release
	Patch
	Mod
	Movie
)

// Bitmask flags, matching the header layout in spec §4.3.
type Bitmask uint32

const (
	HasExtendedHeader     Bitmask = 0x0001
	HasIndexWithTimestamps Bitmask = 0x0040
	HasEncryptedIndex      Bitmask = 0x0080
	HasEncryptedData       Bitmask = 0x0100
)

func (b Bitmask) has(flag Bitmask) bool { return b&flag != 0 }

// CompressionFormat names the codec used for compressed payloads. None
// means payloads are stored uncompressed.
type CompressionFormat int

const (
	CompressionNone CompressionFormat = iota
	CompressionLZMA1
)

// Dependency is one entry in a pack's dependency list.
type Dependency struct {
	IsHard bool
	Name   string
}

// Pack is a single PackFile container: header fields plus an ordered map
// of logical path to RFile.
type Pack struct {
	PFHVersion        PFHVersion
	PFHFileType       PFHFileType
	Bitmask           Bitmask
	GameVersion       uint32
	Timestamp         uint32
	CompressionFormat CompressionFormat
	Dependencies      []Dependency
	Notes             string
	Settings          map[string]string
	DiskFilePath      string

	order []string // insertion order of file keys, lowercase
	files map[string]*rfile.RFile

	logger *log.Helper
}

// New returns an empty Pack of the given sub-format, ready to receive files.
func New(version PFHVersion, fileType PFHFileType) *Pack {
	return &Pack{
		PFHVersion:  version,
		PFHFileType: fileType,
		Bitmask:     HasIndexWithTimestamps,
		Settings:    map[string]string{},
		files:       map[string]*rfile.RFile{},
		logger:      log.Nop(),
	}
}

// SetLogger attaches a logger used for non-fatal decode warnings (e.g. one
// typed payload failing to decode without invalidating the whole pack).
func (p *Pack) SetLogger(l *log.Helper) { p.logger = l }

func pathKey(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// Insert adds or replaces the RFile at path, deriving its position at the
// end of insertion order if it is new.
func (p *Pack) Insert(f *rfile.RFile) {
	key := pathKey(f.Path)
	if _, exists := p.files[key]; !exists {
		p.order = append(p.order, key)
	}
	p.files[key] = f
}

// Remove deletes the RFile at path, reporting whether it existed.
func (p *Pack) Remove(path string) bool {
	key := pathKey(path)
	if _, ok := p.files[key]; !ok {
		return false
	}
	delete(p.files, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Rename moves the RFile at oldPath to newPath, preserving its position in
// insertion order.
func (p *Pack) Rename(oldPath, newPath string) error {
	oldKey := pathKey(oldPath)
	f, ok := p.files[oldKey]
	if !ok {
		return fmt.Errorf("pack: rename: %q not found", oldPath)
	}
	newKey := pathKey(newPath)
	if _, exists := p.files[newKey]; exists {
		return fmt.Errorf("pack: rename: %q already exists", newPath)
	}
	f.Path = newPath
	delete(p.files, oldKey)
	p.files[newKey] = f
	for i, k := range p.order {
		if k == oldKey {
			p.order[i] = newKey
			break
		}
	}
	return nil
}

// Get returns the RFile at path, or nil.
func (p *Pack) Get(path string) *rfile.RFile {
	return p.files[pathKey(path)]
}

// Exists reports whether path names a file currently in the pack.
func (p *Pack) Exists(path string) bool {
	_, ok := p.files[pathKey(path)]
	return ok
}

// FolderExists reports whether any file's path starts with folder+"/".
func (p *Pack) FolderExists(folder string) bool {
	prefix := pathKey(folder) + "/"
	for _, k := range p.order {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Files returns every RFile in insertion (data-region) order.
func (p *Pack) Files() []*rfile.RFile {
	out := make([]*rfile.RFile, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.files[k])
	}
	return out
}

// FileCount returns the number of files currently in the pack.
func (p *Pack) FileCount() int { return len(p.order) }

// PathsSorted returns every file path, case-insensitively sorted, for
// tree-view style listings.
func (p *Pack) PathsSorted() []string {
	out := make([]string, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.files[k].Path)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
