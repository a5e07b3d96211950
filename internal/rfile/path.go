// Package rfile implements the logical file model inside a Pack: the
// ContainerPath/FileType discriminants, the RFile on-disk state machine,
// and the dispatch table that routes a FileType to its typed-payload
// codec.
package rfile

import "strings"

// ContainerPath is a forward-slash, case-insensitive logical path inside
// a Pack. Equality and ordering are case-insensitive; Display preserves
// the original casing.
type ContainerPath struct {
	raw      string
	isFolder bool
}

// NewFilePath builds a ContainerPath naming a file.
func NewFilePath(path string) ContainerPath {
	return ContainerPath{raw: normalizeSlashes(path)}
}

// NewFolderPath builds a ContainerPath naming a folder.
func NewFolderPath(path string) ContainerPath {
	return ContainerPath{raw: normalizeSlashes(path), isFolder: true}
}

func normalizeSlashes(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// IsFolder reports whether this path names a folder rather than a file.
func (p ContainerPath) IsFolder() bool { return p.isFolder }

// String returns the display form, preserving original casing.
func (p ContainerPath) String() string { return p.raw }

// Key returns the case-folded form used for equality, ordering, and map
// lookups.
func (p ContainerPath) Key() string {
	key := strings.ToLower(p.raw)
	if p.isFolder {
		key += "/\x00folder"
	}
	return key
}

// Equal reports case-insensitive equality of two ContainerPaths of the
// same kind (file vs folder).
func (p ContainerPath) Equal(other ContainerPath) bool {
	return p.Key() == other.Key()
}

// Less orders two ContainerPaths case-insensitively, for stable listings.
func (p ContainerPath) Less(other ContainerPath) bool {
	return p.Key() < other.Key()
}
