package rfile

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/saferwall/packfile/internal/bin"
)

// LeafPayload is the decoded shape for every standalone typed-payload kind
// that isn't a Table (DB/Loc). Each leaf codec fills in exactly the
// sub-struct matching its FileType; encode only ever reads that one field
// back, so a Payload built by one leaf decoder can never be fed to
// another leaf encoder by mistake.
type LeafPayload struct {
	Text             *TextFile
	Video            *VideoFile
	Image            *ImageFile
	PortraitSettings *PortraitSettingsFile
	UnitVariant      *UnitVariantFile
	Atlas            *AtlasFile
	UIC              *UICFile
	SoundBank        *SoundBankFile
	RigidModel       *RigidModelFile
}

// --- Text -------------------------------------------------------------

// TextFile is plain UTF-8 text (scripts, XML, CSV, Lua). The codec never
// reinterprets the contents; it only validates the bytes decode as UTF-8.
type TextFile struct {
	Contents string
}

func decodeTextFile(data []byte, _ ExtraData) (*Payload, error) {
	// A text file's decode contract is "valid UTF-8 or reject it": a
	// binary blob misclassified as Text must not be silently accepted.
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("rfile: text: invalid utf-8")
	}
	return &Payload{Leaf: &LeafPayload{Text: &TextFile{Contents: string(data)}}}, nil
}

func encodeTextFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.Text == nil {
		return nil, fmt.Errorf("rfile: text: payload has no text content")
	}
	return []byte(p.Leaf.Text.Contents), nil
}

// --- Video --------------------------------------------------------------

// VideoFile wraps a Bink/MP4 video stream with the 4-byte format tag CA
// stores ahead of it, so SetVideoFormat can rewrite the tag without
// touching the stream bytes.
type VideoFile struct {
	Format string // e.g. "BIK0", "CAMV", "MP4 "
	Stream []byte
}

func decodeVideoFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	tag, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("rfile: video: %w", err)
	}
	stream, err := r.ReadBytes(r.Len())
	if err != nil {
		return nil, err
	}
	return &Payload{Leaf: &LeafPayload{Video: &VideoFile{Format: string(tag), Stream: stream}}}, nil
}

func encodeVideoFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.Video == nil {
		return nil, fmt.Errorf("rfile: video: payload has no video content")
	}
	v := p.Leaf.Video
	if len(v.Format) != 4 {
		return nil, fmt.Errorf("rfile: video: format tag must be 4 bytes, got %q", v.Format)
	}
	w := bin.NewWriter()
	w.WriteBytes([]byte(v.Format))
	w.WriteBytes(v.Stream)
	return w.Bytes(), nil
}

// --- Image ----------------------------------------------------------------

// ImageFile wraps an opaque image blob (DDS/PNG/TGA). The toolkit does
// not re-decode pixel data; it only carries the bytes and their
// container-guessed format, refusing nothing recognized by Decode's
// suffix guess.
type ImageFile struct {
	Raw []byte
}

func decodeImageFile(data []byte, _ ExtraData) (*Payload, error) {
	return &Payload{Leaf: &LeafPayload{Image: &ImageFile{Raw: data}}}, nil
}

func encodeImageFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.Image == nil {
		return nil, fmt.Errorf("rfile: image: payload has no image content")
	}
	return p.Leaf.Image.Raw, nil
}

// --- PortraitSettings -------------------------------------------------

// PortraitSettingsEntry binds an art-set id to its enabled state.
type PortraitSettingsEntry struct {
	ArtSetID string
	Enabled  bool
}

// PortraitSettingsFile is a versioned list of per-art-set portrait toggles.
type PortraitSettingsFile struct {
	Version uint32
	Entries []PortraitSettingsEntry
}

func decodePortraitSettingsFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	version, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: portrait_settings: %w", err)
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: portrait_settings: %w", err)
	}
	f := &PortraitSettingsFile{Version: version}
	for i := uint32(0); i < count; i++ {
		id, err := r.ReadStringU8()
		if err != nil {
			return nil, fmt.Errorf("rfile: portrait_settings: entry %d: %w", i, err)
		}
		enabled, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("rfile: portrait_settings: entry %d: %w", i, err)
		}
		f.Entries = append(f.Entries, PortraitSettingsEntry{ArtSetID: id, Enabled: enabled})
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("rfile: portrait_settings: trailing bytes after declared entries")
	}
	return &Payload{Leaf: &LeafPayload{PortraitSettings: f}}, nil
}

func encodePortraitSettingsFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.PortraitSettings == nil {
		return nil, fmt.Errorf("rfile: portrait_settings: payload has no content")
	}
	f := p.Leaf.PortraitSettings
	w := bin.NewWriter()
	w.WriteU32(f.Version)
	w.WriteU32(uint32(len(f.Entries)))
	for _, e := range f.Entries {
		w.WriteStringU8(e.ArtSetID)
		w.WriteBool(e.Enabled)
	}
	return w.Bytes(), nil
}

// --- UnitVariant --------------------------------------------------------

// UnitVariantFile is a flat key/value override list applied on top of a
// unit's base variant mesh (texture swaps, attachment points).
type UnitVariantFile struct {
	Entries map[string]string
}

func decodeUnitVariantFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	count, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: unit_variant: %w", err)
	}
	entries := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		k, err := r.ReadStringU8()
		if err != nil {
			return nil, fmt.Errorf("rfile: unit_variant: entry %d key: %w", i, err)
		}
		v, err := r.ReadStringU8()
		if err != nil {
			return nil, fmt.Errorf("rfile: unit_variant: entry %d value: %w", i, err)
		}
		entries[k] = v
	}
	return &Payload{Leaf: &LeafPayload{UnitVariant: &UnitVariantFile{Entries: entries}}}, nil
}

func encodeUnitVariantFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.UnitVariant == nil {
		return nil, fmt.Errorf("rfile: unit_variant: payload has no content")
	}
	entries := p.Leaf.UnitVariant.Entries
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := bin.NewWriter()
	w.WriteU32(uint32(len(entries)))
	for _, k := range keys {
		w.WriteStringU8(k)
		w.WriteStringU8(entries[k])
	}
	return w.Bytes(), nil
}

// --- Atlas ----------------------------------------------------------------

// AtlasSprite is a named rectangle inside the atlas's backing texture.
type AtlasSprite struct {
	Name          string
	X, Y, W, H    uint32
}

// AtlasFile groups sprite rectangles that share one backing texture.
type AtlasFile struct {
	Version       uint32
	Width, Height uint32
	Sprites       []AtlasSprite
}

func decodeAtlasFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	version, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: atlas: %w", err)
	}
	width, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: atlas: %w", err)
	}
	height, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: atlas: %w", err)
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: atlas: %w", err)
	}
	f := &AtlasFile{Version: version, Width: width, Height: height}
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadStringU8()
		if err != nil {
			return nil, fmt.Errorf("rfile: atlas: sprite %d: %w", i, err)
		}
		x, _ := r.ReadU32()
		y, _ := r.ReadU32()
		sw, _ := r.ReadU32()
		sh, err := r.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("rfile: atlas: sprite %d rect: %w", i, err)
		}
		f.Sprites = append(f.Sprites, AtlasSprite{Name: name, X: x, Y: y, W: sw, H: sh})
	}
	return &Payload{Leaf: &LeafPayload{Atlas: f}}, nil
}

func encodeAtlasFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.Atlas == nil {
		return nil, fmt.Errorf("rfile: atlas: payload has no content")
	}
	f := p.Leaf.Atlas
	w := bin.NewWriter()
	w.WriteU32(f.Version)
	w.WriteU32(f.Width)
	w.WriteU32(f.Height)
	w.WriteU32(uint32(len(f.Sprites)))
	for _, s := range f.Sprites {
		w.WriteStringU8(s.Name)
		w.WriteU32(s.X)
		w.WriteU32(s.Y)
		w.WriteU32(s.W)
		w.WriteU32(s.H)
	}
	return w.Bytes(), nil
}

// --- UIC (UI component) --------------------------------------------------

// UICFile is an opaque UI-component definition blob; the toolkit carries
// it without interpreting the layout grammar.
type UICFile struct {
	Raw []byte
}

func decodeUICFile(data []byte, _ ExtraData) (*Payload, error) {
	return &Payload{Leaf: &LeafPayload{UIC: &UICFile{Raw: data}}}, nil
}

func encodeUICFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.UIC == nil {
		return nil, fmt.Errorf("rfile: uic: payload has no content")
	}
	return p.Leaf.UIC.Raw, nil
}

// --- SoundBank --------------------------------------------------------

// SoundBankObjectType is the HIRC object's 1-byte type tag (Settings,
// Event, MusicTrack, ...); this toolkit never decodes a type's own
// payload, so the full enum is tracked only as a raw byte.
type SoundBankObjectType uint8

// SoundBankObject is one opaque HIRC-style object entry: a type tag, a
// declared size, and the raw bytes of that type's own (undecoded)
// layout. Audio codec decoding of the contained stream stays out of
// scope (a leaf converter concern).
type SoundBankObject struct {
	Type SoundBankObjectType
	Data []byte
}

// SoundBankFile is the object table of a sound bank container, structured
// after the HIRC object section: a flat list of (type, opaque data) pairs.
type SoundBankFile struct {
	Objects []SoundBankObject
}

func decodeSoundBankFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	count, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: soundbank: %w", err)
	}
	f := &SoundBankFile{}
	for i := uint32(0); i < count; i++ {
		typeTag, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("rfile: soundbank: object %d type: %w", i, err)
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("rfile: soundbank: object %d size: %w", i, err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("rfile: soundbank: object %d data: %w", i, err)
		}
		f.Objects = append(f.Objects, SoundBankObject{Type: SoundBankObjectType(typeTag), Data: payload})
	}
	return &Payload{Leaf: &LeafPayload{SoundBank: f}}, nil
}

func encodeSoundBankFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.SoundBank == nil {
		return nil, fmt.Errorf("rfile: soundbank: payload has no content")
	}
	f := p.Leaf.SoundBank
	w := bin.NewWriter()
	w.WriteU32(uint32(len(f.Objects)))
	for _, o := range f.Objects {
		w.WriteU8(uint8(o.Type))
		w.WriteU32(uint32(len(o.Data)))
		w.WriteBytes(o.Data)
	}
	return w.Bytes(), nil
}

// --- RigidModel -----------------------------------------------------------

// RigidModelFile wraps the versioned 3D-mesh container. Mesh/material
// substructure decoding stays a leaf-converter concern (ExportRigidToGltf
// in the command alphabet); this codec only guarantees a byte-exact
// version-tagged pass-through.
type RigidModelFile struct {
	Version uint32
	Raw     []byte
}

func decodeRigidModelFile(data []byte, _ ExtraData) (*Payload, error) {
	r := bin.NewReader(data)
	version, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("rfile: rigid_model: %w", err)
	}
	rest, err := r.ReadBytes(r.Len())
	if err != nil {
		return nil, err
	}
	return &Payload{Leaf: &LeafPayload{RigidModel: &RigidModelFile{Version: version, Raw: rest}}}, nil
}

func encodeRigidModelFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Leaf == nil || p.Leaf.RigidModel == nil {
		return nil, fmt.Errorf("rfile: rigid_model: payload has no content")
	}
	f := p.Leaf.RigidModel
	w := bin.NewWriter()
	w.WriteU32(f.Version)
	w.WriteBytes(f.Raw)
	return w.Bytes(), nil
}
