package rfile

import (
	"fmt"

	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

// decoder/encoder functions share the Payload-in, bytes/Payload-out shape
// of the table codecs; DB and Loc need the schema and table name from
// ExtraData, so they get their own thin adapters that wrap the table
// codecs in the same func([]byte, ExtraData) shape the leaf codecs use.

// decodeFunc and encodeFunc are the dispatch table's entry shape, mirroring
// the teacher's funcMaps map[ImageDirectoryEntry](func(uint32, uint32) error)
// pattern: one function value per discriminant, looked up once per call.
type decodeFunc func([]byte, ExtraData) (*Payload, error)
type encodeFunc func(*Payload, ExtraData) ([]byte, error)

var decoders map[FileType]decodeFunc
var encoders map[FileType]encodeFunc

func init() {
	decoders = map[FileType]decodeFunc{
		DB:               decodeDBFile,
		Loc:              decodeLocFile,
		Text:             decodeTextFile,
		Video:            decodeVideoFile,
		Image:            decodeImageFile,
		PortraitSettings: decodePortraitSettingsFile,
		UnitVariant:      decodeUnitVariantFile,
		Atlas:            decodeAtlasFile,
		UIC:              decodeUICFile,
		SoundBank:        decodeSoundBankFile,
		RigidModel:       decodeRigidModelFile,
	}
	encoders = map[FileType]encodeFunc{
		DB:               encodeDBFile,
		Loc:              encodeLocFile,
		Text:             encodeTextFile,
		Video:            encodeVideoFile,
		Image:            encodeImageFile,
		PortraitSettings: encodePortraitSettingsFile,
		UnitVariant:      encodeUnitVariantFile,
		Atlas:            encodeAtlasFile,
		UIC:              encodeUICFile,
		SoundBank:        encodeSoundBankFile,
		RigidModel:       encodeRigidModelFile,
	}
}

// Decode routes to the codec registered for kind, or stores data verbatim
// for opaque/unrecognized kinds. It refuses to guess at a partially
// understood file: any codec error is returned as-is rather than falling
// back to opaque storage silently.
func Decode(kind FileType, data []byte, extra ExtraData) (*Payload, error) {
	if kind.IsOpaque() {
		return &Payload{Raw: data}, nil
	}
	fn, ok := decoders[kind]
	if !ok {
		return &Payload{Raw: data}, nil
	}
	return fn(data, extra)
}

// Encode is Decode's inverse: it re-materializes bytes from a Payload
// through the registered codec for kind.
func Encode(kind FileType, payload *Payload, extra ExtraData) ([]byte, error) {
	if kind.IsOpaque() || payload.Table == nil && payload.Leaf == nil {
		return payload.Raw, nil
	}
	fn, ok := encoders[kind]
	if !ok {
		return payload.Raw, nil
	}
	return fn(payload, extra)
}

func decodeDBFile(data []byte, extra ExtraData) (*Payload, error) {
	if extra.Schema == nil {
		return nil, fmt.Errorf("rfile: DB %q: no schema loaded", extra.TableName)
	}
	db, err := table.DecodeDB(data, extra.TableName, func(v int32) *schema.Definition {
		return extra.Schema.DefinitionByNameAndVersion(extra.TableName, v)
	})
	if err != nil {
		return nil, err
	}
	return &Payload{Table: db.Table}, nil
}

func encodeDBFile(p *Payload, extra ExtraData) ([]byte, error) {
	if p.Table == nil {
		return nil, fmt.Errorf("rfile: DB payload has no table")
	}
	return table.EncodeDB(&table.DB{Table: p.Table, MysteriousByte: 1})
}

func decodeLocFile(data []byte, _ ExtraData) (*Payload, error) {
	t, err := table.DecodeLoc(data)
	if err != nil {
		return nil, err
	}
	return &Payload{Table: t}, nil
}

func encodeLocFile(p *Payload, _ ExtraData) ([]byte, error) {
	if p.Table == nil {
		return nil, fmt.Errorf("rfile: Loc payload has no table")
	}
	return table.EncodeLoc(p.Table)
}
