package table

import (
	"errors"
	"fmt"

	"github.com/saferwall/packfile/internal/bin"
	"github.com/saferwall/packfile/internal/schema"
)

// Errors returned by the table codecs.
var (
	// ErrNoDefinition is returned when the schema has no definition for a
	// (table, version) pair a DB header claims.
	ErrNoDefinition = errors.New("table: no matching schema definition")

	// ErrSizeMismatch is returned when a decoder does not consume exactly
	// the declared region.
	ErrSizeMismatch = errors.New("table: decoded region size mismatch")

	// ErrNotABooleanValue is returned when ParseCellText is asked to parse
	// a Boolean-typed cell from text other than "true"/"false".
	ErrNotABooleanValue = errors.New("table: not a boolean value")

	// ErrTSVParse is returned for any structural failure reading the TSV
	// dialect back (bad metadata line, column-count mismatch, unknown
	// column name, unparsable cell). A wrong table name or version fails
	// with ErrNoDefinition instead.
	ErrTSVParse = errors.New("table: tsv parse error")
)

// Table is a decoded DB or Loc payload: a Definition plus its rows. A row
// is a slice of cells whose arity equals len(Definition.Fields).
type Table struct {
	Definition *schema.Definition
	TableName  string
	Rows       [][]Cell
}

// locDefinition is the fixed three-column layout of every Loc file: key,
// text, tooltip. It never comes from the schema because Loc predates
// per-table schema versioning in the data this format carries.
var locDefinition = &schema.Definition{
	Version: 1,
	Fields: []schema.Field{
		{Name: "key", Type: schema.StringU16, IsKey: true},
		{Name: "text", Type: schema.StringU16},
		{Name: "tooltip", Type: schema.Boolean},
	},
}

// locMagic is the byte-order mark every Loc file starts with; the "LOC"
// signature follows it.
var locMagic = [2]byte{0xFF, 0xFE}

// NewLoc returns an empty Loc table using the fixed three-column
// key/text/tooltip definition, for callers that need to create a Loc
// file from scratch rather than decode one (e.g. loc-key generation).
func NewLoc() *Table {
	return &Table{Definition: locDefinition, TableName: "loc"}
}

// DecodeLoc parses a Loc payload.
func DecodeLoc(data []byte) (*Table, error) {
	r := bin.NewReader(data)

	bom, err := r.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if bom[0] != locMagic[0] || bom[1] != locMagic[1] {
		return nil, fmt.Errorf("table: loc: bad byte-order mark")
	}
	sig, err := r.ReadBytes(3)
	if err != nil {
		return nil, err
	}
	if string(sig) != "LOC" {
		return nil, fmt.Errorf("table: loc: bad signature %q", sig)
	}
	if _, err := r.ReadU8(); err != nil { // padding, always 0
		return nil, err
	}
	if _, err := r.ReadU32(); err != nil { // version, always 1
		return nil, err
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	t := &Table{Definition: locDefinition, TableName: "loc"}
	for i := uint32(0); i < count; i++ {
		key, err := r.ReadStringU16()
		if err != nil {
			return nil, err
		}
		text, err := r.ReadStringU16()
		if err != nil {
			return nil, err
		}
		tooltip, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, []Cell{
			{Type: schema.StringU16, Str: key},
			{Type: schema.StringU16, Str: text},
			{Type: schema.Boolean, Bool: tooltip},
		})
	}
	if r.Len() != 0 {
		return nil, ErrSizeMismatch
	}
	return t, nil
}

// EncodeLoc re-encodes a Loc table exactly as DecodeLoc would have read it.
func EncodeLoc(t *Table) ([]byte, error) {
	w := bin.NewWriter()
	w.WriteBytes(locMagic[:])
	w.WriteBytes([]byte("LOC"))
	w.WriteU8(0)
	w.WriteU32(1)
	w.WriteU32(uint32(len(t.Rows)))
	for _, row := range t.Rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("table: loc row has %d cells, want 3", len(row))
		}
		if err := w.WriteStringU16(row[0].Str); err != nil {
			return nil, err
		}
		if err := w.WriteStringU16(row[1].Str); err != nil {
			return nil, err
		}
		w.WriteBool(row[2].Bool)
	}
	return w.Bytes(), nil
}

// dbGUIDMagic and dbVersionMagic are the four-byte markers a DB header
// uses to signal an optional GUID or version field precedes the row data.
const (
	dbGUIDMagic    uint32 = 0xFFFE_FDFC
	dbVersionMagic uint32 = 0xFEFE_FDFC
)

// DB holds the header fields DecodeDB/EncodeDB must forward verbatim,
// alongside the decoded Table.
type DB struct {
	Table           *Table
	GUID            string
	HasGUID         bool
	HasVersion      bool
	MysteriousByte  byte
}

// DecodeDB parses a DB payload. It calls schemaLookup with the version the
// header declares (1 when the header carries no version marker) and uses
// the returned definition to interpret the row bytes, failing with
// ErrNoDefinition when schemaLookup returns nil.
func DecodeDB(data []byte, tableName string, schemaLookup func(version int32) *schema.Definition) (*DB, error) {
	r := bin.NewReader(data)

	db := &DB{}

	// The GUID and version fields are each gated by a 4-byte magic the
	// decoder peeks at without consuming if it doesn't match.
	if peekU32(r) == dbGUIDMagic {
		if _, err := r.ReadU32(); err != nil {
			return nil, err
		}
		guid, err := r.ReadStringU16()
		if err != nil {
			return nil, err
		}
		db.GUID = guid
		db.HasGUID = true
	}

	version := int32(1)
	if peekU32(r) == dbVersionMagic {
		if _, err := r.ReadU32(); err != nil {
			return nil, err
		}
		v, err := r.ReadI32()
		if err != nil {
			return nil, err
		}
		version = v
		db.HasVersion = true
	}

	def := schemaLookup(version)
	if def == nil {
		return nil, fmt.Errorf("%w: %s v%d", ErrNoDefinition, tableName, version)
	}

	mysteriousByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	db.MysteriousByte = mysteriousByte

	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	t := &Table{Definition: def, TableName: tableName}
	for i := uint32(0); i < count; i++ {
		row, err := decodeRow(r, def.Fields)
		if err != nil {
			return nil, fmt.Errorf("table: %s row %d: %w", tableName, i, err)
		}
		t.Rows = append(t.Rows, row)
	}
	db.Table = t

	if r.Len() != 0 {
		return nil, ErrSizeMismatch
	}
	return db, nil
}

// peekU32 reads the next 4 bytes without advancing the cursor, returning
// 0 if fewer than 4 bytes remain.
func peekU32(r *bin.Reader) uint32 {
	pos := r.Pos()
	v, err := r.ReadU32()
	r.Seek(pos)
	if err != nil {
		return 0
	}
	return v
}

// EncodeDB re-encodes a DB payload, forwarding the header fields recorded
// at decode time verbatim.
func EncodeDB(db *DB) ([]byte, error) {
	w := bin.NewWriter()

	if db.HasGUID {
		w.WriteU32(dbGUIDMagic)
		if err := w.WriteStringU16(db.GUID); err != nil {
			return nil, err
		}
	}
	if db.HasVersion {
		w.WriteU32(dbVersionMagic)
		w.WriteI32(db.Table.Definition.Version)
	}

	w.WriteU8(db.MysteriousByte)
	w.WriteU32(uint32(len(db.Table.Rows)))

	for i, row := range db.Table.Rows {
		if err := encodeRow(w, db.Table.Definition.Fields, row); err != nil {
			return nil, fmt.Errorf("table: %s row %d: %w", db.Table.TableName, i, err)
		}
	}
	return w.Bytes(), nil
}

func decodeRow(r *bin.Reader, fields []schema.Field) ([]Cell, error) {
	row := make([]Cell, len(fields))
	for i, f := range fields {
		cell, err := decodeCell(r, f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		row[i] = cell
	}
	return row, nil
}

func encodeRow(w *bin.Writer, fields []schema.Field, row []Cell) error {
	if len(row) != len(fields) {
		return fmt.Errorf("row has %d cells, definition has %d fields", len(row), len(fields))
	}
	for i, f := range fields {
		if err := encodeCell(w, f, row[i]); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func decodeCell(r *bin.Reader, f schema.Field) (Cell, error) {
	switch f.Type {
	case schema.Boolean:
		v, err := r.ReadBool()
		return Cell{Type: f.Type, Bool: v}, err
	case schema.F32:
		v, err := r.ReadF32()
		return Cell{Type: f.Type, F32: v}, err
	case schema.F64:
		v, err := r.ReadF64()
		return Cell{Type: f.Type, F64: v}, err
	case schema.I16:
		v, err := r.ReadI16()
		return Cell{Type: f.Type, I16: v}, err
	case schema.I32:
		v, err := r.ReadI32()
		return Cell{Type: f.Type, I32: v}, err
	case schema.I64:
		v, err := r.ReadI64()
		return Cell{Type: f.Type, I64: v}, err
	case schema.ColourRGB:
		v, err := r.ReadU32()
		return Cell{Type: f.Type, ColourU32: v}, err
	case schema.StringU8:
		v, err := r.ReadStringU8()
		return Cell{Type: f.Type, Str: v}, err
	case schema.StringU16:
		v, err := r.ReadStringU16()
		return Cell{Type: f.Type, Str: v}, err
	case schema.OptionalStringU8:
		v, err := r.ReadOptionalStringU8()
		return Cell{Type: f.Type, Str: v}, err
	case schema.OptionalStringU16:
		v, err := r.ReadOptionalStringU16()
		return Cell{Type: f.Type, Str: v}, err
	case schema.SequenceU16:
		return decodeSequence(r, f, 16)
	case schema.SequenceU32:
		return decodeSequence(r, f, 32)
	default:
		return Cell{}, fmt.Errorf("unsupported field type %v", f.Type)
	}
}

func encodeCell(w *bin.Writer, f schema.Field, c Cell) error {
	switch f.Type {
	case schema.Boolean:
		w.WriteBool(c.Bool)
	case schema.F32:
		w.WriteF32(c.F32)
	case schema.F64:
		w.WriteF64(c.F64)
	case schema.I16:
		w.WriteI16(c.I16)
	case schema.I32:
		w.WriteI32(c.I32)
	case schema.I64:
		w.WriteI64(c.I64)
	case schema.ColourRGB:
		w.WriteU32(c.ColourU32)
	case schema.StringU8:
		w.WriteStringU8(c.Str)
	case schema.StringU16:
		return w.WriteStringU16(c.Str)
	case schema.OptionalStringU8:
		w.WriteOptionalStringU8(c.Str, c.Str != "")
	case schema.OptionalStringU16:
		return w.WriteOptionalStringU16(c.Str, c.Str != "")
	case schema.SequenceU16:
		return encodeSequence(w, c, 16)
	case schema.SequenceU32:
		return encodeSequence(w, c, 32)
	default:
		return fmt.Errorf("unsupported field type %v", f.Type)
	}
	return nil
}

func decodeSequence(r *bin.Reader, f schema.Field, lenBits int) (Cell, error) {
	if f.Sequence == nil {
		return Cell{}, fmt.Errorf("field %q: sequence field has no nested definition", f.Name)
	}
	var count uint32
	var err error
	if lenBits == 16 {
		var v uint16
		v, err = r.ReadU16()
		count = uint32(v)
	} else {
		count, err = r.ReadU32()
	}
	if err != nil {
		return Cell{}, err
	}

	inner := &Table{Definition: f.Sequence, TableName: f.Name}
	for i := uint32(0); i < count; i++ {
		row, err := decodeRow(r, f.Sequence.Fields)
		if err != nil {
			return Cell{}, fmt.Errorf("sequence row %d: %w", i, err)
		}
		inner.Rows = append(inner.Rows, row)
	}
	return Cell{Type: f.Type, Sequence: inner}, nil
}

func encodeSequence(w *bin.Writer, c Cell, lenBits int) error {
	if c.Sequence == nil {
		return fmt.Errorf("sequence cell has no nested table")
	}
	if lenBits == 16 {
		w.WriteU16(uint16(len(c.Sequence.Rows)))
	} else {
		w.WriteU32(uint32(len(c.Sequence.Rows)))
	}
	for i, row := range c.Sequence.Rows {
		if err := encodeRow(w, c.Sequence.Definition.Fields, row); err != nil {
			return fmt.Errorf("sequence row %d: %w", i, err)
		}
	}
	return nil
}

// Merge concatenates rows from b into a (both must share the same
// Definition), then dedups by the primary-key column set, keeping the
// first occurrence of each key tuple.
func Merge(a, b *Table) (*Table, error) {
	if a.Definition.Version != b.Definition.Version || len(a.Definition.Fields) != len(b.Definition.Fields) {
		return nil, fmt.Errorf("table: cannot merge %s v%d with %s v%d",
			a.TableName, a.Definition.Version, b.TableName, b.Definition.Version)
	}

	merged := &Table{Definition: a.Definition, TableName: a.TableName}
	merged.Rows = append(merged.Rows, a.Rows...)
	merged.Rows = append(merged.Rows, b.Rows...)

	keyIdx := keyIndexes(a.Definition)
	if len(keyIdx) == 0 {
		return merged, nil
	}

	seen := make(map[string]bool, len(merged.Rows))
	deduped := merged.Rows[:0]
	for _, row := range merged.Rows {
		k := rowKey(row, keyIdx)
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, row)
	}
	merged.Rows = deduped
	return merged, nil
}

func keyIndexes(def *schema.Definition) []int {
	var idx []int
	for i, f := range def.Fields {
		if f.IsKey {
			idx = append(idx, i)
		}
	}
	return idx
}

func rowKey(row []Cell, idx []int) string {
	var b []byte
	for _, i := range idx {
		b = append(b, []byte(row[i].Text())...)
		b = append(b, 0)
	}
	return string(b)
}
