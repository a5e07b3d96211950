// Package schema holds the versioned table definitions that drive the DB
// and Loc codecs: named tables, each with an ordered field list, plus a
// local patch set that can override per-field attributes without editing
// the canonical schema file.
package schema

import "sort"

// FieldType is the closed set of primitive cell types a Field can declare.
type FieldType int

const (
	Boolean FieldType = iota
	F32
	F64
	I16
	I32
	I64
	ColourRGB
	StringU8
	StringU16
	OptionalStringU8
	OptionalStringU16
	SequenceU16
	SequenceU32
)

// Reference names the (table, column) a Field's value points into.
type Reference struct {
	Table  string
	Column string
}

// Field is one column of a Definition, in on-wire order.
type Field struct {
	Name                 string
	Type                 FieldType
	IsKey                bool
	Default              string
	MaxLength            int
	IsFilename           bool
	FilenameRelativePath string
	ReferenceTo          *Reference
	Lookup               []string
	Description          string
	CAOrder              int16
	IsBitwise            int32
	EnumValues           map[int32]string

	// Sequence is the nested Definition for SequenceU16/SequenceU32 fields.
	Sequence *Definition
}

// Definition is one version of one table's on-wire layout. Fields order
// matches the wire order; LocalisedFields and LocalisedKeyOrder describe
// how rows of this table contribute localisation keys, independent of the
// wire order.
type Definition struct {
	Version           int32
	Fields            []Field
	LocalisedFields   []Field
	LocalisedKeyOrder []int
}

// FieldByName returns the field named name, or nil.
func (d *Definition) FieldByName(name string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// KeyFields returns the fields flagged IsKey, in wire order.
func (d *Definition) KeyFields() []Field {
	var keys []Field
	for _, f := range d.Fields {
		if f.IsKey {
			keys = append(keys, f)
		}
	}
	return keys
}

// PatchMap is field_name -> attribute_name -> override value, scoped to a
// single table.
type PatchMap map[string]map[string]string

// Schema is the full set of table definitions plus the local patch
// overlay. definitions holds, per table name, all known versions sorted
// by descending version (latest first).
type Schema struct {
	DiskVersion uint16
	definitions map[string][]*Definition
	patches     map[string]PatchMap
}

// New returns an empty Schema ready to receive definitions.
func New() *Schema {
	return &Schema{
		definitions: make(map[string][]*Definition),
		patches:     make(map[string]PatchMap),
	}
}

// AddDefinition inserts def under table, keeping the per-table list sorted
// by descending version.
func (s *Schema) AddDefinition(table string, def *Definition) {
	s.definitions[table] = append(s.definitions[table], def)
	sort.Slice(s.definitions[table], func(i, j int) bool {
		return s.definitions[table][i].Version > s.definitions[table][j].Version
	})
}

// DefinitionByNameAndVersion returns the exact (table, version) match, or
// nil if none exists.
func (s *Schema) DefinitionByNameAndVersion(table string, version int32) *Definition {
	for _, def := range s.definitions[table] {
		if def.Version == version {
			return def
		}
	}
	return nil
}

// DefinitionsByTableName returns every known version of table, latest
// first, or nil if the table is unknown.
func (s *Schema) DefinitionsByTableName(table string) []*Definition {
	return s.definitions[table]
}

// TableNames returns every table name the schema has at least one
// definition for.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PatchesForTable returns the patch overlay for table, or nil.
func (s *Schema) PatchesForTable(table string) PatchMap {
	return s.patches[table]
}

// AddPatch merges an override into the patch set for table. Last write
// wins per (table, field, attribute).
func (s *Schema) AddPatch(table, field, attribute, value string) {
	tablePatches, ok := s.patches[table]
	if !ok {
		tablePatches = make(PatchMap)
		s.patches[table] = tablePatches
	}
	fieldPatches, ok := tablePatches[field]
	if !ok {
		fieldPatches = make(map[string]string)
		tablePatches[field] = fieldPatches
	}
	fieldPatches[attribute] = value
}

// RemovePatchesForTable drops every override recorded for table.
func (s *Schema) RemovePatchesForTable(table string) {
	delete(s.patches, table)
}

// RemovePatchForField drops every override recorded for (table, field).
func (s *Schema) RemovePatchForField(table, field string) {
	if tablePatches, ok := s.patches[table]; ok {
		delete(tablePatches, field)
	}
}

// FieldWithPatches returns a copy of field with any matching table patch
// applied. Patches override field attributes at lookup time; they never
// change the on-wire layout a Definition describes.
func (s *Schema) FieldWithPatches(table string, field Field) Field {
	tablePatches, ok := s.patches[table]
	if !ok {
		return field
	}
	overrides, ok := tablePatches[field.Name]
	if !ok {
		return field
	}
	if v, ok := overrides["default"]; ok {
		field.Default = v
	}
	if v, ok := overrides["description"]; ok {
		field.Description = v
	}
	if v, ok := overrides["is_filename"]; ok {
		field.IsFilename = v == "true"
	}
	return field
}
