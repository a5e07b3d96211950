package schema

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// CurrentDiskVersion is the version stamp written by Save and accepted
// without migration by Load.
const CurrentDiskVersion uint16 = 5

// diskField/diskDefinition/diskFile mirror Schema/Definition/Field in a
// flat, TOML-friendly shape; the in-memory types use slices-of-pointers
// and maps that don't round-trip cleanly through a struct tag encoder.
type diskField struct {
	Name                 string           `toml:"name"`
	Type                 int              `toml:"type"`
	IsKey                bool             `toml:"is_key"`
	Default              string           `toml:"default,omitempty"`
	MaxLength            int              `toml:"max_length,omitempty"`
	IsFilename           bool             `toml:"is_filename,omitempty"`
	FilenameRelativePath string           `toml:"filename_relative_path,omitempty"`
	ReferenceTable       string           `toml:"reference_table,omitempty"`
	ReferenceColumn      string           `toml:"reference_column,omitempty"`
	Lookup               []string         `toml:"lookup,omitempty"`
	Description          string           `toml:"description,omitempty"`
	CAOrder              int16            `toml:"ca_order,omitempty"`
	IsBitwise            int32            `toml:"is_bitwise,omitempty"`
	EnumValues           map[int32]string `toml:"enum_values,omitempty"`
}

type diskDefinition struct {
	Version           int32       `toml:"version"`
	Fields            []diskField `toml:"fields"`
	LocalisedFields   []diskField `toml:"localised_fields,omitempty"`
	LocalisedKeyOrder []int       `toml:"localised_key_order,omitempty"`
}

type diskFile struct {
	Version     uint16                      `toml:"version"`
	Definitions map[string][]diskDefinition `toml:"definitions"`
	Patches     map[string]PatchMap         `toml:"patches,omitempty"`
}

// Load parses a schema file from disk, migrating older on-disk versions
// up to CurrentDiskVersion, and optionally overlays a local patch file.
func Load(path string, patchesPath string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var df diskFile
	if err := toml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}

	df, err = migrateToCurrent(df)
	if err != nil {
		return nil, err
	}

	s := New()
	s.DiskVersion = df.Version
	for table, defs := range df.Definitions {
		for _, dd := range defs {
			s.AddDefinition(table, fromDiskDefinition(dd))
		}
	}
	for table, patch := range df.Patches {
		for field, attrs := range patch {
			for attr, val := range attrs {
				s.AddPatch(table, field, attr, val)
			}
		}
	}

	if patchesPath != "" {
		if err := overlayPatches(s, patchesPath); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// overlayPatches reads an optional local patch file and merges it over
// whatever patches the main schema file already carried. A missing file
// is not an error: the patches file is optional per the schema's design.
func overlayPatches(s *Schema, path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var patches map[string]PatchMap
	if err := toml.Unmarshal(raw, &patches); err != nil {
		return fmt.Errorf("schema: parse patches %s: %w", path, err)
	}
	for table, patch := range patches {
		for field, attrs := range patch {
			for attr, val := range attrs {
				s.AddPatch(table, field, attr, val)
			}
		}
	}
	return nil
}

// Save serializes s to path with stable ordering: table names
// alphabetical, and within a table, definitions sorted by version
// descending (the order AddDefinition already maintains).
func Save(s *Schema, path string) error {
	df := diskFile{
		Version:     CurrentDiskVersion,
		Definitions: make(map[string][]diskDefinition),
		Patches:     s.patches,
	}
	for _, table := range s.TableNames() {
		for _, def := range s.definitions[table] {
			df.Definitions[table] = append(df.Definitions[table], toDiskDefinition(def))
		}
	}

	out, err := toml.Marshal(df)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// SaveLocalPatches writes every table's current patch overlay to path as
// its own document, independent of the main schema file. This is what
// backs SaveLocalSchemaPatch/ImportSchemaPatch: a user's local overrides
// survive a schema update that overwrites the main file at Save's path.
func SaveLocalPatches(s *Schema, path string) error {
	out, err := toml.Marshal(s.patches)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// LoadLocalPatches replaces s's patch overlay with the contents of path,
// dropping whatever overrides were loaded from the main schema file.
// Missing file clears the overlay rather than erroring.
func LoadLocalPatches(s *Schema, path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.patches = make(map[string]PatchMap)
		return nil
	}
	if err != nil {
		return err
	}
	var patches map[string]PatchMap
	if err := toml.Unmarshal(raw, &patches); err != nil {
		return fmt.Errorf("schema: parse patches %s: %w", path, err)
	}
	s.patches = patches
	return nil
}

func fromDiskDefinition(dd diskDefinition) *Definition {
	def := &Definition{
		Version:           dd.Version,
		LocalisedKeyOrder: dd.LocalisedKeyOrder,
	}
	for _, df := range dd.Fields {
		def.Fields = append(def.Fields, fromDiskField(df))
	}
	for _, df := range dd.LocalisedFields {
		def.LocalisedFields = append(def.LocalisedFields, fromDiskField(df))
	}
	return def
}

func toDiskDefinition(def *Definition) diskDefinition {
	dd := diskDefinition{
		Version:           def.Version,
		LocalisedKeyOrder: def.LocalisedKeyOrder,
	}
	for _, f := range def.Fields {
		dd.Fields = append(dd.Fields, toDiskField(f))
	}
	for _, f := range def.LocalisedFields {
		dd.LocalisedFields = append(dd.LocalisedFields, toDiskField(f))
	}
	return dd
}

func fromDiskField(df diskField) Field {
	f := Field{
		Name:                 df.Name,
		Type:                 FieldType(df.Type),
		IsKey:                df.IsKey,
		Default:              df.Default,
		MaxLength:            df.MaxLength,
		IsFilename:           df.IsFilename,
		FilenameRelativePath: df.FilenameRelativePath,
		Lookup:               df.Lookup,
		Description:          df.Description,
		CAOrder:              df.CAOrder,
		IsBitwise:            df.IsBitwise,
		EnumValues:           df.EnumValues,
	}
	if df.ReferenceTable != "" {
		f.ReferenceTo = &Reference{Table: df.ReferenceTable, Column: df.ReferenceColumn}
	}
	return f
}

func toDiskField(f Field) diskField {
	df := diskField{
		Name:                 f.Name,
		Type:                 int(f.Type),
		IsKey:                f.IsKey,
		Default:              f.Default,
		MaxLength:            f.MaxLength,
		IsFilename:           f.IsFilename,
		FilenameRelativePath: f.FilenameRelativePath,
		Lookup:               f.Lookup,
		Description:          f.Description,
		CAOrder:              f.CAOrder,
		IsBitwise:            f.IsBitwise,
		EnumValues:           f.EnumValues,
	}
	if f.ReferenceTo != nil {
		df.ReferenceTable = f.ReferenceTo.Table
		df.ReferenceColumn = f.ReferenceTo.Column
	}
	return df
}
