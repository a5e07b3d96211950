package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddDefinitionOrdersByDescendingVersion(t *testing.T) {
	s := New()
	s.AddDefinition("units_tables", &Definition{Version: 1})
	s.AddDefinition("units_tables", &Definition{Version: 3})
	s.AddDefinition("units_tables", &Definition{Version: 2})

	defs := s.DefinitionsByTableName("units_tables")
	want := []int32{3, 2, 1}
	for i, v := range want {
		if defs[i].Version != v {
			t.Fatalf("defs[%d].Version = %d, want %d", i, defs[i].Version, v)
		}
	}
}

func TestDefinitionByNameAndVersionExactMatch(t *testing.T) {
	s := New()
	s.AddDefinition("units_tables", &Definition{Version: 7})
	if d := s.DefinitionByNameAndVersion("units_tables", 7); d == nil {
		t.Fatal("expected a match for version 7")
	}
	if d := s.DefinitionByNameAndVersion("units_tables", 8); d != nil {
		t.Fatal("expected no match for version 8")
	}
}

func TestPatchLastWriteWins(t *testing.T) {
	s := New()
	s.AddPatch("units_tables", "key", "description", "first")
	s.AddPatch("units_tables", "key", "description", "second")

	patches := s.PatchesForTable("units_tables")
	if patches["key"]["description"] != "second" {
		t.Fatalf("got %q, want %q", patches["key"]["description"], "second")
	}
}

func TestFieldWithPatchesAppliesOverride(t *testing.T) {
	s := New()
	s.AddPatch("units_tables", "key", "default", "unknown")

	got := s.FieldWithPatches("units_tables", Field{Name: "key", Default: ""})
	if got.Default != "unknown" {
		t.Fatalf("Default = %q, want %q", got.Default, "unknown")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New()
	s.AddDefinition("units_tables", &Definition{
		Version: 2,
		Fields: []Field{
			{Name: "key", Type: StringU8, IsKey: true},
			{Name: "faction", Type: StringU8, ReferenceTo: &Reference{Table: "factions_tables", Column: "key"}},
		},
		LocalisedKeyOrder: []int{0},
	})
	s.AddPatch("units_tables", "key", "description", "primary key")

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.toml")
	if err := Save(s, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := loaded.DefinitionByNameAndVersion("units_tables", 2)
	if def == nil {
		t.Fatal("missing units_tables v2 after round trip")
	}
	if len(def.Fields) != 2 || def.Fields[1].ReferenceTo == nil || def.Fields[1].ReferenceTo.Table != "factions_tables" {
		t.Fatalf("unexpected fields after round trip: %+v", def.Fields)
	}
	if loaded.PatchesForTable("units_tables")["key"]["description"] != "primary key" {
		t.Fatal("patch did not survive round trip")
	}
}

func TestLoadMigratesOldVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.toml")
	old := `version = 3

[[definitions.loc]]
version = 1

[[definitions.loc.fields]]
name = "key"
type = 7
is_key = true
`
	if err := os.WriteFile(path, []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.DiskVersion != CurrentDiskVersion {
		t.Fatalf("DiskVersion = %d, want %d", s.DiskVersion, CurrentDiskVersion)
	}
}
