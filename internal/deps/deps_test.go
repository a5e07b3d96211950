package deps

import (
	"testing"

	"github.com/saferwall/packfile/internal/pack"
	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

func TestTableNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"db/units_tables/data__", "units_tables"},
		{"db/land_units_tables/subfolder/data", "land_units_tables"},
		{"text/db/loc.loc", ""},
	}
	for _, tt := range tests {
		if got := tableNameFromPath(tt.path); got != tt.want {
			t.Errorf("tableNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func unitsDef() *schema.Definition {
	return &schema.Definition{
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "category", Type: schema.StringU8},
		},
	}
}

func unitsFile(path string, def *schema.Definition, rows [][]table.Cell) *rfile.RFile {
	f := rfile.NewRFile(path, nil)
	f.Decoded = &rfile.Payload{Table: &table.Table{Definition: def, TableName: "units_tables", Rows: rows}}
	return f
}

func TestDBValuesFromTableNameAndColumnName(t *testing.T) {
	def := unitsDef()
	vanilla := pack.New(pack.PFH5, pack.Release)
	vanilla.Insert(unitsFile("db/units_tables/data__", def, [][]table.Cell{
		{{Type: schema.StringU8, Str: "unit_a"}, {Type: schema.StringU8, Str: "infantry"}},
		{{Type: schema.StringU8, Str: "unit_b"}, {Type: schema.StringU8, Str: "cavalry"}},
	}))

	d := New()
	d.vanillaPacks = vanilla

	got := d.DBValuesFromTableNameAndColumnName(nil, "units_tables", "category", true, false)
	if !got["infantry"] || !got["cavalry"] || len(got) != 2 {
		t.Fatalf("unexpected values: %+v", got)
	}
}

func TestDBVersionLooksUpVanillaOnly(t *testing.T) {
	def := unitsDef()
	vanilla := pack.New(pack.PFH5, pack.Release)
	f := unitsFile("db/units_tables/data__", def, nil)
	vanilla.Insert(f)

	d := New()
	d.vanillaPacks = vanilla

	v, ok := d.DBVersion("units_tables")
	if !ok || v != 1 {
		t.Fatalf("DBVersion = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := d.DBVersion("missing_table"); ok {
		t.Fatal("expected DBVersion to report false for an unknown table")
	}
}

func TestDBReferenceDataUsesCache(t *testing.T) {
	def := &schema.Definition{
		Version: 1,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "unit_key", Type: schema.StringU8, ReferenceTo: &schema.Reference{Table: "units_tables", Column: "key"}},
		},
	}
	unitsTableDef := unitsDef()
	vanilla := pack.New(pack.PFH5, pack.Release)
	vanilla.Insert(unitsFile("db/units_tables/data__", unitsTableDef, [][]table.Cell{
		{{Type: schema.StringU8, Str: "unit_a"}, {Type: schema.StringU8, Str: "infantry"}},
	}))

	d := New()
	d.vanillaPacks = vanilla

	refs, err := d.DBReferenceData(nil, "main_units_tables", def)
	if err != nil {
		t.Fatalf("DBReferenceData: %v", err)
	}
	if refs[1] == nil || !refs[1].Values["unit_a"] {
		t.Fatalf("expected field 1 to reference unit_a, got %+v", refs)
	}

	// A second call for the same table should hit the cache path.
	refs2, err := d.DBReferenceData(nil, "main_units_tables", def)
	if err != nil {
		t.Fatalf("DBReferenceData (cached): %v", err)
	}
	if !refs2[1].Values["unit_a"] {
		t.Fatalf("cached lookup lost values: %+v", refs2)
	}
}
