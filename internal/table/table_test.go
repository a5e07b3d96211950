package table

import (
	"testing"

	"github.com/saferwall/packfile/internal/schema"
)

func sampleDefinition() *schema.Definition {
	return &schema.Definition{
		Version: 7,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU8, IsKey: true},
			{Name: "faction", Type: schema.StringU8},
			{Name: "cost", Type: schema.I32},
			{Name: "is_unique", Type: schema.Boolean},
		},
		LocalisedKeyOrder: []int{0},
	}
}

func sampleTable() *Table {
	def := sampleDefinition()
	return &Table{
		Definition: def,
		TableName:  "units_tables",
		Rows: [][]Cell{
			{{Type: schema.StringU8, Str: "unit_a"}, {Type: schema.StringU8, Str: "faction_a"}, {Type: schema.I32, I32: 100}, {Type: schema.Boolean, Bool: false}},
			{{Type: schema.StringU8, Str: "unit_b"}, {Type: schema.StringU8, Str: "faction_b"}, {Type: schema.I32, I32: 250}, {Type: schema.Boolean, Bool: true}},
		},
	}
}

func TestDBRoundTrip(t *testing.T) {
	def := sampleDefinition()
	db := &DB{
		Table:          sampleTable(),
		HasVersion:     true,
		MysteriousByte: 1,
	}

	encoded, err := EncodeDB(db)
	if err != nil {
		t.Fatalf("EncodeDB: %v", err)
	}

	decoded, err := DecodeDB(encoded, "units_tables", func(v int32) *schema.Definition {
		if v == def.Version {
			return def
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DecodeDB: %v", err)
	}

	if len(decoded.Table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(decoded.Table.Rows))
	}
	if decoded.Table.Rows[1][2].I32 != 250 {
		t.Fatalf("row 1 cost = %d, want 250", decoded.Table.Rows[1][2].I32)
	}
	if decoded.MysteriousByte != 1 {
		t.Fatalf("MysteriousByte = %d, want 1", decoded.MysteriousByte)
	}
}

func TestDBWithGUIDAndVersionHeader(t *testing.T) {
	def := sampleDefinition()
	db := &DB{
		Table:          sampleTable(),
		GUID:           "some-guid",
		HasGUID:        true,
		HasVersion:     true,
		MysteriousByte: 1,
	}
	encoded, err := EncodeDB(db)
	if err != nil {
		t.Fatalf("EncodeDB: %v", err)
	}
	decoded, err := DecodeDB(encoded, "units_tables", func(v int32) *schema.Definition {
		if v == def.Version {
			return def
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DecodeDB: %v", err)
	}
	if decoded.GUID != "some-guid" {
		t.Fatalf("GUID = %q, want %q", decoded.GUID, "some-guid")
	}
}

func TestDBUnknownVersionFails(t *testing.T) {
	db := &DB{Table: sampleTable(), HasVersion: true, MysteriousByte: 1}
	encoded, err := EncodeDB(db)
	if err != nil {
		t.Fatalf("EncodeDB: %v", err)
	}
	_, err = DecodeDB(encoded, "units_tables", func(int32) *schema.Definition { return nil })
	if err == nil {
		t.Fatal("expected ErrNoDefinition")
	}
}

func TestLocRoundTrip(t *testing.T) {
	t1 := &Table{
		Definition: locDefinition,
		TableName:  "loc",
		Rows: [][]Cell{
			{{Type: schema.StringU16, Str: "unit_a_onscreen"}, {Type: schema.StringU16, Str: "Unit A"}, {Type: schema.Boolean, Bool: false}},
		},
	}
	encoded, err := EncodeLoc(t1)
	if err != nil {
		t.Fatalf("EncodeLoc: %v", err)
	}
	decoded, err := DecodeLoc(encoded)
	if err != nil {
		t.Fatalf("DecodeLoc: %v", err)
	}
	if decoded.Rows[0][1].Str != "Unit A" {
		t.Fatalf("got %q, want %q", decoded.Rows[0][1].Str, "Unit A")
	}
}

func TestTSVRoundTrip(t *testing.T) {
	tbl := sampleTable()
	tsv := ExportTSV(tbl, ColumnOrderCanonical)

	imported, err := ImportTSV(tsv, tbl.Definition, tbl.TableName)
	if err != nil {
		t.Fatalf("ImportTSV: %v", err)
	}
	if len(imported.Rows) != len(tbl.Rows) {
		t.Fatalf("got %d rows, want %d", len(imported.Rows), len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		for j, cell := range row {
			if imported.Rows[i][j].Text() != cell.Text() {
				t.Fatalf("row %d col %d: got %q want %q", i, j, imported.Rows[i][j].Text(), cell.Text())
			}
		}
	}
}

func TestTSVImportWrongTableNameFails(t *testing.T) {
	tbl := sampleTable()
	tsv := ExportTSV(tbl, ColumnOrderCanonical)
	_, err := ImportTSV(tsv, tbl.Definition, "wrong_table")
	if err == nil {
		t.Fatal("expected ErrNoDefinition for mismatched table name")
	}
}

func TestMergeDedupsByKey(t *testing.T) {
	def := sampleDefinition()
	a := &Table{Definition: def, TableName: "units_tables", Rows: [][]Cell{
		{{Type: schema.StringU8, Str: "unit_a"}, {Type: schema.StringU8, Str: "f1"}, {Type: schema.I32, I32: 1}, {Type: schema.Boolean}},
	}}
	b := &Table{Definition: def, TableName: "units_tables", Rows: [][]Cell{
		{{Type: schema.StringU8, Str: "unit_a"}, {Type: schema.StringU8, Str: "f2-should-be-ignored"}, {Type: schema.I32, I32: 2}, {Type: schema.Boolean}},
		{{Type: schema.StringU8, Str: "unit_b"}, {Type: schema.StringU8, Str: "f2"}, {Type: schema.I32, I32: 3}, {Type: schema.Boolean}},
	}}

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(merged.Rows))
	}
	if merged.Rows[0][1].Str != "f1" {
		t.Fatalf("first-occurrence row overwritten: got %q", merged.Rows[0][1].Str)
	}
}

func TestCellTextEscaping(t *testing.T) {
	c := Cell{Type: schema.StringU8, Str: "a\tb\nc\\d"}
	text := c.Text()
	parsed, err := ParseCellText(schema.StringU8, text)
	if err != nil {
		t.Fatalf("ParseCellText: %v", err)
	}
	if parsed.Str != c.Str {
		t.Fatalf("got %q, want %q", parsed.Str, c.Str)
	}
}
