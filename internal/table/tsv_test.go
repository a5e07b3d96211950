package table

import (
	"errors"
	"testing"

	"github.com/saferwall/packfile/internal/schema"
)

func TestExportImportTSVRoundTrip(t *testing.T) {
	def := sampleDefinition()
	tbl := sampleTable()
	tsv := ExportTSV(tbl, ColumnOrderCanonical)

	got, err := ImportTSV(tsv, def, tbl.TableName)
	if err != nil {
		t.Fatalf("ImportTSV: %v", err)
	}
	if len(got.Rows) != len(tbl.Rows) {
		t.Fatalf("got %d rows, want %d", len(got.Rows), len(tbl.Rows))
	}
	if got.Rows[0][0].Str != "unit_a" {
		t.Errorf("row 0 key = %q", got.Rows[0][0].Str)
	}
}

func TestImportTSVWrongTableNameFailsWithNoDefinition(t *testing.T) {
	def := sampleDefinition()
	tsv := ExportTSV(sampleTable(), ColumnOrderCanonical)
	_, err := ImportTSV(tsv, def, "wrong_table")
	if !errors.Is(err, ErrNoDefinition) {
		t.Fatalf("expected ErrNoDefinition, got %v", err)
	}
}

func TestImportTSVMalformedColumnCountFailsWithTSVParse(t *testing.T) {
	def := sampleDefinition()
	bad := "#units_tables\t7\t0\nkey\tfaction\tcost\tis_unique\nunit_a\tfaction_a\n"
	_, err := ImportTSV(bad, def, "units_tables")
	if !errors.Is(err, ErrTSVParse) {
		t.Fatalf("expected ErrTSVParse, got %v", err)
	}
}

func TestImportTSVBadBooleanFailsWithNotABooleanValue(t *testing.T) {
	def := sampleDefinition()
	bad := "#units_tables\t7\t0\nkey\tfaction\tcost\tis_unique\nunit_a\tfaction_a\t100\tmaybe\n"
	_, err := ImportTSV(bad, def, "units_tables")
	if !errors.Is(err, ErrNotABooleanValue) {
		t.Fatalf("expected ErrNotABooleanValue, got %v", err)
	}
}

func TestParseCellTextBoolean(t *testing.T) {
	if _, err := ParseCellText(schema.Boolean, "notabool"); !errors.Is(err, ErrNotABooleanValue) {
		t.Fatalf("expected ErrNotABooleanValue, got %v", err)
	}
	cell, err := ParseCellText(schema.Boolean, "true")
	if err != nil || !cell.Bool {
		t.Fatalf("ParseCellText(true) = %+v, %v", cell, err)
	}
}
