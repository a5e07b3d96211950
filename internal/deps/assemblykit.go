package deps

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

// akRow is the generic shape of a row in an Assembly-Kit raw table export:
// a flat bag of named fields, each holding its text value verbatim. CA's
// raw XML has no fixed schema of its own -- the field names are matched
// against the real schema.Definition by name at import time.
type akRow struct {
	XMLName xml.Name
	Fields  []akField `xml:",any"`
}

type akField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// loadAssemblyKitTables parses every raw_data/db/<table>/*.xml file under
// dir into a synthesized DB, skipping tables vanilla already provides
// when ignoreVanilla is set. Tables the schema has no definition for are
// silently skipped -- the AK snapshot routinely contains tables newer or
// older than what this toolkit's schema knows about.
func loadAssemblyKitTables(dir string, vanilla interface {
	Exists(string) bool
}, ignoreVanilla bool, sch *schema.Schema) (map[string]*table.DB, error) {
	out := map[string]*table.DB{}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tableName := entry.Name()
		if ignoreVanilla && vanillaHasTable(vanilla, tableName) {
			continue
		}

		defs := sch.DefinitionsByTableName(tableName)
		if len(defs) == 0 {
			continue
		}
		def := defs[0] // latest version; AK snapshots track the current game build

		rows, err := loadAKRows(filepath.Join(dir, tableName), def)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			continue
		}
		out[tableName] = &table.DB{
			Table:          &table.Table{Definition: def, TableName: tableName, Rows: rows},
			MysteriousByte: 1,
		}
	}
	return out, nil
}

func vanillaHasTable(vanilla interface{ Exists(string) bool }, tableName string) bool {
	return vanilla.Exists("db/" + tableName + "/data__")
}

// loadAKRows reads every *.xml file in tableDir and maps each <row> into a
// table.Cell slice ordered by def.Fields, using text-form parsing shared
// with the TSV importer so numeric/bool cells round-trip the same way.
func loadAKRows(tableDir string, def *schema.Definition) ([][]table.Cell, error) {
	files, err := filepath.Glob(filepath.Join(tableDir, "*.xml"))
	if err != nil {
		return nil, err
	}
	var rows [][]table.Cell
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc struct {
			Rows []akRow `xml:"row"`
		}
		if err := xml.Unmarshal(data, &doc); err != nil {
			continue // AK exports are frequently malformed for unsupported tables; skip rather than fail the whole rebuild
		}
		for _, akRow := range doc.Rows {
			row := make([]table.Cell, len(def.Fields))
			for i, f := range def.Fields {
				cell, err := table.ParseCellText(f.Type, lookupAKField(akRow, f.Name))
				if err != nil {
					cell = table.Cell{Type: f.Type}
				}
				row[i] = cell
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func lookupAKField(row akRow, name string) string {
	for _, f := range row.Fields {
		if strings.EqualFold(f.XMLName.Local, name) {
			return f.Value
		}
	}
	return ""
}
