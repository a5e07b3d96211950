package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saferwall/packfile/internal/schema"
)

// ColumnOrder selects how ExportTSV orders the header row: canonical
// field order, or key columns first (the historical order, kept behind a
// setting for compatibility with older TSV files).
type ColumnOrder int

const (
	ColumnOrderCanonical ColumnOrder = iota
	ColumnOrderKeyFirst
)

// ExportTSV renders t as the TSV dialect: a metadata comment on line 0, a
// header row on line 1, then one data row per line.
func ExportTSV(t *Table, order ColumnOrder) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%s\t%d\t%d\n", t.TableName, t.Definition.Version, int(order))

	columns := columnOrder(t.Definition, order)
	names := make([]string, len(columns))
	for i, idx := range columns {
		names[i] = t.Definition.Fields[idx].Name
	}
	b.WriteString(strings.Join(names, "\t"))
	b.WriteByte('\n')

	for _, row := range t.Rows {
		cells := make([]string, len(columns))
		for i, idx := range columns {
			cells[i] = row[idx].Text()
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// ImportTSV parses tsv back into a Table using def to type each column.
// The table_name/version recorded in the metadata comment must match def;
// otherwise ImportTSV fails with ErrNoDefinition rather than
// best-effort-guessing a layout.
func ImportTSV(tsv string, def *schema.Definition, tableName string) (*Table, error) {
	lines := strings.Split(strings.TrimRight(tsv, "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: expected at least a metadata and header line", ErrTSVParse)
	}

	meta := strings.Split(strings.TrimPrefix(lines[0], "#"), "\t")
	if len(meta) < 2 {
		return nil, fmt.Errorf("%w: malformed metadata comment %q", ErrTSVParse, lines[0])
	}
	if meta[0] != tableName {
		return nil, fmt.Errorf("%w: tsv names table %q, expected %q", ErrNoDefinition, meta[0], tableName)
	}
	version, err := strconv.Atoi(meta[1])
	if err != nil || int32(version) != def.Version {
		return nil, fmt.Errorf("%w: tsv version %q does not match definition v%d", ErrNoDefinition, meta[1], def.Version)
	}

	header := strings.Split(lines[1], "\t")
	columns := make([]int, len(header))
	for i, name := range header {
		idx := fieldIndex(def, name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: unknown column %q for table %q", ErrTSVParse, name, tableName)
		}
		columns[i] = idx
	}

	t := &Table{Definition: def, TableName: tableName}
	for lineNo, line := range lines[2:] {
		if line == "" {
			continue
		}
		values := strings.Split(line, "\t")
		if len(values) != len(columns) {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrTSVParse, lineNo+3, len(values), len(columns))
		}
		row := make([]Cell, len(def.Fields))
		for i, idx := range columns {
			cell, err := ParseCellText(def.Fields[idx].Type, values[i])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d, column %q: %w", ErrTSVParse, lineNo+3, header[i], err)
			}
			row[idx] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func columnOrder(def *schema.Definition, order ColumnOrder) []int {
	all := make([]int, len(def.Fields))
	for i := range def.Fields {
		all[i] = i
	}
	if order == ColumnOrderCanonical {
		return all
	}

	var keys, rest []int
	for _, i := range all {
		if def.Fields[i].IsKey {
			keys = append(keys, i)
		} else {
			rest = append(rest, i)
		}
	}
	return append(keys, rest...)
}

func fieldIndex(def *schema.Definition, name string) int {
	for i, f := range def.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
