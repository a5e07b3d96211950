// Package table implements the DB and Loc typed payloads: schema-driven
// row/column tables sharing one cell model and one TSV import/export
// dialect.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saferwall/packfile/internal/schema"
)

// Cell is the closed set of typed values a table row can hold. Exactly
// one of the fields below is meaningful for a given cell, selected by the
// owning Field's type.
type Cell struct {
	Type     schema.FieldType
	Bool     bool
	F32      float32
	F64      float64
	I16      int16
	I32      int32
	I64      int64
	ColourU32 uint32
	Str      string
	Sequence *Table
}

// Text renders a cell in the TSV dialect's canonical text form: booleans
// as true|false, floats with full precision, strings verbatim (the TSV
// writer is responsible for escaping \t and \n).
func (c Cell) Text() string {
	switch c.Type {
	case schema.Boolean:
		if c.Bool {
			return "true"
		}
		return "false"
	case schema.F32:
		return strconv.FormatFloat(float64(c.F32), 'g', -1, 32)
	case schema.F64:
		return strconv.FormatFloat(c.F64, 'g', -1, 64)
	case schema.I16:
		return strconv.FormatInt(int64(c.I16), 10)
	case schema.I32:
		return strconv.FormatInt(int64(c.I32), 10)
	case schema.I64:
		return strconv.FormatInt(c.I64, 10)
	case schema.ColourRGB:
		return fmt.Sprintf("%06X", c.ColourU32&0xFFFFFF)
	case schema.StringU8, schema.StringU16, schema.OptionalStringU8, schema.OptionalStringU16:
		return escapeTSV(c.Str)
	default:
		return ""
	}
}

// ParseCellText parses a TSV-dialect text value into a Cell of the given
// type. It is the inverse of Cell.Text for every primitive type.
func ParseCellText(t schema.FieldType, text string) (Cell, error) {
	text = unescapeTSV(text)
	switch t {
	case schema.Boolean:
		switch text {
		case "true":
			return Cell{Type: t, Bool: true}, nil
		case "false":
			return Cell{Type: t, Bool: false}, nil
		default:
			return Cell{}, fmt.Errorf("%w: %q", ErrNotABooleanValue, text)
		}
	case schema.F32:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, F32: float32(v)}, nil
	case schema.F64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, F64: v}, nil
	case schema.I16:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, I16: int16(v)}, nil
	case schema.I32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, I32: int32(v)}, nil
	case schema.I64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, I64: v}, nil
	case schema.ColourRGB:
		v, err := strconv.ParseUint(text, 16, 32)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Type: t, ColourU32: uint32(v)}, nil
	case schema.StringU8, schema.StringU16, schema.OptionalStringU8, schema.OptionalStringU16:
		return Cell{Type: t, Str: text}, nil
	default:
		return Cell{}, fmt.Errorf("table: unsupported cell type %v for text parsing", t)
	}
}

func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func unescapeTSV(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
