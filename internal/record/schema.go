package record

import (
	"fmt"
	"strings"
)

type FieldType uint8

const (
	TypeInt FieldType = iota + 1
	TypeStr20
)

// MaxStrLen is the width of a STR20 column.
const MaxStrLen = 20

func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeStr20:
		return "STR20"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

func (t FieldType) Kind() Kind {
	switch t {
	case TypeInt:
		return KindInt
	case TypeStr20:
		return KindStr
	default:
		return KindInvalid
	}
}

// ParseFieldType maps a SQL type name to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER":
		return TypeInt, nil
	case "STR20", "STR", "VARCHAR(20)", "CHAR(20)":
		return TypeStr20, nil
	default:
		return 0, fmt.Errorf("unsupported field type: %s", s)
	}
}

type Column struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

type Schema struct {
	Cols []Column
}

func NewSchema(cols ...Column) (Schema, error) {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return Schema{}, fmt.Errorf("record: empty column name")
		}
		if _, dup := seen[c.Name]; dup {
			return Schema{}, fmt.Errorf("record: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return Schema{Cols: cols}, nil
}

func (s Schema) NumCols() int { return len(s.Cols) }

func (s Schema) Names() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of an exact column name, or -1.
func (s Schema) Index(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// Resolve finds ref in s. An exact match wins. An unqualified ref then matches
// a single "table.ref" column, and a qualified ref falls back to its bare
// field name. Ambiguous and missing refs return -1.
func (s Schema) Resolve(ref string) int {
	if i := s.Index(ref); i >= 0 {
		return i
	}
	if _, field, ok := SplitQualified(ref); ok {
		return s.Index(field)
	}
	found := -1
	for i, c := range s.Cols {
		if _, field, ok := SplitQualified(c.Name); ok && field == ref {
			if found >= 0 {
				return -1
			}
			found = i
		}
	}
	return found
}

// Qualify prefixes every unqualified column with "table.".
func (s Schema) Qualify(table string) Schema {
	cols := make([]Column, len(s.Cols))
	for i, c := range s.Cols {
		cols[i] = c
		if !strings.Contains(c.Name, ".") {
			cols[i].Name = table + "." + c.Name
		}
	}
	return Schema{Cols: cols}
}

// Concat returns the columns of s followed by the columns of o.
func (s Schema) Concat(o Schema) Schema {
	cols := make([]Column, 0, len(s.Cols)+len(o.Cols))
	cols = append(cols, s.Cols...)
	cols = append(cols, o.Cols...)
	return Schema{Cols: cols}
}

func (s Schema) String() string {
	parts := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		parts[i] = c.Name + " " + c.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SplitQualified splits "table.field".
func SplitQualified(ref string) (table, field string, ok bool) {
	i := strings.IndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return "", ref, false
	}
	return ref[:i], ref[i+1:], true
}
