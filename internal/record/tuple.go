package record

import "strings"

// Tuple is one row. Invalid tuples are holes left behind by DELETE.
type Tuple struct {
	Fields  []Field
	Invalid bool
}

func NewTuple(fields ...Field) Tuple { return Tuple{Fields: fields} }

func (t Tuple) Width() int { return len(t.Fields) }

func (t Tuple) Clone() Tuple {
	fs := make([]Field, len(t.Fields))
	copy(fs, t.Fields)
	return Tuple{Fields: fs, Invalid: t.Invalid}
}

// Project picks fields by position.
func (t Tuple) Project(idx []int) []Field {
	out := make([]Field, len(idx))
	for i, j := range idx {
		out[i] = t.Fields[j]
	}
	return out
}

// EqualOn reports whether t and o agree on every position in idx.
func (t Tuple) EqualOn(o Tuple, idx []int) bool {
	for _, j := range idx {
		if !t.Fields[j].Equal(o.Fields[j]) {
			return false
		}
	}
	return true
}

// CompareOn compares lexicographically over idx.
func (t Tuple) CompareOn(o Tuple, idx []int) int {
	for _, j := range idx {
		if c := t.Fields[j].Compare(o.Fields[j]); c != 0 {
			return c
		}
	}
	return 0
}

func (t Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	s := "(" + strings.Join(parts, ", ") + ")"
	if t.Invalid {
		s += "!"
	}
	return s
}
