package record

import (
	"cmp"
	"strconv"
	"strings"
)

type Kind uint8

const (
	// KindInvalid marks an absent value. It is distinct from every Int or Str.
	KindInvalid Kind = iota
	KindInt
	KindStr
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindStr:
		return "STR20"
	default:
		return "INVALID"
	}
}

// Field is a single typed value inside a Tuple.
type Field struct {
	kind Kind
	i    int32
	s    string
}

func Int(v int32) Field    { return Field{kind: KindInt, i: v} }
func Str(v string) Field   { return Field{kind: KindStr, s: v} }
func Invalid() Field       { return Field{} }
func (f Field) Kind() Kind { return f.kind }

func (f Field) IsValid() bool { return f.kind != KindInvalid }

// Int returns the integer payload; ok is false for any other kind.
func (f Field) Int() (int32, bool) { return f.i, f.kind == KindInt }

// Str returns the string payload; ok is false for any other kind.
func (f Field) Str() (string, bool) { return f.s, f.kind == KindStr }

// Text renders the payload. Invalid fields render as "null" for display only.
func (f Field) Text() string {
	switch f.kind {
	case KindInt:
		return strconv.FormatInt(int64(f.i), 10)
	case KindStr:
		return f.s
	default:
		return "null"
	}
}

// Value converts the field to a plain Go value for result rows.
func (f Field) Value() any {
	switch f.kind {
	case KindInt:
		return int64(f.i)
	case KindStr:
		return f.s
	default:
		return nil
	}
}

func (f Field) String() string {
	if f.kind == KindStr {
		return strconv.Quote(f.s)
	}
	return f.Text()
}

// Compare orders invalid fields first, then by kind, then by payload.
// Fields of one column share a kind, so the kind step only matters for nulls.
func (f Field) Compare(o Field) int {
	if c := cmp.Compare(f.kind, o.kind); c != 0 {
		return c
	}
	switch f.kind {
	case KindInt:
		return cmp.Compare(f.i, o.i)
	case KindStr:
		return strings.Compare(f.s, o.s)
	default:
		return 0
	}
}

func (f Field) Equal(o Field) bool { return f.Compare(o) == 0 }
