package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// Context tells the evaluator how to resolve field references. Base is set
// when Schema belongs to a stored table rather than a join or pushdown
// result; qualified references are then stripped to the bare field name.
type Context struct {
	Relation string
	Base     bool
	Schema   record.Schema
}

// Lookup resolves a reference to a column position, or -1.
func (c Context) Lookup(ref string) int {
	if c.Base {
		if _, field, ok := record.SplitQualified(ref); ok {
			ref = field
		}
		return c.Schema.Index(ref)
	}
	return c.Schema.Resolve(ref)
}

// Value is an intermediate result of evaluation. Absent values come only
// from invalid fields and from arithmetic over them.
type Value struct {
	Text   string
	Absent bool
}

func (v Value) String() string {
	if v.Absent {
		return "<absent>"
	}
	return v.Text
}

func text(s string) Value { return Value{Text: s} }

func boolean(b bool) Value { return text(strconv.FormatBool(b)) }

// Evaluate returns the value of n against t. Unresolved tokens are returned
// as literals.
func Evaluate(ctx Context, t record.Tuple, n *Node) (Value, error) {
	if n.IsLeaf() {
		if n.Quoted {
			return text(n.Value), nil
		}
		if i := ctx.Lookup(n.Value); i >= 0 && i < len(t.Fields) {
			f := t.Fields[i]
			if !f.IsValid() {
				return Value{Absent: true}, nil
			}
			return text(f.Text()), nil
		}
		return text(n.Value), nil
	}

	l, err := Evaluate(ctx, t, n.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := Evaluate(ctx, t, n.Right)
	if err != nil {
		return Value{}, err
	}

	switch n.Value {
	case "&", "|":
		lb, err := parseBool(n, l)
		if err != nil {
			return Value{}, err
		}
		rb, err := parseBool(n, r)
		if err != nil {
			return Value{}, err
		}
		if n.Value == "&" {
			return boolean(lb && rb), nil
		}
		return boolean(lb || rb), nil
	}

	// An absent value compares false and turns arithmetic absent.
	if l.Absent || r.Absent {
		switch n.Value {
		case "=", ">", "<":
			return boolean(false), nil
		default:
			return Value{Absent: true}, nil
		}
	}

	switch n.Value {
	case "=":
		if isInteger(l.Text) {
			li, ri, err := ints(n, l.Text, r.Text)
			if err != nil {
				return Value{}, err
			}
			return boolean(li == ri), nil
		}
		return boolean(strings.EqualFold(l.Text, r.Text)), nil
	}

	li, ri, err := ints(n, l.Text, r.Text)
	if err != nil {
		return Value{}, err
	}
	switch n.Value {
	case ">":
		return boolean(li > ri), nil
	case "<":
		return boolean(li < ri), nil
	case "+", "-", "*", "/":
		return arith(n, li, ri)
	}
	return Value{}, sqlerr.Malformed("unknown operator %q", n.Value)
}

// arith keeps operands and results inside the INT column range.
func arith(n *Node, li, ri int64) (Value, error) {
	if !fitsInt32(li) || !fitsInt32(ri) {
		return Value{}, sqlerr.TypeMismatch("operand of %q is outside the INT range", n.String())
	}
	var v int64
	switch n.Value {
	case "+":
		v = li + ri
	case "-":
		v = li - ri
	case "*":
		v = li * ri
	case "/":
		if ri == 0 {
			return Value{}, sqlerr.DivisionByZero(n.String())
		}
		v = li / ri
	}
	if !fitsInt32(v) {
		return Value{}, sqlerr.TypeMismatch("%q overflows INT", n.String())
	}
	return text(strconv.FormatInt(v, 10)), nil
}

func fitsInt32(v int64) bool { return v >= math.MinInt32 && v <= math.MaxInt32 }

// Check evaluates n as a boolean. A nil tree accepts every tuple.
func Check(ctx Context, t record.Tuple, n *Node) (bool, error) {
	if n == nil {
		return true, nil
	}
	v, err := Evaluate(ctx, t, n)
	if err != nil {
		return false, err
	}
	return parseBool(n, v)
}

func parseBool(n *Node, v Value) (bool, error) {
	if !v.Absent {
		switch v.Text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, sqlerr.TypeMismatch("%s in %q is not a boolean", v, n.String())
}

func ints(n *Node, l, r string) (int64, int64, error) {
	li, err := strconv.ParseInt(l, 10, 64)
	if err != nil {
		return 0, 0, sqlerr.TypeMismatch("%q in %q is not an integer", l, n.String())
	}
	ri, err := strconv.ParseInt(r, 10, 64)
	if err != nil {
		return 0, 0, sqlerr.TypeMismatch("%q in %q is not an integer", r, n.String())
	}
	return li, ri, nil
}
