// Package sqlerr holds the error taxonomy every statement reports through.
//
// Errors are built with cockroachdb/errors and marked with one of the
// sentinels below, so callers classify them with errors.Is regardless of how
// many layers wrapped them on the way up.
package sqlerr

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrMalformedPredicate = errors.New("malformed predicate")
	ErrUnknownRelation    = errors.New("unknown relation")
	ErrRowTooWide         = errors.New("row too wide")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrDivisionByZero     = errors.New("division by zero")

	ErrDuplicateRelation = errors.New("relation already exists")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrSyntax            = errors.New("syntax error")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrMalformedPredicate, "MalformedPredicate"},
	{ErrUnknownRelation, "UnknownRelation"},
	{ErrRowTooWide, "RowTooWide"},
	{ErrTypeMismatch, "TypeMismatch"},
	{ErrDivisionByZero, "DivisionByZero"},
	{ErrDuplicateRelation, "DuplicateRelation"},
	{ErrUnknownColumn, "UnknownColumn"},
	{ErrSyntax, "Syntax"},
}

func Malformed(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedPredicate)
}

func UnknownRelation(name string) error {
	return errors.Mark(errors.Newf("relation %q does not exist", name), ErrUnknownRelation)
}

func DuplicateRelation(name string) error {
	return errors.Mark(errors.Newf("relation %q already exists", name), ErrDuplicateRelation)
}

// UnknownColumn reports a reference that names no column, or more than one.
func UnknownColumn(ref, why string) error {
	return errors.Mark(errors.Newf("column %q %s", ref, why), ErrUnknownColumn)
}

func RowTooWide(width, limit int) error {
	return errors.Mark(errors.Newf("row of %d fields exceeds block capacity of %d", width, limit), ErrRowTooWide)
}

func TypeMismatch(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrTypeMismatch)
}

func DivisionByZero(expr string) error {
	return errors.Mark(errors.Newf("division by zero in %q", expr), ErrDivisionByZero)
}

func Syntax(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrSyntax)
}

// Code returns the taxonomy name of err, or "Error" when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Error"
}
