package join

import (
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/internal/storage"
)

// Concat joins two tuples left then right. ok is false when either side is a
// hole. A result wider than a block is an error, never a silent drop.
func Concat(a, b record.Tuple) (record.Tuple, bool, error) {
	if a.Invalid || b.Invalid {
		return record.Tuple{}, false, nil
	}
	w := a.Width() + b.Width()
	if w > storage.FieldsPerBlock {
		return record.Tuple{}, false, sqlerr.RowTooWide(w, storage.FieldsPerBlock)
	}
	fs := make([]record.Field, 0, w)
	fs = append(fs, a.Fields...)
	fs = append(fs, b.Fields...)
	return record.Tuple{Fields: fs}, true, nil
}

// JoinedSchema qualifies each side by its table and concatenates them.
func JoinedSchema(left, right Input) (record.Schema, error) {
	w := left.Rel.Schema().NumCols() + right.Rel.Schema().NumCols()
	if w > storage.FieldsPerBlock {
		return record.Schema{}, sqlerr.RowTooWide(w, storage.FieldsPerBlock)
	}
	return left.qualified().Concat(right.qualified()), nil
}
