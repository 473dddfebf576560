package record

import (
	"errors"
	"math"

	"github.com/tuannm99/novaquery/internal/alias/bx"
)

var (
	ErrBadBuffer       = errors.New("rowcodec: buffer underflow/overflow")
	ErrVarTooLong      = errors.New("rowcodec: variable length exceeds u16")
	ErrUnsupportedKind = errors.New("rowcodec: unsupported field kind")
)

const flagInvalid = 1

// AppendTuple encodes t onto buf.
// Format:
// [flags u8] [width u8] then per field: [kind u8] [payload]
// KindInt payload: i32 LE. KindStr payload: u16 length (LE) + data.
func AppendTuple(buf []byte, t Tuple) ([]byte, error) {
	if len(t.Fields) > math.MaxUint8 {
		return nil, ErrVarTooLong
	}
	var flags byte
	if t.Invalid {
		flags |= flagInvalid
	}
	buf = append(buf, flags, byte(len(t.Fields)))

	for _, f := range t.Fields {
		buf = append(buf, byte(f.kind))
		switch f.kind {
		case KindInvalid:
		case KindInt:
			buf = bx.AppendI32(buf, f.i)
		case KindStr:
			if len(f.s) > math.MaxUint16 {
				return nil, ErrVarTooLong
			}
			buf = bx.AppendU16(buf, uint16(len(f.s)))
			buf = append(buf, f.s...)
		default:
			return nil, ErrUnsupportedKind
		}
	}
	return buf, nil
}

// DecodeTuple reads one tuple from buf and returns the bytes consumed.
func DecodeTuple(buf []byte) (Tuple, int, error) {
	if len(buf) < 2 {
		return Tuple{}, 0, ErrBadBuffer
	}
	t := Tuple{Invalid: buf[0]&flagInvalid != 0}
	width := int(buf[1])
	i := 2

	t.Fields = make([]Field, width)
	for n := 0; n < width; n++ {
		if i >= len(buf) {
			return Tuple{}, 0, ErrBadBuffer
		}
		kind := Kind(buf[i])
		i++

		switch kind {
		case KindInvalid:
			t.Fields[n] = Invalid()
		case KindInt:
			if i+4 > len(buf) {
				return Tuple{}, 0, ErrBadBuffer
			}
			t.Fields[n] = Int(bx.I32At(buf, i))
			i += 4
		case KindStr:
			if i+2 > len(buf) {
				return Tuple{}, 0, ErrBadBuffer
			}
			l := int(bx.U16At(buf, i))
			i += 2
			if i+l > len(buf) {
				return Tuple{}, 0, ErrBadBuffer
			}
			t.Fields[n] = Str(string(buf[i : i+l]))
			i += l
		default:
			return Tuple{}, 0, ErrUnsupportedKind
		}
	}
	return t, i, nil
}
