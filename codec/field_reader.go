package codec

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"fix-gateway/fields"
)

// FieldReader walks tag=value pairs in buf[offset:offset+length]. It never
// copies; Value returns a view into the underlying buffer.
//
// Unread steps back one field so that group parsing can hand a tag it
// does not own back to the enclosing aggregate.
type FieldReader struct {
	r    fields.ASCIIFlyweight
	pos  int
	end  int
	prev int

	tag    int
	valOff int
	valLen int

	// length of the next value when it is a data field, -1 otherwise
	dataLen int
}

// NewFieldReader creates a reader over buf[offset:offset+length]
func NewFieldReader(buf []byte, offset, length int) *FieldReader {
	r := &FieldReader{}
	r.Reset(buf, offset, length)
	return r
}

// Reset points the reader at a new range
func (r *FieldReader) Reset(buf []byte, offset, length int) {
	r.r.Wrap(buf)
	r.pos = offset
	r.prev = offset
	r.end = offset + length
	r.tag = 0
	r.valOff = 0
	r.valLen = 0
	r.dataLen = -1
}

// Next advances to the next field. It returns false once the range is
// exhausted.
func (r *FieldReader) Next() (bool, error) {
	if r.pos >= r.end {
		return false, nil
	}
	eq := r.r.Scan(r.pos, r.end, fields.Equals)
	if eq < 0 {
		return false, xerrors.Errorf("no '=' after offset %d: %w", r.pos, ErrTruncated)
	}
	tag, err := r.r.GetNatural(r.pos, eq-r.pos)
	if err != nil {
		return false, xerrors.Errorf("tag at offset %d: %w", r.pos, err)
	}

	valOff := eq + 1
	var soh int
	if r.dataLen >= 0 {
		soh = valOff + r.dataLen
		if soh >= r.end || r.r.GetByte(soh) != fields.SOH {
			return false, xerrors.Errorf("data field %d shorter than %d bytes: %w", tag, r.dataLen, ErrTruncated)
		}
		r.dataLen = -1
	} else {
		soh = r.r.Scan(valOff, r.end, fields.SOH)
		if soh < 0 {
			return false, xerrors.Errorf("field %d is not terminated: %w", tag, ErrTruncated)
		}
	}

	r.prev = r.pos
	r.pos = soh + 1
	r.tag = tag
	r.valOff = valOff
	r.valLen = soh - valOff
	return true, nil
}

// Unread rewinds to the start of the current field so the next call to
// Next returns it again. Only one step of history is kept.
func (r *FieldReader) Unread() {
	r.pos = r.prev
}

// ExpectData declares that the next value is exactly n raw bytes, which
// may themselves contain SOH.
func (r *FieldReader) ExpectData(n int) {
	r.dataLen = n
}

// Tag returns the current field's tag
func (r *FieldReader) Tag() int { return r.tag }

// ValueOffset returns the absolute offset of the current value
func (r *FieldReader) ValueOffset() int { return r.valOff }

// ValueLength returns the length of the current value
func (r *FieldReader) ValueLength() int { return r.valLen }

// Value returns a view of the current value
func (r *FieldReader) Value() []byte { return r.r.Bytes(r.valOff, r.valLen) }

// Position returns the offset of the next unread field
func (r *FieldReader) Position() int { return r.pos }

// Buffer returns the underlying buffer
func (r *FieldReader) Buffer() []byte { return r.r.Buffer() }

// ValueEquals reports whether the current value equals s
func (r *FieldReader) ValueEquals(s string) bool {
	return r.valLen == len(s) && string(r.Value()) == s
}

// Natural parses the current value as an unsigned integer
func (r *FieldReader) Natural() (int, error) {
	return r.r.GetNatural(r.valOff, r.valLen)
}

// Int parses the current value as a signed integer
func (r *FieldReader) Int() (int64, error) {
	return r.r.GetInt(r.valOff, r.valLen)
}

// Decimal parses the current value as a FIX float
func (r *FieldReader) Decimal() (decimal.Decimal, error) {
	return r.r.GetDecimal(r.valOff, r.valLen)
}

// Bool parses the current value as Y or N
func (r *FieldReader) Bool() (bool, error) {
	return r.r.GetBool(r.valOff, r.valLen)
}

// Char returns the single byte value
func (r *FieldReader) Char() (byte, error) {
	if r.valLen != 1 {
		return 0, xerrors.Errorf("field %d has %d bytes: %w", r.tag, r.valLen, ErrTypeMismatch)
	}
	return r.r.GetByte(r.valOff), nil
}

// Time parses the current value in format
func (r *FieldReader) Time(format fields.TimeFormat) (time.Time, error) {
	return r.r.GetTime(r.valOff, r.valLen, format, nil)
}
