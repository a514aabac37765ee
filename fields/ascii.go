package fields

import (
	"bytes"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

// ASCIIFlyweight reads ASCII values out of a wrapped buffer without
// copying it. Values are addressed by (offset, length).
type ASCIIFlyweight struct {
	buf []byte
}

// NewASCIIFlyweight wraps buf
func NewASCIIFlyweight(buf []byte) *ASCIIFlyweight {
	return &ASCIIFlyweight{buf: buf}
}

// Wrap points the flyweight at buf
func (f *ASCIIFlyweight) Wrap(buf []byte) { f.buf = buf }

// Buffer returns the wrapped buffer
func (f *ASCIIFlyweight) Buffer() []byte { return f.buf }

// Len returns the wrapped buffer length
func (f *ASCIIFlyweight) Len() int { return len(f.buf) }

// GetByte returns the byte at offset
func (f *ASCIIFlyweight) GetByte(offset int) byte { return f.buf[offset] }

// Scan returns the index of the first b in buf[from:to], or -1
func (f *ASCIIFlyweight) Scan(from, to int, b byte) int {
	if from < 0 || from >= to || to > len(f.buf) {
		return -1
	}
	i := bytes.IndexByte(f.buf[from:to], b)
	if i < 0 {
		return -1
	}
	return from + i
}

// Bytes returns a view of buf[offset:offset+length]. The view aliases the
// wrapped buffer.
func (f *ASCIIFlyweight) Bytes(offset, length int) []byte {
	return f.buf[offset : offset+length : offset+length]
}

// String copies buf[offset:offset+length] into a string
func (f *ASCIIFlyweight) String(offset, length int) string {
	return string(f.buf[offset : offset+length])
}

// GetNatural parses an unsigned decimal integer
func (f *ASCIIFlyweight) GetNatural(offset, length int) (int, error) {
	if length <= 0 {
		return 0, ErrMalformedNumber
	}
	v := 0
	for _, c := range f.buf[offset : offset+length] {
		if c < '0' || c > '9' {
			return 0, xerrors.Errorf("%q: %w", f.buf[offset:offset+length], ErrMalformedNumber)
		}
		v = v*10 + int(c-'0')
	}
	return v, nil
}

// GetInt parses a signed decimal integer
func (f *ASCIIFlyweight) GetInt(offset, length int) (int64, error) {
	if length <= 0 {
		return 0, ErrMalformedNumber
	}
	negative := f.buf[offset] == '-'
	if negative {
		offset++
		length--
	}
	v, err := f.GetNatural(offset, length)
	if err != nil {
		return 0, err
	}
	if negative {
		return -int64(v), nil
	}
	return int64(v), nil
}

// GetDecimal parses a FIX float
func (f *ASCIIFlyweight) GetDecimal(offset, length int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(f.String(offset, length))
	if err != nil {
		return decimal.Zero, xerrors.Errorf("%v: %w", err, ErrMalformedNumber)
	}
	return d, nil
}

// GetBool parses Y or N
func (f *ASCIIFlyweight) GetBool(offset, length int) (bool, error) {
	if length != 1 {
		return false, ErrMalformedBoolean
	}
	switch f.buf[offset] {
	case Yes:
		return true, nil
	case No:
		return false, nil
	}
	return false, xerrors.Errorf("%q: %w", f.buf[offset], ErrMalformedBoolean)
}

// GetTime parses a value written in format. UTC formats yield UTC times;
// LocalMktDate yields a date in loc, or UTC when loc is nil.
func (f *ASCIIFlyweight) GetTime(offset, length int, format TimeFormat, loc *time.Location) (time.Time, error) {
	if loc == nil || format.UTC() {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(format.parseLayout(), f.String(offset, length), loc)
	if err != nil {
		return time.Time{}, xerrors.Errorf("%v: %w", err, ErrMalformedTimestamp)
	}
	return t, nil
}

// GetUTCTimestamp parses YYYYMMDD-HH:MM:SS[.sss]
func (f *ASCIIFlyweight) GetUTCTimestamp(offset, length int) (time.Time, error) {
	return f.GetTime(offset, length, UTCTimestamp, nil)
}

// GetUTCTimeOnly parses HH:MM:SS[.sss]
func (f *ASCIIFlyweight) GetUTCTimeOnly(offset, length int) (time.Time, error) {
	return f.GetTime(offset, length, UTCTimeOnly, nil)
}

// GetUTCDateOnly parses YYYYMMDD
func (f *ASCIIFlyweight) GetUTCDateOnly(offset, length int) (time.Time, error) {
	return f.GetTime(offset, length, UTCDateOnly, nil)
}

// GetLocalMktDate parses YYYYMMDD in loc
func (f *ASCIIFlyweight) GetLocalMktDate(offset, length int, loc *time.Location) (time.Time, error) {
	return f.GetTime(offset, length, LocalMktDate, loc)
}
