package fields

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// MutableASCIIFlyweight writes ASCII values into a wrapped buffer.
//
// Every Put method takes the offset to write at and returns the offset just
// past what it wrote. When a write does not fit, nothing is written, the
// offset is returned unchanged and ErrBufferTooSmall sticks in Err until
// the next Wrap. Encoders chain offsets freely and check Err once at the
// end.
//
// Performance: numbers are formatted into a stack scratch array, never
// through fmt.
type MutableASCIIFlyweight struct {
	buf []byte
	err error
}

// NewMutableASCIIFlyweight wraps buf
func NewMutableASCIIFlyweight(buf []byte) *MutableASCIIFlyweight {
	return &MutableASCIIFlyweight{buf: buf}
}

// Wrap points the flyweight at buf and clears any sticky error
func (f *MutableASCIIFlyweight) Wrap(buf []byte) {
	f.buf = buf
	f.err = nil
}

// Buffer returns the wrapped buffer
func (f *MutableASCIIFlyweight) Buffer() []byte { return f.buf }

// Len returns the capacity available for writing
func (f *MutableASCIIFlyweight) Len() int { return len(f.buf) }

// Err returns the first write failure since Wrap
func (f *MutableASCIIFlyweight) Err() error { return f.err }

func (f *MutableASCIIFlyweight) fits(offset, n int) bool {
	if f.err != nil {
		return false
	}
	if offset < 0 || offset+n > len(f.buf) {
		f.err = ErrBufferTooSmall
		return false
	}
	return true
}

// PutByte writes a single byte
func (f *MutableASCIIFlyweight) PutByte(offset int, b byte) int {
	if !f.fits(offset, 1) {
		return offset
	}
	f.buf[offset] = b
	return offset + 1
}

// PutBytes writes b verbatim
func (f *MutableASCIIFlyweight) PutBytes(offset int, b []byte) int {
	if !f.fits(offset, len(b)) {
		return offset
	}
	return offset + copy(f.buf[offset:], b)
}

// PutString writes s verbatim
func (f *MutableASCIIFlyweight) PutString(offset int, s string) int {
	if !f.fits(offset, len(s)) {
		return offset
	}
	return offset + copy(f.buf[offset:], s)
}

// PutNatural writes a non-negative integer; negative values are written
// with their sign.
func (f *MutableASCIIFlyweight) PutNatural(offset int, v int) int {
	return f.PutInt(offset, int64(v))
}

// PutInt writes a signed decimal integer
func (f *MutableASCIIFlyweight) PutInt(offset int, v int64) int {
	var scratch [20]byte
	return f.PutBytes(offset, strconv.AppendInt(scratch[:0], v, 10))
}

// PutIntPadded writes v left-padded with zeros to width digits
func (f *MutableASCIIFlyweight) PutIntPadded(offset int, v, width int) int {
	if !f.fits(offset, width) {
		return offset
	}
	for i := offset + width - 1; i >= offset; i-- {
		f.buf[i] = byte('0' + v%10)
		v /= 10
	}
	return offset + width
}

// PutDecimal writes d in plain notation without an exponent
func (f *MutableASCIIFlyweight) PutDecimal(offset int, d decimal.Decimal) int {
	return f.PutString(offset, d.String())
}

// PutBool writes Y or N
func (f *MutableASCIIFlyweight) PutBool(offset int, v bool) int {
	if v {
		return f.PutByte(offset, Yes)
	}
	return f.PutByte(offset, No)
}

// PutTime writes t in format. UTC formats convert t to UTC first;
// LocalMktDate is written in t's own location.
func (f *MutableASCIIFlyweight) PutTime(offset int, t time.Time, format TimeFormat) int {
	if format.UTC() {
		t = t.UTC()
	}
	var scratch [32]byte
	return f.PutBytes(offset, t.AppendFormat(scratch[:0], format.Layout()))
}

// PutUTCTimestamp writes YYYYMMDD-HH:MM:SS.sss
func (f *MutableASCIIFlyweight) PutUTCTimestamp(offset int, t time.Time) int {
	return f.PutTime(offset, t, UTCTimestamp)
}

// PutUTCTimeOnly writes HH:MM:SS.sss
func (f *MutableASCIIFlyweight) PutUTCTimeOnly(offset int, t time.Time) int {
	return f.PutTime(offset, t, UTCTimeOnly)
}

// PutUTCDateOnly writes YYYYMMDD
func (f *MutableASCIIFlyweight) PutUTCDateOnly(offset int, t time.Time) int {
	return f.PutTime(offset, t, UTCDateOnly)
}

// PutLocalMktDate writes YYYYMMDD in the market's local date
func (f *MutableASCIIFlyweight) PutLocalMktDate(offset int, t time.Time) int {
	return f.PutTime(offset, t, LocalMktDate)
}

// PutTag writes "tag="
func (f *MutableASCIIFlyweight) PutTag(offset, tag int) int {
	offset = f.PutInt(offset, int64(tag))
	return f.PutByte(offset, Equals)
}

func (f *MutableASCIIFlyweight) end(offset int) int {
	return f.PutByte(offset, SOH)
}

// PutBytesField writes "tag=value<SOH>"
func (f *MutableASCIIFlyweight) PutBytesField(offset, tag int, v []byte) int {
	return f.end(f.PutBytes(f.PutTag(offset, tag), v))
}

// PutStringField writes "tag=value<SOH>"
func (f *MutableASCIIFlyweight) PutStringField(offset, tag int, v string) int {
	return f.end(f.PutString(f.PutTag(offset, tag), v))
}

// PutCharField writes "tag=c<SOH>"
func (f *MutableASCIIFlyweight) PutCharField(offset, tag int, v byte) int {
	return f.end(f.PutByte(f.PutTag(offset, tag), v))
}

// PutIntField writes "tag=n<SOH>"
func (f *MutableASCIIFlyweight) PutIntField(offset, tag int, v int64) int {
	return f.end(f.PutInt(f.PutTag(offset, tag), v))
}

// PutDecimalField writes "tag=d<SOH>"
func (f *MutableASCIIFlyweight) PutDecimalField(offset, tag int, v decimal.Decimal) int {
	return f.end(f.PutDecimal(f.PutTag(offset, tag), v))
}

// PutBoolField writes "tag=Y<SOH>" or "tag=N<SOH>"
func (f *MutableASCIIFlyweight) PutBoolField(offset, tag int, v bool) int {
	return f.end(f.PutBool(f.PutTag(offset, tag), v))
}

// PutTimeField writes "tag=<t in format><SOH>"
func (f *MutableASCIIFlyweight) PutTimeField(offset, tag int, t time.Time, format TimeFormat) int {
	return f.end(f.PutTime(f.PutTag(offset, tag), t, format))
}

// PutChecksumField writes "10=NNN<SOH>" with sum zero padded to three digits
func (f *MutableASCIIFlyweight) PutChecksumField(offset, sum int) int {
	offset = f.PutTag(offset, 10)
	offset = f.PutIntPadded(offset, sum&0xFF, 3)
	return f.end(offset)
}

// Move copies length bytes from src to dst within the buffer. The ranges
// may overlap.
func (f *MutableASCIIFlyweight) Move(dst, src, length int) {
	if f.err != nil {
		return
	}
	if dst < 0 || src < 0 || dst+length > len(f.buf) || src+length > len(f.buf) {
		f.err = ErrBufferTooSmall
		return
	}
	copy(f.buf[dst:dst+length], f.buf[src:src+length])
}

// Checksum returns the checksum of buf[from:to]
func (f *MutableASCIIFlyweight) Checksum(from, to int) int {
	return Checksum(f.buf[from:to])
}
