// Package fields reads and writes FIX tag=value encodings directly over
// byte buffers. Both flyweights wrap a caller-owned buffer and never copy
// it; offsets are absolute positions within that buffer.
package fields

import (
	"golang.org/x/xerrors"
)

var (
	ErrBufferTooSmall     = xerrors.New("buffer too small")
	ErrMalformedNumber    = xerrors.New("malformed number")
	ErrMalformedTimestamp = xerrors.New("malformed timestamp")
	ErrMalformedBoolean   = xerrors.New("malformed boolean")
)

const (
	// SOH terminates every field
	SOH byte = 0x01
	// Equals separates a tag from its value
	Equals byte = '='

	Yes byte = 'Y'
	No  byte = 'N'
)

// TimeFormat selects one of the FIX date/time encodings
type TimeFormat int

const (
	UTCTimestamp TimeFormat = iota
	UTCTimeOnly
	UTCDateOnly
	LocalMktDate
)

// Layouts used for rendering. Rendering always writes milliseconds;
// parsing accepts the value with or without fractional seconds.
const (
	UTCTimestampLayout = "20060102-15:04:05.000"
	UTCTimeOnlyLayout  = "15:04:05.000"
	DateLayout         = "20060102"
)

// Layout returns the rendering layout
func (tf TimeFormat) Layout() string {
	switch tf {
	case UTCTimestamp:
		return UTCTimestampLayout
	case UTCTimeOnly:
		return UTCTimeOnlyLayout
	}
	return DateLayout
}

// parseLayout drops the fractional part; time.Parse accepts fractional
// seconds after the seconds field regardless.
func (tf TimeFormat) parseLayout() string {
	switch tf {
	case UTCTimestamp:
		return "20060102-15:04:05"
	case UTCTimeOnly:
		return "15:04:05"
	}
	return DateLayout
}

// UTC reports whether values are normalised to UTC
func (tf TimeFormat) UTC() bool { return tf != LocalMktDate }

// Checksum returns the FIX checksum of buf: the byte sum modulo 256
func Checksum(buf []byte) int {
	var sum int
	for _, b := range buf {
		sum += int(b)
	}
	return sum & 0xFF
}
