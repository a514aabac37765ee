package codec

import (
	"bytes"
	"strconv"

	"golang.org/x/xerrors"

	"fix-gateway/fields"
)

const (
	// TrailerLength is the size of "10=NNN<SOH>"
	TrailerLength = 7

	maxBodyLengthDigits = 10
	maxBeginStringScan  = 32
)

// PrefixReserve returns how many bytes an encoder leaves free ahead of the
// body for "8=<beginString><SOH>9=<length><SOH>".
func PrefixReserve(beginString string) int {
	return len("8=") + len(beginString) + 1 + len("9=") + maxBodyLengthDigits + 1
}

// BodyStart returns where an encoder writing a message at offset starts
// the body (the MsgType field).
func BodyStart(offset int, beginString string) int {
	return offset + PrefixReserve(beginString)
}

// FinishMessage frames a body already written at buf[bodyStart:bodyEnd].
// It writes BeginString and BodyLength immediately before the body, moves
// the message down to offset when the reserve was not fully used, and
// appends CheckSum. Returns the total message length.
func FinishMessage(w *fields.MutableASCIIFlyweight, offset, bodyStart, bodyEnd int, beginString string) (int, error) {
	if err := w.Err(); err != nil {
		return 0, err
	}

	var scratch [64]byte
	prefix := append(scratch[:0], "8="...)
	prefix = append(prefix, beginString...)
	prefix = append(prefix, fields.SOH, '9', '=')
	prefix = strconv.AppendInt(prefix, int64(bodyEnd-bodyStart), 10)
	prefix = append(prefix, fields.SOH)

	start := bodyStart - len(prefix)
	if start < offset {
		return 0, xerrors.Errorf("prefix of %d bytes does not fit: %w", len(prefix), fields.ErrBufferTooSmall)
	}
	w.PutBytes(start, prefix)
	if start != offset {
		w.Move(offset, start, bodyEnd-start)
	}
	end := offset + bodyEnd - start
	if err := w.Err(); err != nil {
		return 0, err
	}

	end = w.PutChecksumField(end, w.Checksum(offset, end))
	if err := w.Err(); err != nil {
		return 0, err
	}
	return end - offset, nil
}

// Frame locates the parts of one framed message inside a buffer. All
// offsets are absolute.
type Frame struct {
	Offset int
	Length int

	BeginStringOffset int
	BeginStringLength int
	BodyLength        int
	BodyStart         int
	BodyEnd           int
	MsgTypeOffset     int
	MsgTypeLength     int
	CheckSum          int
}

// BeginString returns a view of the BeginString value
func (f *Frame) BeginString(buf []byte) []byte {
	return buf[f.BeginStringOffset : f.BeginStringOffset+f.BeginStringLength]
}

// MsgType returns a view of the MsgType value
func (f *Frame) MsgType(buf []byte) []byte {
	return buf[f.MsgTypeOffset : f.MsgTypeOffset+f.MsgTypeLength]
}

// ScanFrame reports the length of the message starting at buf[offset],
// looking no further than offset+length. It returns 0 and no error while
// the message is still incomplete, and an error as soon as the bytes seen
// cannot start a valid message.
func ScanFrame(buf []byte, offset, length int) (int, error) {
	total, err := scanFrame(buf, offset, length)
	if err != nil || length < total {
		return 0, err
	}
	return total, nil
}

// DeclaredLength reports the full length of the message starting at
// buf[offset] as soon as its BodyLength has been read, complete or not.
// It returns 0 while BodyLength is still incomplete.
func DeclaredLength(buf []byte, offset, length int) (int, error) {
	return scanFrame(buf, offset, length)
}

// scanFrame returns the declared total once known. It only checks the
// CheckSum position when the whole message is in range.
func scanFrame(buf []byte, offset, length int) (int, error) {
	if offset < 0 || length < 0 || offset+length > len(buf) {
		return 0, xerrors.Errorf("range %d+%d of %d: %w", offset, length, len(buf), ErrTruncated)
	}
	end := offset + length
	if length < 2 {
		if length == 1 && buf[offset] != '8' {
			return 0, ErrBadBeginString
		}
		return 0, nil
	}
	if buf[offset] != '8' || buf[offset+1] != '=' {
		return 0, ErrBadBeginString
	}
	soh := bytes.IndexByte(buf[offset+2:end], fields.SOH)
	if soh < 0 {
		if length-2 > maxBeginStringScan {
			return 0, ErrBadBeginString
		}
		return 0, nil
	}

	p := offset + 2 + soh + 1
	if end-p < 2 {
		if end-p == 1 && buf[p] != '9' {
			return 0, ErrBadBodyLength
		}
		return 0, nil
	}
	if buf[p] != '9' || buf[p+1] != '=' {
		return 0, ErrBadBodyLength
	}
	soh = bytes.IndexByte(buf[p+2:end], fields.SOH)
	if soh < 0 {
		if end-p-2 > maxBodyLengthDigits {
			return 0, ErrBadBodyLength
		}
		return 0, nil
	}
	bodyLength, err := fields.NewASCIIFlyweight(buf).GetNatural(p+2, soh)
	if err != nil {
		return 0, xerrors.Errorf("body length %v: %w", err, ErrBadBodyLength)
	}

	bodyEnd := p + 2 + soh + 1 + bodyLength
	total := bodyEnd + TrailerLength - offset
	if length < total {
		return total, nil
	}
	if buf[bodyEnd] != '1' || buf[bodyEnd+1] != '0' || buf[bodyEnd+2] != '=' || buf[bodyEnd+6] != fields.SOH {
		return 0, xerrors.Errorf("no CheckSum at body end %d: %w", bodyEnd, ErrBadBodyLength)
	}
	return total, nil
}

// ParseFrame validates the framing of the message at buf[offset]: a
// leading BeginString matching beginString (any value when empty), a
// BodyLength that lands exactly on the CheckSum field, a correct CheckSum
// and MsgType as the first body field.
func ParseFrame(buf []byte, offset, length int, beginString string) (Frame, error) {
	total, err := ScanFrame(buf, offset, length)
	if err != nil {
		return Frame{}, err
	}
	if total == 0 {
		return Frame{}, ErrTruncated
	}

	r := fields.NewASCIIFlyweight(buf)
	f := Frame{Offset: offset, Length: total}

	f.BeginStringOffset = offset + 2
	f.BeginStringLength = r.Scan(f.BeginStringOffset, offset+total, fields.SOH) - f.BeginStringOffset
	if beginString != "" && string(f.BeginString(buf)) != beginString {
		return Frame{}, xerrors.Errorf("%q: %w", f.BeginString(buf), ErrBadBeginString)
	}

	lengthOffset := f.BeginStringOffset + f.BeginStringLength + 3
	lengthEnd := r.Scan(lengthOffset, offset+total, fields.SOH)
	f.BodyLength, _ = r.GetNatural(lengthOffset, lengthEnd-lengthOffset)
	f.BodyStart = lengthEnd + 1
	f.BodyEnd = f.BodyStart + f.BodyLength

	f.CheckSum, err = r.GetNatural(f.BodyEnd+3, 3)
	if err != nil {
		return Frame{}, xerrors.Errorf("checksum %v: %w", err, ErrBadChecksum)
	}
	if sum := fields.Checksum(buf[offset:f.BodyEnd]); sum != f.CheckSum {
		return Frame{}, xerrors.Errorf("computed %03d, declared %03d: %w", sum, f.CheckSum, ErrBadChecksum)
	}

	if f.BodyLength < 4 || buf[f.BodyStart] != '3' || buf[f.BodyStart+1] != '5' || buf[f.BodyStart+2] != '=' {
		return Frame{}, xerrors.Errorf("MsgType is not the first body field: %w", ErrUnknownMessage)
	}
	f.MsgTypeOffset = f.BodyStart + 3
	msgTypeEnd := r.Scan(f.MsgTypeOffset, f.BodyEnd, fields.SOH)
	if msgTypeEnd < 0 {
		return Frame{}, xerrors.Errorf("unterminated MsgType: %w", ErrTruncated)
	}
	f.MsgTypeLength = msgTypeEnd - f.MsgTypeOffset
	return f, nil
}
