package codec

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
)

// AggregateDecoder is the decoder for one aggregate instance. String and
// data values stay views into the decoded buffer, so the buffer must
// outlive every read from the decoder.
//
// Decode replaces all previous state. Structural problems that do not
// prevent parsing, such as a missing required field or an invalid
// MsgType, are reported by Valid and InvalidTag rather than as errors.
type AggregateDecoder aggregate

func (d *AggregateDecoder) agg() *aggregate { return (*aggregate)(d) }

func asDecoder(a *aggregate) *AggregateDecoder {
	if a == nil {
		return nil
	}
	return (*AggregateDecoder)(a)
}

var _ Decoder = (*AggregateDecoder)(nil)

func (d *AggregateDecoder) Name() string { return d.layout.name }

func (d *AggregateDecoder) Kind() dictionary.Kind { return d.layout.kind }

func (d *AggregateDecoder) MsgType() string { return d.layout.msgType }

func (d *AggregateDecoder) Header() *AggregateDecoder { return asDecoder(d.header) }

func (d *AggregateDecoder) Trailer() *AggregateDecoder { return asDecoder(d.trailer) }

// Frame returns where the last decoded message sat in its buffer
func (d *AggregateDecoder) Frame() Frame { return d.frame }

func (d *AggregateDecoder) Has(name string) bool { return d.agg().has(name) }

func (d *AggregateDecoder) Reset() { d.agg().reset() }

// String renders the decoded fields. Groups are not rendered; use Group
// to inspect them.
func (d *AggregateDecoder) String() string { return d.agg().String() }

func (d *AggregateDecoder) Component(name string) (*AggregateDecoder, error) {
	c, err := d.agg().component(name)
	return asDecoder(c), err
}

// Group returns decoded instance i of a group
func (d *AggregateDecoder) Group(name string, i int) (*AggregateDecoder, error) {
	_, ar, err := d.agg().group(name)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= ar.n {
		return nil, xerrors.Errorf("%s.%s[%d] of %d: %w", d.Name(), name, i, ar.n, ErrUnknownGroup)
	}
	return asDecoder(ar.items[i]), nil
}

// GroupCount returns the number of decoded instances of a group
func (d *AggregateDecoder) GroupCount(name string) int {
	_, ar, err := d.agg().group(name)
	if err != nil {
		return 0
	}
	return ar.n
}

// GetString copies a string-like field out of the buffer
func (d *AggregateDecoder) GetString(name string) (string, error) {
	b, err := d.agg().bytes(name)
	return string(b), err
}

// GetBytes returns a view of a string-like or data field
func (d *AggregateDecoder) GetBytes(name string) ([]byte, error) { return d.agg().bytes(name) }

func (d *AggregateDecoder) GetData(name string) ([]byte, error) { return d.agg().bytes(name) }

func (d *AggregateDecoder) GetChar(name string) (byte, error) { return d.agg().getChar(name) }

func (d *AggregateDecoder) GetBool(name string) (bool, error) { return d.agg().getBool(name) }

func (d *AggregateDecoder) GetInt(name string) (int64, error) { return d.agg().getInt(name) }

func (d *AggregateDecoder) GetDecimal(name string) (decimal.Decimal, error) {
	return d.agg().getDecimal(name)
}

func (d *AggregateDecoder) GetTime(name string) (time.Time, error) { return d.agg().getTime(name) }

// Decode parses buf[offset:offset+length]. Messages validate their framing
// and must carry this decoder's MsgType; other aggregates consume every
// field they recognise in the range. Unknown tags are skipped.
func (d *AggregateDecoder) Decode(buf []byte, offset, length int) (int, error) {
	a := d.agg()
	if !a.layout.isMessage() {
		a.clear()
		a.wire.Wrap(buf)
		r := &a.reader
		r.Reset(buf, offset, length)
		for {
			ok, err := r.Next()
			if err != nil {
				return 0, xerrors.Errorf("decode %s: %w", a.name(), err)
			}
			if !ok {
				return length, nil
			}
			if _, err := a.decodeField(r); err != nil {
				return 0, err
			}
		}
	}

	f, err := ParseFrame(buf, offset, length, a.codecs.beginString)
	if err != nil {
		return 0, xerrors.Errorf("decode %s: %w", a.name(), err)
	}
	return d.decodeFrame(buf, f)
}

func (d *AggregateDecoder) decodeFrame(buf []byte, f Frame) (int, error) {
	a := d.agg()
	if string(f.MsgType(buf)) != a.layout.msgType {
		return 0, xerrors.Errorf("%q is not %s: %w", f.MsgType(buf), a.name(), ErrUnknownMessage)
	}

	a.clear()
	a.wire.Wrap(buf)
	a.frame = f
	a.header.setView(dictionary.BeginString, f.BeginStringOffset, f.BeginStringLength)
	a.header.setInt(dictionary.BodyLength, int64(f.BodyLength))
	a.header.setView(dictionary.MsgType, f.MsgTypeOffset, f.MsgTypeLength)
	a.trailer.setView(dictionary.CheckSum, f.BodyEnd+3, 3)

	r := &a.reader
	bodyFrom := f.MsgTypeOffset + f.MsgTypeLength + 1
	r.Reset(buf, bodyFrom, f.BodyEnd-bodyFrom)
	for {
		ok, err := r.Next()
		if err != nil {
			return 0, xerrors.Errorf("decode %s: %w", a.name(), err)
		}
		if !ok {
			return f.Length, nil
		}
		for _, part := range [...]*aggregate{a, a.header, a.trailer} {
			consumed, err := part.decodeField(r)
			if err != nil {
				return 0, err
			}
			if consumed {
				break
			}
		}
	}
}

// decodeField consumes the reader's current field when it belongs to this
// aggregate or one of its components. Group counters pull their instances
// off the reader.
func (a *aggregate) decodeField(r *FieldReader) (bool, error) {
	l := a.layout
	tag := r.Tag()
	if i, ok := l.byTag[tag]; ok {
		e := &l.entries[i]
		if e.kind == entryGroup {
			return true, a.decodeGroup(e, r)
		}
		return true, a.readField(e, r)
	}
	if _, ok := l.lengthTags[tag]; ok {
		n, err := r.Natural()
		if err != nil {
			return true, xerrors.Errorf("%s length tag %d: %w", l.name, tag, err)
		}
		r.ExpectData(n)
		return true, nil
	}
	if len(a.components) > 0 && l.tags.Contains(tag) {
		for _, c := range a.components {
			if c.layout.tags.Contains(tag) {
				return c.decodeField(r)
			}
		}
	}
	return false, nil
}

func (a *aggregate) readField(e *entryLayout, r *FieldReader) error {
	s := &a.slots[e.index]
	f := e.field

	var err error
	switch f.Type.Storage() {
	case dictionary.StorageChar:
		var c byte
		c, err = r.Char()
		s.i = int64(c)
	case dictionary.StorageBool:
		var v bool
		v, err = r.Bool()
		s.i = 0
		if v {
			s.i = 1
		}
	case dictionary.StorageInt:
		s.i, err = r.Int()
	case dictionary.StorageDecimal:
		s.d, err = r.Decimal()
	case dictionary.StorageTime:
		s.t, err = r.Time(timeFormat(f.Type))
	default:
		s.off, s.n = r.ValueOffset(), r.ValueLength()
	}
	if err != nil {
		return xerrors.Errorf("%s.%s: %w", a.name(), e.name, err)
	}
	s.present = true
	return nil
}

// decodeGroup reads the instances announced by the counter just read. A
// delimiter tag starts each instance; the first tag the group does not
// own ends the sequence and is handed back to the caller.
func (a *aggregate) decodeGroup(e *entryLayout, r *FieldReader) error {
	count, err := r.Natural()
	if err != nil {
		return xerrors.Errorf("%s.%s count: %w", a.name(), e.name, err)
	}
	ar := &a.groups[e.index]
	ar.n = 0
	gl := e.child

	var cur *aggregate
	for {
		ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		tag := r.Tag()
		if tag == gl.delimiter {
			if ar.n == count {
				r.Unread()
				break
			}
			cur = a.add(e, ar)
		} else if cur == nil || !gl.tags.Contains(tag) {
			r.Unread()
			break
		}
		if _, err := cur.decodeField(r); err != nil {
			return err
		}
	}

	if ar.n != count {
		return xerrors.Errorf("%s.%s declared %d, found %d: %w", a.name(), e.name, count, ar.n, ErrBadGroupCount)
	}
	return nil
}

func (a *aggregate) setView(tag, off, n int) {
	if i, ok := a.layout.byTag[tag]; ok && a.layout.entries[i].kind == entryField {
		s := &a.slots[a.layout.entries[i].index]
		s.off, s.n = off, n
		s.present = true
	}
}

// Valid reports whether the decoded message is structurally sound
func (d *AggregateDecoder) Valid() bool { return d.InvalidTag() == 0 }

// InvalidTag returns the first tag that makes the decoded aggregate
// invalid, or 0. MsgType is checked first, then required entries in the
// header, body and trailer.
func (d *AggregateDecoder) InvalidTag() int {
	a := d.agg()
	if a.layout.isMessage() {
		msgType := a.frame.MsgType(a.wire.Buffer())
		if !a.codecs.validator.IsValidMsgType(msgType, a.frame.MsgTypeLength) {
			return dictionary.MsgType
		}
		if tag := a.header.missing(); tag != 0 {
			return tag
		}
		if tag := a.missing(); tag != 0 {
			return tag
		}
		return a.trailer.missing()
	}
	return a.missing()
}

// missing returns the tag of the first required entry without a value,
// looking inside group instances and present components.
func (a *aggregate) missing() int {
	for i := range a.layout.entries {
		e := &a.layout.entries[i]
		switch e.kind {
		case entryField:
			if e.required && !a.slots[e.index].present {
				return e.field.Number
			}
		case entryGroup:
			ar := &a.groups[e.index]
			if e.required && ar.n == 0 {
				return e.field.Number
			}
			for _, item := range ar.instances() {
				if tag := item.missing(); tag != 0 {
					return tag
				}
			}
		case entryComponent:
			c := a.components[e.index]
			if !e.required && !c.touched() {
				continue
			}
			if tag := c.missing(); tag != 0 {
				return tag
			}
		}
	}
	return 0
}
