package codec

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
	"fix-gateway/fields"
)

// AggregateEncoder is the encoder for one aggregate instance. Setters
// record presence; Encode writes tag=value pairs in declaration order.
//
// Message encoders own a header and a trailer for their whole life and
// frame their output: BeginString, BodyLength and MsgType first, CheckSum
// last. Every other aggregate writes only its own fields.
//
// Not safe for concurrent use.
type AggregateEncoder aggregate

func (e *AggregateEncoder) agg() *aggregate { return (*aggregate)(e) }

func asEncoder(a *aggregate) *AggregateEncoder {
	if a == nil {
		return nil
	}
	return (*AggregateEncoder)(a)
}

var _ Encoder = (*AggregateEncoder)(nil)

// Name returns the aggregate name
func (e *AggregateEncoder) Name() string { return e.layout.name }

// Kind returns the aggregate kind
func (e *AggregateEncoder) Kind() dictionary.Kind { return e.layout.kind }

// MsgType returns the message type, or "" for other aggregates
func (e *AggregateEncoder) MsgType() string { return e.layout.msgType }

// Header returns the message header, nil for other aggregates
func (e *AggregateEncoder) Header() *AggregateEncoder { return asEncoder(e.header) }

// Trailer returns the message trailer, nil for other aggregates
func (e *AggregateEncoder) Trailer() *AggregateEncoder { return asEncoder(e.trailer) }

// Has reports whether an entry is present. Required fields always are.
func (e *AggregateEncoder) Has(name string) bool { return e.agg().has(name) }

// ResetField clears one optional field
func (e *AggregateEncoder) ResetField(name string) error { return e.agg().resetField(name) }

// Reset clears this aggregate's optional fields. Groups, components, the
// header and the trailer keep their values.
func (e *AggregateEncoder) Reset() { e.agg().reset() }

func (e *AggregateEncoder) String() string { return e.agg().String() }

// Component returns the nested component encoder
func (e *AggregateEncoder) Component(name string) (*AggregateEncoder, error) {
	c, err := e.agg().component(name)
	return asEncoder(c), err
}

// AddGroup appends an instance to a group and returns it cleared
func (e *AggregateEncoder) AddGroup(name string) (*AggregateEncoder, error) {
	g, err := e.agg().addGroup(name)
	return asEncoder(g), err
}

// Group returns instance i of a group
func (e *AggregateEncoder) Group(name string, i int) (*AggregateEncoder, error) {
	_, ar, err := e.agg().group(name)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= ar.n {
		return nil, xerrors.Errorf("%s.%s[%d] of %d: %w", e.Name(), name, i, ar.n, ErrUnknownGroup)
	}
	return asEncoder(ar.items[i]), nil
}

// Groups returns the instances of a group in the order they were added
func (e *AggregateEncoder) Groups(name string) ([]*AggregateEncoder, error) {
	_, ar, err := e.agg().group(name)
	if err != nil {
		return nil, err
	}
	out := make([]*AggregateEncoder, ar.n)
	for i, g := range ar.instances() {
		out[i] = asEncoder(g)
	}
	return out, nil
}

// GroupCount returns the number of instances of a group
func (e *AggregateEncoder) GroupCount(name string) int {
	_, ar, err := e.agg().group(name)
	if err != nil {
		return 0
	}
	return ar.n
}

// ClearGroup drops every instance of a group
func (e *AggregateEncoder) ClearGroup(name string) error {
	_, ar, err := e.agg().group(name)
	if err != nil {
		return err
	}
	ar.n = 0
	return nil
}

// SetString sets a string-like field
func (e *AggregateEncoder) SetString(name, v string) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageBytes)
	if err != nil {
		return err
	}
	s.b = append(s.b[:0], v...)
	s.present = true
	return nil
}

// SetBytes sets a string-like field from bytes. The bytes are copied.
func (e *AggregateEncoder) SetBytes(name string, v []byte) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageBytes)
	if err != nil {
		return err
	}
	s.b = append(s.b[:0], v...)
	s.present = true
	return nil
}

// SetData sets a raw data field. The bytes are copied; a declared length
// field is written automatically.
func (e *AggregateEncoder) SetData(name string, v []byte) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageData)
	if err != nil {
		return err
	}
	s.b = append(s.b[:0], v...)
	s.present = true
	return nil
}

// SetChar sets a char field
func (e *AggregateEncoder) SetChar(name string, v byte) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageChar)
	if err != nil {
		return err
	}
	s.i = int64(v)
	s.present = true
	return nil
}

// SetBool sets a boolean field
func (e *AggregateEncoder) SetBool(name string, v bool) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageBool)
	if err != nil {
		return err
	}
	s.i = 0
	if v {
		s.i = 1
	}
	s.present = true
	return nil
}

// SetInt sets an int, length, seqnum or numingroup field
func (e *AggregateEncoder) SetInt(name string, v int64) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageInt)
	if err != nil {
		return err
	}
	s.i = v
	s.present = true
	return nil
}

// SetDecimal sets a float, price or qty field
func (e *AggregateEncoder) SetDecimal(name string, v decimal.Decimal) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageDecimal)
	if err != nil {
		return err
	}
	s.d = v
	s.present = true
	return nil
}

// SetTime sets a timestamp, time, date or market date field
func (e *AggregateEncoder) SetTime(name string, v time.Time) error {
	s, _, err := e.agg().fieldSlot(name, dictionary.StorageTime)
	if err != nil {
		return err
	}
	s.t = v
	s.present = true
	return nil
}

// GetString returns a string-like field
func (e *AggregateEncoder) GetString(name string) (string, error) {
	b, err := e.agg().bytes(name)
	return string(b), err
}

// GetBytes returns a string-like or data field. The slice aliases the
// encoder's storage.
func (e *AggregateEncoder) GetBytes(name string) ([]byte, error) { return e.agg().bytes(name) }

// GetData returns a raw data field
func (e *AggregateEncoder) GetData(name string) ([]byte, error) { return e.agg().bytes(name) }

func (e *AggregateEncoder) GetChar(name string) (byte, error) { return e.agg().getChar(name) }

func (e *AggregateEncoder) GetBool(name string) (bool, error) { return e.agg().getBool(name) }

func (e *AggregateEncoder) GetInt(name string) (int64, error) { return e.agg().getInt(name) }

func (e *AggregateEncoder) GetDecimal(name string) (decimal.Decimal, error) {
	return e.agg().getDecimal(name)
}

func (e *AggregateEncoder) GetTime(name string) (time.Time, error) { return e.agg().getTime(name) }

// Encode writes the aggregate at buf[offset:]. Messages need
// PrefixReserve bytes of headroom beyond their encoded length.
func (e *AggregateEncoder) Encode(buf []byte, offset int) (int, error) {
	a := e.agg()
	w := fields.NewMutableASCIIFlyweight(buf)

	if !a.layout.isMessage() {
		end, err := a.encodeEntries(w, offset)
		if err != nil {
			return 0, err
		}
		if err := w.Err(); err != nil {
			return 0, xerrors.Errorf("encode %s: %w", a.name(), err)
		}
		return end - offset, nil
	}

	begin := a.codecs.beginString
	start := BodyStart(offset, begin)
	pos := w.PutStringField(start, dictionary.MsgType, a.layout.msgType)

	var err error
	for _, part := range [...]*aggregate{a.header, a, a.trailer} {
		if pos, err = part.encodeEntries(w, pos); err != nil {
			return 0, err
		}
	}

	n, err := FinishMessage(w, offset, start, pos, begin)
	if err != nil {
		return 0, xerrors.Errorf("encode %s: %w", a.name(), err)
	}

	a.header.setInt(dictionary.BodyLength, int64(pos-start))
	a.trailer.setBytes(dictionary.CheckSum, buf[offset+n-4:offset+n-1])
	return n, nil
}

// encodeEntries writes every present entry in declaration order
func (a *aggregate) encodeEntries(w *fields.MutableASCIIFlyweight, pos int) (int, error) {
	l := a.layout
	if l.kind == dictionary.KindGroup && len(a.slots) > 0 && !a.slots[0].present {
		return pos, xerrors.Errorf("%s instance without delimiter %s: %w", l.name, l.entries[0].name, ErrRequiredField)
	}

	var err error
	for i := range l.entries {
		e := &l.entries[i]
		switch e.kind {
		case entryField:
			if l.framing(e.field.Number) {
				continue
			}
			s := &a.slots[e.index]
			if !s.present {
				if e.required {
					return pos, xerrors.Errorf("%s.%s is not set: %w", l.name, e.name, ErrRequiredField)
				}
				continue
			}
			pos = putField(w, pos, e.field, s)
		case entryGroup:
			ar := &a.groups[e.index]
			if ar.n == 0 {
				if e.required {
					return pos, xerrors.Errorf("%s.%s has no instances: %w", l.name, e.name, ErrRequiredField)
				}
				continue
			}
			pos = w.PutIntField(pos, e.field.Number, int64(ar.n))
			for _, item := range ar.instances() {
				if pos, err = item.encodeEntries(w, pos); err != nil {
					return pos, err
				}
			}
		case entryComponent:
			c := a.components[e.index]
			if !e.required && !c.touched() {
				continue
			}
			if pos, err = c.encodeEntries(w, pos); err != nil {
				return pos, err
			}
		}
	}
	return pos, nil
}

func putField(w *fields.MutableASCIIFlyweight, pos int, f *dictionary.Field, s *slot) int {
	switch f.Type.Storage() {
	case dictionary.StorageData:
		if f.LengthNumber > 0 {
			pos = w.PutIntField(pos, f.LengthNumber, int64(len(s.b)))
		}
		return w.PutBytesField(pos, f.Number, s.b)
	case dictionary.StorageChar:
		return w.PutCharField(pos, f.Number, byte(s.i))
	case dictionary.StorageBool:
		return w.PutBoolField(pos, f.Number, s.i != 0)
	case dictionary.StorageInt:
		return w.PutIntField(pos, f.Number, s.i)
	case dictionary.StorageDecimal:
		return w.PutDecimalField(pos, f.Number, s.d)
	case dictionary.StorageTime:
		return w.PutTimeField(pos, f.Number, s.t, timeFormat(f.Type))
	default:
		return w.PutBytesField(pos, f.Number, s.b)
	}
}

// setBytes records a framing value by tag when the aggregate declares it
func (a *aggregate) setBytes(tag int, v []byte) {
	if i, ok := a.layout.byTag[tag]; ok && a.layout.entries[i].kind == entryField {
		s := &a.slots[a.layout.entries[i].index]
		s.b = append(s.b[:0], v...)
		s.present = true
	}
}

func (a *aggregate) setInt(tag int, v int64) {
	if i, ok := a.layout.byTag[tag]; ok && a.layout.entries[i].kind == entryField {
		s := &a.slots[a.layout.entries[i].index]
		s.i = v
		s.present = true
	}
}
