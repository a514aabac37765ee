package codec

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
	"fix-gateway/fields"
)

// slot holds one field value. Integers, booleans and chars share i.
// Encoders own their bytes in b; decoders keep an (off, n) view into the
// wire buffer instead.
type slot struct {
	present bool
	i       int64
	d       decimal.Decimal
	t       time.Time
	b       []byte
	off     int
	n       int
}

// flavor is the strategy that separates encoders from decoders inside the
// shared per-aggregate algorithm.
type flavor interface {
	suffix() string
	// bytes returns the textual or raw value of a bytes or data slot
	bytes(a *aggregate, s *slot) []byte
	// dumpGroups reports whether group sequences are rendered
	dumpGroups() bool
}

type encoderFlavor struct{}

func (encoderFlavor) suffix() string                     { return "Encoder" }
func (encoderFlavor) bytes(_ *aggregate, s *slot) []byte { return s.b }
func (encoderFlavor) dumpGroups() bool                   { return true }

// Decoder dumps omit groups; decoded instances are still reachable
// through Group and GroupCount.
type decoderFlavor struct{}

func (decoderFlavor) suffix() string { return "Decoder" }
func (decoderFlavor) bytes(a *aggregate, s *slot) []byte {
	if s.n == 0 {
		return nil
	}
	return a.wire.Bytes(s.off, s.n)
}
func (decoderFlavor) dumpGroups() bool { return false }

// arena holds the ordered instances of one group occurrence. Instances are
// kept across ClearGroup and reused by the next add.
type arena struct {
	items []*aggregate
	n     int
}

func (ar *arena) instances() []*aggregate { return ar.items[:ar.n] }

// aggregate is the state of one aggregate instance, shared by both flavours
type aggregate struct {
	layout *layout
	flavor flavor
	codecs *Codecs

	slots      []slot
	groups     []arena
	components []*aggregate

	// messages only; constructed once and never replaced
	header  *aggregate
	trailer *aggregate

	// decoders only; wire is shared by every aggregate below the root
	wire   *fields.ASCIIFlyweight
	reader FieldReader
	frame  Frame
}

func newAggregate(l *layout, fl flavor, c *Codecs, wire *fields.ASCIIFlyweight) *aggregate {
	a := &aggregate{
		layout: l,
		flavor: fl,
		codecs: c,
		slots:  make([]slot, l.slots),
		groups: make([]arena, l.groups),
		wire:   wire,
	}
	if l.components > 0 {
		a.components = make([]*aggregate, l.components)
		for _, e := range l.entries {
			if e.kind == entryComponent {
				a.components[e.index] = newAggregate(e.child, fl, c, wire)
			}
		}
	}
	if l.isMessage() {
		a.header = newAggregate(c.header, fl, c, wire)
		a.trailer = newAggregate(c.trailer, fl, c, wire)
	}
	return a
}

func (a *aggregate) name() string { return a.layout.name }

func (a *aggregate) fieldSlot(name string, storage ...dictionary.Storage) (*slot, *entryLayout, error) {
	e, ok := a.layout.entry(name)
	if !ok {
		return nil, nil, xerrors.Errorf("%s.%s: %w", a.name(), name, ErrUnknownField)
	}
	if e.kind != entryField {
		return nil, nil, xerrors.Errorf("%s.%s is not a field: %w", a.name(), name, ErrTypeMismatch)
	}
	got := e.field.Type.Storage()
	for _, want := range storage {
		if got == want {
			return &a.slots[e.index], e, nil
		}
	}
	return nil, nil, xerrors.Errorf("%s.%s is %s: %w", a.name(), name, e.field.Type, ErrTypeMismatch)
}

// has reports presence. Required fields always report present; groups
// when they hold an instance; components once anything inside is set.
func (a *aggregate) has(name string) bool {
	e, ok := a.layout.entry(name)
	if !ok {
		return false
	}
	switch e.kind {
	case entryField:
		return e.required || a.slots[e.index].present
	case entryGroup:
		return a.groups[e.index].n > 0
	default:
		return a.components[e.index].touched()
	}
}

func (a *aggregate) resetField(name string) error {
	e, ok := a.layout.entry(name)
	if !ok {
		return xerrors.Errorf("%s.%s: %w", a.name(), name, ErrUnknownField)
	}
	if e.kind != entryField {
		return xerrors.Errorf("%s.%s is not a field: %w", a.name(), name, ErrTypeMismatch)
	}
	if e.required {
		return xerrors.Errorf("%s.%s cannot be reset: %w", a.name(), name, ErrRequiredField)
	}
	a.slots[e.index].present = false
	return nil
}

// reset clears the aggregate's own optional fields in declaration order.
// Required fields, groups and components are left alone; callers reusing
// nested aggregates reset them explicitly.
func (a *aggregate) reset() {
	for i := range a.layout.entries {
		e := &a.layout.entries[i]
		if e.kind == entryField && !e.required {
			a.slots[e.index].present = false
		}
	}
}

// clear forgets every value, including required fields, nested state and
// the header and trailer. Used before decoding and when an arena instance
// is reused.
func (a *aggregate) clear() {
	for i := range a.slots {
		s := &a.slots[i]
		s.present = false
		s.i = 0
		s.d = decimal.Zero
		s.t = time.Time{}
		s.b = s.b[:0]
		s.off, s.n = 0, 0
	}
	for i := range a.groups {
		a.groups[i].n = 0
	}
	for _, c := range a.components {
		c.clear()
	}
	if a.header != nil {
		a.header.clear()
		a.trailer.clear()
	}
}

func (a *aggregate) touched() bool {
	for i := range a.slots {
		if a.slots[i].present {
			return true
		}
	}
	for i := range a.groups {
		if a.groups[i].n > 0 {
			return true
		}
	}
	for _, c := range a.components {
		if c.touched() {
			return true
		}
	}
	return false
}

func (a *aggregate) group(name string) (*entryLayout, *arena, error) {
	e, ok := a.layout.entry(name)
	if !ok || e.kind != entryGroup {
		return nil, nil, xerrors.Errorf("%s.%s: %w", a.name(), name, ErrUnknownGroup)
	}
	return e, &a.groups[e.index], nil
}

func (a *aggregate) addGroup(name string) (*aggregate, error) {
	e, ar, err := a.group(name)
	if err != nil {
		return nil, err
	}
	return a.add(e, ar), nil
}

func (a *aggregate) add(e *entryLayout, ar *arena) *aggregate {
	if ar.n < len(ar.items) {
		item := ar.items[ar.n]
		item.clear()
		ar.n++
		return item
	}
	item := newAggregate(e.child, a.flavor, a.codecs, a.wire)
	ar.items = append(ar.items, item)
	ar.n++
	return item
}

func (a *aggregate) component(name string) (*aggregate, error) {
	e, ok := a.layout.entry(name)
	if !ok || e.kind != entryComponent {
		return nil, xerrors.Errorf("%s.%s: %w", a.name(), name, ErrUnknownComponent)
	}
	return a.components[e.index], nil
}

func (a *aggregate) bytes(name string) ([]byte, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageBytes, dictionary.StorageData)
	if err != nil {
		return nil, err
	}
	return a.flavor.bytes(a, s), nil
}

func (a *aggregate) getInt(name string) (int64, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageInt)
	if err != nil {
		return 0, err
	}
	return s.i, nil
}

func (a *aggregate) getChar(name string) (byte, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageChar)
	if err != nil {
		return 0, err
	}
	return byte(s.i), nil
}

func (a *aggregate) getBool(name string) (bool, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageBool)
	if err != nil {
		return false, err
	}
	return s.i != 0, nil
}

func (a *aggregate) getDecimal(name string) (decimal.Decimal, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageDecimal)
	if err != nil {
		return decimal.Zero, err
	}
	return s.d, nil
}

func (a *aggregate) getTime(name string) (time.Time, error) {
	s, _, err := a.fieldSlot(name, dictionary.StorageTime)
	if err != nil {
		return time.Time{}, err
	}
	return s.t, nil
}

// dump renders the aggregate into d under key
func (a *aggregate) dump(d *Dump, key string) {
	d.Open(key, a.name())
	if a.header != nil {
		// "MsgType" names the header block, then the header's own MsgType field follows
		a.header.dump(d, "header")
	}
	a.dumpEntries(d)
	d.Close()
}

func (a *aggregate) dumpEntries(d *Dump) {
	for i := range a.layout.entries {
		e := &a.layout.entries[i]
		switch e.kind {
		case entryField:
			s := &a.slots[e.index]
			if !e.required && !s.present {
				continue
			}
			a.dumpField(d, e, s)
		case entryGroup:
			ar := &a.groups[e.index]
			if !a.flavor.dumpGroups() || ar.n == 0 {
				continue
			}
			d.OpenArray(e.name)
			for _, item := range ar.instances() {
				item.dump(d, "")
			}
			d.CloseArray()
		case entryComponent:
			c := a.components[e.index]
			if !e.required && !c.touched() {
				continue
			}
			c.dump(d, e.name)
		}
	}
}

func (a *aggregate) dumpField(d *Dump, e *entryLayout, s *slot) {
	f := e.field
	switch f.Type.Storage() {
	case dictionary.StorageBytes:
		d.Str(e.name, a.flavor.bytes(a, s))
	case dictionary.StorageData:
		d.Data(e.name, a.flavor.bytes(a, s))
	case dictionary.StorageChar:
		d.Char(e.name, byte(s.i))
	case dictionary.StorageBool:
		d.Bool(e.name, s.i != 0)
	case dictionary.StorageInt:
		d.Int(e.name, s.i)
	case dictionary.StorageDecimal:
		d.Decimal(e.name, s.d)
	case dictionary.StorageTime:
		d.Time(e.name, s.t, timeFormat(f.Type))
	}
}

func (a *aggregate) String() string {
	d := &Dump{}
	a.dump(d, "")
	return d.String()
}
