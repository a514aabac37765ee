package generation

import (
	"go/token"

	"github.com/emirpasic/gods/v2/sets/hashset"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
)

type entryKind int

const (
	entryField entryKind = iota
	entryGroup
	entryComponent
)

// member is one entry of an aggregate as the generated type sees it
type member struct {
	kind     entryKind
	required bool
	name     string // exported accessor stem
	slot     string // unexported struct field

	field     *dictionary.Field
	child     *model
	countSlot string

	// index into the decoder's seen array, -1 when not tracked
	seen int
	// written and parsed by the framing layer rather than by the entry loop
	framing bool
	// this integer field carries the length of a data field
	length bool
}

// model is one aggregate resolved into Go names
type model struct {
	name     string
	typeName string
	kind     dictionary.Kind
	msgType  string

	members []*member
	// length tags of data fields that are not themselves declared
	lengthTags []int
	required   int
	// first entry of a group, which starts every instance
	delimiter *member

	names *hashset.Set[string]
}

func (m *model) isMessage() bool { return m.kind == dictionary.KindMessage }

func (m *model) framingKind() bool {
	return m.kind == dictionary.KindHeader || m.kind == dictionary.KindTrailer
}

func (m *model) hasChildren() bool {
	for _, mb := range m.members {
		if mb.kind != entryField {
			return true
		}
	}
	return false
}

// claim reserves a member or method name on the generated type
func (m *model) claim(names ...string) error {
	for _, n := range names {
		if m.names.Contains(n) {
			return xerrors.Errorf("%s.%s: %w", m.typeName, n, ErrNameClash)
		}
		m.names.Add(n)
	}
	return nil
}

// resolver builds models for every aggregate, once each
type resolver struct {
	suffix string
	models map[*dictionary.Aggregate]*model
}

func newResolver(suffix string) *resolver {
	return &resolver{suffix: suffix, models: make(map[*dictionary.Aggregate]*model)}
}

func checkIdentifier(name string) error {
	if !token.IsIdentifier(name) || token.IsKeyword(name) {
		return xerrors.Errorf("%q: %w", name, ErrBadIdentifier)
	}
	return nil
}

func (r *resolver) resolve(a *dictionary.Aggregate, msgType string) (*model, error) {
	if m, ok := r.models[a]; ok {
		return m, nil
	}
	if err := checkIdentifier(a.Name); err != nil {
		return nil, err
	}
	m := &model{
		name:     a.Name,
		typeName: exported(a.Name) + r.suffix,
		kind:     a.Kind,
		msgType:  msgType,
		names:    hashset.New[string](),
	}
	r.models[a] = m

	reserved := []string{"Reset", "String", "Encode", "Decode", "encodeTo", "decodeField", "dumpTo", "zero", "reader", "seen", "missing"}
	switch m.kind {
	case dictionary.KindMessage:
		reserved = append(reserved, "Header", "Trailer", "MsgType", "Frame", "Valid", "InvalidTag",
			"header", "trailer", "frame", "msgTypeView")
	case dictionary.KindHeader:
		reserved = append(reserved, "setFraming")
	case dictionary.KindTrailer:
		reserved = append(reserved, "setCheckSum")
	}
	if err := m.claim(reserved...); err != nil {
		return nil, err
	}

	declared := make(map[int]bool)
	for _, e := range a.Entries {
		if f, ok := e.Field(); ok {
			declared[f.Number] = true
		}
	}
	lengths := make(map[int]bool)

	for _, e := range a.Entries {
		name := e.Name()
		if err := checkIdentifier(name); err != nil {
			return nil, xerrors.Errorf("%s: %w", a.Name, err)
		}
		mb := &member{
			required: e.Required,
			name:     exported(name),
			slot:     unexported(name),
			seen:     -1,
		}

		switch el := e.Element.(type) {
		case *dictionary.Field:
			mb.kind = entryField
			mb.field = el
			mb.framing = m.framingKind() && dictionary.IsFramingTag(el.Number)
			if el.Type == dictionary.TypeData && el.LengthNumber != 0 {
				lengths[el.LengthNumber] = true
				if !declared[el.LengthNumber] {
					m.lengthTags = append(m.lengthTags, el.LengthNumber)
				}
			}
			if mb.required {
				mb.seen = m.required
				m.required++
			}
			if err := r.claimField(m, mb); err != nil {
				return nil, err
			}
		case *dictionary.Group:
			mb.kind = entryGroup
			mb.field = el.Number
			mb.countSlot = mb.slot + "Count"
			child, err := r.resolve(&el.Aggregate, "")
			if err != nil {
				return nil, err
			}
			mb.child = child
			if err := m.claim(mb.slot, mb.countSlot, mb.name, "Add"+mb.name, "add"+mb.name,
				"Clear"+mb.name, "decode"+mb.name); err != nil {
				return nil, err
			}
		case *dictionary.Component:
			mb.kind = entryComponent
			child, err := r.resolve(&el.Aggregate, "")
			if err != nil {
				return nil, err
			}
			mb.child = child
			if err := m.claim(mb.slot, mb.name, "has"+mb.name, "Has"+mb.name, "Clear"+mb.name); err != nil {
				return nil, err
			}
		}
		m.members = append(m.members, mb)
	}

	for _, mb := range m.members {
		if mb.kind == entryField && lengths[mb.field.Number] && mb.field.Type.Storage() == dictionary.StorageInt {
			mb.length = true
		}
	}
	if m.kind == dictionary.KindGroup && len(m.members) > 0 {
		m.delimiter = m.members[0]
	}
	return m, nil
}

func (r *resolver) claimField(m *model, mb *member) error {
	names := []string{mb.slot, mb.name, "Set" + mb.name}
	if mb.field.Type.Storage() == dictionary.StorageBytes {
		names = append(names, "Set"+mb.name+"Bytes")
	}
	if !mb.required {
		names = append(names, "has"+mb.name, "Has"+mb.name, "Reset"+mb.name)
	}
	return m.claim(names...)
}
