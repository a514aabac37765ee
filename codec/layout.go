package codec

import (
	"github.com/emirpasic/gods/v2/sets/hashset"

	"fix-gateway/dictionary"
	"fix-gateway/fields"
)

type entryKind uint8

const (
	entryField entryKind = iota
	entryGroup
	entryComponent
)

// entryLayout is one compiled Entry. index addresses the slot, group arena
// or component instance that holds the entry's state.
type entryLayout struct {
	kind     entryKind
	required bool
	name     string
	field    *dictionary.Field
	index    int
	child    *layout
}

// layout is the compiled, immutable shape of one aggregate. Every encoder
// and decoder of that aggregate shares it.
type layout struct {
	name    string
	kind    dictionary.Kind
	msgType string

	entries []entryLayout
	byName  map[string]int
	// own field and group counter tags
	byTag map[int]int
	// data length tag -> data field entry
	lengthTags map[int]int
	// every tag consumed here or inside a component, excluding group bodies
	tags *hashset.Set[int]

	slots      int
	groups     int
	components int

	// groups only
	counter   *dictionary.Field
	delimiter int
}

func (l *layout) isMessage() bool { return l.kind == dictionary.KindMessage }

// framing reports whether tag is written by FinishMessage rather than by
// the aggregate itself
func (l *layout) framing(tag int) bool {
	switch l.kind {
	case dictionary.KindHeader, dictionary.KindTrailer:
		return dictionary.IsFramingTag(tag)
	}
	return false
}

func (l *layout) entry(name string) (*entryLayout, bool) {
	i, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return &l.entries[i], true
}

type compiler struct {
	layouts map[*dictionary.Aggregate]*layout
}

func newCompiler() *compiler {
	return &compiler{layouts: make(map[*dictionary.Aggregate]*layout)}
}

func (c *compiler) message(m *dictionary.Message) *layout {
	l := c.aggregate(&m.Aggregate)
	l.msgType = m.MsgType
	return l
}

// aggregate compiles a once. The layout is cached before its entries are
// compiled so that a group reaching back into its own container resolves
// to the same layout.
func (c *compiler) aggregate(a *dictionary.Aggregate) *layout {
	if l, ok := c.layouts[a]; ok {
		return l
	}
	l := &layout{
		name:       a.Name,
		kind:       a.Kind,
		entries:    make([]entryLayout, 0, len(a.Entries)),
		byName:     make(map[string]int, len(a.Entries)),
		byTag:      make(map[int]int, len(a.Entries)),
		lengthTags: make(map[int]int),
	}
	c.layouts[a] = l

	for _, e := range a.Entries {
		el := entryLayout{required: e.Required, name: e.Name()}
		switch v := e.Element.(type) {
		case *dictionary.Field:
			el.kind = entryField
			el.field = v
			el.index = l.slots
			l.slots++
		case *dictionary.Group:
			el.kind = entryGroup
			el.field = v.Number
			el.index = l.groups
			l.groups++
			el.child = c.group(v)
		case *dictionary.Component:
			el.kind = entryComponent
			el.index = l.components
			l.components++
			el.child = c.aggregate(&v.Aggregate)
		}

		i := len(l.entries)
		l.entries = append(l.entries, el)
		l.byName[el.name] = i
		if el.field != nil {
			l.byTag[el.field.Number] = i
			if el.field.LengthNumber > 0 {
				l.lengthTags[el.field.LengthNumber] = i
			}
		}
	}
	return l
}

func (c *compiler) group(g *dictionary.Group) *layout {
	l := c.aggregate(&g.Aggregate)
	l.counter = g.Number
	if d, ok := g.Delimiter(); ok {
		l.delimiter = d.Number
	}
	return l
}

// finish computes tag sets once every layout exists. Component nesting is
// acyclic after validation, so the recursion terminates.
func (c *compiler) finish() {
	for _, l := range c.layouts {
		c.tagsOf(l)
	}
}

func (c *compiler) tagsOf(l *layout) *hashset.Set[int] {
	if l.tags != nil {
		return l.tags
	}
	tags := hashset.New[int]()
	for tag := range l.byTag {
		tags.Add(tag)
	}
	for tag := range l.lengthTags {
		tags.Add(tag)
	}
	for _, e := range l.entries {
		if e.kind == entryComponent {
			tags.Add(c.tagsOf(e.child).Values()...)
		}
	}
	l.tags = tags
	return tags
}

func timeFormat(t dictionary.FieldType) fields.TimeFormat {
	switch t {
	case dictionary.TypeUTCTimeOnly:
		return fields.UTCTimeOnly
	case dictionary.TypeUTCDateOnly:
		return fields.UTCDateOnly
	case dictionary.TypeLocalMktDate:
		return fields.LocalMktDate
	}
	return fields.UTCTimestamp
}
