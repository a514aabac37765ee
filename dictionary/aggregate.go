package dictionary

// Kind identifies the role of an aggregate
type Kind int

const (
	KindHeader Kind = iota
	KindTrailer
	KindMessage
	KindGroup
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "HEADER"
	case KindTrailer:
		return "TRAILER"
	case KindMessage:
		return "MESSAGE"
	case KindGroup:
		return "GROUP"
	case KindComponent:
		return "COMPONENT"
	}
	return "UNKNOWN"
}

// Element is the closed set of things an Entry can hold:
// *Field, *Group or *Component.
type Element interface {
	ElementName() string
	element()
}

// Entry is a named slot inside an aggregate
type Entry struct {
	Required bool
	Element  Element
}

// Required wraps an element in a required entry
func Required(e Element) Entry { return Entry{Required: true, Element: e} }

// Optional wraps an element in an optional entry
func Optional(e Element) Entry { return Entry{Element: e} }

// Name returns the element name, or "" for a dangling entry
func (e Entry) Name() string {
	if e.Element == nil {
		return ""
	}
	return e.Element.ElementName()
}

// Field returns the entry's field, if it holds one
func (e Entry) Field() (*Field, bool) {
	f, ok := e.Element.(*Field)
	return f, ok && f != nil
}

// Group returns the entry's group, if it holds one
func (e Entry) Group() (*Group, bool) {
	g, ok := e.Element.(*Group)
	return g, ok && g != nil
}

// Component returns the entry's component, if it holds one
func (e Entry) Component() (*Component, bool) {
	c, ok := e.Element.(*Component)
	return c, ok && c != nil
}

// Aggregate is a named composite owning an ordered sequence of entries.
// Declaration order determines accessor order and dump layout; wire order
// is not significant.
type Aggregate struct {
	Name    string
	Kind    Kind
	Entries []Entry
}

// NewHeader creates a header aggregate
func NewHeader(entries ...Entry) *Aggregate {
	return &Aggregate{Name: "Header", Kind: KindHeader, Entries: entries}
}

// NewTrailer creates a trailer aggregate
func NewTrailer(entries ...Entry) *Aggregate {
	return &Aggregate{Name: "Trailer", Kind: KindTrailer, Entries: entries}
}

// Message is an aggregate identified on the wire by its MsgType. Every
// message implicitly carries the dictionary's header and trailer.
type Message struct {
	Aggregate
	MsgType  string
	Category string
}

// NewMessage creates a message aggregate
func NewMessage(name, msgType string, entries ...Entry) *Message {
	return &Message{
		Aggregate: Aggregate{Name: name, Kind: KindMessage, Entries: entries},
		MsgType:   msgType,
	}
}

// Group is a repeatable aggregate introduced on the wire by its
// NumInGroup counter field. The first entry is the delimiter of each
// instance. Groups are the only permitted recursive structure.
type Group struct {
	Aggregate
	Number *Field
}

// NewGroup creates a group counted by number
func NewGroup(name string, number *Field, entries ...Entry) *Group {
	return &Group{
		Aggregate: Aggregate{Name: name, Kind: KindGroup, Entries: entries},
		Number:    number,
	}
}

// ElementName implements Element
func (g *Group) ElementName() string { return g.Name }

func (*Group) element() {}

// Delimiter returns the field that starts every group instance
func (g *Group) Delimiter() (*Field, bool) {
	if len(g.Entries) == 0 {
		return nil, false
	}
	return g.Entries[0].Field()
}

// Component is a reusable, non-repeating block of entries that is
// flattened into its container on the wire.
type Component struct {
	Aggregate
}

// NewComponent creates a component aggregate
func NewComponent(name string, entries ...Entry) *Component {
	return &Component{
		Aggregate: Aggregate{Name: name, Kind: KindComponent, Entries: entries},
	}
}

// ElementName implements Element
func (c *Component) ElementName() string { return c.Name }

func (*Component) element() {}
