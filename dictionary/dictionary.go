package dictionary

import (
	"errors"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/emirpasic/gods/v2/sets/hashset"
	"golang.org/x/xerrors"
)

var (
	ErrMissingHeader      = xerrors.New("dictionary has no header")
	ErrMissingTrailer     = xerrors.New("dictionary has no trailer")
	ErrDanglingEntry      = xerrors.New("entry references no element")
	ErrDuplicateField     = xerrors.New("duplicate field")
	ErrDuplicateAggregate = xerrors.New("duplicate aggregate name")
	ErrDuplicateMsgType   = xerrors.New("duplicate message type")
	ErrRecursiveComponent = xerrors.New("component contains itself")
	ErrMalformedGroup     = xerrors.New("malformed group")
)

// Dictionary is the root of the IR: exactly one header, one trailer and a
// set of messages, plus every field, group and component they reach.
//
// A Dictionary is read-only once built. Lookups are indexed at
// construction; structural problems found while indexing are reported by
// Validate rather than by New so that callers decide when to fail.
type Dictionary struct {
	header   *Aggregate
	trailer  *Aggregate
	messages []*Message

	// first-seen order, keyed by name
	fields     *linkedhashmap.Map[string, *Field]
	groups     *linkedhashmap.Map[string, *Group]
	components *linkedhashmap.Map[string, *Component]
	byMsgType  map[string]*Message

	problems []error
}

// New builds and indexes a dictionary
func New(header, trailer *Aggregate, messages ...*Message) *Dictionary {
	d := &Dictionary{
		header:     header,
		trailer:    trailer,
		messages:   messages,
		fields:     linkedhashmap.New[string, *Field](),
		groups:     linkedhashmap.New[string, *Group](),
		components: linkedhashmap.New[string, *Component](),
		byMsgType:  make(map[string]*Message, len(messages)),
	}
	d.index()
	return d
}

// Header returns the shared header shape
func (d *Dictionary) Header() *Aggregate { return d.header }

// Trailer returns the shared trailer shape
func (d *Dictionary) Trailer() *Aggregate { return d.trailer }

// Messages returns messages in declaration order
func (d *Dictionary) Messages() []*Message { return d.messages }

// Fields returns every reachable field in first-seen order
func (d *Dictionary) Fields() []*Field { return d.fields.Values() }

// Groups returns every reachable group in first-seen order
func (d *Dictionary) Groups() []*Group { return d.groups.Values() }

// Components returns every reachable component in first-seen order
func (d *Dictionary) Components() []*Component { return d.components.Values() }

// Field looks a field up by name
func (d *Dictionary) Field(name string) (*Field, bool) {
	return d.fields.Get(name)
}

// Message looks a message up by its MsgType
func (d *Dictionary) Message(msgType string) (*Message, bool) {
	m, ok := d.byMsgType[msgType]
	return m, ok
}

// Validate reports every structural inconsistency found in the
// dictionary. Schema errors are fatal for code generation.
func (d *Dictionary) Validate() error {
	if len(d.problems) == 0 {
		return nil
	}
	return errors.Join(d.problems...)
}

func (d *Dictionary) fail(err error) {
	d.problems = append(d.problems, err)
}

type indexer struct {
	d       *Dictionary
	visited *hashset.Set[*Aggregate]
	numbers map[int]*Field
	names   map[string]*Aggregate
	onPath  *hashset.Set[*Component]
}

func (d *Dictionary) index() {
	ix := &indexer{
		d:       d,
		visited: hashset.New[*Aggregate](),
		numbers: make(map[int]*Field),
		names:   make(map[string]*Aggregate),
		onPath:  hashset.New[*Component](),
	}

	if d.header == nil {
		d.fail(ErrMissingHeader)
	} else {
		if d.header.Kind != KindHeader {
			d.fail(xerrors.Errorf("%s has kind %s: %w", d.header.Name, d.header.Kind, ErrMissingHeader))
		}
		ix.aggregate(d.header)
	}
	if d.trailer == nil {
		d.fail(ErrMissingTrailer)
	} else {
		if d.trailer.Kind != KindTrailer {
			d.fail(xerrors.Errorf("%s has kind %s: %w", d.trailer.Name, d.trailer.Kind, ErrMissingTrailer))
		}
		ix.aggregate(d.trailer)
	}

	for _, m := range d.messages {
		if m == nil {
			d.fail(xerrors.Errorf("nil message: %w", ErrDanglingEntry))
			continue
		}
		if m.MsgType == "" {
			d.fail(xerrors.Errorf("message %s has no MsgType: %w", m.Name, ErrDuplicateMsgType))
		} else if prev, ok := d.byMsgType[m.MsgType]; ok {
			d.fail(xerrors.Errorf("MsgType %q used by %s and %s: %w", m.MsgType, prev.Name, m.Name, ErrDuplicateMsgType))
		} else {
			d.byMsgType[m.MsgType] = m
		}
		ix.name(&m.Aggregate)
		ix.aggregate(&m.Aggregate)
	}
}

func (ix *indexer) name(a *Aggregate) {
	if prev, ok := ix.names[a.Name]; ok && prev != a {
		ix.d.fail(xerrors.Errorf("%s (%s and %s): %w", a.Name, prev.Kind, a.Kind, ErrDuplicateAggregate))
		return
	}
	ix.names[a.Name] = a
}

func (ix *indexer) field(f *Field) {
	if prev, ok := ix.d.fields.Get(f.Name); ok {
		if prev != f {
			ix.d.fail(xerrors.Errorf("field %s (tags %d and %d): %w", f.Name, prev.Number, f.Number, ErrDuplicateField))
		}
		return
	}
	if prev, ok := ix.numbers[f.Number]; ok && prev != f {
		ix.d.fail(xerrors.Errorf("tag %d used by %s and %s: %w", f.Number, prev.Name, f.Name, ErrDuplicateField))
		return
	}
	ix.numbers[f.Number] = f
	ix.d.fields.Put(f.Name, f)
}

// aggregate walks entries depth first. Components are tracked on the
// current path; entering a group starts a fresh path, which is what lets
// groups mediate recursion.
func (ix *indexer) aggregate(a *Aggregate) {
	if ix.visited.Contains(a) {
		return
	}
	ix.visited.Add(a)

	for i, entry := range a.Entries {
		switch el := entry.Element.(type) {
		case *Field:
			if el == nil {
				ix.d.fail(xerrors.Errorf("%s entry %d: %w", a.Name, i, ErrDanglingEntry))
				continue
			}
			ix.field(el)
		case *Group:
			if el == nil {
				ix.d.fail(xerrors.Errorf("%s entry %d: %w", a.Name, i, ErrDanglingEntry))
				continue
			}
			ix.group(el)
		case *Component:
			if el == nil {
				ix.d.fail(xerrors.Errorf("%s entry %d: %w", a.Name, i, ErrDanglingEntry))
				continue
			}
			ix.component(a, el)
		default:
			ix.d.fail(xerrors.Errorf("%s entry %d: %w", a.Name, i, ErrDanglingEntry))
		}
	}
}

func (ix *indexer) group(g *Group) {
	if ix.visited.Contains(&g.Aggregate) {
		return
	}
	ix.name(&g.Aggregate)
	if g.Number == nil {
		ix.d.fail(xerrors.Errorf("group %s has no NumInGroup field: %w", g.Name, ErrMalformedGroup))
	} else {
		ix.field(g.Number)
	}
	if _, ok := g.Delimiter(); !ok {
		ix.d.fail(xerrors.Errorf("group %s must start with a field: %w", g.Name, ErrMalformedGroup))
	}
	if _, ok := ix.d.groups.Get(g.Name); !ok {
		ix.d.groups.Put(g.Name, g)
	}

	saved := ix.onPath
	ix.onPath = hashset.New[*Component]()
	ix.aggregate(&g.Aggregate)
	ix.onPath = saved
}

func (ix *indexer) component(parent *Aggregate, c *Component) {
	if ix.onPath.Contains(c) {
		ix.d.fail(xerrors.Errorf("%s via %s: %w", c.Name, parent.Name, ErrRecursiveComponent))
		return
	}
	if ix.visited.Contains(&c.Aggregate) {
		return
	}
	ix.name(&c.Aggregate)
	if _, ok := ix.d.components.Get(c.Name); !ok {
		ix.d.components.Put(c.Name, c)
	}

	ix.onPath.Add(c)
	ix.aggregate(&c.Aggregate)
	ix.onPath.Remove(c)
}
