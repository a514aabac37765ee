package codec

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fix-gateway/fields"
)

// Dump builds the object-literal rendering codecs return from String.
// Every object opens with its aggregate name under "MsgType"; nested
// aggregates and group sequences indent by two spaces per level.
//
//	{
//	  "MsgType": "Heartbeat",
//	  "TestReqID": "abc"
//	}
type Dump struct {
	b      []byte
	levels []level
}

// level is one open object or array
type level struct {
	fresh  bool // no members written yet
	closer byte
}

// NewDump starts a root object for the aggregate called name
func NewDump(name string) *Dump {
	d := &Dump{b: make([]byte, 0, 256)}
	d.Open("", name)
	return d
}

func (d *Dump) member(key string) {
	if n := len(d.levels); n > 0 {
		if d.levels[n-1].fresh {
			d.b = append(d.b, '\n')
			d.levels[n-1].fresh = false
		} else {
			d.b = append(d.b, ",\n"...)
		}
		d.indent(n)
	}
	if key != "" {
		d.b = strconv.AppendQuote(d.b, key)
		d.b = append(d.b, ": "...)
	}
}

func (d *Dump) indent(depth int) {
	for i := 0; i < depth; i++ {
		d.b = append(d.b, "  "...)
	}
}

func (d *Dump) close() {
	n := len(d.levels)
	if n == 0 {
		return
	}
	top := d.levels[n-1]
	if !top.fresh {
		d.b = append(d.b, '\n')
		d.indent(n - 1)
	}
	d.levels = d.levels[:n-1]
	d.b = append(d.b, top.closer)
}

// Open starts a nested object under key, or an array element when key is
// empty, and writes its MsgType line.
func (d *Dump) Open(key, name string) {
	d.member(key)
	d.b = append(d.b, '{')
	d.levels = append(d.levels, level{fresh: true, closer: '}'})
	d.Str("MsgType", []byte(name))
}

// Close ends the innermost object
func (d *Dump) Close() { d.close() }

// OpenArray starts a sequence under key
func (d *Dump) OpenArray(key string) {
	d.member(key)
	d.b = append(d.b, '[')
	d.levels = append(d.levels, level{fresh: true, closer: ']'})
}

// CloseArray ends the innermost sequence
func (d *Dump) CloseArray() { d.close() }

// Str writes a quoted string value
func (d *Dump) Str(key string, v []byte) {
	d.member(key)
	d.b = strconv.AppendQuote(d.b, string(v))
}

// Char writes a single character as a quoted string
func (d *Dump) Char(key string, v byte) {
	d.member(key)
	d.b = strconv.AppendQuote(d.b, string([]byte{v}))
}

// Int writes an integer
func (d *Dump) Int(key string, v int64) {
	d.member(key)
	d.b = strconv.AppendInt(d.b, v, 10)
}

// Decimal writes a decimal in plain notation
func (d *Dump) Decimal(key string, v decimal.Decimal) {
	d.member(key)
	d.b = append(d.b, v.String()...)
}

// Bool writes true or false
func (d *Dump) Bool(key string, v bool) {
	d.member(key)
	d.b = strconv.AppendBool(d.b, v)
}

// Time writes a quoted time in its FIX format
func (d *Dump) Time(key string, v time.Time, format fields.TimeFormat) {
	d.member(key)
	if format.UTC() {
		v = v.UTC()
	}
	d.b = append(d.b, '"')
	d.b = v.AppendFormat(d.b, format.Layout())
	d.b = append(d.b, '"')
}

// Data writes raw bytes as a list of byte values
func (d *Dump) Data(key string, v []byte) {
	d.member(key)
	d.b = append(d.b, '[')
	for i, c := range v {
		if i > 0 {
			d.b = append(d.b, ", "...)
		}
		d.b = strconv.AppendUint(d.b, uint64(c), 10)
	}
	d.b = append(d.b, ']')
}

// String closes anything still open and returns the rendering
func (d *Dump) String() string {
	for len(d.levels) > 0 {
		d.close()
	}
	return string(d.b)
}
