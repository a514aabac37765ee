package codec

import (
	"errors"
	"sync"

	"github.com/emirpasic/gods/v2/maps/treemap"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
	"fix-gateway/fields"
	"fix-gateway/metrics"
	"fix-gateway/validation"
)

// Codecs is a dictionary compiled into per-aggregate layouts. It is
// immutable after Compile and safe for concurrent use; the encoders and
// decoders it hands out are not.
type Codecs struct {
	dict        *dictionary.Dictionary
	validator   *validation.Validator
	beginString string
	logger      *zap.Logger
	metrics     *metrics.Codec

	header  *layout
	trailer *layout

	// ordered by MsgType for listing; byMsgType serves the hot path
	messages  *treemap.Map[string, *layout]
	byMsgType map[string]*layout
	byName    map[string]*layout

	// recycled decoders, one pool per MsgType
	pools map[string]*sync.Pool
}

// Option configures Compile
type Option func(*Codecs)

// WithValidator sets the MsgType validator. Defaults to an enabled one.
func WithValidator(v *validation.Validator) Option {
	return func(c *Codecs) { c.validator = v }
}

// WithBeginString sets the BeginString written and expected. Defaults to
// FIX.4.4.
func WithBeginString(s string) Option {
	return func(c *Codecs) { c.beginString = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Codecs) { c.logger = l }
}

// WithMetrics records pooled decodes
func WithMetrics(m *metrics.Codec) Option {
	return func(c *Codecs) { c.metrics = m }
}

// Compile validates dict and compiles a layout for every aggregate.
// Schema errors are fatal.
func Compile(dict *dictionary.Dictionary, opts ...Option) (*Codecs, error) {
	if err := dict.Validate(); err != nil {
		return nil, xerrors.Errorf("compile codecs: %w", err)
	}

	c := &Codecs{
		dict:        dict,
		validator:   validation.New(true),
		beginString: dictionary.DefaultBeginString,
		logger:      zap.NewNop(),
		messages:    treemap.New[string, *layout](),
		byMsgType:   make(map[string]*layout, len(dict.Messages())),
		byName:      make(map[string]*layout),
		pools:       make(map[string]*sync.Pool, len(dict.Messages())),
	}
	for _, opt := range opts {
		opt(c)
	}

	comp := newCompiler()
	c.header = comp.aggregate(dict.Header())
	c.trailer = comp.aggregate(dict.Trailer())
	c.byName[c.header.name] = c.header
	c.byName[c.trailer.name] = c.trailer

	for _, m := range dict.Messages() {
		l := comp.message(m)
		c.messages.Put(m.MsgType, l)
		c.byMsgType[m.MsgType] = l
		c.byName[m.Name] = l
	}
	for _, g := range dict.Groups() {
		c.byName[g.Name] = comp.group(g)
	}
	for _, cm := range dict.Components() {
		c.byName[cm.Name] = comp.aggregate(&cm.Aggregate)
	}
	comp.finish()

	for msgType, l := range c.byMsgType {
		c.pools[msgType] = &sync.Pool{
			New: func() any { return c.newDecoder(l) },
		}
	}

	c.logger.Info("Compiled codecs",
		zap.Int("messages", len(c.byMsgType)),
		zap.Int("groups", len(dict.Groups())),
		zap.Int("components", len(dict.Components())),
		zap.String("begin_string", c.beginString),
		zap.Bool("validation", c.validator.Enabled()))
	return c, nil
}

// Dictionary returns the compiled dictionary
func (c *Codecs) Dictionary() *dictionary.Dictionary { return c.dict }

// Validator returns the MsgType validator in use
func (c *Codecs) Validator() *validation.Validator { return c.validator }

// BeginString returns the BeginString written and expected
func (c *Codecs) BeginString() string { return c.beginString }

// MessageTypes lists every MsgType in ascending order
func (c *Codecs) MessageTypes() []string { return c.messages.Keys() }

func (c *Codecs) lookup(name string) (*layout, error) {
	if l, ok := c.byName[name]; ok {
		return l, nil
	}
	if l, ok := c.byMsgType[name]; ok {
		return l, nil
	}
	return nil, xerrors.Errorf("%q: %w", name, ErrUnknownMessage)
}

// NewEncoder creates an encoder for an aggregate, named either by
// aggregate name or by MsgType.
func (c *Codecs) NewEncoder(name string) (*AggregateEncoder, error) {
	l, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	a := newAggregate(l, encoderFlavor{}, c, nil)
	if l.isMessage() {
		a.header.setBytes(dictionary.BeginString, []byte(c.beginString))
		a.header.setBytes(dictionary.MsgType, []byte(l.msgType))
	}
	return asEncoder(a), nil
}

// NewDecoder creates a decoder for an aggregate, named either by
// aggregate name or by MsgType.
func (c *Codecs) NewDecoder(name string) (*AggregateDecoder, error) {
	l, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.newDecoder(l), nil
}

func (c *Codecs) newDecoder(l *layout) *AggregateDecoder {
	return asDecoder(newAggregate(l, decoderFlavor{}, c, &fields.ASCIIFlyweight{}))
}

// Decode frames the message at buf[offset:offset+length], picks the
// decoder for its MsgType from a pool and decodes into it. Hand the
// decoder back with Release once its views are no longer needed.
func (c *Codecs) Decode(buf []byte, offset, length int) (*AggregateDecoder, error) {
	f, err := ParseFrame(buf, offset, length, c.beginString)
	if err != nil {
		c.metrics.ObserveError(errorReason(err))
		return nil, err
	}
	l, ok := c.byMsgType[string(f.MsgType(buf))]
	if !ok {
		c.metrics.ObserveError(errorReason(ErrUnknownMessage))
		return nil, xerrors.Errorf("%q: %w", f.MsgType(buf), ErrUnknownMessage)
	}

	d := c.pools[l.msgType].Get().(*AggregateDecoder)
	if _, err := d.decodeFrame(buf, f); err != nil {
		c.Release(d)
		c.metrics.ObserveError(errorReason(err))
		return nil, err
	}
	c.metrics.ObserveDecode(l.msgType)
	return d, nil
}

// Release returns a decoder obtained from Decode to its pool. The decoder
// must not be used afterwards.
func (c *Codecs) Release(d *AggregateDecoder) {
	if d == nil || !d.layout.isMessage() {
		return
	}
	pool, ok := c.pools[d.layout.msgType]
	if !ok {
		return
	}
	d.agg().clear()
	d.wire.Wrap(nil)
	d.reader.Reset(nil, 0, 0)
	pool.Put(d)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrBadBeginString):
		return "begin_string"
	case errors.Is(err, ErrBadBodyLength):
		return "body_length"
	case errors.Is(err, ErrBadChecksum):
		return "checksum"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrUnknownMessage):
		return "unknown_message"
	case errors.Is(err, ErrBadGroupCount):
		return "group_count"
	default:
		return "malformed"
	}
}
