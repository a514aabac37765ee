// Package generation compiles a dictionary into Go source: one typed
// encoder or decoder per aggregate, written as a file through an
// OutputManager. Generated code depends only on the codec, fields and
// validation packages of this module.
package generation

import (
	"github.com/dave/dst"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
)

var (
	ErrUnknownFlavor = xerrors.New("unknown flavor")
	ErrBadIdentifier = xerrors.New("name is not a Go identifier")
	ErrNameClash     = xerrors.New("generated name clash")
)

// Flavor selects which side of the codec pair is generated
type Flavor int

const (
	EncoderFlavor Flavor = iota
	DecoderFlavor
)

func (f Flavor) String() string {
	switch f {
	case EncoderFlavor:
		return "encoder"
	case DecoderFlavor:
		return "decoder"
	}
	return "unknown"
}

// ParseFlavor maps "encoder" or "decoder" to a Flavor
func ParseFlavor(s string) (Flavor, error) {
	switch s {
	case "encoder":
		return EncoderFlavor, nil
	case "decoder":
		return DecoderFlavor, nil
	}
	return 0, xerrors.Errorf("%q: %w", s, ErrUnknownFlavor)
}

func (f Flavor) strategy() (strategy, error) {
	switch f {
	case EncoderFlavor:
		return encoderStrategy{}, nil
	case DecoderFlavor:
		return decoderStrategy{}, nil
	}
	return nil, xerrors.Errorf("flavor %d: %w", int(f), ErrUnknownFlavor)
}

// Option configures a Generator
type Option func(*Generator)

// WithPackage sets the package clause of generated files. Defaults to the
// flavor name.
func WithPackage(name string) Option {
	return func(g *Generator) { g.pkg = name }
}

// WithImportPath sets the import path of the generated package so that it
// never imports itself. Defaults to the package name.
func WithImportPath(path string) Option {
	return func(g *Generator) { g.importPath = path }
}

// WithBeginString sets the BeginString generated messages write and
// expect. Defaults to FIX.4.4.
func WithBeginString(s string) Option {
	return func(g *Generator) { g.beginString = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generator emits the artifacts of one flavor for a dictionary. It keeps
// no state between calls to Generate.
type Generator struct {
	dict        *dictionary.Dictionary
	flavor      Flavor
	strategy    strategy
	out         OutputManager
	pkg         string
	importPath  string
	beginString string
	logger      *zap.Logger
}

// New creates a generator
func New(dict *dictionary.Dictionary, flavor Flavor, out OutputManager, opts ...Option) (*Generator, error) {
	st, err := flavor.strategy()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		dict:        dict,
		flavor:      flavor,
		strategy:    st,
		out:         out,
		pkg:         flavor.String(),
		beginString: dictionary.DefaultBeginString,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.importPath == "" {
		g.importPath = g.pkg
	}
	if err := checkIdentifier(g.pkg); err != nil {
		return nil, xerrors.Errorf("package: %w", err)
	}
	return g, nil
}

type artifact struct {
	name string
	file *dst.File
}

// Generate validates the dictionary and writes one artifact per
// aggregate: header, trailer, every message, every component, then every
// group. Any schema or naming error fails the whole run before anything
// is written.
func (g *Generator) Generate() error {
	if err := g.dict.Validate(); err != nil {
		return xerrors.Errorf("generate %s: %w", g.flavor, err)
	}

	res := newResolver(g.strategy.suffix())
	header, err := res.resolve(g.dict.Header(), "")
	if err != nil {
		return xerrors.Errorf("generate %s: %w", g.flavor, err)
	}
	trailer, err := res.resolve(g.dict.Trailer(), "")
	if err != nil {
		return xerrors.Errorf("generate %s: %w", g.flavor, err)
	}

	models := []*model{header, trailer}
	for _, m := range g.dict.Messages() {
		mm, err := res.resolve(&m.Aggregate, m.MsgType)
		if err != nil {
			return xerrors.Errorf("generate %s: %w", g.flavor, err)
		}
		models = append(models, mm)
	}
	for _, c := range g.dict.Components() {
		models = append(models, res.models[&c.Aggregate])
	}
	for _, gr := range g.dict.Groups() {
		models = append(models, res.models[&gr.Aggregate])
	}

	em := &emitter{
		st:          g.strategy,
		pkg:         g.pkg,
		importPath:  g.importPath,
		beginString: g.beginString,
		header:      header,
		trailer:     trailer,
		enums:       make(map[*dictionary.Field]bool),
	}
	artifacts := make([]artifact, 0, len(models))
	for _, m := range models {
		f, err := em.artifact(m)
		if err != nil {
			return xerrors.Errorf("generate %s: %w", g.flavor, err)
		}
		artifacts = append(artifacts, artifact{name: m.typeName, file: f})
	}

	for _, a := range artifacts {
		if err := g.write(a); err != nil {
			return err
		}
	}

	g.logger.Info("Generated codecs",
		zap.Stringer("flavor", g.flavor),
		zap.String("package", g.pkg),
		zap.Int("artifacts", len(artifacts)))
	return nil
}

func (g *Generator) write(a artifact) error {
	data, err := render(a.file, g.importPath)
	if err != nil {
		return xerrors.Errorf("generate %s: %w", a.name, err)
	}
	w, err := g.out.CreateOutput(a.name)
	if err != nil {
		return xerrors.Errorf("create output %s: %w", a.name, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return xerrors.Errorf("write %s: %w", a.name, err)
	}
	if err := w.Close(); err != nil {
		return xerrors.Errorf("close %s: %w", a.name, err)
	}
	g.logger.Debug("Wrote artifact", zap.String("name", a.name), zap.Int("bytes", len(data)))
	return nil
}
