// Command fixgen writes typed Go encoders and decoders for a dictionary.
//
//	fixgen --out ./gen --module example.com/app/gen
//
// Each flavor goes to its own package under --out, so enum constants and
// type names never collide between the two.
package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
	"fix-gateway/dictionary/dictionarytest"
	"fix-gateway/generation"
	"fix-gateway/logger"
)

type options struct {
	out            string
	module         string
	flavor         string
	dictionary     string
	encoderPackage string
	decoderPackage string
	beginString    string
	logLevel       string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	fs := pflag.NewFlagSet("fixgen", pflag.ContinueOnError)
	fs.StringVar(&opts.out, "out", "generated", "output directory; each flavor gets a subdirectory named after its package")
	fs.StringVar(&opts.module, "module", "", "import path of --out, used so generated packages never import themselves")
	fs.StringVar(&opts.flavor, "flavor", "both", "encoder, decoder or both")
	fs.StringVar(&opts.dictionary, "dictionary", "session", "built-in dictionary: session or example")
	fs.StringVar(&opts.encoderPackage, "encoder-package", "encoder", "package name of generated encoders")
	fs.StringVar(&opts.decoderPackage, "decoder-package", "decoder", "package name of generated decoders")
	fs.StringVar(&opts.beginString, "begin-string", dictionary.DefaultBeginString, "BeginString written and expected by generated messages")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := logger.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	dict, err := builtinDictionary(opts.dictionary)
	if err != nil {
		return err
	}
	flavors, err := selectFlavors(opts.flavor)
	if err != nil {
		return err
	}

	osFs := afero.NewOsFs()
	for _, flavor := range flavors {
		pkg := opts.encoderPackage
		if flavor == generation.DecoderFlavor {
			pkg = opts.decoderPackage
		}
		importPath := pkg
		if opts.module != "" {
			importPath = path.Join(opts.module, pkg)
		}
		dir := filepath.Join(opts.out, pkg)

		g, err := generation.New(dict, flavor, generation.NewFileOutputManager(osFs, dir),
			generation.WithPackage(pkg),
			generation.WithImportPath(importPath),
			generation.WithBeginString(opts.beginString),
			generation.WithLogger(log.With(zap.String("dir", dir))))
		if err != nil {
			return err
		}
		if err := g.Generate(); err != nil {
			return err
		}
	}
	return nil
}

func builtinDictionary(name string) (*dictionary.Dictionary, error) {
	switch name {
	case "session":
		return dictionary.Session(), nil
	case "example":
		return dictionarytest.Example(), nil
	}
	return nil, xerrors.Errorf("unknown dictionary %q", name)
}

func selectFlavors(name string) ([]generation.Flavor, error) {
	if name == "both" {
		return []generation.Flavor{generation.EncoderFlavor, generation.DecoderFlavor}, nil
	}
	f, err := generation.ParseFlavor(name)
	if err != nil {
		return nil, err
	}
	return []generation.Flavor{f}, nil
}
