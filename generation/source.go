package generation

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/goast"
	"github.com/dave/dst/decorator/resolver/guess"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
)

const (
	runtimeModule  = "fix-gateway"
	codecPath      = runtimeModule + "/codec"
	fieldsPath     = runtimeModule + "/fields"
	validationPath = runtimeModule + "/validation"
	decimalPath    = "github.com/shopspring/decimal"
	xerrorsPath    = "golang.org/x/xerrors"

	generatedHeader = "// Code generated by fixgen. DO NOT EDIT."
)

// stubImports lets method snippets refer to every package generated code
// may use; the restorer keeps only the ones actually referenced.
var stubImports = fmt.Sprintf(`import (
	"time"

	%q
	%q

	%q
	%q
	%q
)
`, decimalPath, xerrorsPath, codecPath, fieldsPath, validationPath)

// source accumulates Go declarations as text before they are compiled
// into dst nodes
type source struct {
	b strings.Builder
}

func (s *source) line(format string, args ...any) {
	fmt.Fprintf(&s.b, format, args...)
	s.b.WriteByte('\n')
}

func (s *source) blank() { s.b.WriteByte('\n') }

// compile parses the accumulated declarations with import resolution so
// that package selectors carry their import paths.
func (s *source) compile(importPath string) ([]dst.Decl, error) {
	src := "package stub\n\n" + stubImports + "\n" + s.b.String()
	f, err := decorator.NewDecoratorWithImports(token.NewFileSet(), importPath, goast.New()).Parse(src)
	if err != nil {
		return nil, xerrors.Errorf("compile generated declarations: %w", err)
	}
	decls := make([]dst.Decl, 0, len(f.Decls))
	for _, d := range f.Decls {
		if gd, ok := d.(*dst.GenDecl); ok && gd.Tok == token.IMPORT {
			continue
		}
		d.Decorations().Before = dst.EmptyLine
		decls = append(decls, d)
	}
	return decls, nil
}

// render restores a file with managed imports and formats it
func render(f *dst.File, importPath string) ([]byte, error) {
	if imports := importDecl(f, importPath); imports != nil {
		f.Decls = append([]dst.Decl{imports}, f.Decls...)
	}
	restorer := decorator.NewRestorerWithImports(importPath, guess.New())
	restored, err := restorer.RestoreFile(f)
	if err != nil {
		return nil, xerrors.Errorf("restore %s: %w", f.Name.Name, err)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, restorer.Fset, restored); err != nil {
		return nil, xerrors.Errorf("format %s: %w", f.Name.Name, err)
	}
	return buf.Bytes(), nil
}

// importDecl lays out the imports f refers to in three groups: standard
// library, third party, then this module. The restorer keeps the spacing
// of an import block that already holds every path it needs.
func importDecl(f *dst.File, importPath string) *dst.GenDecl {
	seen := make(map[string]bool)
	dst.Inspect(f, func(n dst.Node) bool {
		if id, ok := n.(*dst.Ident); ok && id.Path != "" && id.Path != importPath {
			seen[id.Path] = true
		}
		return true
	})
	if len(seen) == 0 {
		return nil
	}

	var groups [3][]string
	for path := range seen {
		groups[importGroup(path)] = append(groups[importGroup(path)], path)
	}
	gd := &dst.GenDecl{Tok: token.IMPORT, Lparen: len(seen) > 1, Rparen: len(seen) > 1}
	gd.Decs.Before, gd.Decs.After = dst.EmptyLine, dst.EmptyLine
	for _, group := range groups {
		sort.Strings(group)
		for i, path := range group {
			spec := &dst.ImportSpec{Path: &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(path)}}
			spec.Decs.Before, spec.Decs.After = dst.NewLine, dst.NewLine
			if i == 0 && len(gd.Specs) > 0 {
				spec.Decs.Before = dst.EmptyLine
			}
			gd.Specs = append(gd.Specs, spec)
		}
	}
	return gd
}

func importGroup(path string) int {
	switch {
	case path == runtimeModule || strings.HasPrefix(path, runtimeModule+"/"):
		return 2
	case strings.Contains(path, "."):
		return 1
	default:
		return 0
	}
}

func newFile(pkg string) *dst.File {
	f := &dst.File{Name: dst.NewIdent(pkg)}
	f.Decs.Start.Append(generatedHeader, "\n")
	return f
}

func qualified(path, name string) *dst.Ident {
	return &dst.Ident{Name: name, Path: path}
}

func structField(name string, typ dst.Expr, before dst.SpaceType) *dst.Field {
	f := &dst.Field{Names: []*dst.Ident{dst.NewIdent(name)}, Type: typ}
	f.Decs.Before = before
	return f
}

// slotExpr is the struct field type holding values of f
func slotExpr(f *dictionary.Field) dst.Expr {
	switch f.Type.Storage() {
	case dictionary.StorageChar:
		return dst.NewIdent("byte")
	case dictionary.StorageBool:
		return dst.NewIdent("bool")
	case dictionary.StorageInt:
		return dst.NewIdent("int64")
	case dictionary.StorageDecimal:
		return qualified(decimalPath, "Decimal")
	case dictionary.StorageTime:
		return qualified("time", "Time")
	default:
		return &dst.ArrayType{Elt: dst.NewIdent("byte")}
	}
}

// goType is slotExpr as it is spelled inside method snippets
func goType(f *dictionary.Field) string {
	switch f.Type.Storage() {
	case dictionary.StorageChar:
		return "byte"
	case dictionary.StorageBool:
		return "bool"
	case dictionary.StorageInt:
		return "int64"
	case dictionary.StorageDecimal:
		return "decimal.Decimal"
	case dictionary.StorageTime:
		return "time.Time"
	default:
		return "[]byte"
	}
}

func zeroValue(f *dictionary.Field) string {
	switch f.Type.Storage() {
	case dictionary.StorageChar, dictionary.StorageInt:
		return "0"
	case dictionary.StorageBool:
		return "false"
	case dictionary.StorageDecimal:
		return "decimal.Decimal{}"
	case dictionary.StorageTime:
		return "time.Time{}"
	default:
		return "nil"
	}
}

func timeFormat(t dictionary.FieldType) string {
	switch t {
	case dictionary.TypeUTCTimeOnly:
		return "fields.UTCTimeOnly"
	case dictionary.TypeUTCDateOnly:
		return "fields.UTCDateOnly"
	case dictionary.TypeLocalMktDate:
		return "fields.LocalMktDate"
	default:
		return "fields.UTCTimestamp"
	}
}

// enumLiteral renders a value representation as a constant of the
// field's storage class
func enumLiteral(f *dictionary.Field, repr string) dst.Expr {
	switch f.Type.Storage() {
	case dictionary.StorageChar:
		if len(repr) == 1 {
			return &dst.BasicLit{Kind: token.CHAR, Value: strconv.QuoteRune(rune(repr[0]))}
		}
	case dictionary.StorageInt:
		if _, err := strconv.ParseInt(repr, 10, 64); err == nil {
			return &dst.BasicLit{Kind: token.INT, Value: repr}
		}
	case dictionary.StorageBool:
		switch repr {
		case "Y":
			return dst.NewIdent("true")
		case "N":
			return dst.NewIdent("false")
		}
	}
	return &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(repr)}
}
