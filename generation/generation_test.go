package generation_test

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fix-gateway/dictionary"
	"fix-gateway/dictionary/dictionarytest"
	"fix-gateway/generation"
)

var suffix = map[generation.Flavor]string{
	generation.EncoderFlavor: "Encoder",
	generation.DecoderFlavor: "Decoder",
}

// memoryOutput records artifacts in creation order
type memoryOutput struct {
	order []string
	files map[string]*bytes.Buffer
}

func newMemoryOutput() *memoryOutput {
	return &memoryOutput{files: make(map[string]*bytes.Buffer)}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func (m *memoryOutput) CreateOutput(name string) (io.WriteCloser, error) {
	m.order = append(m.order, name)
	b := &bytes.Buffer{}
	m.files[name] = b
	return nopCloser{b}, nil
}

// parsed is one generated file as seen by go/parser
type parsed struct {
	file    *ast.File
	src     string
	types   map[string]bool
	methods map[string]*ast.FuncDecl // "Type.Method"
	consts  map[string]string
	imports map[string]bool
}

func parse(t *testing.T, name, src string) *parsed {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), name+".go", src, parser.ParseComments)
	require.NoError(t, err, src)

	p := &parsed{
		file:    f,
		src:     src,
		types:   make(map[string]bool),
		methods: make(map[string]*ast.FuncDecl),
		consts:  make(map[string]string),
		imports: make(map[string]bool),
	}
	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		p.imports[path] = true
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					p.types[s.Name.Name] = true
				case *ast.ValueSpec:
					if d.Tok != token.CONST {
						continue
					}
					switch v := s.Values[0].(type) {
					case *ast.BasicLit:
						p.consts[s.Names[0].Name] = v.Value
					case *ast.Ident:
						p.consts[s.Names[0].Name] = v.Name
					}
				}
			}
		case *ast.FuncDecl:
			recv := d.Recv.List[0].Type.(*ast.StarExpr).X.(*ast.Ident).Name
			p.methods[recv+"."+d.Name.Name] = d
		}
	}
	return p
}

func generate(t *testing.T, dict *dictionary.Dictionary, flavor generation.Flavor) (*memoryOutput, map[string]*parsed) {
	t.Helper()
	out := newMemoryOutput()
	g, err := generation.New(dict, flavor, out, generation.WithPackage("fixcodec"))
	require.NoError(t, err)
	require.NoError(t, g.Generate())

	files := make(map[string]*parsed, len(out.files))
	for name, b := range out.files {
		files[name] = parse(t, name, b.String())
	}
	return out, files
}

// calls lists the selector calls made directly in a function body
func calls(fn *ast.FuncDecl) []string {
	var names []string
	for _, stmt := range fn.Body.List {
		expr, ok := stmt.(*ast.ExprStmt)
		if !ok {
			continue
		}
		if call, ok := expr.X.(*ast.CallExpr); ok {
			if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
				names = append(names, sel.Sel.Name)
			}
		}
	}
	return names
}

func TestGenerateOrder(t *testing.T) {
	out, _ := generate(t, dictionarytest.Example(), generation.EncoderFlavor)
	assert.Equal(t, []string{
		"HeaderEncoder",
		"TrailerEncoder",
		"HeartbeatEncoder",
		"EgMessageEncoder",
		"EgComponentEncoder",
		"EgGroupEncoder",
	}, out.order)

	out, _ = generate(t, dictionarytest.Example(), generation.DecoderFlavor)
	assert.Equal(t, "HeaderDecoder", out.order[0])
	assert.Equal(t, "EgGroupDecoder", out.order[len(out.order)-1])
}

func TestEncoderArtifacts(t *testing.T) {
	_, files := generate(t, dictionarytest.Example(), generation.EncoderFlavor)
	msg := files["EgMessageEncoder"]

	assert.True(t, strings.HasPrefix(msg.src, "// Code generated by fixgen. DO NOT EDIT."))
	assert.Equal(t, "fixcodec", msg.file.Name.Name)
	assert.True(t, msg.types["EgMessageEncoder"])
	assert.Contains(t, msg.src, "var _ codec.Encoder = (*EgMessageEncoder)(nil)")
	for _, path := range []string{"fix-gateway/codec", "fix-gateway/fields", "github.com/shopspring/decimal", "time"} {
		assert.True(t, msg.imports[path], path)
	}

	// required fields: setter and getter only
	for _, name := range []string{"SetIntField", "IntField", "SetFloatField", "FloatField"} {
		assert.Contains(t, msg.methods, "EgMessageEncoder."+name)
	}
	assert.NotContains(t, msg.methods, "EgMessageEncoder.HasIntField")
	assert.NotContains(t, msg.methods, "EgMessageEncoder.ResetIntField")

	// optional fields: presence and reset as well
	for _, name := range []string{"SetTestReqID", "SetTestReqIDBytes", "HasTestReqID", "ResetTestReqID", "SetDataField", "HasCharField"} {
		assert.Contains(t, msg.methods, "EgMessageEncoder."+name)
	}

	// groups and components
	for _, name := range []string{"AddEgGroup", "EgGroup", "ClearEgGroup", "EgComponent", "HasEgComponent", "ClearEgComponent"} {
		assert.Contains(t, msg.methods, "EgMessageEncoder."+name)
	}

	// header and trailer composed by value
	for _, name := range []string{"Header", "Trailer", "MsgType", "Encode", "Reset", "String"} {
		assert.Contains(t, msg.methods, "EgMessageEncoder."+name)
	}
	assert.Contains(t, msg.src, `return "E"`)
	assert.Contains(t, msg.src, `codec.FinishMessage(w, offset, start, pos, "FIX.4.4")`)
}

func TestResetTouchesOptionalFieldsOnly(t *testing.T) {
	for _, flavor := range []generation.Flavor{generation.EncoderFlavor, generation.DecoderFlavor} {
		t.Run(flavor.String(), func(t *testing.T) {
			_, files := generate(t, dictionarytest.Example(), flavor)
			typ := "EgMessage" + suffix[flavor]

			reset := files[typ].methods[typ+".Reset"]
			require.NotNil(t, reset)
			assert.Equal(t, []string{
				"ResetTestReqID",
				"ResetBooleanField",
				"ResetDataField",
				"ResetSomeTimeField",
				"ResetCharField",
			}, calls(reset))
		})
	}
}

func TestDumpChainsGroupsInEncoderOnly(t *testing.T) {
	_, enc := generate(t, dictionarytest.Example(), generation.EncoderFlavor)
	_, dec := generate(t, dictionarytest.Example(), generation.DecoderFlavor)

	encDump := enc["EgMessageEncoder"].methods["EgMessageEncoder.dumpTo"]
	decDump := dec["EgMessageDecoder"].methods["EgMessageDecoder.dumpTo"]
	require.NotNil(t, encDump)
	require.NotNil(t, decDump)

	assert.Contains(t, enc["EgMessageEncoder"].src, `out.OpenArray("EgGroup")`)
	assert.NotContains(t, dec["EgMessageDecoder"].src, "OpenArray")

	// both render the header and the component
	for _, p := range []*parsed{enc["EgMessageEncoder"], dec["EgMessageDecoder"]} {
		assert.Contains(t, p.src, `out.Open(key, "EgMessage")`)
		assert.Contains(t, p.src, `.header.dumpTo(out, "header")`)
		assert.Contains(t, p.src, `out.Int("IntField"`)
		assert.Contains(t, p.src, `out.Data("DataField"`)
		assert.Contains(t, p.src, `out.Time("SomeTimeField"`)
		assert.Contains(t, p.src, `.egComponent.dumpTo(out, "EgComponent")`)
	}
}

func TestDecoderArtifacts(t *testing.T) {
	_, files := generate(t, dictionarytest.Example(), generation.DecoderFlavor)
	msg := files["EgMessageDecoder"]

	assert.Contains(t, msg.src, "var _ codec.Decoder = (*EgMessageDecoder)(nil)")
	assert.True(t, msg.imports["fix-gateway/validation"])
	for _, name := range []string{"Decode", "Valid", "InvalidTag", "Frame", "IntField", "HasTestReqID", "EgGroup", "EgComponent", "decodeEgGroup"} {
		assert.Contains(t, msg.methods, "EgMessageDecoder."+name)
	}
	for name := range msg.methods {
		assert.False(t, strings.HasPrefix(name, "EgMessageDecoder.Set"), name)
	}
	assert.NotContains(t, msg.methods, "EgMessageDecoder.AddEgGroup")

	// the data length tag drives the reader
	assert.Contains(t, msg.src, "case 119:")
	assert.Contains(t, msg.src, "r.ExpectData(n)")
	assert.Contains(t, msg.src, "codec.ErrBadGroupCount")

	header := files["HeaderDecoder"]
	assert.Contains(t, header.methods, "HeaderDecoder.setFraming")
	assert.NotContains(t, header.src, "case 35:")
	assert.Contains(t, files["TrailerDecoder"].methods, "TrailerDecoder.setCheckSum")
}

func TestImportsGroupedByOrigin(t *testing.T) {
	out, _ := generate(t, dictionarytest.Example(), generation.DecoderFlavor)
	src := out.files["EgMessageDecoder"].String()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "eg_message_decoder.go", src, parser.ImportsOnly)
	require.NoError(t, err)

	group := func(spec *ast.ImportSpec) int {
		path, _ := strconv.Unquote(spec.Path.Value)
		switch {
		case strings.HasPrefix(path, "fix-gateway/"):
			return 2
		case strings.Contains(path, "."):
			return 1
		}
		return 0
	}
	require.Len(t, f.Imports, 6)
	for i := 1; i < len(f.Imports); i++ {
		prev, cur := f.Imports[i-1], f.Imports[i]
		gap := fset.Position(cur.Pos()).Line - fset.Position(prev.Pos()).Line
		if group(prev) == group(cur) {
			assert.Equal(t, 1, gap, cur.Path.Value)
			continue
		}
		assert.Less(t, group(prev), group(cur), cur.Path.Value)
		assert.Equal(t, 2, gap, cur.Path.Value)
	}
	assert.Contains(t, src, "\"golang.org/x/xerrors\"\n\n\t\"fix-gateway/codec\"")
}

func TestEnumsEmittedOnce(t *testing.T) {
	_, files := generate(t, dictionary.Session(), generation.EncoderFlavor)

	owners := make(map[string][]string)
	for name, p := range files {
		for c := range p.consts {
			owners[c] = append(owners[c], name)
		}
	}
	assert.Len(t, owners["MsgDirectionSend"], 1)
	assert.Equal(t, "'S'", files[owners["MsgDirectionSend"][0]].consts["MsgDirectionSend"])
	assert.Len(t, owners["SessionRejectReasonInvalidMsgtype"], 1)
	assert.Equal(t, "11", files["RejectEncoder"].consts["SessionRejectReasonInvalidMsgtype"])
	assert.Equal(t, "0", files["LogonEncoder"].consts["EncryptMethodNoneOther"])
}

func TestSessionDictionaryGenerates(t *testing.T) {
	for _, flavor := range []generation.Flavor{generation.EncoderFlavor, generation.DecoderFlavor} {
		out, files := generate(t, dictionary.Session(), flavor)
		// header, trailer, seven messages, one group
		assert.Len(t, out.order, 10)

		logon := files["Logon"+suffix[flavor]]
		require.NotNil(t, logon)
		// RawDataLength precedes RawData
		if flavor == generation.DecoderFlavor {
			assert.Contains(t, logon.src, "case 95:")
		} else {
			assert.Contains(t, logon.src, "PutIntField(pos, 95,")
		}
	}
}

func TestSchemaErrorsAreFatal(t *testing.T) {
	dup := dictionary.New(
		dictionary.NewHeader(dictionary.Required(dictionary.NewField(8, "BeginString", dictionary.TypeString))),
		dictionary.NewTrailer(dictionary.Required(dictionary.NewField(10, "CheckSum", dictionary.TypeString))),
		dictionary.NewMessage("M", "M",
			dictionary.Required(dictionary.NewField(1, "Account", dictionary.TypeString)),
			dictionary.Required(dictionary.NewField(2, "Account", dictionary.TypeString)),
		),
	)

	out := newMemoryOutput()
	g, err := generation.New(dup, generation.EncoderFlavor, out)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Generate(), dictionary.ErrDuplicateField)
	assert.Empty(t, out.order)
}

func TestBadNamesAreFatal(t *testing.T) {
	dict := dictionary.New(
		dictionary.NewHeader(dictionary.Required(dictionary.NewField(8, "BeginString", dictionary.TypeString))),
		dictionary.NewTrailer(dictionary.Required(dictionary.NewField(10, "CheckSum", dictionary.TypeString))),
		dictionary.NewMessage("Bad Name", "B"),
	)
	out := newMemoryOutput()
	g, err := generation.New(dict, generation.DecoderFlavor, out)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Generate(), generation.ErrBadIdentifier)
	assert.Empty(t, out.order)

	clash := dictionary.New(
		dictionary.NewHeader(dictionary.Required(dictionary.NewField(8, "BeginString", dictionary.TypeString))),
		dictionary.NewTrailer(dictionary.Required(dictionary.NewField(10, "CheckSum", dictionary.TypeString))),
		dictionary.NewMessage("M", "M", dictionary.Optional(dictionary.NewField(1, "Reset", dictionary.TypeString))),
	)
	g, err = generation.New(clash, generation.EncoderFlavor, out)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Generate(), generation.ErrNameClash)
}

func TestNewRejectsUnknownFlavor(t *testing.T) {
	_, err := generation.New(dictionarytest.Example(), generation.Flavor(7), newMemoryOutput())
	assert.ErrorIs(t, err, generation.ErrUnknownFlavor)

	_, err = generation.ParseFlavor("both")
	assert.ErrorIs(t, err, generation.ErrUnknownFlavor)

	f, err := generation.ParseFlavor("decoder")
	require.NoError(t, err)
	assert.Equal(t, generation.DecoderFlavor, f)
}

func TestFileOutputManager(t *testing.T) {
	fs := afero.NewMemMapFs()
	core, logs := observer.New(zap.DebugLevel)
	out := generation.NewFileOutputManager(fs, "gen/encoder")

	g, err := generation.New(dictionarytest.Example(), generation.EncoderFlavor, out,
		generation.WithPackage("encoder"),
		generation.WithImportPath("example.com/gen/encoder"),
		generation.WithBeginString("FIXT.1.1"),
		generation.WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.NoError(t, g.Generate())

	for _, name := range []string{"header_encoder", "trailer_encoder", "heartbeat_encoder", "eg_message_encoder", "eg_component_encoder", "eg_group_encoder"} {
		ok, err := afero.Exists(fs, "gen/encoder/"+name+".go")
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	src, err := afero.ReadFile(fs, out.Path("HeartbeatEncoder"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package encoder")
	assert.Contains(t, string(src), `codec.BodyStart(offset, "FIXT.1.1")`)

	assert.Equal(t, 1, logs.FilterMessage("Generated codecs").Len())
	assert.Equal(t, 6, logs.FilterMessage("Wrote artifact").Len())
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"EgMessageEncoder": "eg_message_encoder",
		"TestReqID":        "test_req_id",
		"MDReqIDDecoder":   "md_req_id_decoder",
		"Heartbeat":        "heartbeat",
		"NoMsgTypes2":      "no_msg_types2",
	}
	for in, want := range tests {
		assert.Equal(t, want, generation.SnakeCase(in), in)
	}
}
