package generation

import (
	"fmt"
	"go/token"

	"github.com/dave/dst"
	"golang.org/x/xerrors"

	"fix-gateway/dictionary"
)

// strategy is what differs between encoder and decoder artifacts. The
// per-aggregate algorithm in emitter is shared.
type strategy interface {
	suffix() string
	recv() string
	contract() string
	// extraFields adds flavor-specific bookkeeping to the struct
	extraFields(m *model) []*dst.Field
	// bytesZero is how a bytes slot is emptied
	bytesZero(slot string) string
	// dumpGroups reports whether dumps render group instances
	dumpGroups() bool
	fieldMethods(s *source, m *model, mb *member)
	groupMethods(s *source, m *model, mb *member)
	componentMethods(s *source, m *model, mb *member)
	// codecMethods emits Encode or Decode and their helpers
	codecMethods(s *source, m *model, beginString string)
}

// emitter runs the shared per-aggregate algorithm
type emitter struct {
	st          strategy
	pkg         string
	importPath  string
	beginString string
	header      *model
	trailer     *model
	// enum fields already emitted by an earlier artifact
	enums map[*dictionary.Field]bool
}

// artifact builds the dst file for one aggregate
func (em *emitter) artifact(m *model) (*dst.File, error) {
	f := newFile(em.pkg)
	f.Decls = append(f.Decls, em.enumDecls(m)...)
	f.Decls = append(f.Decls, em.typeDecl(m))

	s := &source{}
	em.assertion(s, m)
	em.accessors(s, m)
	em.reset(s, m)
	em.zero(s, m)
	em.dump(s, m)
	em.st.codecMethods(s, m, em.beginString)

	decls, err := s.compile(em.importPath)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", m.typeName, err)
	}
	f.Decls = append(f.Decls, decls...)
	return f, nil
}

func (em *emitter) enumDecls(m *model) []dst.Decl {
	var decls []dst.Decl
	for _, mb := range m.members {
		if mb.kind != entryField || len(mb.field.Values) == 0 || em.enums[mb.field] {
			continue
		}
		em.enums[mb.field] = true

		gd := &dst.GenDecl{Tok: token.CONST, Lparen: true, Rparen: true}
		gd.Decs.Before = dst.EmptyLine
		gd.Decs.Start.Append(fmt.Sprintf("// %s (%d) values", mb.field.Name, mb.field.Number))
		taken := make(map[string]int)
		for _, v := range mb.field.Values {
			name := exported(mb.field.Name) + constName(v.Description)
			if n := taken[name]; n > 0 {
				taken[name] = n + 1
				name = fmt.Sprintf("%s%d", name, n+1)
			} else {
				taken[name] = 1
			}
			spec := &dst.ValueSpec{
				Names:  []*dst.Ident{dst.NewIdent(name)},
				Values: []dst.Expr{enumLiteral(mb.field, v.Representation)},
			}
			spec.Decs.Before = dst.NewLine
			gd.Specs = append(gd.Specs, spec)
		}
		decls = append(decls, gd)
	}
	return decls
}

func (em *emitter) typeDecl(m *model) dst.Decl {
	var list []*dst.Field
	if m.isMessage() {
		list = append(list,
			structField("header", dst.NewIdent(em.header.typeName), dst.NewLine),
			structField("trailer", dst.NewIdent(em.trailer.typeName), dst.NewLine),
		)
	}
	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			list = append(list, structField(mb.slot, slotExpr(mb.field), dst.NewLine))
			if !mb.required {
				list = append(list, structField("has"+mb.name, dst.NewIdent("bool"), dst.NewLine))
			}
		case entryGroup:
			arena := &dst.ArrayType{Elt: &dst.StarExpr{X: dst.NewIdent(mb.child.typeName)}}
			list = append(list,
				structField(mb.slot, arena, dst.NewLine),
				structField(mb.countSlot, dst.NewIdent("int"), dst.NewLine),
			)
		case entryComponent:
			list = append(list, structField(mb.slot, dst.NewIdent(mb.child.typeName), dst.NewLine))
			if !mb.required {
				list = append(list, structField("has"+mb.name, dst.NewIdent("bool"), dst.NewLine))
			}
		}
	}
	if extra := em.st.extraFields(m); len(extra) > 0 {
		extra[0].Decs.Before = dst.EmptyLine
		list = append(list, extra...)
	}

	gd := &dst.GenDecl{
		Tok: token.TYPE,
		Specs: []dst.Spec{&dst.TypeSpec{
			Name: dst.NewIdent(m.typeName),
			Type: &dst.StructType{Fields: &dst.FieldList{List: list}},
		}},
	}
	gd.Decs.Before = dst.EmptyLine
	gd.Decs.Start.Append(typeDoc(m, em.st))
	return gd
}

func typeDoc(m *model, st strategy) string {
	verb := "encodes"
	if st.suffix() == "Decoder" {
		verb = "decodes"
	}
	switch m.kind {
	case dictionary.KindMessage:
		return fmt.Sprintf("// %s %s the %s message (MsgType %s)", m.typeName, verb, m.name, m.msgType)
	case dictionary.KindGroup:
		return fmt.Sprintf("// %s %s one instance of the %s group", m.typeName, verb, m.name)
	default:
		return fmt.Sprintf("// %s %s the %s %s", m.typeName, verb, m.name, kindNoun(m.kind))
	}
}

func kindNoun(k dictionary.Kind) string {
	switch k {
	case dictionary.KindHeader:
		return "standard header"
	case dictionary.KindTrailer:
		return "standard trailer"
	default:
		return "component"
	}
}

func (em *emitter) assertion(s *source, m *model) {
	s.line("var _ codec.%s = (*%s)(nil)", em.st.contract(), m.typeName)
	s.blank()
}

func (em *emitter) accessors(s *source, m *model) {
	r := em.st.recv()
	if m.isMessage() {
		s.line("// MsgType returns the message type this codec handles")
		s.line("func (*%s) MsgType() string { return %q }", m.typeName, m.msgType)
		s.blank()
		s.line("func (%s *%s) Header() *%s { return &%s.header }", r, m.typeName, em.header.typeName, r)
		s.blank()
		s.line("func (%s *%s) Trailer() *%s { return &%s.trailer }", r, m.typeName, em.trailer.typeName, r)
		s.blank()
	}

	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			em.fieldAccessors(s, m, mb)
			em.st.fieldMethods(s, m, mb)
		case entryGroup:
			em.groupAccessors(s, m, mb)
			em.st.groupMethods(s, m, mb)
		case entryComponent:
			em.st.componentMethods(s, m, mb)
		}
	}
}

func (em *emitter) fieldAccessors(s *source, m *model, mb *member) {
	r := em.st.recv()
	f := mb.field
	s.line("// %s returns %s (%d)", mb.name, f.Name, f.Number)
	s.line("func (%s *%s) %s() %s { return %s.%s }", r, m.typeName, mb.name, goType(f), r, mb.slot)
	s.blank()
	if mb.required {
		return
	}
	s.line("func (%s *%s) Has%s() bool { return %s.has%s }", r, m.typeName, mb.name, r, mb.name)
	s.blank()
	s.line("func (%s *%s) Reset%s() {", r, m.typeName, mb.name)
	s.line("\t%s.%s = %s", r, mb.slot, em.slotZero(r, mb))
	s.line("\t%s.has%s = false", r, mb.name)
	s.line("}")
	s.blank()
}

func (em *emitter) slotZero(r string, mb *member) string {
	switch mb.field.Type.Storage() {
	case dictionary.StorageBytes, dictionary.StorageData:
		return em.st.bytesZero(r + "." + mb.slot)
	}
	return zeroValue(mb.field)
}

func (em *emitter) groupAccessors(s *source, m *model, mb *member) {
	r := em.st.recv()
	child := mb.child.typeName
	s.line("// %s returns the %s instances in order", mb.name, mb.name)
	s.line("func (%s *%s) %s() []*%s { return %s.%s[:%s.%s] }", r, m.typeName, mb.name, child, r, mb.slot, r, mb.countSlot)
	s.blank()
	s.line("func (%s *%s) add%s() *%s {", r, m.typeName, mb.name, child)
	s.line("\tif %s.%s == len(%s.%s) {", r, mb.countSlot, r, mb.slot)
	s.line("\t\t%s.%s = append(%s.%s, new(%s))", r, mb.slot, r, mb.slot, child)
	s.line("\t}")
	s.line("\titem := %s.%s[%s.%s]", r, mb.slot, r, mb.countSlot)
	s.line("\t%s.%s++", r, mb.countSlot)
	s.line("\titem.zero()")
	s.line("\treturn item")
	s.line("}")
	s.blank()
}

// reset touches optional field entries only, in declaration order
func (em *emitter) reset(s *source, m *model) {
	r := em.st.recv()
	s.line("// Reset clears the optional fields of %s. Groups and components keep", m.name)
	s.line("// their state and must be reset on their own.")
	s.line("func (%s *%s) Reset() {", r, m.typeName)
	for _, mb := range m.members {
		if mb.kind == entryField && !mb.required {
			s.line("\t%s.Reset%s()", r, mb.name)
		}
	}
	s.line("}")
	s.blank()
}

// zero clears everything, for reuse of group instances and decoders
func (em *emitter) zero(s *source, m *model) {
	r := em.st.recv()
	s.line("func (%s *%s) zero() {", r, m.typeName)
	if m.isMessage() {
		s.line("\t%s.header.zero()", r)
		s.line("\t%s.trailer.zero()", r)
	}
	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			s.line("\t%s.%s = %s", r, mb.slot, em.slotZero(r, mb))
			if !mb.required {
				s.line("\t%s.has%s = false", r, mb.name)
			}
		case entryGroup:
			s.line("\t%s.%s = 0", r, mb.countSlot)
		case entryComponent:
			s.line("\t%s.%s.zero()", r, mb.slot)
			if !mb.required {
				s.line("\t%s.has%s = false", r, mb.name)
			}
		}
	}
	if m.required > 0 && em.st.suffix() == "Decoder" {
		s.line("\t%s.seen = [%d]bool{}", r, m.required)
	}
	s.line("}")
	s.blank()
}

// dump renders required fields always, optional ones when present
func (em *emitter) dump(s *source, m *model) {
	r := em.st.recv()
	s.line("func (%s *%s) String() string {", r, m.typeName)
	s.line("\tout := &codec.Dump{}")
	s.line("\t%s.dumpTo(out, \"\")", r)
	s.line("\treturn out.String()")
	s.line("}")
	s.blank()

	s.line("func (%s *%s) dumpTo(out *codec.Dump, key string) {", r, m.typeName)
	s.line("\tout.Open(key, %q)", m.name)
	if m.isMessage() {
		// the header block repeats the MsgType key: its name, then the field
		s.line("\t%s.header.dumpTo(out, \"header\")", r)
	}
	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			call := dumpCall(r, mb)
			if mb.required {
				s.line("\t%s", call)
				continue
			}
			s.line("\tif %s.has%s {", r, mb.name)
			s.line("\t\t%s", call)
			s.line("\t}")
		case entryGroup:
			if !em.st.dumpGroups() {
				continue
			}
			s.line("\tif %s.%s > 0 {", r, mb.countSlot)
			s.line("\t\tout.OpenArray(%q)", mb.name)
			s.line("\t\tfor _, item := range %s.%s() {", r, mb.name)
			s.line("\t\t\titem.dumpTo(out, \"\")")
			s.line("\t\t}")
			s.line("\t\tout.CloseArray()")
			s.line("\t}")
		case entryComponent:
			if mb.required {
				s.line("\t%s.%s.dumpTo(out, %q)", r, mb.slot, mb.name)
				continue
			}
			s.line("\tif %s.has%s {", r, mb.name)
			s.line("\t\t%s.%s.dumpTo(out, %q)", r, mb.slot, mb.name)
			s.line("\t}")
		}
	}
	s.line("\tout.Close()")
	s.line("}")
	s.blank()
}

func dumpCall(r string, mb *member) string {
	v := r + "." + mb.slot
	switch mb.field.Type.Storage() {
	case dictionary.StorageData:
		return fmt.Sprintf("out.Data(%q, %s)", mb.name, v)
	case dictionary.StorageChar:
		return fmt.Sprintf("out.Char(%q, %s)", mb.name, v)
	case dictionary.StorageBool:
		return fmt.Sprintf("out.Bool(%q, %s)", mb.name, v)
	case dictionary.StorageInt:
		return fmt.Sprintf("out.Int(%q, %s)", mb.name, v)
	case dictionary.StorageDecimal:
		return fmt.Sprintf("out.Decimal(%q, %s)", mb.name, v)
	case dictionary.StorageTime:
		return fmt.Sprintf("out.Time(%q, %s, %s)", mb.name, v, timeFormat(mb.field.Type))
	default:
		return fmt.Sprintf("out.Str(%q, %s)", mb.name, v)
	}
}
