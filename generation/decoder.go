package generation

import (
	"go/token"
	"strconv"

	"github.com/dave/dst"

	"fix-gateway/dictionary"
)

// decoderStrategy emits artifacts whose string and data values are views
// into the decoded buffer. Group instances are parsed but not dumped.
type decoderStrategy struct{}

func (decoderStrategy) suffix() string   { return "Decoder" }
func (decoderStrategy) recv() string     { return "d" }
func (decoderStrategy) contract() string { return "Decoder" }
func (decoderStrategy) dumpGroups() bool { return false }

func (decoderStrategy) bytesZero(string) string { return "nil" }

func (decoderStrategy) extraFields(m *model) []*dst.Field {
	var list []*dst.Field
	if m.required > 0 {
		seen := &dst.ArrayType{
			Len: &dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(m.required)},
			Elt: dst.NewIdent("bool"),
		}
		list = append(list, structField("seen", seen, dst.NewLine))
	}
	if m.isMessage() {
		list = append(list,
			structField("frame", qualified(codecPath, "Frame"), dst.NewLine),
			structField("msgTypeView", &dst.ArrayType{Elt: dst.NewIdent("byte")}, dst.NewLine),
		)
	}
	return append(list, structField("reader", qualified(codecPath, "FieldReader"), dst.NewLine))
}

func (decoderStrategy) fieldMethods(*source, *model, *member) {}

func (decoderStrategy) groupMethods(s *source, m *model, mb *member) {
	child := mb.child
	s.line("// decode%s reads the instances announced by the counter just read", mb.name)
	s.line("func (d *%s) decode%s(r *codec.FieldReader) error {", m.typeName, mb.name)
	s.line("\tcount, err := r.Natural()")
	s.line("\tif err != nil {")
	s.line("\t\treturn xerrors.Errorf(\"%s.%s count: %%w\", err)", m.name, mb.name)
	s.line("\t}")
	s.line("\td.%s = 0", mb.countSlot)
	s.line("\tvar cur *%s", child.typeName)
	s.line("\tfor {")
	s.line("\t\tok, err := r.Next()")
	s.line("\t\tif err != nil {")
	s.line("\t\t\treturn err")
	s.line("\t\t}")
	s.line("\t\tif !ok {")
	s.line("\t\t\tbreak")
	s.line("\t\t}")
	if child.delimiter != nil && child.delimiter.kind == entryField {
		s.line("\t\tif r.Tag() == %d {", child.delimiter.field.Number)
		s.line("\t\t\tif d.%s == count {", mb.countSlot)
		s.line("\t\t\t\tr.Unread()")
		s.line("\t\t\t\tbreak")
		s.line("\t\t\t}")
		s.line("\t\t\tcur = d.add%s()", mb.name)
		s.line("\t\t} else if cur == nil {")
	} else {
		s.line("\t\tif cur == nil {")
	}
	s.line("\t\t\tr.Unread()")
	s.line("\t\t\tbreak")
	s.line("\t\t}")
	s.line("\t\tconsumed, err := cur.decodeField(r)")
	s.line("\t\tif err != nil {")
	s.line("\t\t\treturn err")
	s.line("\t\t}")
	s.line("\t\tif !consumed {")
	s.line("\t\t\tr.Unread()")
	s.line("\t\t\tbreak")
	s.line("\t\t}")
	s.line("\t}")
	s.line("\tif d.%s != count {", mb.countSlot)
	s.line("\t\treturn xerrors.Errorf(\"%s.%s declared %%d, found %%d: %%w\", count, d.%s, codec.ErrBadGroupCount)",
		m.name, mb.name, mb.countSlot)
	s.line("\t}")
	s.line("\treturn nil")
	s.line("}")
	s.blank()
}

func (decoderStrategy) componentMethods(s *source, m *model, mb *member) {
	s.line("func (d *%s) %s() *%s { return &d.%s }", m.typeName, mb.name, mb.child.typeName, mb.slot)
	s.blank()
	if !mb.required {
		s.line("func (d *%s) Has%s() bool { return d.has%s }", m.typeName, mb.name, mb.name)
		s.blank()
	}
}

func (st decoderStrategy) codecMethods(s *source, m *model, beginString string) {
	st.decodeField(s, m)
	st.missing(s, m)
	switch m.kind {
	case dictionary.KindHeader:
		st.setFraming(s, m)
	case dictionary.KindTrailer:
		st.setCheckSum(s, m)
	}

	if !m.isMessage() {
		s.line("// Decode reads every field of %s found in buf[offset:offset+length].", m.name)
		s.line("// Unknown tags are skipped.")
		s.line("func (d *%s) Decode(buf []byte, offset, length int) (int, error) {", m.typeName)
		s.line("\td.zero()")
		s.line("\tr := &d.reader")
		s.line("\tr.Reset(buf, offset, length)")
		s.line("\tfor {")
		s.line("\t\tok, err := r.Next()")
		s.line("\t\tif err != nil {")
		s.line("\t\t\treturn 0, xerrors.Errorf(\"decode %s: %%w\", err)", m.name)
		s.line("\t\t}")
		s.line("\t\tif !ok {")
		s.line("\t\t\treturn length, nil")
		s.line("\t\t}")
		s.line("\t\tif _, err := d.decodeField(r); err != nil {")
		s.line("\t\t\treturn 0, err")
		s.line("\t\t}")
		s.line("\t}")
		s.line("}")
		return
	}

	s.line("// Frame returns where the last decoded message sat in its buffer")
	s.line("func (d *%s) Frame() codec.Frame { return d.frame }", m.typeName)
	s.blank()
	s.line("// Decode validates the framing of the message at buf[offset:] and reads")
	s.line("// its fields. String and data values remain views into buf.")
	s.line("func (d *%s) Decode(buf []byte, offset, length int) (int, error) {", m.typeName)
	s.line("\tf, err := codec.ParseFrame(buf, offset, length, %q)", beginString)
	s.line("\tif err != nil {")
	s.line("\t\treturn 0, xerrors.Errorf(\"decode %s: %%w\", err)", m.name)
	s.line("\t}")
	s.line("\tif string(f.MsgType(buf)) != %q {", m.msgType)
	s.line("\t\treturn 0, xerrors.Errorf(\"%%q is not %s: %%w\", f.MsgType(buf), codec.ErrUnknownMessage)", m.name)
	s.line("\t}")
	s.line("\td.zero()")
	s.line("\td.frame = f")
	s.line("\td.msgTypeView = f.MsgType(buf)")
	s.line("\td.header.setFraming(buf, &f)")
	s.line("\td.trailer.setCheckSum(buf[f.BodyEnd+3 : f.BodyEnd+6])")
	s.blank()
	s.line("\tfrom := f.MsgTypeOffset + f.MsgTypeLength + 1")
	s.line("\tr := &d.reader")
	s.line("\tr.Reset(buf, from, f.BodyEnd-from)")
	s.line("\tfor {")
	s.line("\t\tok, err := r.Next()")
	s.line("\t\tif err != nil {")
	s.line("\t\t\treturn 0, xerrors.Errorf(\"decode %s: %%w\", err)", m.name)
	s.line("\t\t}")
	s.line("\t\tif !ok {")
	s.line("\t\t\treturn f.Length, nil")
	s.line("\t\t}")
	s.line("\t\tconsumed, err := d.decodeField(r)")
	s.line("\t\tif err != nil {")
	s.line("\t\t\treturn 0, err")
	s.line("\t\t}")
	s.line("\t\tif consumed {")
	s.line("\t\t\tcontinue")
	s.line("\t\t}")
	s.line("\t\tif consumed, err = d.header.decodeField(r); err != nil {")
	s.line("\t\t\treturn 0, err")
	s.line("\t\t}")
	s.line("\t\tif consumed {")
	s.line("\t\t\tcontinue")
	s.line("\t\t}")
	s.line("\t\tif _, err = d.trailer.decodeField(r); err != nil {")
	s.line("\t\t\treturn 0, err")
	s.line("\t\t}")
	s.line("\t}")
	s.line("}")
	s.blank()

	s.line("// InvalidTag returns the first tag that makes the decoded message")
	s.line("// invalid, or 0: MsgType first, then required fields of the header, body")
	s.line("// and trailer.")
	s.line("func (d *%s) InvalidTag(v *validation.Validator) int {", m.typeName)
	s.line("\tif !v.IsValidMsgType(d.msgTypeView, len(d.msgTypeView)) {")
	s.line("\t\treturn %d", dictionary.MsgType)
	s.line("\t}")
	s.line("\tif tag := d.header.missing(); tag != 0 {")
	s.line("\t\treturn tag")
	s.line("\t}")
	s.line("\tif tag := d.missing(); tag != 0 {")
	s.line("\t\treturn tag")
	s.line("\t}")
	s.line("\treturn d.trailer.missing()")
	s.line("}")
	s.blank()
	s.line("func (d *%s) Valid(v *validation.Validator) bool { return d.InvalidTag(v) == 0 }", m.typeName)
}

// decodeField consumes the reader's current field when it belongs to the
// aggregate or one of its components
func (decoderStrategy) decodeField(s *source, m *model) {
	s.line("func (d *%s) decodeField(r *codec.FieldReader) (bool, error) {", m.typeName)

	emitted := make(map[int]bool)
	var cases source
	for _, mb := range m.members {
		if mb.kind == entryComponent || mb.framing || emitted[mb.field.Number] {
			continue
		}
		emitted[mb.field.Number] = true
		cases.line("\tcase %d:", mb.field.Number)
		if mb.kind == entryGroup {
			cases.line("\t\treturn true, d.decode%s(r)", mb.name)
			continue
		}
		readField(&cases, m, mb)
	}
	for _, tag := range m.lengthTags {
		if emitted[tag] {
			continue
		}
		emitted[tag] = true
		cases.line("\tcase %d:", tag)
		cases.line("\t\tn, err := r.Natural()")
		cases.line("\t\tif err != nil {")
		cases.line("\t\t\treturn true, xerrors.Errorf(\"%s length %d: %%w\", err)", m.name, tag)
		cases.line("\t\t}")
		cases.line("\t\tr.ExpectData(n)")
		cases.line("\t\treturn true, nil")
	}
	if len(emitted) > 0 {
		s.line("\tswitch r.Tag() {")
		s.b.WriteString(cases.b.String())
		s.line("\t}")
	}

	for _, mb := range m.members {
		if mb.kind != entryComponent {
			continue
		}
		s.line("\tif ok, err := d.%s.decodeField(r); ok {", mb.slot)
		if !mb.required {
			s.line("\t\td.has%s = true", mb.name)
		}
		s.line("\t\treturn true, err")
		s.line("\t}")
	}
	s.line("\treturn false, nil")
	s.line("}")
	s.blank()
}

func readField(s *source, m *model, mb *member) {
	f := mb.field
	parse := ""
	switch f.Type.Storage() {
	case dictionary.StorageChar:
		parse = "r.Char()"
	case dictionary.StorageBool:
		parse = "r.Bool()"
	case dictionary.StorageInt:
		parse = "r.Int()"
	case dictionary.StorageDecimal:
		parse = "r.Decimal()"
	case dictionary.StorageTime:
		parse = "r.Time(" + timeFormat(f.Type) + ")"
	}

	if parse == "" {
		s.line("\t\td.%s = r.Value()", mb.slot)
	} else {
		s.line("\t\tv, err := %s", parse)
		s.line("\t\tif err != nil {")
		s.line("\t\t\treturn true, xerrors.Errorf(\"%s.%s: %%w\", err)", m.name, mb.name)
		s.line("\t\t}")
		s.line("\t\td.%s = v", mb.slot)
	}
	if mb.length {
		s.line("\t\tr.ExpectData(int(v))")
	}
	markSeen(s, "\t\t", mb)
	s.line("\t\treturn true, nil")
}

func markSeen(s *source, indent string, mb *member) {
	if mb.required {
		s.line("%sd.seen[%d] = true", indent, mb.seen)
		return
	}
	s.line("%sd.has%s = true", indent, mb.name)
}

// missing returns the tag of the first required entry without a value
func (decoderStrategy) missing(s *source, m *model) {
	s.line("func (d *%s) missing() int {", m.typeName)
	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			if mb.required {
				s.line("\tif !d.seen[%d] {", mb.seen)
				s.line("\t\treturn %d", mb.field.Number)
				s.line("\t}")
			}
		case entryGroup:
			if mb.required {
				s.line("\tif d.%s == 0 {", mb.countSlot)
				s.line("\t\treturn %d", mb.field.Number)
				s.line("\t}")
			}
			s.line("\tfor _, item := range d.%s() {", mb.name)
			s.line("\t\tif tag := item.missing(); tag != 0 {")
			s.line("\t\t\treturn tag")
			s.line("\t\t}")
			s.line("\t}")
		case entryComponent:
			cond := "tag := d." + mb.slot + ".missing(); tag != 0"
			if !mb.required {
				cond = "tag := d." + mb.slot + ".missing(); d.has" + mb.name + " && tag != 0"
			}
			s.line("\tif %s {", cond)
			s.line("\t\treturn tag")
			s.line("\t}")
		}
	}
	s.line("\treturn 0")
	s.line("}")
	s.blank()
}

func (decoderStrategy) setFraming(s *source, m *model) {
	s.line("func (d *%s) setFraming(buf []byte, f *codec.Frame) {", m.typeName)
	for _, mb := range m.members {
		if !mb.framing {
			continue
		}
		storage := mb.field.Type.Storage()
		switch {
		case mb.field.Number == dictionary.BeginString && storage == dictionary.StorageBytes:
			s.line("\td.%s = f.BeginString(buf)", mb.slot)
		case mb.field.Number == dictionary.MsgType && storage == dictionary.StorageBytes:
			s.line("\td.%s = f.MsgType(buf)", mb.slot)
		case mb.field.Number == dictionary.BodyLength && storage == dictionary.StorageInt:
			s.line("\td.%s = int64(f.BodyLength)", mb.slot)
		default:
			continue
		}
		markSeen(s, "\t", mb)
	}
	s.line("}")
	s.blank()
}

func (decoderStrategy) setCheckSum(s *source, m *model) {
	s.line("func (d *%s) setCheckSum(sum []byte) {", m.typeName)
	for _, mb := range m.members {
		if !mb.framing || mb.field.Number != dictionary.CheckSum || mb.field.Type.Storage() != dictionary.StorageBytes {
			continue
		}
		s.line("\td.%s = sum", mb.slot)
		markSeen(s, "\t", mb)
	}
	s.line("}")
	s.blank()
}
