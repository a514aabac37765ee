package generation

import (
	"github.com/dave/dst"

	"fix-gateway/dictionary"
)

// encoderStrategy emits artifacts that own their values and write them
// with the mutable flyweight
type encoderStrategy struct{}

func (encoderStrategy) suffix() string   { return "Encoder" }
func (encoderStrategy) recv() string     { return "e" }
func (encoderStrategy) contract() string { return "Encoder" }
func (encoderStrategy) dumpGroups() bool { return true }

func (encoderStrategy) extraFields(*model) []*dst.Field { return nil }

func (encoderStrategy) bytesZero(slot string) string { return slot + "[:0]" }

func (encoderStrategy) fieldMethods(s *source, m *model, mb *member) {
	if mb.framing {
		return
	}
	f := mb.field
	mark := func() {
		if !mb.required {
			s.line("\te.has%s = true", mb.name)
		}
		s.line("\treturn e")
		s.line("}")
		s.blank()
	}

	switch f.Type.Storage() {
	case dictionary.StorageBytes:
		s.line("// Set%s sets %s (%d)", mb.name, f.Name, f.Number)
		s.line("func (e *%s) Set%s(v string) *%s {", m.typeName, mb.name, m.typeName)
		s.line("\te.%s = append(e.%s[:0], v...)", mb.slot, mb.slot)
		mark()
		s.line("func (e *%s) Set%sBytes(v []byte) *%s {", m.typeName, mb.name, m.typeName)
		s.line("\te.%s = append(e.%s[:0], v...)", mb.slot, mb.slot)
		mark()
	case dictionary.StorageData:
		s.line("// Set%s copies v into %s (%d)", mb.name, f.Name, f.Number)
		s.line("func (e *%s) Set%s(v []byte) *%s {", m.typeName, mb.name, m.typeName)
		s.line("\te.%s = append(e.%s[:0], v...)", mb.slot, mb.slot)
		mark()
	default:
		s.line("// Set%s sets %s (%d)", mb.name, f.Name, f.Number)
		s.line("func (e *%s) Set%s(v %s) *%s {", m.typeName, mb.name, goType(f), m.typeName)
		s.line("\te.%s = v", mb.slot)
		mark()
	}
}

func (encoderStrategy) groupMethods(s *source, m *model, mb *member) {
	s.line("// Add%s appends an instance to %s and returns it", mb.name, mb.name)
	s.line("func (e *%s) Add%s() *%s { return e.add%s() }", m.typeName, mb.name, mb.child.typeName, mb.name)
	s.blank()
	s.line("// Clear%s drops every instance of %s", mb.name, mb.name)
	s.line("func (e *%s) Clear%s() { e.%s = 0 }", m.typeName, mb.name, mb.countSlot)
	s.blank()
}

func (encoderStrategy) componentMethods(s *source, m *model, mb *member) {
	if mb.required {
		s.line("func (e *%s) %s() *%s { return &e.%s }", m.typeName, mb.name, mb.child.typeName, mb.slot)
		s.blank()
		return
	}
	s.line("// %s returns %s and marks it present", mb.name, mb.name)
	s.line("func (e *%s) %s() *%s {", m.typeName, mb.name, mb.child.typeName)
	s.line("\te.has%s = true", mb.name)
	s.line("\treturn &e.%s", mb.slot)
	s.line("}")
	s.blank()
	s.line("func (e *%s) Has%s() bool { return e.has%s }", m.typeName, mb.name, mb.name)
	s.blank()
	s.line("func (e *%s) Clear%s() {", m.typeName, mb.name)
	s.line("\te.%s.zero()", mb.slot)
	s.line("\te.has%s = false", mb.name)
	s.line("}")
	s.blank()
}

func (st encoderStrategy) codecMethods(s *source, m *model, beginString string) {
	st.encodeTo(s, m)
	switch m.kind {
	case dictionary.KindHeader:
		st.setFraming(s, m)
	case dictionary.KindTrailer:
		st.setCheckSum(s, m)
	}

	if !m.isMessage() {
		s.line("// Encode writes the fields of %s at buf[offset:] and returns the", m.name)
		s.line("// number of bytes written")
		s.line("func (e *%s) Encode(buf []byte, offset int) (int, error) {", m.typeName)
		s.line("\tw := fields.NewMutableASCIIFlyweight(buf)")
		s.line("\tend, err := e.encodeTo(w, offset)")
		s.line("\tif err != nil {")
		s.line("\t\treturn 0, err")
		s.line("\t}")
		s.line("\tif err := w.Err(); err != nil {")
		s.line("\t\treturn 0, xerrors.Errorf(\"encode %s: %%w\", err)", m.name)
		s.line("\t}")
		s.line("\treturn end - offset, nil")
		s.line("}")
		return
	}

	wrap := func() {
		s.line("\t\treturn 0, xerrors.Errorf(\"encode %s: %%w\", err)", m.name)
		s.line("\t}")
	}
	s.line("// Encode writes the framed message at buf[offset:] and returns its length.")
	s.line("// BodyLength and CheckSum are computed and recorded in the header and")
	s.line("// trailer.")
	s.line("func (e *%s) Encode(buf []byte, offset int) (int, error) {", m.typeName)
	s.line("\tw := fields.NewMutableASCIIFlyweight(buf)")
	s.line("\tstart := codec.BodyStart(offset, %q)", beginString)
	s.line("\tpos := w.PutStringField(start, %d, %q)", dictionary.MsgType, m.msgType)
	s.line("\tvar err error")
	s.line("\tif pos, err = e.header.encodeTo(w, pos); err != nil {")
	wrap()
	s.line("\tif pos, err = e.encodeTo(w, pos); err != nil {")
	wrap()
	s.line("\tif pos, err = e.trailer.encodeTo(w, pos); err != nil {")
	wrap()
	s.line("\tn, err := codec.FinishMessage(w, offset, start, pos, %q)", beginString)
	s.line("\tif err != nil {")
	wrap()
	s.line("\te.header.setFraming(%q, %q, pos-start)", beginString, m.msgType)
	s.line("\te.trailer.setCheckSum(buf[offset+n-4 : offset+n-1])")
	s.line("\treturn n, nil")
	s.line("}")
}

func (encoderStrategy) encodeTo(s *source, m *model) {
	s.line("func (e *%s) encodeTo(w *fields.MutableASCIIFlyweight, pos int) (int, error) {", m.typeName)
	if m.hasChildren() {
		s.line("\tvar err error")
	}
	if d := m.delimiter; d != nil && d.kind == entryField && !d.required {
		s.line("\tif !e.has%s {", d.name)
		s.line("\t\treturn pos, xerrors.Errorf(\"%s instance without %s: %%w\", codec.ErrRequiredField)", m.name, d.name)
		s.line("\t}")
	}

	for _, mb := range m.members {
		switch mb.kind {
		case entryField:
			// data fields write their own length
			if mb.framing || mb.length {
				continue
			}
			if mb.required {
				putField(s, "\t", mb)
				continue
			}
			s.line("\tif e.has%s {", mb.name)
			putField(s, "\t\t", mb)
			s.line("\t}")
		case entryGroup:
			if mb.required {
				s.line("\tif e.%s == 0 {", mb.countSlot)
				s.line("\t\treturn pos, xerrors.Errorf(\"%s.%s has no instances: %%w\", codec.ErrRequiredField)", m.name, mb.name)
				s.line("\t}")
			}
			s.line("\tif e.%s > 0 {", mb.countSlot)
			s.line("\t\tpos = w.PutIntField(pos, %d, int64(e.%s))", mb.field.Number, mb.countSlot)
			s.line("\t\tfor _, item := range e.%s() {", mb.name)
			s.line("\t\t\tif pos, err = item.encodeTo(w, pos); err != nil {")
			s.line("\t\t\t\treturn pos, err")
			s.line("\t\t\t}")
			s.line("\t\t}")
			s.line("\t}")
		case entryComponent:
			indent := "\t"
			if !mb.required {
				s.line("\tif e.has%s {", mb.name)
				indent = "\t\t"
			}
			s.line("%sif pos, err = e.%s.encodeTo(w, pos); err != nil {", indent, mb.slot)
			s.line("%s\treturn pos, err", indent)
			s.line("%s}", indent)
			if !mb.required {
				s.line("\t}")
			}
		}
	}
	s.line("\treturn pos, nil")
	s.line("}")
	s.blank()
}

func putField(s *source, indent string, mb *member) {
	f := mb.field
	v := "e." + mb.slot
	switch f.Type.Storage() {
	case dictionary.StorageData:
		if f.LengthNumber != 0 {
			s.line("%spos = w.PutIntField(pos, %d, int64(len(%s)))", indent, f.LengthNumber, v)
		}
		s.line("%spos = w.PutBytesField(pos, %d, %s)", indent, f.Number, v)
	case dictionary.StorageChar:
		s.line("%spos = w.PutCharField(pos, %d, %s)", indent, f.Number, v)
	case dictionary.StorageBool:
		s.line("%spos = w.PutBoolField(pos, %d, %s)", indent, f.Number, v)
	case dictionary.StorageInt:
		s.line("%spos = w.PutIntField(pos, %d, %s)", indent, f.Number, v)
	case dictionary.StorageDecimal:
		s.line("%spos = w.PutDecimalField(pos, %d, %s)", indent, f.Number, v)
	case dictionary.StorageTime:
		s.line("%spos = w.PutTimeField(pos, %d, %s, %s)", indent, f.Number, v, timeFormat(f.Type))
	default:
		s.line("%spos = w.PutBytesField(pos, %d, %s)", indent, f.Number, v)
	}
}

// setFraming records the computed framing values in the header
func (encoderStrategy) setFraming(s *source, m *model) {
	s.line("func (e *%s) setFraming(beginString, msgType string, bodyLength int) {", m.typeName)
	for _, mb := range m.members {
		if !mb.framing {
			continue
		}
		storage := mb.field.Type.Storage()
		switch {
		case mb.field.Number == dictionary.BeginString && storage == dictionary.StorageBytes:
			s.line("\te.%s = append(e.%s[:0], beginString...)", mb.slot, mb.slot)
		case mb.field.Number == dictionary.MsgType && storage == dictionary.StorageBytes:
			s.line("\te.%s = append(e.%s[:0], msgType...)", mb.slot, mb.slot)
		case mb.field.Number == dictionary.BodyLength && storage == dictionary.StorageInt:
			s.line("\te.%s = int64(bodyLength)", mb.slot)
		default:
			continue
		}
		if !mb.required {
			s.line("\te.has%s = true", mb.name)
		}
	}
	s.line("}")
	s.blank()
}

func (encoderStrategy) setCheckSum(s *source, m *model) {
	s.line("func (e *%s) setCheckSum(sum []byte) {", m.typeName)
	for _, mb := range m.members {
		if !mb.framing || mb.field.Number != dictionary.CheckSum || mb.field.Type.Storage() != dictionary.StorageBytes {
			continue
		}
		s.line("\te.%s = append(e.%s[:0], sum...)", mb.slot, mb.slot)
		if !mb.required {
			s.line("\te.has%s = true", mb.name)
		}
	}
	s.line("}")
	s.blank()
}
