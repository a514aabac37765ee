// Package codec turns a dictionary into working encoders and decoders for
// every aggregate it declares, without generating source.
//
// Compile builds one layout per aggregate; encoders and decoders are thin
// value stores over a layout that share the per-aggregate algorithm and
// differ only through a flavour strategy. Generated codecs from package
// generation implement the same Encoder and Decoder contracts and reuse
// the framing, reader and dump helpers defined here.
package codec

import (
	"golang.org/x/xerrors"
)

// Encoder is implemented by every encoder artifact, compiled or generated
type Encoder interface {
	// Reset clears the aggregate's own optional fields
	Reset()
	// String renders a structural dump for diagnostics
	String() string
	// Encode writes the aggregate at buf[offset:] and returns the bytes written
	Encode(buf []byte, offset int) (int, error)
}

// Decoder is implemented by every decoder artifact, compiled or generated
type Decoder interface {
	Reset()
	String() string
	// Decode reads the aggregate from buf[offset:offset+length] and returns
	// the bytes consumed
	Decode(buf []byte, offset, length int) (int, error)
}

var (
	ErrUnknownField     = xerrors.New("unknown field")
	ErrTypeMismatch     = xerrors.New("field type mismatch")
	ErrRequiredField    = xerrors.New("required field")
	ErrUnknownMessage   = xerrors.New("unknown message type")
	ErrUnknownGroup     = xerrors.New("unknown group")
	ErrUnknownComponent = xerrors.New("unknown component")
	ErrBadBeginString   = xerrors.New("bad BeginString")
	ErrBadBodyLength    = xerrors.New("bad BodyLength")
	ErrBadChecksum      = xerrors.New("bad CheckSum")
	ErrBadGroupCount    = xerrors.New("group count does not match instances")
	ErrTruncated        = xerrors.New("truncated message")
)
