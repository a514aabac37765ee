// Package validation holds the structural checks codecs run on decoded
// wire values.
package validation

// Validator checks message type bytes. A disabled Validator accepts
// everything, for deployments that trust their counterparty and want the
// cycles back.
//
// The switch is fixed at construction and the Validator is safe for
// concurrent use.
type Validator struct {
	enabled bool
}

// New creates a validator
func New(enabled bool) *Validator {
	return &Validator{enabled: enabled}
}

// FromNoValidation creates a validator from the inverted switch carried in
// configuration (codecs.no_validation).
func FromNoValidation(noValidation bool) *Validator {
	return New(!noValidation)
}

// Enabled reports whether checks run
func (v *Validator) Enabled() bool {
	return v != nil && v.enabled
}

// IsValidMsgType reports whether msgType[:length] consists only of ASCII
// letters and digits. A zero length is vacuously valid; a negative length
// or one beyond the buffer is not.
// Performance: single pass, no allocation.
func (v *Validator) IsValidMsgType(msgType []byte, length int) bool {
	if !v.Enabled() {
		return true
	}
	if length < 0 || length > len(msgType) {
		return false
	}
	for _, c := range msgType[:length] {
		if !isLetterOrDigit(c) {
			return false
		}
	}
	return true
}

func isLetterOrDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
