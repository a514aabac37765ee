package generation

import (
	"go/token"
	"strings"
	"unicode"
)

// exported upper-cases the first letter of a dictionary name
func exported(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// unexported lower-cases the leading capital run, keeping the start of
// the next word: TestReqID -> testReqID, MDReqID -> mdReqID, ID -> id.
func unexported(name string) string {
	r := []rune(name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
	case n == len(r), n == 1:
		for i := 0; i < n; i++ {
			r[i] = unicode.ToLower(r[i])
		}
	default:
		for i := 0; i < n-1; i++ {
			r[i] = unicode.ToLower(r[i])
		}
	}
	s := string(r)
	if token.IsKeyword(s) {
		return s + "Value"
	}
	return s
}

// SnakeCase converts an artifact name to its file name stem:
// EgMessageEncoder -> eg_message_encoder, TestReqID -> test_req_id.
func SnakeCase(name string) string {
	r := []rune(name)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) {
			prevLower := i > 0 && (unicode.IsLower(r[i-1]) || unicode.IsDigit(r[i-1]))
			nextLower := i > 0 && i+1 < len(r) && unicode.IsUpper(r[i-1]) && unicode.IsLower(r[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(c))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// constName turns an enum description such as INVALID_TAG_NUMBER into
// the CamelCase suffix InvalidTagNumber.
func constName(description string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(description, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}) {
		r := []rune(strings.ToLower(part))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
