package contract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/getmockd/contracts/pkg/jsonvalue"
)

// BodyState distinguishes an absent body from an empty or null one.
type BodyState int

// Body states.
const (
	BodyMissing BodyState = iota
	BodyEmpty
	BodyNull
	BodyPresent
)

// String returns the state name.
func (s BodyState) String() string {
	switch s {
	case BodyEmpty:
		return "Empty"
	case BodyNull:
		return "Null"
	case BodyPresent:
		return "Present"
	default:
		return "Missing"
	}
}

// Body is the payload of a request, response or message.
type Body struct {
	State       BodyState
	Value       []byte
	ContentType ContentType
}

// MissingBody returns a body that was not recorded.
func MissingBody() Body { return Body{State: BodyMissing} }

// EmptyBody returns a recorded zero-length body.
func EmptyBody() Body { return Body{State: BodyEmpty} }

// NullBody returns a body recorded as JSON null.
func NullBody() Body { return Body{State: BodyNull} }

// NewBody returns a present body. A nil or empty value yields an empty body.
func NewBody(value []byte, contentType string) Body {
	ct := ParseContentType(contentType)
	if len(value) == 0 {
		return Body{State: BodyEmpty, ContentType: ct}
	}
	return Body{State: BodyPresent, Value: value, ContentType: ct}
}

// JSONBody returns a present body holding the canonical form of v.
func JSONBody(v jsonvalue.Value) Body {
	return NewBody([]byte(v.Serialize()), ContentTypeJSON)
}

// IsMissing reports whether no body was recorded.
func (b Body) IsMissing() bool { return b.State == BodyMissing }

// IsNull reports whether the body was recorded as null.
func (b Body) IsNull() bool { return b.State == BodyNull }

// IsPresent reports whether the body holds content.
func (b Body) IsPresent() bool { return b.State == BodyPresent && len(b.Value) > 0 }

// IsEmpty reports whether the body is missing, null or zero length.
func (b Body) IsEmpty() bool { return !b.IsPresent() }

// Len returns the size of the content in bytes.
func (b Body) Len() int { return len(b.Value) }

// ValueAsString returns the content as a string.
func (b Body) ValueAsString() string {
	if !b.IsPresent() {
		return ""
	}
	return string(b.Value)
}

// Text decodes the content using the charset of its content type. Unknown
// charsets return the raw bytes as text together with an error.
func (b Body) Text() (string, error) {
	charset := b.ContentType.Charset()
	if !b.IsPresent() || charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return b.ValueAsString(), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return b.ValueAsString(), fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	decoded, err := enc.NewDecoder().Bytes(b.Value)
	if err != nil {
		return b.ValueAsString(), fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return string(decoded), nil
}

// IsJSON reports whether the body should be compared as JSON: its content
// type says so, or no content type is set and the content looks like JSON.
func (b Body) IsJSON() bool {
	if !b.ContentType.IsEmpty() {
		return b.ContentType.IsJSON()
	}
	return b.DetectedContentType().IsJSON()
}

// WithContentType returns a copy using contentType.
func (b Body) WithContentType(contentType string) Body {
	b.ContentType = ParseContentType(contentType)
	return b
}

// DetectedContentType returns the declared content type, or a guess based on
// the first bytes when none is declared.
func (b Body) DetectedContentType() ContentType {
	if !b.ContentType.IsEmpty() {
		return b.ContentType
	}
	trimmed := bytes.TrimSpace(b.Value)
	switch {
	case len(trimmed) == 0:
		return ContentType{}
	case trimmed[0] == '{' || trimmed[0] == '[':
		return ParseContentType(ContentTypeJSON)
	case bytes.HasPrefix(trimmed, []byte("<?xml")) || (trimmed[0] == '<' && !bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html"))):
		return ParseContentType(ContentTypeXML)
	case bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html")):
		return ParseContentType(ContentTypeHTML)
	case utf8.Valid(trimmed):
		return ParseContentType(ContentTypeText)
	}
	return ParseContentType(ContentTypeOctet)
}
