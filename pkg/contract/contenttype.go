package contract

import (
	"mime"
	"strings"
)

// ContentType is a parsed MIME type with its parameters.
type ContentType struct {
	raw    string
	base   string
	params map[string]string
}

// Well-known content types.
const (
	ContentTypeJSON  = "application/json"
	ContentTypeXML   = "application/xml"
	ContentTypeText  = "text/plain"
	ContentTypeForm  = "application/x-www-form-urlencoded"
	ContentTypeHTML  = "text/html"
	ContentTypeOctet = "application/octet-stream"
)

// ParseContentType parses a Content-Type value. Malformed parameters are
// dropped and the base type kept.
func ParseContentType(s string) ContentType {
	s = strings.TrimSpace(s)
	if s == "" {
		return ContentType{}
	}
	base, params, err := mime.ParseMediaType(s)
	if err != nil {
		base, _, _ = strings.Cut(s, ";")
		params = nil
	}
	return ContentType{raw: s, base: strings.ToLower(strings.TrimSpace(base)), params: params}
}

// String returns the value as given.
func (c ContentType) String() string { return c.raw }

// IsEmpty reports whether no content type is set.
func (c ContentType) IsEmpty() bool { return c.base == "" }

// BaseType returns the lowercased type without parameters, e.g. "application/json".
func (c ContentType) BaseType() string { return c.base }

// Param returns a parameter value.
func (c ContentType) Param(name string) string {
	return c.params[strings.ToLower(name)]
}

// Params returns a copy of the parameters.
func (c ContentType) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// Charset returns the charset parameter, or "" when unset.
func (c ContentType) Charset() string {
	return c.Param("charset")
}

// IsJSON reports JSON types including structured "+json" suffixes.
func (c ContentType) IsJSON() bool {
	return c.base == ContentTypeJSON || c.base == "text/json" || strings.HasSuffix(c.base, "+json")
}

// IsXML reports XML types including structured "+xml" suffixes.
func (c ContentType) IsXML() bool {
	return c.base == ContentTypeXML || c.base == "text/xml" || strings.HasSuffix(c.base, "+xml")
}

// IsText reports textual types.
func (c ContentType) IsText() bool {
	return strings.HasPrefix(c.base, "text/") || c.IsJSON() || c.IsXML() || c.base == ContentTypeForm
}

// IsBinary reports types that are not textual.
func (c ContentType) IsBinary() bool {
	return !c.IsEmpty() && !c.IsText()
}

// StructuredSuffixBase maps "+json" types such as "application/hal+json" to
// "application/json" and "+xml" types to "application/xml". Other types
// return "".
func (c ContentType) StructuredSuffixBase() string {
	_, sub, ok := strings.Cut(c.base, "/")
	if !ok {
		return ""
	}
	i := strings.LastIndexByte(sub, '+')
	if i < 0 {
		return ""
	}
	switch sub[i+1:] {
	case "json":
		return ContentTypeJSON
	case "xml":
		return ContentTypeXML
	}
	return ""
}

// Equal compares base types and parameters.
func (c ContentType) Equal(other ContentType) bool {
	if c.base != other.base || len(c.params) != len(other.params) {
		return false
	}
	for k, v := range c.params {
		if !strings.EqualFold(other.params[k], v) {
			return false
		}
	}
	return true
}
