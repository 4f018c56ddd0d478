package contract

import (
	"net/http"
	"sort"
	"strings"

	"github.com/getmockd/contracts/pkg/generators"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// ProviderState names a state the provider must be in before an interaction
// is replayed, with optional parameters.
type ProviderState struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// InteractionInfo holds the fields shared by every interaction variant.
type InteractionInfo struct {
	Key            string
	Description    string
	ProviderStates []ProviderState
	Pending        bool
	Comments       map[string]jsonvalue.Value
}

// Info returns the shared fields.
func (i *InteractionInfo) Info() *InteractionInfo { return i }

// Interaction is one of *RequestResponse, *Message, *AsynchronousMessage or
// *SynchronousMessages.
type Interaction interface {
	Info() *InteractionInfo
	// Kind is the V4 interaction type name, e.g. "Synchronous/HTTP".
	Kind() string
	isInteraction()
}

// V4 interaction type names.
const (
	KindSynchronousHTTP     = "Synchronous/HTTP"
	KindAsynchronousMessage = "Asynchronous/Messages"
	KindSynchronousMessages = "Synchronous/Messages"
)

// Request is an expected HTTP request.
type Request struct {
	Method        string
	Path          string
	Query         map[string][]string
	Headers       map[string][]string
	Body          Body
	MatchingRules *matchingrules.MatchingRules
	Generators    *generators.Generators
}

// NewRequest returns a GET / request with empty rules.
func NewRequest() *Request {
	return &Request{
		Method:        http.MethodGet,
		Path:          "/",
		Query:         map[string][]string{},
		Headers:       map[string][]string{},
		Body:          MissingBody(),
		MatchingRules: matchingrules.New(),
		Generators:    generators.New(),
	}
}

// ContentType returns the Content-Type header, falling back to the body's.
func (r *Request) ContentType() ContentType {
	return headerContentType(r.Headers, r.Body)
}

// SetBody sets the body. Sources that carry matchers contribute them to the
// body category.
func (r *Request) SetBody(src BodySource) {
	r.Body = applyBodySource(src, r.MatchingRules, r.Generators, matchingrules.CategoryBody)
}

// Response is an expected HTTP response.
type Response struct {
	Status        int
	Headers       map[string][]string
	Body          Body
	MatchingRules *matchingrules.MatchingRules
	Generators    *generators.Generators
}

// NewResponse returns a 200 response with empty rules.
func NewResponse() *Response {
	return &Response{
		Status:        http.StatusOK,
		Headers:       map[string][]string{},
		Body:          MissingBody(),
		MatchingRules: matchingrules.New(),
		Generators:    generators.New(),
	}
}

// ContentType returns the Content-Type header, falling back to the body's.
func (r *Response) ContentType() ContentType {
	return headerContentType(r.Headers, r.Body)
}

// SetBody sets the body. Sources that carry matchers contribute them to the
// body category.
func (r *Response) SetBody(src BodySource) {
	r.Body = applyBodySource(src, r.MatchingRules, r.Generators, matchingrules.CategoryBody)
}

// RequestResponse is a synchronous HTTP interaction.
type RequestResponse struct {
	InteractionInfo
	Request  *Request
	Response *Response
}

// Kind implements Interaction.
func (*RequestResponse) Kind() string { return KindSynchronousHTTP }

func (*RequestResponse) isInteraction() {}

// MessageContents is the payload of a message with its metadata and rules.
// Body rules live in the "content" category.
type MessageContents struct {
	Contents      Body
	Metadata      map[string]jsonvalue.Value
	MatchingRules *matchingrules.MatchingRules
	Generators    *generators.Generators
}

// NewMessageContents returns empty contents.
func NewMessageContents() *MessageContents {
	return &MessageContents{
		Contents:      MissingBody(),
		Metadata:      map[string]jsonvalue.Value{},
		MatchingRules: matchingrules.New(),
		Generators:    generators.New(),
	}
}

// ContentType returns the contentType metadata entry, falling back to the
// body's content type.
func (m *MessageContents) ContentType() ContentType {
	for _, key := range []string{"contentType", "content-type", "Content-Type"} {
		if v, ok := m.Metadata[key]; ok && v.IsString() {
			return ParseContentType(v.String())
		}
	}
	return m.Contents.DetectedContentType()
}

// SetBody sets the contents. Sources that carry matchers contribute them to
// the content category.
func (m *MessageContents) SetBody(src BodySource) {
	m.Contents = applyBodySource(src, m.MatchingRules, m.Generators, matchingrules.CategoryContent)
}

// Message is a V3 asynchronous message.
type Message struct {
	InteractionInfo
	MessageContents
}

// Kind implements Interaction.
func (*Message) Kind() string { return KindAsynchronousMessage }

func (*Message) isInteraction() {}

// AsynchronousMessage is a V4 asynchronous message.
type AsynchronousMessage struct {
	InteractionInfo
	Contents *MessageContents
}

// Kind implements Interaction.
func (*AsynchronousMessage) Kind() string { return KindAsynchronousMessage }

func (*AsynchronousMessage) isInteraction() {}

// SynchronousMessages is a V4 request message with one or more responses.
type SynchronousMessages struct {
	InteractionInfo
	Request  *MessageContents
	Response []*MessageContents
}

// Kind implements Interaction.
func (*SynchronousMessages) Kind() string { return KindSynchronousMessages }

func (*SynchronousMessages) isInteraction() {}

// HeaderValues returns the values of name using a case-insensitive lookup.
func HeaderValues(headers map[string][]string, name string) ([]string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// HeaderNames returns the header names sorted.
func HeaderNames(headers map[string][]string) []string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func headerContentType(headers map[string][]string, body Body) ContentType {
	if v, ok := HeaderValues(headers, "Content-Type"); ok && len(v) > 0 {
		return ParseContentType(v[0])
	}
	return body.DetectedContentType()
}
