package contract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"

	"github.com/getmockd/contracts/pkg/generators"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/logging"
	"github.com/getmockd/contracts/pkg/matchingrules"
	"github.com/getmockd/contracts/pkg/spec"
	"github.com/getmockd/contracts/pkg/util"
)

// ErrInvalidPact is returned for documents that are not pact files.
var ErrInvalidPact = errors.New("invalid pact document")

// Pact is a parsed contract file.
type Pact struct {
	Consumer     string
	Provider     string
	Interactions []Interaction
	Metadata     map[string]jsonvalue.Value
	Version      spec.Version
	// Source is the file the pact was loaded from, if any.
	Source string
}

// ParseOption configures ParsePact.
type ParseOption func(*parseConfig)

type parseConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives warnings about ignored content.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

var versionPaths = []string{
	"metadata.pactSpecification.version",
	"metadata.pact-specification.version",
	"metadata.pactSpecificationVersion",
}

// DetectVersion reads the specification version a document declares. Files
// without one are V3 when they hold messages, V2 otherwise.
func DetectVersion(data []byte) spec.Version {
	for _, p := range versionPaths {
		r := gjson.GetBytes(data, p)
		if !r.Exists() {
			continue
		}
		if v, err := spec.ParseVersion(r.String()); err == nil {
			return v
		}
	}
	if gjson.GetBytes(data, "interactions.0.type").Exists() {
		return spec.V4
	}
	if gjson.GetBytes(data, "messages").Exists() {
		return spec.V3
	}
	return spec.V2
}

// ParsePact decodes a pact document of any specification version.
func ParsePact(data []byte, opts ...ParseOption) (*Pact, error) {
	cfg := parseConfig{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	doc, err := jsonvalue.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPact, err)
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrInvalidPact, doc.Name())
	}

	p := &Pact{
		Consumer: gjson.GetBytes(data, "consumer.name").String(),
		Provider: gjson.GetBytes(data, "provider.name").String(),
		Metadata: map[string]jsonvalue.Value{},
		Version:  DetectVersion(data),
	}
	if md, _ := doc.Get("metadata"); md.IsObject() {
		p.Metadata = md.Entries()
	}

	d := decoder{version: p.Version, logger: cfg.logger}
	interactions, _ := doc.Get("interactions")
	for i, item := range interactions.Values() {
		in, err := d.interaction(item)
		if err != nil {
			return nil, fmt.Errorf("%w: interaction %d: %w", ErrInvalidPact, i, err)
		}
		p.Interactions = append(p.Interactions, in)
	}
	messages, _ := doc.Get("messages")
	for i, item := range messages.Values() {
		m, err := d.message(item)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", ErrInvalidPact, i, err)
		}
		p.Interactions = append(p.Interactions, m)
	}
	return p, nil
}

// LoadFromFile reads and parses a pact file.
func LoadFromFile(path string, opts ...ParseOption) (*Pact, error) {
	cleanPath, safe := util.SafeFilePathAllowAbsolute(path)
	if !safe {
		return nil, fmt.Errorf("unsafe pact file path: %s", path)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pact file: %w", err)
	}
	p, err := ParsePact(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	p.Source = cleanPath
	return p, nil
}

// LoadDir parses every file matching pattern, e.g. "pacts/**/*.json", in
// lexical order.
func LoadDir(pattern string, opts ...ParseOption) ([]*Pact, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pact file pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	pacts := make([]*Pact, 0, len(matches))
	for _, m := range matches {
		p, err := LoadFromFile(m, opts...)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, p)
	}
	return pacts, nil
}

type decoder struct {
	version spec.Version
	logger  *slog.Logger
}

func (d decoder) interaction(doc jsonvalue.Value) (Interaction, error) {
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected an object, got %s", doc.Name())
	}
	kind := KindSynchronousHTTP
	if d.version.AtLeast(spec.V4) {
		if t := stringField(doc, "type"); t != "" {
			kind = t
		}
	}
	switch kind {
	case KindSynchronousHTTP:
		return d.requestResponse(doc)
	case KindAsynchronousMessage:
		return d.asyncMessage(doc)
	case KindSynchronousMessages:
		return d.syncMessages(doc)
	}
	return nil, fmt.Errorf("unknown interaction type %q", kind)
}

func (d decoder) info(doc jsonvalue.Value) InteractionInfo {
	info := InteractionInfo{
		Key:         stringField(doc, "key"),
		Description: stringField(doc, "description"),
	}
	if pending, _ := doc.Get("pending"); pending.IsBoolean() {
		info.Pending, _ = pending.AsBool()
	}
	if comments, _ := doc.Get("comments"); comments.IsObject() {
		info.Comments = comments.Entries()
	}
	if states, _ := doc.Get("providerStates"); states.IsArray() {
		for _, s := range states.Values() {
			state := ProviderState{Name: stringField(s, "name")}
			if params, _ := s.Get("params"); params.IsObject() {
				state.Params, _ = params.ToNative().(map[string]any)
			}
			info.ProviderStates = append(info.ProviderStates, state)
		}
	} else if name := stringField(doc, "providerState"); name != "" {
		info.ProviderStates = []ProviderState{{Name: name}}
	}
	return info
}

func (d decoder) requestResponse(doc jsonvalue.Value) (*RequestResponse, error) {
	rr := &RequestResponse{InteractionInfo: d.info(doc), Request: NewRequest(), Response: NewResponse()}

	if req, _ := doc.Get("request"); req.IsObject() {
		if m := stringField(req, "method"); m != "" {
			rr.Request.Method = m
		}
		if p := stringField(req, "path"); p != "" {
			rr.Request.Path = p
		}
		query, err := decodeQuery(req)
		if err != nil {
			return nil, err
		}
		rr.Request.Query = query
		rr.Request.Headers = decodeHeaders(req)
		rr.Request.Body = d.body(req, "body", rr.Request.Headers)
		rr.Request.MatchingRules = d.rules(req)
		rr.Request.Generators = d.generators(req)
	}

	if resp, _ := doc.Get("response"); resp.IsObject() {
		if status, _ := resp.Get("status"); status.IsNumber() {
			n, _ := status.AsInt64()
			rr.Response.Status = int(n)
		}
		rr.Response.Headers = decodeHeaders(resp)
		rr.Response.Body = d.body(resp, "body", rr.Response.Headers)
		rr.Response.MatchingRules = d.rules(resp)
		rr.Response.Generators = d.generators(resp)
	}
	return rr, nil
}

func (d decoder) message(doc jsonvalue.Value) (*Message, error) {
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected an object, got %s", doc.Name())
	}
	m := &Message{InteractionInfo: d.info(doc)}
	m.MessageContents = *d.messageContents(doc)
	return m, nil
}

func (d decoder) asyncMessage(doc jsonvalue.Value) (*AsynchronousMessage, error) {
	return &AsynchronousMessage{InteractionInfo: d.info(doc), Contents: d.messageContents(doc)}, nil
}

func (d decoder) syncMessages(doc jsonvalue.Value) (*SynchronousMessages, error) {
	sm := &SynchronousMessages{InteractionInfo: d.info(doc), Request: NewMessageContents()}
	if req, _ := doc.Get("request"); req.IsObject() {
		sm.Request = d.messageContents(req)
	}
	resp, _ := doc.Get("response")
	for _, r := range resp.Values() {
		sm.Response = append(sm.Response, d.messageContents(r))
	}
	return sm, nil
}

// messageContents decodes contents, metadata, rules and generators. The body
// category of stored rules and generators is named "content" in memory.
func (d decoder) messageContents(doc jsonvalue.Value) *MessageContents {
	mc := NewMessageContents()
	if md, _ := doc.Get("metadata"); md.IsObject() {
		mc.Metadata = md.Entries()
	}
	headers := map[string][]string{}
	if ct := mc.ContentType(); !ct.IsEmpty() {
		headers["Content-Type"] = []string{ct.String()}
	}
	mc.Contents = d.body(doc, "contents", headers)
	mc.MatchingRules = d.rules(doc).Rename(matchingrules.CategoryBody, matchingrules.CategoryContent)

	mc.Generators = d.generators(doc).Rename(matchingrules.CategoryBody, matchingrules.CategoryContent)
	return mc
}

func (d decoder) rules(doc jsonvalue.Value) *matchingrules.MatchingRules {
	v, err := doc.Get("matchingRules")
	if err != nil || v.IsNull() || (v.IsObject() && v.Len() == 0) {
		return matchingrules.New()
	}
	return matchingrules.FromDocument(v, matchingrules.WithLogger(d.logger))
}

func (d decoder) generators(doc jsonvalue.Value) *generators.Generators {
	v, err := doc.Get("generators")
	if err != nil || v.IsNull() {
		return generators.New()
	}
	return generators.FromDocument(v, d.logger)
}

// body decodes the body stored under key. Before V4 the body is stored as a
// JSON value; strings are raw text unless the content type is JSON. V4 stores
// {"content": ..., "contentType": ..., "encoded": ...}.
func (d decoder) body(doc jsonvalue.Value, key string, headers map[string][]string) Body {
	if !doc.Has(key) {
		return MissingBody()
	}
	v, _ := doc.Get(key)
	contentType := ""
	if ct, ok := HeaderValues(headers, "Content-Type"); ok && len(ct) > 0 {
		contentType = ct[0]
	}

	if d.version.AtLeast(spec.V4) && v.IsObject() && v.Has("content") {
		if ct := stringField(v, "contentType"); ct != "" {
			contentType = ct
		}
		content, _ := v.Get("content")
		encoded, _ := v.Get("encoded")
		if enc, ok := encoded.AsString(); ok && (enc == "base64" || enc == "true") {
			raw, err := base64.StdEncoding.DecodeString(content.String())
			if err != nil {
				d.logger.Warn("body is not valid base64, keeping encoded text", "error", err)
				return NewBody([]byte(content.String()), contentType)
			}
			return NewBody(raw, contentType)
		}
		if b, ok := encoded.AsBool(); ok && b {
			raw, err := base64.StdEncoding.DecodeString(content.String())
			if err == nil {
				return NewBody(raw, contentType)
			}
		}
		return valueBody(content, contentType)
	}
	return valueBody(v, contentType)
}

func valueBody(v jsonvalue.Value, contentType string) Body {
	if v.IsNull() {
		b := NullBody()
		b.ContentType = ParseContentType(contentType)
		return b
	}
	ct := ParseContentType(contentType)
	if s, ok := v.AsString(); ok && !ct.IsJSON() {
		return NewBody([]byte(s), contentType)
	}
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	return NewBody([]byte(v.Serialize()), contentType)
}

func decodeHeaders(doc jsonvalue.Value) map[string][]string {
	out := map[string][]string{}
	h, _ := doc.Get("headers")
	for _, e := range h.SortedEntries() {
		out[e.Key] = stringList(e.Value)
	}
	return out
}

// decodeQuery accepts the V2 query string form and the V3 map form.
func decodeQuery(doc jsonvalue.Value) (map[string][]string, error) {
	q, _ := doc.Get("query")
	if s, ok := q.AsString(); ok {
		values, err := url.ParseQuery(s)
		if err != nil {
			return nil, fmt.Errorf("invalid query string %q: %w", s, err)
		}
		return values, nil
	}
	out := map[string][]string{}
	for _, e := range q.SortedEntries() {
		out[e.Key] = stringList(e.Value)
	}
	return out, nil
}

func stringList(v jsonvalue.Value) []string {
	if v.IsArray() {
		out := make([]string, 0, v.Len())
		for _, item := range v.Values() {
			out = append(out, item.String())
		}
		return out
	}
	return []string{v.String()}
}

func stringField(doc jsonvalue.Value, key string) string {
	v, err := doc.Get(key)
	if err != nil {
		return ""
	}
	s, _ := v.AsString()
	return s
}
