package plugin

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matching"
	"github.com/getmockd/contracts/pkg/matchingrules"
	"github.com/getmockd/contracts/pkg/spec"
)

// Service and method names of the plugin interface. Messages are exchanged
// as google.protobuf.Struct values with the fields documented on the
// request and response types.
const (
	ServiceName           = "io.pact.plugin.PactPlugin"
	MethodInitPlugin      = "/" + ServiceName + "/InitPlugin"
	MethodCompareContents = "/" + ServiceName + "/CompareContents"
)

// EntryTypeContentMatcher marks catalogue entries that compare bodies.
const EntryTypeContentMatcher = "CONTENT_MATCHER"

// InitPluginRequest is sent once after the plugin has started:
//
//	{"implementation": "...", "version": "..."}
type InitPluginRequest struct {
	Implementation string
	Version        string
}

// CatalogueEntry is a capability advertised by a plugin.
//
//	{"type": "CONTENT_MATCHER", "key": "protobuf",
//	 "values": {"content-types": "application/protobuf;application/grpc"}}
type CatalogueEntry struct {
	Type   string
	Key    string
	Values map[string]string
}

// ContentTypes returns the content types of a content matcher entry.
func (e CatalogueEntry) ContentTypes() []string {
	var out []string
	for _, ct := range strings.Split(e.Values["content-types"], ";") {
		if ct = strings.TrimSpace(ct); ct != "" {
			out = append(out, ct)
		}
	}
	return out
}

// InitPluginResponse lists the capabilities of a plugin:
//
//	{"catalogue": [CatalogueEntry...]}
type InitPluginResponse struct {
	Catalogue []CatalogueEntry
}

// CompareContentsRequest asks a plugin to compare two bodies:
//
//	{"expected": {"contentType": "...", "content": "<base64>"},
//	 "actual": {...}, "allowUnexpectedKeys": true,
//	 "rules": {"$.path": {"matchers": [...], "combine": "AND"}},
//	 "pluginConfiguration": {...}}
type CompareContentsRequest struct {
	Expected            contract.Body
	Actual              contract.Body
	AllowUnexpectedKeys bool
	Rules               *matchingrules.Category
	Configuration       map[string]any
}

// ContentMismatch is one difference reported by a plugin.
type ContentMismatch struct {
	Expected string
	Actual   string
	Mismatch string
	Path     string
	Diff     string
}

// CompareContentsResponse is the outcome of a comparison:
//
//	{"error": "...",
//	 "typeMismatch": {"expected": "...", "actual": "..."},
//	 "results": {"$.path": [{"expected": "...", "actual": "...",
//	             "mismatch": "...", "path": "...", "diff": "..."}]}}
type CompareContentsResponse struct {
	Error        string
	TypeMismatch *matching.BodyTypeMismatch
	Results      map[string][]ContentMismatch
}

// Mismatches converts the response into matching mismatches. A type
// mismatch replaces every other result.
func (r *CompareContentsResponse) Mismatches() []matching.Mismatch {
	if r.TypeMismatch != nil {
		return []matching.Mismatch{*r.TypeMismatch}
	}
	paths := make([]string, 0, len(r.Results))
	for p := range r.Results {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []matching.Mismatch
	for _, p := range paths {
		for _, m := range r.Results[p] {
			path := m.Path
			if path == "" {
				path = p
			}
			out = append(out, matching.BodyMismatch{
				Expected: jsonvalue.String(m.Expected),
				Actual:   jsonvalue.String(m.Actual),
				Mismatch: m.Mismatch,
				BodyPath: path,
				Diff:     m.Diff,
			})
		}
	}
	return out
}

func (r InitPluginRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"implementation": r.Implementation,
		"version":        r.Version,
	})
}

func initResponseFromStruct(s *structpb.Struct) (*InitPluginResponse, error) {
	resp := &InitPluginResponse{}
	for i, v := range s.GetFields()["catalogue"].GetListValue().GetValues() {
		entry := v.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("catalogue entry %d is not an object", i)
		}
		fields := entry.GetFields()
		ce := CatalogueEntry{
			Type:   fields["type"].GetStringValue(),
			Key:    fields["key"].GetStringValue(),
			Values: map[string]string{},
		}
		for k, val := range fields["values"].GetStructValue().GetFields() {
			ce.Values[k] = val.GetStringValue()
		}
		resp.Catalogue = append(resp.Catalogue, ce)
	}
	return resp, nil
}

func bodyToMap(b contract.Body) map[string]any {
	return map[string]any{
		"contentType": b.ContentType.String(),
		"content":     base64.StdEncoding.EncodeToString(b.Value),
	}
}

func (r CompareContentsRequest) toStruct() (*structpb.Struct, error) {
	rules := map[string]any{}
	if r.Rules != nil {
		if doc, ok := r.Rules.ToDocument(spec.V4).ToNative().(map[string]any); ok {
			rules = doc
		}
	}
	config := r.Configuration
	if config == nil {
		config = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"expected":            bodyToMap(r.Expected),
		"actual":              bodyToMap(r.Actual),
		"allowUnexpectedKeys": r.AllowUnexpectedKeys,
		"rules":               rules,
		"pluginConfiguration": config,
	})
}

func compareResponseFromStruct(s *structpb.Struct) (*CompareContentsResponse, error) {
	fields := s.GetFields()
	resp := &CompareContentsResponse{
		Error:   fields["error"].GetStringValue(),
		Results: map[string][]ContentMismatch{},
	}
	if tm := fields["typeMismatch"].GetStructValue(); tm != nil {
		expected := tm.GetFields()["expected"].GetStringValue()
		actual := tm.GetFields()["actual"].GetStringValue()
		resp.TypeMismatch = &matching.BodyTypeMismatch{
			Expected: expected,
			Actual:   actual,
			Mismatch: fmt.Sprintf("Expected a body of '%s' but the actual content type was '%s'", expected, actual),
		}
	}
	for path, v := range fields["results"].GetStructValue().GetFields() {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("results for %s are not a list", path)
		}
		for _, item := range list.GetValues() {
			m := item.GetStructValue().GetFields()
			resp.Results[path] = append(resp.Results[path], ContentMismatch{
				Expected: m["expected"].GetStringValue(),
				Actual:   m["actual"].GetStringValue(),
				Mismatch: m["mismatch"].GetStringValue(),
				Path:     m["path"].GetStringValue(),
				Diff:     m["diff"].GetStringValue(),
			})
		}
	}
	return resp, nil
}
