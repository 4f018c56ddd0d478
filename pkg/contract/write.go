package contract

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/getmockd/contracts/pkg/generators"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
	"github.com/getmockd/contracts/pkg/spec"
	"github.com/getmockd/contracts/pkg/util"
)

// ToDocument encodes the pact in the layout of p.Version. V4 interactions
// cannot be written for earlier versions and return an error.
func (p *Pact) ToDocument() (jsonvalue.Value, error) {
	version := p.Version
	if version == spec.Unknown {
		version = spec.V3
	}
	e := encoder{version: version}

	metadata := map[string]jsonvalue.Value{}
	for k, v := range p.Metadata {
		metadata[k] = v
	}
	delete(metadata, "pact-specification")
	delete(metadata, "pactSpecificationVersion")
	metadata["pactSpecification"] = jsonvalue.Object(map[string]jsonvalue.Value{
		"version": jsonvalue.String(version.VersionString()),
	})

	doc := map[string]jsonvalue.Value{
		"consumer": jsonvalue.Object(map[string]jsonvalue.Value{"name": jsonvalue.String(p.Consumer)}),
		"provider": jsonvalue.Object(map[string]jsonvalue.Value{"name": jsonvalue.String(p.Provider)}),
		"metadata": jsonvalue.Object(metadata),
	}

	var interactions, messages []jsonvalue.Value
	for i, in := range p.Interactions {
		switch v := in.(type) {
		case *RequestResponse:
			interactions = append(interactions, e.requestResponse(v))
		case *Message:
			if version.AtLeast(spec.V4) {
				interactions = append(interactions, e.asyncMessage(&v.InteractionInfo, &v.MessageContents))
			} else {
				messages = append(messages, e.message(v))
			}
		case *AsynchronousMessage:
			if version.Before(spec.V4) {
				return jsonvalue.Null(), fmt.Errorf("interaction %d: %s requires %s", i, v.Kind(), spec.V4)
			}
			interactions = append(interactions, e.asyncMessage(&v.InteractionInfo, v.Contents))
		case *SynchronousMessages:
			if version.Before(spec.V4) {
				return jsonvalue.Null(), fmt.Errorf("interaction %d: %s requires %s", i, v.Kind(), spec.V4)
			}
			interactions = append(interactions, e.syncMessages(v))
		}
	}
	if len(interactions) > 0 || len(messages) == 0 {
		doc["interactions"] = jsonvalue.Array(interactions...)
	}
	if len(messages) > 0 {
		doc["messages"] = jsonvalue.Array(messages...)
	}
	return jsonvalue.Object(doc), nil
}

// WriteFile writes the pretty-printed pact to path, creating parent
// directories.
func (p *Pact) WriteFile(path string) error {
	cleanPath, safe := util.SafeFilePathAllowAbsolute(path)
	if !safe {
		return fmt.Errorf("unsafe pact file path: %s", path)
	}
	doc, err := p.ToDocument()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return fmt.Errorf("failed to create pact directory: %w", err)
	}
	if err := os.WriteFile(cleanPath, []byte(doc.PrettyPrint()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write pact file: %w", err)
	}
	return nil
}

type encoder struct {
	version spec.Version
}

func (e encoder) info(info *InteractionInfo, out map[string]jsonvalue.Value) {
	out["description"] = jsonvalue.String(info.Description)
	if len(info.ProviderStates) > 0 {
		if e.version.Before(spec.V3) {
			out["providerState"] = jsonvalue.String(info.ProviderStates[0].Name)
		} else {
			states := make([]jsonvalue.Value, 0, len(info.ProviderStates))
			for _, s := range info.ProviderStates {
				state := map[string]jsonvalue.Value{"name": jsonvalue.String(s.Name)}
				if len(s.Params) > 0 {
					if params, err := jsonvalue.FromNative(s.Params); err == nil {
						state["params"] = params
					}
				}
				states = append(states, jsonvalue.Object(state))
			}
			out["providerStates"] = jsonvalue.Array(states...)
		}
	}
	if e.version.AtLeast(spec.V4) {
		if info.Key != "" {
			out["key"] = jsonvalue.String(info.Key)
		}
		out["pending"] = jsonvalue.Bool(info.Pending)
		if len(info.Comments) > 0 {
			out["comments"] = jsonvalue.Object(info.Comments)
		}
	}
}

func (e encoder) requestResponse(rr *RequestResponse) jsonvalue.Value {
	out := map[string]jsonvalue.Value{}
	e.info(&rr.InteractionInfo, out)
	if e.version.AtLeast(spec.V4) {
		out["type"] = jsonvalue.String(KindSynchronousHTTP)
	}

	req := map[string]jsonvalue.Value{
		"method": jsonvalue.String(rr.Request.Method),
		"path":   jsonvalue.String(rr.Request.Path),
	}
	if len(rr.Request.Query) > 0 {
		req["query"] = e.query(rr.Request.Query)
	}
	e.headers(rr.Request.Headers, req)
	e.body(rr.Request.Body, "body", req)
	e.rules(rr.Request.MatchingRules, req)
	e.generators(rr.Request.Generators, req)
	out["request"] = jsonvalue.Object(req)

	resp := map[string]jsonvalue.Value{"status": jsonvalue.Int(int64(rr.Response.Status))}
	e.headers(rr.Response.Headers, resp)
	e.body(rr.Response.Body, "body", resp)
	e.rules(rr.Response.MatchingRules, resp)
	e.generators(rr.Response.Generators, resp)
	out["response"] = jsonvalue.Object(resp)
	return jsonvalue.Object(out)
}

func (e encoder) message(m *Message) jsonvalue.Value {
	out := map[string]jsonvalue.Value{}
	e.info(&m.InteractionInfo, out)
	e.contents(&m.MessageContents, out)
	return jsonvalue.Object(out)
}

func (e encoder) asyncMessage(info *InteractionInfo, mc *MessageContents) jsonvalue.Value {
	out := map[string]jsonvalue.Value{"type": jsonvalue.String(KindAsynchronousMessage)}
	e.info(info, out)
	e.contents(mc, out)
	return jsonvalue.Object(out)
}

func (e encoder) syncMessages(sm *SynchronousMessages) jsonvalue.Value {
	out := map[string]jsonvalue.Value{"type": jsonvalue.String(KindSynchronousMessages)}
	e.info(&sm.InteractionInfo, out)
	req := map[string]jsonvalue.Value{}
	e.contents(sm.Request, req)
	out["request"] = jsonvalue.Object(req)
	responses := make([]jsonvalue.Value, 0, len(sm.Response))
	for _, r := range sm.Response {
		resp := map[string]jsonvalue.Value{}
		e.contents(r, resp)
		responses = append(responses, jsonvalue.Object(resp))
	}
	out["response"] = jsonvalue.Array(responses...)
	return jsonvalue.Object(out)
}

// contents writes message contents, naming the content category "body" as
// stored in pact files.
func (e encoder) contents(mc *MessageContents, out map[string]jsonvalue.Value) {
	if mc == nil {
		return
	}
	body := mc.Contents
	if body.ContentType.IsEmpty() {
		body.ContentType = mc.ContentType()
	}
	e.body(body, "contents", out)
	if len(mc.Metadata) > 0 {
		out["metadata"] = jsonvalue.Object(mc.Metadata)
	}
	if mc.MatchingRules != nil {
		e.rules(mc.MatchingRules.Rename(matchingrules.CategoryContent, matchingrules.CategoryBody), out)
	}
	if mc.Generators != nil {
		e.generators(mc.Generators.Rename(matchingrules.CategoryContent, matchingrules.CategoryBody), out)
	}
}

func (e encoder) headers(headers map[string][]string, out map[string]jsonvalue.Value) {
	if len(headers) == 0 {
		return
	}
	h := map[string]jsonvalue.Value{}
	for name, values := range headers {
		if len(values) == 1 && e.version.Before(spec.V4) {
			h[name] = jsonvalue.String(values[0])
			continue
		}
		h[name] = stringArray(values)
	}
	out["headers"] = jsonvalue.Object(h)
}

func (e encoder) query(query map[string][]string) jsonvalue.Value {
	if e.version.Before(spec.V3) {
		return jsonvalue.String(url.Values(query).Encode())
	}
	q := map[string]jsonvalue.Value{}
	for name, values := range query {
		q[name] = stringArray(values)
	}
	return jsonvalue.Object(q)
}

func (e encoder) body(b Body, key string, out map[string]jsonvalue.Value) {
	switch b.State {
	case BodyMissing:
		return
	case BodyNull:
		out[key] = jsonvalue.Null()
		return
	}

	var content jsonvalue.Value
	encoded := false
	switch {
	case b.IsJSON():
		parsed, err := jsonvalue.Parse(b.Value)
		if err != nil {
			content = jsonvalue.String(b.ValueAsString())
		} else {
			content = parsed
		}
	case utf8.Valid(b.Value) && !b.ContentType.IsBinary():
		content = jsonvalue.String(b.ValueAsString())
	default:
		content = jsonvalue.String(base64.StdEncoding.EncodeToString(b.Value))
		encoded = true
	}

	if e.version.Before(spec.V4) {
		out[key] = content
		return
	}
	body := map[string]jsonvalue.Value{"content": content}
	if !b.ContentType.IsEmpty() {
		body["contentType"] = jsonvalue.String(b.ContentType.String())
	}
	if encoded {
		body["encoded"] = jsonvalue.String("base64")
	} else {
		body["encoded"] = jsonvalue.Bool(false)
	}
	out[key] = jsonvalue.Object(body)
}

func (e encoder) rules(rules *matchingrules.MatchingRules, out map[string]jsonvalue.Value) {
	if rules == nil || rules.IsEmpty() {
		return
	}
	out["matchingRules"] = rules.ToDocument(e.version)
}

func (e encoder) generators(gens *generators.Generators, out map[string]jsonvalue.Value) {
	if gens == nil || gens.IsEmpty() || e.version.Before(spec.V3) {
		return
	}
	out["generators"] = gens.ToDocument()
}

func stringArray(values []string) jsonvalue.Value {
	items := make([]jsonvalue.Value, 0, len(values))
	for _, v := range values {
		items = append(items, jsonvalue.String(v))
	}
	return jsonvalue.Array(items...)
}
