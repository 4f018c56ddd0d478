package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// XMLMatcher compares XML bodies element by element.
//
// Rule paths address elements by tag with an index per repeated tag, e.g.
// "$.order.item[1]". Attributes use "['@name']" and element text
// "['#text']": "$.order.item[*]['@id']".
type XMLMatcher struct{}

// Name returns "xml".
func (XMLMatcher) Name() string { return "xml" }

// MatchBody parses both documents and compares them from the root element.
// An actual body that is not XML is reported as a single BodyTypeMismatch.
func (XMLMatcher) MatchBody(_ context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error) {
	exp, err := parseXMLBody(expected)
	if err != nil {
		return nil, fmt.Errorf("expected body is not valid XML: %w", err)
	}
	act, err := parseXMLBody(actual)
	if err != nil {
		return []Mismatch{BodyTypeMismatch{
			Expected: contract.ContentTypeXML,
			Actual:   actual.DetectedContentType().BaseType(),
			Mismatch: fmt.Sprintf("Failed to parse the actual body as XML: %v", err),
		}}, nil
	}

	path := matchingrules.ChildPath(matchingrules.RootPath(), exp.Tag)
	if exp.Tag != act.Tag {
		return []Mismatch{bodyMismatch(path, jsonvalue.String(exp.Tag), jsonvalue.String(act.Tag),
			fmt.Sprintf("Expected root element <%s> but received <%s>", exp.Tag, act.Tag))}, nil
	}
	return compareElements(mc, path, exp, act), nil
}

func parseXMLBody(b contract.Body) (*etree.Element, error) {
	text, err := b.Text()
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

func compareElements(mc *Context, path jp.Expr, exp, act *etree.Element) []Mismatch {
	var mismatches []Mismatch
	mismatches = append(mismatches, compareAttributes(mc, path, exp, act)...)

	expText := strings.TrimSpace(exp.Text())
	actText := strings.TrimSpace(act.Text())
	if expText != "" || actText != "" {
		textPath := matchingrules.ChildPath(path, "#text")
		mismatches = append(mismatches, compareScalars(mc, textPath, jsonvalue.String(expText), jsonvalue.String(actText))...)
	}

	expGroups, expTags := groupChildren(exp)
	actGroups, actTags := groupChildren(act)
	for _, tag := range expTags {
		mismatches = append(mismatches, compareGroup(mc, matchingrules.ChildPath(path, tag), tag, expGroups[tag], actGroups[tag])...)
	}
	if !mc.AllowsUnexpectedKeys() {
		for _, tag := range actTags {
			if _, ok := expGroups[tag]; !ok {
				mismatches = append(mismatches, bodyMismatch(matchingrules.ChildPath(path, tag), jsonvalue.Null(), jsonvalue.String(tag),
					fmt.Sprintf("Unexpected child element <%s>", tag)))
			}
		}
	}
	return mismatches
}

func compareAttributes(mc *Context, path jp.Expr, exp, act *etree.Element) []Mismatch {
	var mismatches []Mismatch
	for _, attr := range exp.Attr {
		if isNamespaceAttr(attr) {
			continue
		}
		attrPath := matchingrules.ChildPath(path, "@"+attr.Key)
		got := act.SelectAttr(attr.Key)
		if got == nil {
			mismatches = append(mismatches, bodyMismatch(attrPath, jsonvalue.String(attr.Value), jsonvalue.Null(),
				fmt.Sprintf("Expected attribute '%s'='%s' but was missing", attr.Key, attr.Value)))
			continue
		}
		mismatches = append(mismatches, compareScalars(mc, attrPath, jsonvalue.String(attr.Value), jsonvalue.String(got.Value))...)
	}
	if !mc.AllowsUnexpectedKeys() {
		for _, attr := range act.Attr {
			if isNamespaceAttr(attr) || exp.SelectAttr(attr.Key) != nil {
				continue
			}
			mismatches = append(mismatches, bodyMismatch(matchingrules.ChildPath(path, "@"+attr.Key), jsonvalue.Null(), jsonvalue.String(attr.Value),
				fmt.Sprintf("Unexpected attribute '%s'='%s'", attr.Key, attr.Value)))
		}
	}
	return mismatches
}

// compareGroup compares the child elements sharing one tag.
func compareGroup(mc *Context, path jp.Expr, tag string, exp, act []*etree.Element) []Mismatch {
	var mismatches []Mismatch
	if resolved, ok := mc.Resolve(path); ok && cascades(resolved.List) {
		if resolved.Exact {
			mismatches = append(mismatches, groupSize(path, resolved.List, tagList(tag, len(act)))...)
		}
		for i, a := range act {
			e := exp[0]
			if i < len(exp) {
				e = exp[i]
			}
			mismatches = append(mismatches, compareElements(mc, matchingrules.IndexPath(path, i), e, a)...)
		}
		return mismatches
	}

	for i, e := range exp {
		child := matchingrules.IndexPath(path, i)
		if i >= len(act) {
			mismatches = append(mismatches, bodyMismatch(child, jsonvalue.String(tag), jsonvalue.Null(),
				fmt.Sprintf("Expected child <%s/> but was missing", tag)))
			continue
		}
		mismatches = append(mismatches, compareElements(mc, child, e, act[i])...)
	}
	if len(act) > len(exp) && !mc.AllowsUnexpectedKeys() {
		mismatches = append(mismatches, bodyMismatch(path, tagList(tag, len(exp)), tagList(tag, len(act)),
			fmt.Sprintf("Expected %d <%s> child elements but received %d", len(exp), tag, len(act))))
	}
	return mismatches
}

func groupSize(path jp.Expr, list matchingrules.RuleList, actual jsonvalue.Value) []Mismatch {
	var mismatches []Mismatch
	for _, rule := range list.Rules {
		switch rule.Type {
		case matchingrules.TypeMin, matchingrules.TypeMax, matchingrules.TypeMinMax:
			if msg := sizeFailure(rule, actual); msg != "" {
				mismatches = append(mismatches, bodyMismatch(path, jsonvalue.Null(), actual, msg))
			}
		}
	}
	return mismatches
}

// groupChildren groups child elements by tag, keeping the order in which
// tags first appear.
func groupChildren(el *etree.Element) (map[string][]*etree.Element, []string) {
	groups := map[string][]*etree.Element{}
	var tags []string
	for _, child := range el.ChildElements() {
		if _, ok := groups[child.Tag]; !ok {
			tags = append(tags, child.Tag)
		}
		groups[child.Tag] = append(groups[child.Tag], child)
	}
	return groups, tags
}

// tagList stands in for a group of n elements in mismatch values.
func tagList(tag string, n int) jsonvalue.Value {
	values := make([]jsonvalue.Value, n)
	for i := range values {
		values[i] = jsonvalue.String("<" + tag + ">")
	}
	return jsonvalue.Array(values...)
}

func isNamespaceAttr(attr etree.Attr) bool {
	return attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns")
}
