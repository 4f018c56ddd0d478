package matching

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// CompareValues compares actual against expected at path. Rules of mc that
// apply to a path take precedence; paths without rules are compared
// structurally. Every returned mismatch is a BodyMismatch.
func CompareValues(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	if mc == nil {
		mc = NewContext(nil)
	}
	if path == nil {
		path = matchingrules.RootPath()
	}
	return compare(mc, path, expected, actual)
}

func compare(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	switch {
	case expected.IsObject():
		return compareObjects(mc, path, expected, actual)
	case expected.IsArray():
		return compareArrays(mc, path, expected, actual)
	default:
		return compareScalars(mc, path, expected, actual)
	}
}

func bodyMismatch(path jp.Expr, expected, actual jsonvalue.Value, msg string) BodyMismatch {
	return BodyMismatch{
		Expected: expected,
		Actual:   actual,
		Mismatch: msg,
		BodyPath: path.String(),
	}
}

func typeMismatch(path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	return []Mismatch{bodyMismatch(path, expected, actual,
		fmt.Sprintf("Type mismatch: Expected %s but received %s", describe(expected), describe(actual)))}
}

func compareScalars(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	if resolved, ok := mc.Resolve(path); ok {
		mc.Logger().Debug("applying matching rules", "path", path.String(), "pattern", resolved.Pattern)
		return applyRules(mc, path, resolved, expected, actual)
	}
	if expected.Equal(actual) {
		return nil
	}
	return []Mismatch{bodyMismatch(path, expected, actual,
		fmt.Sprintf("Expected %s but received %s", describe(expected), describe(actual)))}
}

func compareObjects(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	var mismatches []Mismatch
	if resolved, ok := mc.Resolve(path); ok {
		mismatches = applyRules(mc, path, resolved, expected, actual)
		if !actual.IsObject() {
			return mismatches
		}
		if resolved.Exact && keysFree(resolved.List) {
			return append(mismatches, compareFreeEntries(mc, path, expected, actual)...)
		}
		if !cascades(resolved.List) {
			return mismatches
		}
	} else if !actual.IsObject() {
		return typeMismatch(path, expected, actual)
	}

	if expected.Len() == 0 {
		if actual.Len() > 0 && !mc.AllowsUnexpectedKeys() {
			mismatches = append(mismatches, bodyMismatch(path, expected, actual,
				fmt.Sprintf("Expected an empty Map but received %s", actual.Describe())))
		}
		return mismatches
	}

	if !mc.AllowsUnexpectedKeys() {
		if extra := missingKeys(actual, expected); len(extra) > 0 {
			mismatches = append(mismatches, bodyMismatch(path, expected, actual,
				fmt.Sprintf("Expected a Map with keys [%s] but received one with keys [%s]",
					strings.Join(expected.Keys(), ", "), strings.Join(actual.Keys(), ", "))))
		}
	}

	for _, key := range expected.Keys() {
		exp, _ := expected.Get(key)
		child := matchingrules.ChildPath(path, key)
		if !actual.Has(key) {
			mismatches = append(mismatches, bodyMismatch(child, exp, jsonvalue.Null(),
				fmt.Sprintf("Expected %s=%s but was missing", key, exp.Describe())))
			continue
		}
		act, _ := actual.Get(key)
		mismatches = append(mismatches, compare(mc, child, exp, act)...)
	}
	return mismatches
}

// compareFreeEntries compares every actual entry against the expected entry
// with the same key, or the first expected entry when there is none.
func compareFreeEntries(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	keys := expected.Keys()
	if len(keys) == 0 {
		return nil
	}
	template, _ := expected.Get(keys[0])
	var mismatches []Mismatch
	for _, key := range actual.Keys() {
		act, _ := actual.Get(key)
		exp := template
		if expected.Has(key) {
			exp, _ = expected.Get(key)
		}
		mismatches = append(mismatches, compare(mc, matchingrules.ChildPath(path, key), exp, act)...)
	}
	return mismatches
}

func compareArrays(mc *Context, path jp.Expr, expected, actual jsonvalue.Value) []Mismatch {
	if resolved, ok := mc.Resolve(path); ok {
		mismatches := applyRules(mc, path, resolved, expected, actual)
		if !actual.IsArray() {
			return mismatches
		}
		if resolved.Exact && hasRule(resolved.List, matchingrules.TypeArrayContains) {
			return mismatches
		}
		if !cascades(resolved.List) {
			return mismatches
		}
		if expected.Len() == 0 {
			return mismatches
		}
		elems := expected.Values()
		for i, act := range actual.Values() {
			exp := elems[0]
			if i < len(elems) {
				exp = elems[i]
			}
			mismatches = append(mismatches, compare(mc, matchingrules.IndexPath(path, i), exp, act)...)
		}
		return mismatches
	}

	if !actual.IsArray() {
		return typeMismatch(path, expected, actual)
	}
	if expected.Len() == 0 {
		if actual.Len() > 0 {
			return []Mismatch{bodyMismatch(path, expected, actual,
				fmt.Sprintf("Expected an empty List but received %s", actual.Describe()))}
		}
		return nil
	}

	var mismatches []Mismatch
	elems, acts := expected.Values(), actual.Values()
	for i, exp := range elems {
		child := matchingrules.IndexPath(path, i)
		if i >= len(acts) {
			mismatches = append(mismatches, bodyMismatch(child, exp, jsonvalue.Null(),
				fmt.Sprintf("Expected %s but was missing", exp.Describe())))
			continue
		}
		mismatches = append(mismatches, compare(mc, child, exp, acts[i])...)
	}
	if len(elems) != len(acts) {
		mismatches = append(mismatches, bodyMismatch(path, expected, actual,
			fmt.Sprintf("Expected a List with %d elements but received %d elements", len(elems), len(acts))))
	}
	return mismatches
}

// applyRules evaluates a resolved rule list at path and combines the
// outcome by the list's logic.
func applyRules(mc *Context, path jp.Expr, resolved matchingrules.Resolved, expected, actual jsonvalue.Value) []Mismatch {
	var mismatches []Mismatch
	for i, rule := range resolved.List.Rules {
		found := applyRule(mc, path, rule, expected, actual, resolved.Exact)
		if resolved.List.Logic == matchingrules.Or {
			if len(found) == 0 {
				return nil
			}
			if i == 0 {
				mismatches = found
			}
			continue
		}
		mismatches = append(mismatches, found...)
	}
	return mismatches
}

func applyRule(mc *Context, path jp.Expr, rule matchingrules.Rule, expected, actual jsonvalue.Value, exact bool) []Mismatch {
	if !exact && exactOnly(rule.Type) {
		rule = matchingrules.TypeMatch()
	}
	if msg := ruleFailure(rule, expected, actual, exact); msg != "" {
		return []Mismatch{bodyMismatch(path, expected, actual, msg)}
	}
	switch rule.Type {
	case matchingrules.TypeArrayContains:
		return arrayContains(mc, path, rule, expected, actual)
	case matchingrules.TypeEachKey:
		return eachKey(path, rule, actual)
	case matchingrules.TypeEachValue:
		return eachValue(path, rule, expected, actual)
	}
	return nil
}

// arrayContains passes when every variant matches at least one element of
// actual, in any order.
func arrayContains(mc *Context, path jp.Expr, rule matchingrules.Rule, expected, actual jsonvalue.Value) []Mismatch {
	if !actual.IsArray() {
		return nil
	}
	var mismatches []Mismatch
	for _, variant := range rule.Variants {
		example, err := expected.Index(variant.Index)
		if err != nil {
			mismatches = append(mismatches, bodyMismatch(path, expected, actual,
				fmt.Sprintf("Variant at index %d has no example in the expected list", variant.Index)))
			continue
		}
		sub := mc.withCategory(variant.Rules)
		found := false
		for _, act := range actual.Values() {
			if len(compare(sub, matchingrules.RootPath(), example, act)) == 0 {
				found = true
				break
			}
		}
		if !found {
			mismatches = append(mismatches, bodyMismatch(path, example, actual,
				fmt.Sprintf("Variant at index %d (%s) was not found in the actual list", variant.Index, example.Describe())))
		}
	}
	return mismatches
}

func eachKey(path jp.Expr, rule matchingrules.Rule, actual jsonvalue.Value) []Mismatch {
	if !actual.IsObject() {
		return nil
	}
	list := matchingrules.RuleList{Rules: rule.Rules}
	var mismatches []Mismatch
	for _, key := range actual.Keys() {
		k := jsonvalue.String(key)
		for _, msg := range evaluateList(list, k, k) {
			mismatches = append(mismatches, bodyMismatch(matchingrules.ChildPath(path, key), k, k,
				fmt.Sprintf("Key '%s': %s", key, msg)))
		}
	}
	return mismatches
}

func eachValue(path jp.Expr, rule matchingrules.Rule, expected, actual jsonvalue.Value) []Mismatch {
	list := matchingrules.RuleList{Rules: rule.Rules}
	template := jsonvalue.Null()
	var mismatches []Mismatch
	switch {
	case actual.IsArray():
		if expected.Len() > 0 {
			template, _ = expected.Index(0)
		}
		for i, act := range actual.Values() {
			for _, msg := range evaluateList(list, template, act) {
				mismatches = append(mismatches, bodyMismatch(matchingrules.IndexPath(path, i), template, act, msg))
			}
		}
	case actual.IsObject():
		if keys := expected.Keys(); len(keys) > 0 {
			template, _ = expected.Get(keys[0])
		}
		for _, key := range actual.Keys() {
			act, _ := actual.Get(key)
			for _, msg := range evaluateList(list, template, act) {
				mismatches = append(mismatches, bodyMismatch(matchingrules.ChildPath(path, key), template, act, msg))
			}
		}
	}
	return mismatches
}

// exactOnly lists rules that only apply at the path they are declared on.
// Inherited by a descendant they act as a type match.
func exactOnly(t matchingrules.Type) bool {
	switch t {
	case matchingrules.TypeMin, matchingrules.TypeMax, matchingrules.TypeMinMax,
		matchingrules.TypeArrayContains, matchingrules.TypeEachKey,
		matchingrules.TypeEachValue, matchingrules.TypeValues:
		return true
	}
	return false
}

// keysFree reports whether the list lets an object carry arbitrary keys.
func keysFree(list matchingrules.RuleList) bool {
	return hasRule(list, matchingrules.TypeValues) ||
		hasRule(list, matchingrules.TypeEachKey) ||
		hasRule(list, matchingrules.TypeEachValue)
}

// cascades reports whether the children of a container still need to be
// compared after the list was applied to the container itself.
func cascades(list matchingrules.RuleList) bool {
	for _, r := range list.Rules {
		if r.IsTypeMatcher() || r.Type == matchingrules.TypeValues {
			return true
		}
	}
	return false
}

func hasRule(list matchingrules.RuleList, t matchingrules.Type) bool {
	for _, r := range list.Rules {
		if r.Type == t {
			return true
		}
	}
	return false
}

// missingKeys returns the keys of a that b does not have.
func missingKeys(a, b jsonvalue.Value) []string {
	var out []string
	for _, k := range a.Keys() {
		if !b.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
