package matchingrules

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/spec"
)

// RuleLogic decides how multiple rules at one path combine.
type RuleLogic int

// Combination policies.
const (
	And RuleLogic = iota
	Or
)

// String returns "AND" or "OR".
func (l RuleLogic) String() string {
	if l == Or {
		return "OR"
	}
	return "AND"
}

// ParseRuleLogic parses "AND" or "OR", case-insensitively. Anything else is And.
func ParseRuleLogic(s string) RuleLogic {
	if strings.EqualFold(s, "OR") {
		return Or
	}
	return And
}

// RuleList is the ordered list of rules at one path.
type RuleList struct {
	Rules []Rule
	Logic RuleLogic
}

// IsEmpty reports whether the list holds no rules.
func (l RuleList) IsEmpty() bool { return len(l.Rules) == 0 }

// Copy returns an independent copy of the list.
func (l RuleList) Copy() RuleList {
	rules := make([]Rule, len(l.Rules))
	for i, r := range l.Rules {
		rules[i] = r.copy()
	}
	return RuleList{Rules: rules, Logic: l.Logic}
}

// Equal compares two lists by content.
func (l RuleList) Equal(other RuleList) bool {
	if l.Logic != other.Logic || len(l.Rules) != len(other.Rules) {
		return false
	}
	for i := range l.Rules {
		if !l.Rules[i].Equal(other.Rules[i]) {
			return false
		}
	}
	return true
}

// ToDocument encodes the list as {"matchers":[...],"combine":"AND"}.
func (l RuleList) ToDocument() jsonvalue.Value {
	matchers := make([]jsonvalue.Value, len(l.Rules))
	for i, r := range l.Rules {
		matchers[i] = r.ToDocument()
	}
	return jsonvalue.Object(map[string]jsonvalue.Value{
		"matchers": jsonvalue.Array(matchers...),
		"combine":  jsonvalue.String(l.Logic.String()),
	})
}

func (r Rule) copy() Rule {
	out := r
	if r.Codes != nil {
		out.Codes = append([]int(nil), r.Codes...)
	}
	if r.Rules != nil {
		out.Rules = make([]Rule, len(r.Rules))
		for i, sub := range r.Rules {
			out.Rules[i] = sub.copy()
		}
	}
	if r.Variants != nil {
		out.Variants = make([]Variant, len(r.Variants))
		for i, v := range r.Variants {
			out.Variants[i] = Variant{Index: v.Index, Generators: v.Generators.Copy()}
			if v.Rules != nil {
				out.Variants[i].Rules = v.Rules.Copy()
			}
		}
	}
	return out
}

// Category is a named set of rule lists keyed by path. Body and content
// categories key by "$" path patterns, header, query and metadata categories
// by name, and path and status categories use the empty key.
type Category struct {
	name  string
	rules map[string]*RuleList
	logic RuleLogic
}

// NewCategory returns an empty category.
func NewCategory(name string) *Category {
	return &Category{name: name, rules: map[string]*RuleList{}}
}

// Name returns the category name.
func (c *Category) Name() string { return c.name }

// Logic returns the default policy of new rule lists.
func (c *Category) Logic() RuleLogic { return c.logic }

// SetLogic sets the default policy of new rule lists.
func (c *Category) SetLogic(logic RuleLogic) { c.logic = logic }

// AddRule appends rule to the list at path.
func (c *Category) AddRule(path string, rule Rule) *Category {
	return c.AddRuleWithLogic(path, rule, c.logic)
}

// AddRuleWithLogic appends rule to the list at path, creating the list with
// logic when it does not exist yet.
func (c *Category) AddRuleWithLogic(path string, rule Rule, logic RuleLogic) *Category {
	list, ok := c.rules[path]
	if !ok {
		list = &RuleList{Logic: logic}
		c.rules[path] = list
	}
	list.Rules = append(list.Rules, rule)
	return c
}

// SetRuleList replaces the list at path.
func (c *Category) SetRuleList(path string, list RuleList) {
	cp := list.Copy()
	c.rules[path] = &cp
}

// RuleList returns the list at path.
func (c *Category) RuleList(path string) (RuleList, bool) {
	list, ok := c.rules[path]
	if !ok {
		return RuleList{}, false
	}
	return *list, true
}

// Paths returns the sorted keys of the category.
func (c *Category) Paths() []string {
	paths := make([]string, 0, len(c.rules))
	for p := range c.rules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsEmpty reports whether the category holds no rules. A nil category is
// empty.
func (c *Category) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, list := range c.rules {
		if !list.IsEmpty() {
			return false
		}
	}
	return true
}

// IsNotEmpty is the negation of IsEmpty.
func (c *Category) IsNotEmpty() bool { return !c.IsEmpty() }

// Copy returns an independent copy.
func (c *Category) Copy() *Category {
	return c.WithName(c.name)
}

// WithName returns an independent copy named name.
func (c *Category) WithName(name string) *Category {
	out := &Category{name: name, rules: make(map[string]*RuleList, len(c.rules)), logic: c.logic}
	for p, list := range c.rules {
		cp := list.Copy()
		out.rules[p] = &cp
	}
	return out
}

// Filter returns a copy holding only the paths accepted by keep.
func (c *Category) Filter(keep func(path string) bool) *Category {
	out := &Category{name: c.name, rules: map[string]*RuleList{}, logic: c.logic}
	for p, list := range c.rules {
		if keep(p) {
			cp := list.Copy()
			out.rules[p] = &cp
		}
	}
	return out
}

// Equal compares two categories by name and rule content.
func (c *Category) Equal(other *Category) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.name != other.name {
		return false
	}
	paths := c.nonEmptyPaths()
	otherPaths := other.nonEmptyPaths()
	if len(paths) != len(otherPaths) {
		return false
	}
	for i, p := range paths {
		if p != otherPaths[i] || !c.rules[p].Equal(*other.rules[p]) {
			return false
		}
	}
	return true
}

func (c *Category) nonEmptyPaths() []string {
	var out []string
	for _, p := range c.Paths() {
		if !c.rules[p].IsEmpty() {
			out = append(out, p)
		}
	}
	return out
}

// ValidateForVersion lists rules that version cannot represent.
func (c *Category) ValidateForVersion(version spec.Version) []string {
	var problems []string
	if version != spec.Unknown && version.Before(spec.V3) && (c.name == "status" || c.name == "metadata") && c.IsNotEmpty() {
		problems = append(problems, fmt.Sprintf(
			"Matching rules for category '%s' are not supported by Pact specification %s (requires V3)",
			c.name, version))
	}
	for _, p := range c.Paths() {
		list := c.rules[p]
		for _, r := range list.Rules {
			if required := r.MinVersion(); version != spec.Unknown && version.Before(required) {
				problems = append(problems, fmt.Sprintf(
					"Matching rule '%s' is not supported by Pact specification %s (requires %s)",
					r.Name(), version, required))
			}
		}
		if version != spec.Unknown && version.Before(spec.V3) && len(list.Rules) > 1 {
			problems = append(problems, fmt.Sprintf(
				"Multiple matching rules at '%s' in category '%s' are not supported by Pact specification %s, only the first is written",
				p, c.name, version))
		}
	}
	return problems
}

// ToDocument encodes the category in the nested form: path to rule list,
// or the rule list itself for path and status categories.
func (c *Category) ToDocument(version spec.Version) jsonvalue.Value {
	if c.isDirectList() {
		return c.rules[""].ToDocument()
	}
	out := map[string]jsonvalue.Value{}
	for p, list := range c.rules {
		if list.IsEmpty() {
			continue
		}
		out[p] = list.ToDocument()
	}
	return jsonvalue.Object(out)
}

func (c *Category) isDirectList() bool {
	if c.name != "path" && c.name != "status" {
		return false
	}
	list, ok := c.rules[""]
	return ok && len(c.rules) == 1 && !list.IsEmpty()
}

// FromDocument adds the rules of a nested-form category document to c.
// Paths holding invalid rules are logged and left empty.
func (c *Category) FromDocument(doc jsonvalue.Value, logger *slog.Logger) error {
	return c.decode(doc, logger)
}

func (c *Category) decode(doc jsonvalue.Value, logger *slog.Logger) error {
	if !doc.IsObject() {
		return fmt.Errorf("%w: category %q must be an object, got %s", ErrInvalidRuleFormat, c.name, doc.Name())
	}
	if doc.Has("matchers") {
		c.decodeList("", doc, logger)
		return nil
	}
	for _, entry := range doc.SortedEntries() {
		c.decodeList(entry.Key, entry.Value, logger)
	}
	return nil
}

func (c *Category) decodeList(path string, doc jsonvalue.Value, logger *slog.Logger) {
	list, err := listFromDocument(doc, c.logic)
	if err != nil {
		if logger != nil {
			logger.Warn("ignoring invalid matching rules", "category", c.name, "path", path, "error", err)
		}
		if _, ok := c.rules[path]; !ok {
			c.rules[path] = &RuleList{Logic: c.logic}
		}
		return
	}
	existing, ok := c.rules[path]
	if !ok {
		c.rules[path] = &list
		return
	}
	existing.Rules = append(existing.Rules, list.Rules...)
}

func listFromDocument(doc jsonvalue.Value, logic RuleLogic) (RuleList, error) {
	switch {
	case doc.IsArray():
		return rulesFromArray(doc, logic)
	case doc.IsObject() && doc.Has("matchers"):
		combine, _ := doc.Get("combine")
		if s, ok := combine.AsString(); ok {
			logic = ParseRuleLogic(s)
		}
		matchers, _ := doc.Get("matchers")
		if !matchers.IsArray() {
			return RuleList{}, fmt.Errorf("%w: matchers must be a list", ErrInvalidRuleFormat)
		}
		return rulesFromArray(matchers, logic)
	case doc.IsObject():
		r, err := RuleFromDocument(doc)
		if err != nil {
			return RuleList{}, err
		}
		return RuleList{Rules: []Rule{r}, Logic: logic}, nil
	}
	return RuleList{}, fmt.Errorf("%w: expected a rule list, got %s", ErrInvalidRuleFormat, doc.Name())
}

func rulesFromArray(doc jsonvalue.Value, logic RuleLogic) (RuleList, error) {
	list := RuleList{Logic: logic}
	for _, item := range doc.Values() {
		r, err := RuleFromDocument(item)
		if err != nil {
			return RuleList{}, err
		}
		list.Rules = append(list.Rules, r)
	}
	return list, nil
}
