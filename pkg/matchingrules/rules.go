package matchingrules

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/spec"
)

// Category names recognized in contract documents.
const (
	CategoryBody     = "body"
	CategoryContent  = "content"
	CategoryHeader   = "header"
	CategoryPath     = "path"
	CategoryQuery    = "query"
	CategoryStatus   = "status"
	CategoryMetadata = "metadata"
)

// MatchingRules maps category names to categories. It is mutable while a
// contract is built or parsed and treated as read-only during verification.
type MatchingRules struct {
	categories map[string]*Category
}

// New returns an empty rule set.
func New() *MatchingRules {
	return &MatchingRules{categories: map[string]*Category{}}
}

// AddCategoryName returns the category called name, creating it when missing.
func (m *MatchingRules) AddCategoryName(name string) *Category {
	c, ok := m.categories[name]
	if !ok {
		c = NewCategory(name)
		m.categories[name] = c
	}
	return c
}

// AddCategory inserts c under its own name, replacing any category with the
// same name.
func (m *MatchingRules) AddCategory(c *Category) *Category {
	m.categories[c.Name()] = c
	return c
}

// RulesForCategory returns the category called name, creating it when missing.
func (m *MatchingRules) RulesForCategory(name string) *Category {
	return m.AddCategoryName(name)
}

// Category returns the category called name without creating it.
func (m *MatchingRules) Category(name string) (*Category, bool) {
	c, ok := m.categories[name]
	return c, ok
}

// HasCategory reports whether a category called name exists.
func (m *MatchingRules) HasCategory(name string) bool {
	_, ok := m.categories[name]
	return ok
}

// IsEmpty reports whether every category is empty.
func (m *MatchingRules) IsEmpty() bool {
	for _, c := range m.categories {
		if c.IsNotEmpty() {
			return false
		}
	}
	return true
}

// IsNotEmpty is the negation of IsEmpty.
func (m *MatchingRules) IsNotEmpty() bool { return !m.IsEmpty() }

// Categories returns the sorted category names.
func (m *MatchingRules) Categories() []string {
	names := make([]string, 0, len(m.categories))
	for n := range m.categories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Copy returns an independent deep copy.
func (m *MatchingRules) Copy() *MatchingRules {
	out := New()
	for name, c := range m.categories {
		out.categories[name] = c.Copy()
	}
	return out
}

// Rename returns a deep copy in which the category oldName is called newName.
// m is left untouched.
func (m *MatchingRules) Rename(oldName, newName string) *MatchingRules {
	out := New()
	for name, c := range m.categories {
		if name == oldName {
			out.categories[newName] = c.WithName(newName)
			continue
		}
		if _, taken := out.categories[name]; !taken {
			out.categories[name] = c.Copy()
		}
	}
	return out
}

// Equal compares the non-empty categories of two rule sets.
func (m *MatchingRules) Equal(other *MatchingRules) bool {
	if m == nil || other == nil {
		return m == other
	}
	names := m.nonEmptyCategories()
	otherNames := other.nonEmptyCategories()
	if len(names) != len(otherNames) {
		return false
	}
	for i, n := range names {
		if n != otherNames[i] || !m.categories[n].Equal(other.categories[n]) {
			return false
		}
	}
	return true
}

func (m *MatchingRules) nonEmptyCategories() []string {
	var out []string
	for _, n := range m.Categories() {
		if m.categories[n].IsNotEmpty() {
			out = append(out, n)
		}
	}
	return out
}

// ValidateForVersion lists the rules and categories that cannot be written
// for version. It never fails.
func (m *MatchingRules) ValidateForVersion(version spec.Version) []string {
	var problems []string
	for _, n := range m.Categories() {
		problems = append(problems, m.categories[n].ValidateForVersion(version)...)
	}
	return problems
}

// ToDocument encodes the rules for version: the flat form before V3 and the
// nested form from V3 on. Empty categories are omitted.
func (m *MatchingRules) ToDocument(version spec.Version) jsonvalue.Value {
	if version != spec.Unknown && version.Before(spec.V3) {
		return m.toFlatDocument()
	}
	out := map[string]jsonvalue.Value{}
	for name, c := range m.categories {
		if c.IsEmpty() {
			continue
		}
		out[name] = c.ToDocument(version)
	}
	return jsonvalue.Object(out)
}

func (m *MatchingRules) toFlatDocument() jsonvalue.Value {
	out := map[string]jsonvalue.Value{}
	for name, c := range m.categories {
		for _, p := range c.Paths() {
			list, _ := c.RuleList(p)
			if list.IsEmpty() {
				continue
			}
			out[flatKey(name, p)] = list.Rules[0].ToDocument()
		}
	}
	return jsonvalue.Object(out)
}

func flatKey(category, path string) string {
	switch category {
	case CategoryBody, CategoryContent:
		return "$.body" + strings.TrimPrefix(path, "$")
	case CategoryHeader:
		return "$.headers." + path
	}
	if path == "" {
		return "$." + category
	}
	return "$." + category + "." + path
}

// DecodeOption configures FromDocument.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger receiving warnings about ignored rules.
func WithLogger(logger *slog.Logger) DecodeOption {
	return func(c *decodeConfig) {
		c.logger = logger
	}
}

// FromDocument decodes a matchingRules document. Documents whose first key
// starts with "$" are read as the flat form, anything else as the nested
// form. Invalid rules are logged and leave their path without rules.
func FromDocument(doc jsonvalue.Value, opts ...DecodeOption) *MatchingRules {
	cfg := decodeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	rules := New()
	if !doc.IsObject() || doc.Len() == 0 {
		if cfg.logger != nil {
			cfg.logger.Warn("not a valid matching rules document", "document", doc.Describe())
		}
		return rules
	}

	keys := doc.Keys()
	if strings.HasPrefix(keys[0], "$") {
		rules.fromFlatDocument(doc, cfg.logger)
	} else {
		rules.fromNestedDocument(doc, cfg.logger)
	}
	return rules
}

func (m *MatchingRules) fromNestedDocument(doc jsonvalue.Value, logger *slog.Logger) {
	for _, entry := range doc.SortedEntries() {
		c := m.AddCategoryName(entry.Key)
		if err := c.decode(entry.Value, logger); err != nil && logger != nil {
			logger.Warn("ignoring invalid matching rule category", "category", entry.Key, "error", err)
		}
	}
}

func (m *MatchingRules) fromFlatDocument(doc jsonvalue.Value, logger *slog.Logger) {
	for _, entry := range doc.SortedEntries() {
		category, path, ok := splitFlatKey(entry.Key)
		if !ok {
			if logger != nil {
				logger.Warn("ignoring matching rule with unrecognized key", "key", entry.Key)
			}
			continue
		}
		c := m.AddCategoryName(category)
		rule, err := RuleFromDocument(entry.Value)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid matching rule", "key", entry.Key, "error", err)
			}
			if _, exists := c.rules[path]; !exists {
				c.rules[path] = &RuleList{Logic: c.logic}
			}
			continue
		}
		c.AddRule(path, rule)
	}
}

// splitFlatKey maps a flat-form key to a category and a path:
//
//	$.body          body     $
//	$.body.a[0]     body     $.a[0]
//	$.headers.X     header   X
//	$.path          path     ""
//	$.query.q       query    q
//
// Header and query keys with more than one name token are joined back with
// dots, which loses the distinction between nested and dotted names.
func splitFlatKey(key string) (category, path string, ok bool) {
	if key == "$.body" {
		return CategoryBody, "$", true
	}
	if strings.HasPrefix(key, "$.body") {
		rest := key[len("$.body"):]
		if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "[") {
			return CategoryBody, "$" + rest, true
		}
	}

	tokens := flatTokens(key)
	if len(tokens) < 2 || tokens[0] != "$" {
		return "", "", false
	}
	category = tokens[1]
	if category == "headers" {
		category = CategoryHeader
	}
	switch len(tokens) {
	case 2:
		if category == CategoryHeader {
			return "", "", false
		}
		return category, "", true
	case 3:
		return category, tokens[2], true
	default:
		return category, strings.Join(tokens[2:], "."), true
	}
}

// flatTokens splits "$.a.b['c d'][0]" into "$", "a", "b", "c d", "0".
func flatTokens(key string) []string {
	var tokens []string
	i := 0
	if strings.HasPrefix(key, "$") {
		tokens = append(tokens, "$")
		i = 1
	}
	for i < len(key) {
		switch key[i] {
		case '.':
			j := i + 1
			for j < len(key) && key[j] != '.' && key[j] != '[' {
				j++
			}
			tokens = append(tokens, key[i+1:j])
			i = j
		case '[':
			end := strings.IndexByte(key[i:], ']')
			if end < 0 {
				tokens = append(tokens, key[i+1:])
				return tokens
			}
			inner := key[i+1 : i+end]
			if unq, err := strconv.Unquote(strings.ReplaceAll(inner, "'", `"`)); err == nil {
				inner = unq
			}
			tokens = append(tokens, inner)
			i += end + 1
		default:
			j := i
			for j < len(key) && key[j] != '.' && key[j] != '[' {
				j++
			}
			tokens = append(tokens, key[i:j])
			i = j
		}
	}
	return tokens
}
