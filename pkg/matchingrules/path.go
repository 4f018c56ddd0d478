package matchingrules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ohler55/ojg/jp"
)

// Weights of matching path tokens. A pattern's weight is the product of the
// weights of its tokens, so longer and more specific patterns win.
const (
	weightExact    = 2
	weightWildcard = 1
)

// RootPath returns the path of a whole document, "$".
func RootPath() jp.Expr {
	return jp.R()
}

// ChildPath returns path extended by an object key. path is not modified.
func ChildPath(path jp.Expr, key string) jp.Expr {
	out := make(jp.Expr, len(path), len(path)+1)
	copy(out, path)
	return out.C(key)
}

// IndexPath returns path extended by an array index. path is not modified.
func IndexPath(path jp.Expr, index int) jp.Expr {
	out := make(jp.Expr, len(path), len(path)+1)
	copy(out, path)
	return out.N(index)
}

// ParsePattern parses a rule path such as "$.a.b", "$.a[*]", "$.a.*" or
// "$['a b']".
func ParsePattern(pattern string) (jp.Expr, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty path pattern")
	}
	expr, err := jp.ParseString(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	return expr, nil
}

// PathWeight scores pattern against a concrete path. Zero means the pattern
// does not apply. A pattern applies when each of its tokens matches the path
// token at the same position, so "$.a" applies to "$.a.b" with a lower
// weight than "$.a.b" itself.
func PathWeight(pattern, path jp.Expr) int {
	pt := significant(pattern)
	at := significant(path)
	if len(pt) == 0 || len(pt) > len(at) {
		return 0
	}
	weight := 1
	for i, frag := range pt {
		w := fragmentWeight(frag, at[i])
		if w == 0 {
			return 0
		}
		weight *= w
	}
	return weight
}

func fragmentWeight(pattern, actual jp.Frag) int {
	switch p := pattern.(type) {
	case jp.Root:
		if _, ok := actual.(jp.Root); ok {
			return weightExact
		}
	case jp.Child:
		switch a := actual.(type) {
		case jp.Child:
			if p == a {
				return weightExact
			}
		case jp.Nth:
			if string(p) == fmt.Sprint(int(a)) {
				return weightExact
			}
		}
	case jp.Nth:
		if a, ok := actual.(jp.Nth); ok && p == a {
			return weightExact
		}
	case jp.Wildcard:
		switch actual.(type) {
		case jp.Child, jp.Nth:
			return weightWildcard
		}
	}
	return 0
}

// significant drops formatting-only fragments.
func significant(expr jp.Expr) jp.Expr {
	out := make(jp.Expr, 0, len(expr))
	for _, f := range expr {
		if _, ok := f.(jp.Bracket); ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Resolved is the outcome of resolving rules for a path.
type Resolved struct {
	Pattern string
	List    RuleList
	// Exact is set when the pattern addresses the path itself rather than
	// one of its ancestors.
	Exact bool
}

type compiledPattern struct {
	raw  string
	expr jp.Expr
	list RuleList
	size int
}

// PathMatcher resolves rule lists of a body-like category against concrete
// paths. It is immutable and safe for concurrent use.
type PathMatcher struct {
	patterns []compiledPattern
}

// NewPathMatcher compiles the patterns of c. Patterns that do not parse are
// logged and skipped.
func NewPathMatcher(c *Category, logger *slog.Logger) *PathMatcher {
	m := &PathMatcher{}
	if c == nil {
		return m
	}
	for _, p := range c.Paths() {
		list, _ := c.RuleList(p)
		if list.IsEmpty() {
			continue
		}
		expr, err := ParsePattern(p)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring matching rules with invalid path", "category", c.Name(), "path", p, "error", err)
			}
			continue
		}
		m.patterns = append(m.patterns, compiledPattern{
			raw:  p,
			expr: expr,
			list: list.Copy(),
			size: len(significant(expr)),
		})
	}
	return m
}

// IsEmpty reports whether no pattern was compiled.
func (m *PathMatcher) IsEmpty() bool { return len(m.patterns) == 0 }

// Resolve returns the rules of the highest weighted patterns applying to
// path. Equal weights prefer the longer pattern. Rules of patterns that tie
// on both are concatenated in pattern order.
func (m *PathMatcher) Resolve(path jp.Expr) (Resolved, bool) {
	bestWeight, bestSize := 0, 0
	var hits []compiledPattern
	for _, p := range m.patterns {
		w := PathWeight(p.expr, path)
		if w == 0 || w < bestWeight || (w == bestWeight && p.size < bestSize) {
			continue
		}
		if w > bestWeight || p.size > bestSize {
			bestWeight, bestSize = w, p.size
			hits = hits[:0]
		}
		hits = append(hits, p)
	}
	if len(hits) == 0 {
		return Resolved{}, false
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].raw < hits[j].raw })

	out := Resolved{Pattern: hits[0].raw, Exact: bestSize == len(significant(path))}
	out.List.Logic = hits[0].list.Logic
	for _, h := range hits {
		out.List.Rules = append(out.List.Rules, h.list.Rules...)
	}
	return out, true
}

// Defined reports whether any pattern applies to path.
func (m *PathMatcher) Defined(path jp.Expr) bool {
	_, ok := m.Resolve(path)
	return ok
}

// WildcardDefined reports whether a pattern ending in a wildcard addresses
// path exactly, e.g. "$.a.*" for "$.a.b".
func (m *PathMatcher) WildcardDefined(path jp.Expr) bool {
	pathSize := len(significant(path))
	for _, p := range m.patterns {
		sig := significant(p.expr)
		if len(sig) != pathSize {
			continue
		}
		if _, ok := sig[len(sig)-1].(jp.Wildcard); ok && PathWeight(p.expr, path) > 0 {
			return true
		}
	}
	return false
}
