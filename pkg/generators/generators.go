package generators

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contracts/pkg/jsonvalue"
)

// Generators maps a category (body, header, path, query, status, metadata)
// to generators keyed by path or name. Path and status use the empty key.
type Generators struct {
	categories map[string]map[string]Generator
}

// New returns an empty set.
func New() *Generators {
	return &Generators{categories: map[string]map[string]Generator{}}
}

// AddGenerator sets the generator for path in category.
func (g *Generators) AddGenerator(category, path string, gen Generator) *Generators {
	c, ok := g.categories[category]
	if !ok {
		c = map[string]Generator{}
		g.categories[category] = c
	}
	c[path] = gen
	return g
}

// AddGenerators merges other into g. Entries of other win.
func (g *Generators) AddGenerators(other *Generators) *Generators {
	if other == nil {
		return g
	}
	for category, paths := range other.categories {
		for path, gen := range paths {
			g.AddGenerator(category, path, gen)
		}
	}
	return g
}

// IsEmpty reports whether no generator is set.
func (g *Generators) IsEmpty() bool {
	for _, paths := range g.categories {
		if len(paths) > 0 {
			return false
		}
	}
	return true
}

// Categories returns the sorted names of non-empty categories.
func (g *Generators) Categories() []string {
	var names []string
	for name, paths := range g.categories {
		if len(paths) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Category returns a copy of the generators of one category.
func (g *Generators) Category(name string) map[string]Generator {
	out := map[string]Generator{}
	for path, gen := range g.categories[name] {
		out[path] = gen
	}
	return out
}

// Generator returns the generator at path in category.
func (g *Generators) Generator(category, path string) (Generator, bool) {
	gen, ok := g.categories[category][path]
	return gen, ok
}

// Copy returns an independent copy.
func (g *Generators) Copy() *Generators {
	return New().AddGenerators(g)
}

// Rename returns a copy in which the category oldName is called newName.
func (g *Generators) Rename(oldName, newName string) *Generators {
	out := New()
	for category, paths := range g.categories {
		target := category
		if category == oldName {
			target = newName
		}
		for path, gen := range paths {
			out.AddGenerator(target, path, gen)
		}
	}
	return out
}

// ToDocument encodes the set in the contract form:
//
//	{"body": {"$.id": {"type": "RandomInt", "min": 1, "max": 9}}, "status": {"type": "RandomInt", ...}}
func (g *Generators) ToDocument() jsonvalue.Value {
	out := map[string]jsonvalue.Value{}
	for category, paths := range g.categories {
		if len(paths) == 0 {
			continue
		}
		if gen, ok := paths[""]; ok && len(paths) == 1 && (category == "path" || category == "status") {
			out[category] = gen.ToDocument()
			continue
		}
		entries := map[string]jsonvalue.Value{}
		for path, gen := range paths {
			entries[path] = gen.ToDocument()
		}
		out[category] = jsonvalue.Object(entries)
	}
	return jsonvalue.Object(out)
}

// FromDocument decodes a generators document. Invalid entries are logged and
// skipped.
func FromDocument(doc jsonvalue.Value, logger *slog.Logger) *Generators {
	out := New()
	if !doc.IsObject() {
		if logger != nil && !doc.IsNull() {
			logger.Warn("not a valid generators document", "document", doc.Describe())
		}
		return out
	}
	for _, entry := range doc.SortedEntries() {
		category, value := entry.Key, entry.Value
		if value.Has("type") {
			add(out, category, "", value, logger)
			continue
		}
		for _, p := range value.SortedEntries() {
			add(out, category, p.Key, p.Value, logger)
		}
	}
	return out
}

func add(g *Generators, category, path string, doc jsonvalue.Value, logger *slog.Logger) {
	gen, err := FromGeneratorDocument(doc)
	if err != nil {
		if logger != nil {
			logger.Warn("ignoring invalid generator", "category", category, "path", path, "error", err)
		}
		return
	}
	g.AddGenerator(category, path, gen)
}

// ToDocument encodes a single generator.
func (gen Generator) ToDocument() jsonvalue.Value {
	m := map[string]jsonvalue.Value{"type": jsonvalue.String(string(gen.Type))}
	switch gen.Type {
	case TypeRandomInt:
		m["min"] = jsonvalue.Int(int64(gen.Min))
		m["max"] = jsonvalue.Int(int64(gen.Max))
	case TypeRandomDecimal, TypeRandomHexadecimal:
		m["digits"] = jsonvalue.Int(int64(gen.Digits))
	case TypeRandomString:
		m["size"] = jsonvalue.Int(int64(gen.Size))
	case TypeRegex:
		m["regex"] = jsonvalue.String(gen.Regex)
	case TypeUUID, TypeDate, TypeTime, TypeDateTime:
		if gen.Format != "" {
			m["format"] = jsonvalue.String(gen.Format)
		}
	case TypeProviderState:
		m["expression"] = jsonvalue.String(gen.Expression)
		if gen.DataType != "" {
			m["dataType"] = jsonvalue.String(string(gen.DataType))
		}
	case TypeMockServerURL:
		m["example"] = jsonvalue.String(gen.Example)
		m["regex"] = jsonvalue.String(gen.Regex)
	}
	return jsonvalue.Object(m)
}

// FromGeneratorDocument decodes a single generator object.
func FromGeneratorDocument(doc jsonvalue.Value) (Generator, error) {
	if !doc.IsObject() {
		return Generator{}, fmt.Errorf("%w: expected an object, got %s", ErrInvalidGenerator, doc.Name())
	}
	typ := Type(str(doc, "type"))
	gen := Generator{Type: typ}
	switch typ {
	case TypeRandomInt:
		gen.Min = integer(doc, "min", 0)
		gen.Max = integer(doc, "max", 2147483647)
	case TypeRandomDecimal, TypeRandomHexadecimal:
		gen.Digits = integer(doc, "digits", 10)
	case TypeRandomString:
		gen.Size = integer(doc, "size", 20)
	case TypeRegex:
		gen.Regex = str(doc, "regex")
		if gen.Regex == "" {
			return Generator{}, fmt.Errorf("%w: Regex generator requires a regex", ErrInvalidGenerator)
		}
	case TypeUUID, TypeDate, TypeTime, TypeDateTime:
		gen.Format = str(doc, "format")
	case TypeRandomBoolean:
	case TypeProviderState:
		gen.Expression = str(doc, "expression")
		gen.DataType = DataType(str(doc, "dataType"))
	case TypeMockServerURL:
		gen.Example = str(doc, "example")
		gen.Regex = str(doc, "regex")
	default:
		return Generator{}, fmt.Errorf("%w: unknown generator type %q", ErrInvalidGenerator, typ)
	}
	return gen, nil
}

func str(doc jsonvalue.Value, key string) string {
	v, _ := doc.Get(key)
	if v.IsNull() {
		return ""
	}
	return v.String()
}

func integer(doc jsonvalue.Value, key string, fallback int) int {
	v, _ := doc.Get(key)
	if n, ok := v.AsInt64(); ok {
		return int(n)
	}
	return fallback
}

// ApplyBody returns a copy of body with the generators of a body category
// applied at their paths. Generators that do not apply in the context's mode
// are skipped. Failures keep the recorded value and are logged.
func ApplyBody(ctx *Context, body jsonvalue.Value, gens map[string]Generator, logger *slog.Logger) jsonvalue.Value {
	out := body.Copy()
	paths := make([]string, 0, len(gens))
	for p := range gens {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		gen := gens[p]
		mode := Provider
		if ctx != nil {
			mode = ctx.Mode
		}
		if !gen.AppliesTo(mode) {
			continue
		}
		pattern, err := jp.ParseString(p)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring generator with invalid path", "path", p, "error", err)
			}
			continue
		}
		out = applyAt(ctx, out, pattern, 0, gen, logger)
	}
	return out
}

func applyAt(ctx *Context, v jsonvalue.Value, pattern jp.Expr, i int, gen Generator, logger *slog.Logger) jsonvalue.Value {
	for i < len(pattern) {
		if _, skip := pattern[i].(jp.Root); skip {
			i++
			continue
		}
		if _, skip := pattern[i].(jp.Bracket); skip {
			i++
			continue
		}
		break
	}
	if i == len(pattern) {
		generated, err := gen.Generate(ctx, v)
		if err != nil {
			if logger != nil && !errors.Is(err, ErrNotApplicable) {
				logger.Warn("generator failed, keeping recorded value", "type", gen.Type, "error", err)
			}
			return v
		}
		return generated
	}

	switch f := pattern[i].(type) {
	case jp.Child:
		if !v.IsObject() || !v.Has(string(f)) {
			return v
		}
		child, _ := v.Get(string(f))
		_ = v.Put(string(f), applyAt(ctx, child, pattern, i+1, gen, logger))
	case jp.Nth:
		child, err := v.Index(int(f))
		if err != nil || !v.IsArray() {
			return v
		}
		_ = v.SetIndex(int(f), applyAt(ctx, child, pattern, i+1, gen, logger))
	case jp.Wildcard:
		switch {
		case v.IsArray():
			for idx, child := range v.Values() {
				_ = v.SetIndex(idx, applyAt(ctx, child, pattern, i+1, gen, logger))
			}
		case v.IsObject():
			for _, e := range v.SortedEntries() {
				_ = v.Put(e.Key, applyAt(ctx, e.Value, pattern, i+1, gen, logger))
			}
		}
	}
	return v
}

// ApplyValues applies generators keyed by name to values, as used for
// headers, query parameters and message metadata. values is modified.
func ApplyValues(ctx *Context, values map[string]jsonvalue.Value, gens map[string]Generator, logger *slog.Logger) {
	for key, gen := range gens {
		current, ok := values[key]
		if !ok {
			continue
		}
		generated, err := gen.Generate(ctx, current)
		if err != nil {
			if logger != nil && !errors.Is(err, ErrNotApplicable) {
				logger.Warn("generator failed, keeping recorded value", "key", key, "type", gen.Type, "error", err)
			}
			continue
		}
		values[key] = generated
	}
}

// ApplyStrings applies generators to multi-valued string maps such as HTTP
// headers. Every value of a key is replaced. values is modified.
func ApplyStrings(ctx *Context, values map[string][]string, gens map[string]Generator, logger *slog.Logger) {
	for key, gen := range gens {
		current, ok := values[key]
		if !ok {
			continue
		}
		for i, s := range current {
			generated, err := gen.Generate(ctx, jsonvalue.String(s))
			if err != nil {
				if logger != nil && !errors.Is(err, ErrNotApplicable) {
					logger.Warn("generator failed, keeping recorded value", "key", key, "type", gen.Type, "error", err)
				}
				continue
			}
			current[i] = generated.String()
		}
	}
}
