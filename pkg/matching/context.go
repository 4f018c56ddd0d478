package matching

import (
	"log/slog"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/contracts/pkg/logging"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// Context carries the rules of one category through a comparison. It is
// immutable once built and may be shared between goroutines.
type Context struct {
	category            *matchingrules.Category
	matcher             *matchingrules.PathMatcher
	allowUnexpectedKeys bool
	logger              *slog.Logger
}

// ContextOption configures NewContext.
type ContextOption func(*Context)

// AllowUnexpectedKeys accepts object keys in the actual value that the
// expected value does not have. Response and message bodies allow them,
// request bodies do not.
func AllowUnexpectedKeys(allow bool) ContextOption {
	return func(c *Context) {
		c.allowUnexpectedKeys = allow
	}
}

// WithContextLogger sets the logger used while resolving rules.
func WithContextLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext compiles category for matching. A nil category matches
// structurally everywhere.
func NewContext(category *matchingrules.Category, opts ...ContextOption) *Context {
	c := &Context{logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if category == nil {
		category = matchingrules.NewCategory(matchingrules.CategoryBody)
	}
	c.category = category.Copy()
	c.matcher = matchingrules.NewPathMatcher(c.category, c.logger)
	return c
}

// Category returns the rules of the context.
func (c *Context) Category() *matchingrules.Category { return c.category }

// AllowsUnexpectedKeys reports whether extra object keys are accepted.
func (c *Context) AllowsUnexpectedKeys() bool { return c.allowUnexpectedKeys }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Resolve returns the rules that apply at path.
func (c *Context) Resolve(path jp.Expr) (matchingrules.Resolved, bool) {
	return c.matcher.Resolve(path)
}

// MatcherDefined reports whether any rule applies at path.
func (c *Context) MatcherDefined(path jp.Expr) bool {
	return c.matcher.Defined(path)
}

// withCategory returns a context for the rules of an arrayContains variant.
func (c *Context) withCategory(category *matchingrules.Category) *Context {
	return NewContext(category, AllowUnexpectedKeys(c.allowUnexpectedKeys), WithContextLogger(c.logger))
}
