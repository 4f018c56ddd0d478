package comparison

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/getmockd/contracts/pkg/jsonvalue"
)

// GenerateDiffKey is the resolver key of the diff policy. Its value is
// "true", "false" or a size such as "1MB": diffs are generated only for
// bodies no larger than that size.
const GenerateDiffKey = "pact.verifier.generateDiff"

const notSet = "NOT_SET"

// ValueResolver looks up configuration values by key.
type ValueResolver interface {
	// ResolveValue returns the value of key, or defaultValue when unset.
	ResolveValue(key, defaultValue string) string
}

// ResolverFunc adapts a function to ValueResolver.
type ResolverFunc func(key, defaultValue string) string

// ResolveValue implements ValueResolver.
func (f ResolverFunc) ResolveValue(key, defaultValue string) string { return f(key, defaultValue) }

// defaultsResolver resolves every key to its default.
type defaultsResolver struct{}

func (defaultsResolver) ResolveValue(_, defaultValue string) string { return defaultValue }

// SizeExpressionError is returned when the diff policy is neither a boolean
// nor a parseable size.
type SizeExpressionError struct {
	Value string
	Err   error
}

func (e *SizeExpressionError) Error() string {
	return fmt.Sprintf("invalid size expression %q: %v", e.Value, e.Err)
}

func (e *SizeExpressionError) Unwrap() error { return e.Err }

// ShouldGenerateDiff applies the diff policy to a body of length bytes.
// An unset policy allows diffs and an empty one disables them.
func ShouldGenerateDiff(resolver ValueResolver, length int) (bool, error) {
	if resolver == nil {
		resolver = defaultsResolver{}
	}
	v := strings.ToLower(strings.TrimSpace(resolver.ResolveValue(GenerateDiffKey, notSet)))
	switch v {
	case "true", "not_set":
		return true, nil
	case "false", "":
		return false, nil
	}
	size, err := humanize.ParseBytes(v)
	if err != nil {
		return false, &SizeExpressionError{Value: v, Err: err}
	}
	return uint64(length) <= size, nil
}

// GenerateDiff returns a line diff of two texts. Unchanged lines are
// prefixed with two spaces, removed lines with "-" and added lines with "+".
func GenerateDiff(expected, actual string) []string {
	a := splitLines(expected)
	b := splitLines(actual)

	var out []string
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, line := range a[op.I1:op.I2] {
				out = append(out, "  "+line)
			}
		case 'd':
			for _, line := range a[op.I1:op.I2] {
				out = append(out, "-"+line)
			}
		case 'i':
			for _, line := range b[op.J1:op.J2] {
				out = append(out, "+"+line)
			}
		case 'r':
			for _, line := range a[op.I1:op.I2] {
				out = append(out, "-"+line)
			}
			for _, line := range b[op.J1:op.J2] {
				out = append(out, "+"+line)
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// prettyJSON pretty-prints s, returning it unchanged when it is not JSON.
func prettyJSON(s string) string {
	v, err := jsonvalue.ParseString(s)
	if err != nil {
		return s
	}
	return v.PrettyPrint()
}
