package generators

import (
	"errors"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/getmockd/contracts/internal/javatime"
	"github.com/getmockd/contracts/pkg/jsonvalue"
)

// ErrInvalidGenerator is returned when a generator document cannot be decoded.
var ErrInvalidGenerator = errors.New("invalid generator")

// ErrNotApplicable is returned by Generate when the generator does not apply
// in the context's mode.
var ErrNotApplicable = errors.New("generator does not apply in this mode")

// Type identifies the variant of a Generator.
type Type string

// Generator variants.
const (
	TypeRandomInt         Type = "RandomInt"
	TypeRandomDecimal     Type = "RandomDecimal"
	TypeRandomHexadecimal Type = "RandomHexadecimal"
	TypeRandomString      Type = "RandomString"
	TypeRegex             Type = "Regex"
	TypeUUID              Type = "Uuid"
	TypeDate              Type = "Date"
	TypeTime              Type = "Time"
	TypeDateTime          Type = "DateTime"
	TypeRandomBoolean     Type = "RandomBoolean"
	TypeProviderState     Type = "ProviderState"
	TypeMockServerURL     Type = "MockServerURL"
)

// DataType is the type a ProviderState expression result is converted to.
type DataType string

// Data types.
const (
	DataTypeRaw     DataType = "RAW"
	DataTypeString  DataType = "STRING"
	DataTypeInteger DataType = "INTEGER"
	DataTypeDecimal DataType = "DECIMAL"
	DataTypeFloat   DataType = "FLOAT"
	DataTypeBoolean DataType = "BOOLEAN"
)

// UUID formats.
const (
	UUIDSimple              = "simple"
	UUIDLowerCaseHyphenated = "lower-case-hyphenated"
	UUIDUpperCaseHyphenated = "upper-case-hyphenated"
	UUIDURN                 = "URN"
)

// Mode says which side of a contract test values are generated for.
type Mode int

// Modes.
const (
	// Provider is used when a provider replays a contract.
	Provider Mode = iota
	// Consumer is used when a consumer test runs against a mock server.
	Consumer
)

// String returns "Provider" or "Consumer".
func (m Mode) String() string {
	if m == Consumer {
		return "Consumer"
	}
	return "Provider"
}

// Context carries what generators need at verification time.
type Context struct {
	Mode Mode
	// ProviderState holds the parameters returned by provider state setup.
	ProviderState map[string]any
	// MockServerURL is the base URL of the running mock server.
	MockServerURL string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Rand is an optional seeded source for reproducible values.
	Rand *mathrand.Rand
}

func (c *Context) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) intN(n int) int {
	if n <= 0 {
		return 0
	}
	if c != nil && c.Rand != nil {
		return c.Rand.IntN(n)
	}
	return mathrand.IntN(n)
}

// Read fills p from the context's random source so it can feed uuid.
func (c *Context) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c.intN(256))
	}
	return len(p), nil
}

// Generator describes how to produce a substitute value. Only the fields
// used by its Type are set.
type Generator struct {
	Type Type

	// Min and Max bound RandomInt, inclusive.
	Min int
	Max int
	// Digits is the length of RandomDecimal and RandomHexadecimal values.
	Digits int
	// Size is the length of RandomString values.
	Size int
	// Regex is the pattern of Regex generators and the path extractor of
	// MockServerURL generators.
	Regex string
	// Format is the UUID format or the date/time pattern.
	Format string
	// Expression is the ProviderState expression, e.g. "/items/${id}".
	Expression string
	DataType   DataType
	// Example is the URL recorded for MockServerURL generators.
	Example string
}

// RandomInt generates an integer in [minValue, maxValue].
func RandomInt(minValue, maxValue int) Generator {
	return Generator{Type: TypeRandomInt, Min: minValue, Max: maxValue}
}

// RandomDecimal generates a decimal with the given number of digits.
func RandomDecimal(digits int) Generator {
	return Generator{Type: TypeRandomDecimal, Digits: digits}
}

// RandomHexadecimal generates a hexadecimal string of the given length.
func RandomHexadecimal(digits int) Generator {
	return Generator{Type: TypeRandomHexadecimal, Digits: digits}
}

// RandomString generates an alphanumeric string of the given size.
func RandomString(size int) Generator {
	return Generator{Type: TypeRandomString, Size: size}
}

// Regex generates a string matching pattern.
func Regex(pattern string) Generator {
	return Generator{Type: TypeRegex, Regex: pattern}
}

// UUID generates a random UUID in format, UUIDLowerCaseHyphenated when empty.
func UUID(format string) Generator {
	return Generator{Type: TypeUUID, Format: format}
}

// Date generates the current date.
func Date(format string) Generator { return Generator{Type: TypeDate, Format: format} }

// Time generates the current time.
func Time(format string) Generator { return Generator{Type: TypeTime, Format: format} }

// DateTime generates the current date and time.
func DateTime(format string) Generator { return Generator{Type: TypeDateTime, Format: format} }

// RandomBoolean generates true or false.
func RandomBoolean() Generator { return Generator{Type: TypeRandomBoolean} }

// ProviderState generates a value from provider state parameters.
func ProviderState(expression string, dataType DataType) Generator {
	return Generator{Type: TypeProviderState, Expression: expression, DataType: dataType}
}

// MockServerURL rewrites example so it points at the running mock server.
// regex must capture the part of example to keep.
func MockServerURL(example, regex string) Generator {
	return Generator{Type: TypeMockServerURL, Example: example, Regex: regex}
}

// AppliesTo reports whether g produces values in mode.
func (g Generator) AppliesTo(mode Mode) bool {
	switch g.Type {
	case TypeProviderState:
		return mode == Provider
	case TypeMockServerURL:
		return mode == Consumer
	}
	return true
}

// Generate produces a value. example is the recorded value, used by
// generators that keep its type.
func (g Generator) Generate(ctx *Context, example jsonvalue.Value) (jsonvalue.Value, error) {
	mode := Provider
	if ctx != nil {
		mode = ctx.Mode
	}
	if !g.AppliesTo(mode) {
		return example, ErrNotApplicable
	}

	switch g.Type {
	case TypeRandomInt:
		if g.Max < g.Min {
			return example, fmt.Errorf("%w: RandomInt max %d is below min %d", ErrInvalidGenerator, g.Max, g.Min)
		}
		return jsonvalue.Int(int64(g.Min + ctx.intN(g.Max-g.Min+1))), nil
	case TypeRandomDecimal:
		v, err := jsonvalue.DecimalLiteral(randomDecimal(ctx, g.Digits))
		if err != nil {
			return example, err
		}
		return v, nil
	case TypeRandomHexadecimal:
		return jsonvalue.String(randomFrom(ctx, "0123456789abcdef", g.Digits)), nil
	case TypeRandomString:
		return jsonvalue.String(randomFrom(ctx, alphanumeric, g.Size)), nil
	case TypeRegex:
		s, err := generateFromRegex(ctx, g.Regex)
		if err != nil {
			return example, err
		}
		return jsonvalue.String(s), nil
	case TypeUUID:
		s, err := generateUUID(ctx, g.Format)
		if err != nil {
			return example, err
		}
		return jsonvalue.String(s), nil
	case TypeDate:
		return formatNow(ctx, g.Format, javatime.DefaultDate)
	case TypeTime:
		return formatNow(ctx, g.Format, javatime.DefaultTime)
	case TypeDateTime:
		return formatNow(ctx, g.Format, javatime.DefaultDateTime)
	case TypeRandomBoolean:
		return jsonvalue.Bool(ctx.intN(2) == 1), nil
	case TypeProviderState:
		return evaluateProviderState(ctx, g.Expression, g.DataType)
	case TypeMockServerURL:
		return mockServerURL(ctx, g.Example, g.Regex)
	}
	return example, fmt.Errorf("%w: unknown generator type %q", ErrInvalidGenerator, g.Type)
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomFrom(ctx *Context, alphabet string, n int) string {
	if n <= 0 {
		n = 10
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[ctx.intN(len(alphabet))])
	}
	return b.String()
}

// randomDecimal returns digits significant digits with a decimal point
// placed somewhere inside them.
func randomDecimal(ctx *Context, digits int) string {
	if digits <= 0 {
		digits = 10
	}
	if digits == 1 {
		return "0." + strconv.Itoa(ctx.intN(10))
	}
	var b strings.Builder
	b.WriteByte(byte('1' + ctx.intN(9)))
	for i := 1; i < digits; i++ {
		b.WriteByte(byte('0' + ctx.intN(10)))
	}
	s := b.String()
	point := 1 + ctx.intN(digits-1)
	return s[:point] + "." + s[point:]
}

func generateUUID(ctx *Context, format string) (string, error) {
	var (
		id  uuid.UUID
		err error
	)
	if ctx != nil && ctx.Rand != nil {
		id, err = uuid.NewRandomFromReader(io.Reader(ctx))
	} else {
		id, err = uuid.NewRandom()
	}
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	switch format {
	case "", UUIDLowerCaseHyphenated:
		return id.String(), nil
	case UUIDSimple:
		return strings.ReplaceAll(id.String(), "-", ""), nil
	case UUIDUpperCaseHyphenated:
		return strings.ToUpper(id.String()), nil
	case UUIDURN:
		return id.URN(), nil
	}
	return "", fmt.Errorf("%w: unknown uuid format %q", ErrInvalidGenerator, format)
}

func formatNow(ctx *Context, format, fallback string) (jsonvalue.Value, error) {
	if format == "" {
		format = fallback
	}
	s, err := javatime.Format(format, ctx.now())
	if err != nil {
		return jsonvalue.Null(), fmt.Errorf("%w: %v", ErrInvalidGenerator, err)
	}
	return jsonvalue.String(s), nil
}

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// evaluateProviderState replaces ${...} placeholders with values from the
// provider state. A lone placeholder keeps the type of its value.
func evaluateProviderState(ctx *Context, expression string, dataType DataType) (jsonvalue.Value, error) {
	env := map[string]any{}
	if ctx != nil && ctx.ProviderState != nil {
		env = ctx.ProviderState
	}

	matches := placeholder.FindAllStringSubmatchIndex(expression, -1)
	if len(matches) == 0 {
		return convertDataType(expression, dataType)
	}

	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(expression) {
		result, err := evalExpr(expression[matches[0][2]:matches[0][3]], env)
		if err != nil {
			return jsonvalue.Null(), err
		}
		return convertDataType(result, dataType)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(expression[last:m[0]])
		result, err := evalExpr(expression[m[2]:m[3]], env)
		if err != nil {
			return jsonvalue.Null(), err
		}
		if result != nil {
			b.WriteString(fmt.Sprint(result))
		}
		last = m[1]
	}
	b.WriteString(expression[last:])
	return convertDataType(b.String(), dataType)
}

func evalExpr(expression string, env map[string]any) (any, error) {
	program, err := expr.Compile(strings.TrimSpace(expression), expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile provider state expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval provider state expression %q: %w", expression, err)
	}
	return result, nil
}

func convertDataType(value any, dataType DataType) (jsonvalue.Value, error) {
	switch dataType {
	case DataTypeString:
		if value == nil {
			return jsonvalue.String(""), nil
		}
		return jsonvalue.String(fmt.Sprint(value)), nil
	case DataTypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(value)), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(value)), 64)
			if ferr != nil {
				return jsonvalue.Null(), fmt.Errorf("convert %v to integer: %w", value, err)
			}
			n = int64(f)
		}
		return jsonvalue.Int(n), nil
	case DataTypeDecimal, DataTypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(value)), 64)
		if err != nil {
			return jsonvalue.Null(), fmt.Errorf("convert %v to decimal: %w", value, err)
		}
		return jsonvalue.Float(f), nil
	case DataTypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(fmt.Sprint(value)))
		if err != nil {
			return jsonvalue.Null(), fmt.Errorf("convert %v to boolean: %w", value, err)
		}
		return jsonvalue.Bool(b), nil
	}
	return jsonvalue.FromNative(value)
}

func mockServerURL(ctx *Context, example, pattern string) (jsonvalue.Value, error) {
	if ctx == nil || ctx.MockServerURL == "" {
		return jsonvalue.String(example), fmt.Errorf("%w: no mock server URL in context", ErrInvalidGenerator)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return jsonvalue.String(example), fmt.Errorf("%w: %v", ErrInvalidGenerator, err)
	}
	m := re.FindStringSubmatch(example)
	if len(m) < 2 {
		return jsonvalue.String(example), fmt.Errorf("%w: %q does not match %q", ErrInvalidGenerator, example, pattern)
	}
	return jsonvalue.String(strings.TrimSuffix(ctx.MockServerURL, "/") + m[1]), nil
}
