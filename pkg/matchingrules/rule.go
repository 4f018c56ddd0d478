package matchingrules

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/spec"
)

// ErrInvalidRuleFormat is returned when a rule document cannot be decoded.
var ErrInvalidRuleFormat = errors.New("invalid matching rule format")

// Type identifies the variant of a Rule. The value is the "match" name used
// in contract documents.
type Type string

// Rule variants.
const (
	TypeEquality      Type = "equality"
	TypeRegex         Type = "regex"
	TypeType          Type = "type"
	TypeMin           Type = "min"
	TypeMax           Type = "max"
	TypeMinMax        Type = "minmax"
	TypeInclude       Type = "include"
	TypeNumber        Type = "number"
	TypeInteger       Type = "integer"
	TypeDecimal       Type = "decimal"
	TypeNull          Type = "null"
	TypeBoolean       Type = "boolean"
	TypeDate          Type = "date"
	TypeTime          Type = "time"
	TypeTimestamp     Type = "timestamp"
	TypeContentType   Type = "contentType"
	TypeValues        Type = "values"
	TypeArrayContains Type = "arrayContains"
	TypeStatusCode    Type = "statusCode"
	TypeNotEmpty      Type = "notEmpty"
	TypeSemver        Type = "semver"
	TypeEachKey       Type = "eachKey"
	TypeEachValue     Type = "eachValue"
)

// Status classes accepted by the statusCode rule.
const (
	StatusInformation = "info"
	StatusSuccess     = "success"
	StatusRedirect    = "redirect"
	StatusClientError = "clientError"
	StatusServerError = "serverError"
	StatusNonError    = "nonError"
	StatusError       = "error"
)

// Rule is a single matching rule. Only the fields used by its Type are set.
type Rule struct {
	Type Type

	// Regex is the pattern of a regex rule.
	Regex string
	// Min and Max bound array sizes for min, max and minmax rules.
	Min int
	Max int
	// Value is the substring of an include rule or the MIME type of a
	// contentType rule.
	Value string
	// Format is the date/time pattern of date, time and timestamp rules.
	Format string
	// Status is the class of a statusCode rule. Codes is used instead when
	// the rule lists explicit status codes.
	Status string
	Codes  []int
	// Variants are the alternatives of an arrayContains rule.
	Variants []Variant
	// Rules are the nested rules of eachKey and eachValue.
	Rules []Rule
}

// Variant is one alternative of an arrayContains rule.
type Variant struct {
	Index      int
	Rules      *Category
	Generators jsonvalue.Value
}

// Equality matches by value.
func Equality() Rule { return Rule{Type: TypeEquality} }

// Regex matches the string form of a value against a pattern.
func Regex(pattern string) Rule { return Rule{Type: TypeRegex, Regex: pattern} }

// TypeMatch matches by type only.
func TypeMatch() Rule { return Rule{Type: TypeType} }

// MinType matches by type with a minimum array size.
func MinType(size int) Rule { return Rule{Type: TypeMin, Min: size} }

// MaxType matches by type with a maximum array size.
func MaxType(size int) Rule { return Rule{Type: TypeMax, Max: size} }

// MinMaxType matches by type with both array size bounds.
func MinMaxType(minSize, maxSize int) Rule {
	return Rule{Type: TypeMinMax, Min: minSize, Max: maxSize}
}

// Include matches strings containing value.
func Include(value string) Rule { return Rule{Type: TypeInclude, Value: value} }

// NumberRule matches any number.
func NumberRule() Rule { return Rule{Type: TypeNumber} }

// IntegerRule matches integers.
func IntegerRule() Rule { return Rule{Type: TypeInteger} }

// DecimalRule matches decimals.
func DecimalRule() Rule { return Rule{Type: TypeDecimal} }

// NullRule matches null.
func NullRule() Rule { return Rule{Type: TypeNull} }

// BooleanRule matches booleans and the strings "true" and "false".
func BooleanRule() Rule { return Rule{Type: TypeBoolean} }

// Date matches a date formatted with a date pattern such as "yyyy-MM-dd".
func Date(format string) Rule { return Rule{Type: TypeDate, Format: format} }

// Time matches a time formatted with a pattern such as "HH:mm:ss".
func Time(format string) Rule { return Rule{Type: TypeTime, Format: format} }

// Timestamp matches a date and time.
func Timestamp(format string) Rule { return Rule{Type: TypeTimestamp, Format: format} }

// ContentType matches content whose detected MIME type is mimeType.
func ContentType(mimeType string) Rule { return Rule{Type: TypeContentType, Value: mimeType} }

// Values ignores map keys and matches every value against the expected one.
func Values() Rule { return Rule{Type: TypeValues} }

// ArrayContains matches arrays that contain an element for each variant.
func ArrayContains(variants ...Variant) Rule {
	return Rule{Type: TypeArrayContains, Variants: variants}
}

// StatusClass matches a status code by class, e.g. StatusSuccess.
func StatusClass(class string) Rule { return Rule{Type: TypeStatusCode, Status: class} }

// StatusCodes matches one of the listed status codes.
func StatusCodes(codes ...int) Rule { return Rule{Type: TypeStatusCode, Codes: codes} }

// NotEmpty matches by type and requires a non-empty value.
func NotEmpty() Rule { return Rule{Type: TypeNotEmpty} }

// Semver matches semantic version strings.
func Semver() Rule { return Rule{Type: TypeSemver} }

// EachKey applies rules to every key of an object.
func EachKey(rules ...Rule) Rule { return Rule{Type: TypeEachKey, Rules: rules} }

// EachValue applies rules to every value of an object or array.
func EachValue(rules ...Rule) Rule { return Rule{Type: TypeEachValue, Rules: rules} }

// Name returns the rule name used in documents and messages.
func (r Rule) Name() string {
	return string(r.Type)
}

// IsTypeMatcher reports whether r compares by type and cascades to children
// of arrays.
func (r Rule) IsTypeMatcher() bool {
	switch r.Type {
	case TypeType, TypeMin, TypeMax, TypeMinMax, TypeEachValue, TypeNotEmpty:
		return true
	}
	return false
}

// MinVersion returns the oldest specification version that supports r.
func (r Rule) MinVersion() spec.Version {
	switch r.Type {
	case TypeRegex, TypeType, TypeMin, TypeMax, TypeMinMax:
		return spec.V2
	case TypeArrayContains, TypeStatusCode, TypeNotEmpty, TypeSemver, TypeEachKey, TypeEachValue:
		return spec.V4
	default:
		return spec.V3
	}
}

// Equal compares two rules by content.
func (r Rule) Equal(other Rule) bool {
	return r.ToDocument().Serialize() == other.ToDocument().Serialize()
}

// String renders the rule as its document form.
func (r Rule) String() string {
	return r.ToDocument().Serialize()
}

// ToDocument encodes r as a rule object such as {"match":"regex","regex":"\\d+"}.
func (r Rule) ToDocument() jsonvalue.Value {
	m := map[string]jsonvalue.Value{}
	switch r.Type {
	case TypeRegex:
		m["match"] = jsonvalue.String("regex")
		m["regex"] = jsonvalue.String(r.Regex)
	case TypeMin:
		m["match"] = jsonvalue.String("type")
		m["min"] = jsonvalue.Int(int64(r.Min))
	case TypeMax:
		m["match"] = jsonvalue.String("type")
		m["max"] = jsonvalue.Int(int64(r.Max))
	case TypeMinMax:
		m["match"] = jsonvalue.String("type")
		m["min"] = jsonvalue.Int(int64(r.Min))
		m["max"] = jsonvalue.Int(int64(r.Max))
	case TypeInclude, TypeContentType:
		m["match"] = jsonvalue.String(string(r.Type))
		m["value"] = jsonvalue.String(r.Value)
	case TypeDate, TypeTime, TypeTimestamp:
		m["match"] = jsonvalue.String(string(r.Type))
		m["format"] = jsonvalue.String(r.Format)
	case TypeStatusCode:
		m["match"] = jsonvalue.String("statusCode")
		if len(r.Codes) > 0 {
			codes := make([]jsonvalue.Value, len(r.Codes))
			for i, c := range r.Codes {
				codes[i] = jsonvalue.Int(int64(c))
			}
			m["status"] = jsonvalue.Array(codes...)
		} else {
			m["status"] = jsonvalue.String(r.Status)
		}
	case TypeArrayContains:
		m["match"] = jsonvalue.String("arrayContains")
		variants := make([]jsonvalue.Value, len(r.Variants))
		for i, v := range r.Variants {
			entry := map[string]jsonvalue.Value{"index": jsonvalue.Int(int64(v.Index))}
			if v.Rules != nil {
				entry["rules"] = v.Rules.ToDocument(spec.V4)
			} else {
				entry["rules"] = jsonvalue.Object(nil)
			}
			if !v.Generators.IsNull() {
				entry["generators"] = v.Generators
			}
			variants[i] = jsonvalue.Object(entry)
		}
		m["variants"] = jsonvalue.Array(variants...)
	case TypeEachKey, TypeEachValue:
		m["match"] = jsonvalue.String(string(r.Type))
		rules := make([]jsonvalue.Value, len(r.Rules))
		for i, sub := range r.Rules {
			rules[i] = sub.ToDocument()
		}
		m["rules"] = jsonvalue.Array(rules...)
	default:
		m["match"] = jsonvalue.String(string(r.Type))
	}
	return jsonvalue.Object(m)
}

// RuleFromDocument decodes a single rule object. Documents without a
// "match" attribute are inferred from their parameters as older contracts
// wrote them, e.g. {"regex":"\\d+"} or {"min":1}.
func RuleFromDocument(doc jsonvalue.Value) (Rule, error) {
	if !doc.IsObject() {
		return Rule{}, fmt.Errorf("%w: expected an object, got %s", ErrInvalidRuleFormat, doc.Name())
	}

	match := stringAttr(doc, "match")
	if match == "" {
		switch {
		case doc.Has("regex"):
			match = "regex"
		case doc.Has("min") || doc.Has("max"):
			match = "type"
		case doc.Has("timestamp"):
			match = "timestamp"
		case doc.Has("date"):
			match = "date"
		case doc.Has("time"):
			match = "time"
		default:
			return Rule{}, fmt.Errorf("%w: missing match attribute in %s", ErrInvalidRuleFormat, doc.Serialize())
		}
	}

	switch match {
	case "equality":
		return Equality(), nil
	case "regex":
		pattern := stringAttr(doc, "regex")
		if pattern == "" {
			return Rule{}, fmt.Errorf("%w: regex rule requires a regex attribute", ErrInvalidRuleFormat)
		}
		return Regex(pattern), nil
	case "type", "min", "max", "minmax":
		return decodeTypeRule(doc)
	case "include":
		if !doc.Has("value") {
			return Rule{}, fmt.Errorf("%w: include rule requires a value attribute", ErrInvalidRuleFormat)
		}
		return Include(stringAttr(doc, "value")), nil
	case "number":
		return NumberRule(), nil
	case "integer":
		return IntegerRule(), nil
	case "decimal", "real":
		return DecimalRule(), nil
	case "null":
		return NullRule(), nil
	case "boolean":
		return BooleanRule(), nil
	case "date", "time", "timestamp", "datetime":
		t := Type(match)
		if match == "datetime" {
			t = TypeTimestamp
		}
		format := stringAttr(doc, "format")
		if format == "" {
			format = stringAttr(doc, match)
		}
		return Rule{Type: t, Format: format}, nil
	case "contentType":
		value := stringAttr(doc, "value")
		if value == "" {
			return Rule{}, fmt.Errorf("%w: contentType rule requires a value attribute", ErrInvalidRuleFormat)
		}
		return ContentType(value), nil
	case "values":
		return Values(), nil
	case "arrayContains":
		return decodeArrayContains(doc)
	case "statusCode":
		return decodeStatusCode(doc)
	case "notEmpty":
		return NotEmpty(), nil
	case "semver":
		return Semver(), nil
	case "eachKey", "eachValue":
		rulesDoc, _ := doc.Get("rules")
		var rules []Rule
		for i, sub := range rulesDoc.Values() {
			r, err := RuleFromDocument(sub)
			if err != nil {
				return Rule{}, fmt.Errorf("%s rule %d: %w", match, i, err)
			}
			rules = append(rules, r)
		}
		return Rule{Type: Type(match), Rules: rules}, nil
	}
	return Rule{}, fmt.Errorf("%w: unknown match type %q", ErrInvalidRuleFormat, match)
}

func decodeTypeRule(doc jsonvalue.Value) (Rule, error) {
	minSize, hasMin, err := intAttr(doc, "min")
	if err != nil {
		return Rule{}, err
	}
	maxSize, hasMax, err := intAttr(doc, "max")
	if err != nil {
		return Rule{}, err
	}
	switch {
	case hasMin && hasMax:
		return MinMaxType(minSize, maxSize), nil
	case hasMin:
		return MinType(minSize), nil
	case hasMax:
		return MaxType(maxSize), nil
	}
	if m := stringAttr(doc, "match"); m == "min" || m == "max" || m == "minmax" {
		return Rule{}, fmt.Errorf("%w: %s rule requires a size", ErrInvalidRuleFormat, m)
	}
	return TypeMatch(), nil
}

func decodeArrayContains(doc jsonvalue.Value) (Rule, error) {
	variantsDoc, _ := doc.Get("variants")
	if !variantsDoc.IsArray() {
		return Rule{}, fmt.Errorf("%w: arrayContains rule requires a variants list", ErrInvalidRuleFormat)
	}
	variants := make([]Variant, 0, variantsDoc.Len())
	for i, vd := range variantsDoc.Values() {
		index, hasIndex, err := intAttr(vd, "index")
		if err != nil {
			return Rule{}, err
		}
		if !hasIndex {
			index = i
		}
		category := NewCategory("body")
		if rulesDoc, _ := vd.Get("rules"); rulesDoc.IsObject() {
			if err := category.decode(rulesDoc, nil); err != nil {
				return Rule{}, fmt.Errorf("arrayContains variant %d: %w", i, err)
			}
		}
		gens, _ := vd.Get("generators")
		variants = append(variants, Variant{Index: index, Rules: category, Generators: gens})
	}
	return ArrayContains(variants...), nil
}

func decodeStatusCode(doc jsonvalue.Value) (Rule, error) {
	status, _ := doc.Get("status")
	switch status.Kind() {
	case jsonvalue.KindString:
		class, _ := status.AsString()
		switch class {
		case StatusInformation, "information", StatusSuccess, StatusRedirect,
			StatusClientError, StatusServerError, StatusNonError, StatusError:
			if class == "information" {
				class = StatusInformation
			}
			return StatusClass(class), nil
		}
		return Rule{}, fmt.Errorf("%w: unknown status class %q", ErrInvalidRuleFormat, class)
	case jsonvalue.KindArray:
		codes := make([]int, 0, status.Len())
		for _, c := range status.Values() {
			n, ok := c.AsInt64()
			if !ok {
				return Rule{}, fmt.Errorf("%w: status code %s is not an integer", ErrInvalidRuleFormat, c.Describe())
			}
			codes = append(codes, int(n))
		}
		return StatusCodes(codes...), nil
	}
	return Rule{}, fmt.Errorf("%w: statusCode rule requires a status attribute", ErrInvalidRuleFormat)
}

func stringAttr(doc jsonvalue.Value, key string) string {
	v, err := doc.Get(key)
	if err != nil || v.IsNull() {
		return ""
	}
	return v.String()
}

func intAttr(doc jsonvalue.Value, key string) (int, bool, error) {
	v, err := doc.Get(key)
	if err != nil || v.IsNull() {
		return 0, false, nil
	}
	if n, ok := v.AsInt64(); ok {
		return int(n), true, nil
	}
	if s, ok := v.AsString(); ok {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %s must be an integer, got %s", ErrInvalidRuleFormat, key, v.Describe())
}
