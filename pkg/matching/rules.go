package matching

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/mod/semver"

	"github.com/getmockd/contracts/internal/javatime"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d+\.\d+$`)
	numberPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

	regexCache sync.Map // pattern -> *regexp.Regexp
)

// compileAnchored compiles pattern so that it must match the whole input.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// describe renders a value with its kind for mismatch messages.
func describe(v jsonvalue.Value) string {
	return fmt.Sprintf("%s (%s)", v.Describe(), v.Name())
}

// text returns the string form used by string-based rules. Null has none.
func text(v jsonvalue.Value) (string, bool) {
	switch {
	case v.IsNull():
		return "", false
	case v.IsString():
		s, _ := v.AsString()
		return s, true
	case v.IsObject(), v.IsArray():
		return v.Serialize(), true
	default:
		return v.String(), true
	}
}

// typesMatch reports whether actual has the same kind as expected. Integer
// and decimal numbers are interchangeable.
func typesMatch(expected, actual jsonvalue.Value) bool {
	if expected.IsNumber() && actual.IsNumber() {
		return true
	}
	return expected.Kind() == actual.Kind()
}

// ruleFailure evaluates rule against a single value and returns the failure
// message, or "" when the rule passes. exact is false when the rule was
// declared on an ancestor, in which case size constraints do not apply.
// Rules that inspect children (arrayContains, eachKey, eachValue) are
// evaluated by the body comparer; here they only check the kind.
func ruleFailure(rule matchingrules.Rule, expected, actual jsonvalue.Value, exact bool) string {
	switch rule.Type {
	case matchingrules.TypeEquality:
		if !expected.Equal(actual) {
			return fmt.Sprintf("Expected %s to equal %s", describe(actual), describe(expected))
		}

	case matchingrules.TypeRegex:
		return regexFailure(rule.Regex, actual)

	case matchingrules.TypeType, matchingrules.TypeValues, matchingrules.TypeEachKey,
		matchingrules.TypeEachValue, matchingrules.TypeArrayContains:
		if !typesMatch(expected, actual) {
			return fmt.Sprintf("Expected %s to be the same type as %s", describe(actual), describe(expected))
		}

	case matchingrules.TypeMin, matchingrules.TypeMax, matchingrules.TypeMinMax:
		if !typesMatch(expected, actual) {
			return fmt.Sprintf("Expected %s to be the same type as %s", describe(actual), describe(expected))
		}
		if exact && actual.IsArray() {
			return sizeFailure(rule, actual)
		}

	case matchingrules.TypeInclude:
		s, ok := text(actual)
		if !ok || !strings.Contains(s, rule.Value) {
			return fmt.Sprintf("Expected %s to include '%s'", actual.Describe(), rule.Value)
		}

	case matchingrules.TypeNumber:
		if !actual.IsNumber() && !matchesString(numberPattern, actual) {
			return fmt.Sprintf("Expected %s to be a number", describe(actual))
		}

	case matchingrules.TypeInteger:
		if actual.Kind() != jsonvalue.KindInteger && !matchesString(integerPattern, actual) {
			return fmt.Sprintf("Expected %s to be an integer", describe(actual))
		}

	case matchingrules.TypeDecimal:
		if actual.Kind() != jsonvalue.KindDecimal && !matchesString(decimalPattern, actual) {
			return fmt.Sprintf("Expected %s to be a decimal number", describe(actual))
		}

	case matchingrules.TypeNull:
		if !actual.IsNull() {
			return fmt.Sprintf("Expected %s to be a null value", describe(actual))
		}

	case matchingrules.TypeBoolean:
		if actual.IsBoolean() {
			return ""
		}
		if s, ok := actual.AsString(); ok && (s == "true" || s == "false") {
			return ""
		}
		return fmt.Sprintf("Expected %s to be a boolean", describe(actual))

	case matchingrules.TypeDate:
		return timeFailure("date", rule.Format, javatime.DefaultDate, actual)
	case matchingrules.TypeTime:
		return timeFailure("time", rule.Format, javatime.DefaultTime, actual)
	case matchingrules.TypeTimestamp:
		return timeFailure("timestamp", rule.Format, javatime.DefaultDateTime, actual)

	case matchingrules.TypeContentType:
		return contentTypeFailure(rule.Value, actual)

	case matchingrules.TypeStatusCode:
		return statusFailure(rule, actual)

	case matchingrules.TypeNotEmpty:
		if isEmptyValue(actual) {
			return fmt.Sprintf("Expected %s to not be empty", describe(actual))
		}
		if !expected.IsNull() && !typesMatch(expected, actual) {
			return fmt.Sprintf("Expected %s to be the same type as %s", describe(actual), describe(expected))
		}

	case matchingrules.TypeSemver:
		s, ok := actual.AsString()
		if !ok || !isSemver(s) {
			return fmt.Sprintf("%s is not a valid semantic version", actual.Describe())
		}

	default:
		return fmt.Sprintf("Unsupported matching rule '%s'", rule.Type)
	}
	return ""
}

func regexFailure(pattern string, actual jsonvalue.Value) string {
	re, err := compileAnchored(pattern)
	if err != nil {
		return fmt.Sprintf("Invalid regex '%s': %v", pattern, err)
	}
	s, ok := text(actual)
	if !ok || !re.MatchString(s) {
		return fmt.Sprintf("Expected %s to match '%s'", actual.Describe(), pattern)
	}
	return ""
}

func sizeFailure(rule matchingrules.Rule, actual jsonvalue.Value) string {
	n := actual.Len()
	checkMin := rule.Type == matchingrules.TypeMin || rule.Type == matchingrules.TypeMinMax
	checkMax := rule.Type == matchingrules.TypeMax || rule.Type == matchingrules.TypeMinMax
	if checkMin && n < rule.Min {
		return fmt.Sprintf("Expected %s (size %d) to have minimum size of %d", actual.Describe(), n, rule.Min)
	}
	if checkMax && n > rule.Max {
		return fmt.Sprintf("Expected %s (size %d) to have maximum size of %d", actual.Describe(), n, rule.Max)
	}
	return ""
}

func matchesString(re *regexp.Regexp, v jsonvalue.Value) bool {
	s, ok := v.AsString()
	return ok && re.MatchString(s)
}

func timeFailure(kind, format, fallback string, actual jsonvalue.Value) string {
	if format == "" {
		format = fallback
	}
	s, ok := actual.AsString()
	if !ok {
		return fmt.Sprintf("Expected %s to be a %s string", describe(actual), kind)
	}
	if _, err := javatime.Parse(format, s); err != nil {
		return fmt.Sprintf("Expected '%s' to match a %s pattern of '%s': %v", s, kind, format, err)
	}
	return ""
}

// contentTypeFailure detects the type of the actual content and accepts it
// when it or one of its parent types is want.
func contentTypeFailure(want string, actual jsonvalue.Value) string {
	s, ok := text(actual)
	if !ok {
		return fmt.Sprintf("Expected %s to have content type '%s'", describe(actual), want)
	}
	detected := mimetype.Detect([]byte(s))
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return ""
		}
	}
	return fmt.Sprintf("Expected binary contents to have content type '%s' but detected contents was '%s'", want, detected.String())
}

func statusFailure(rule matchingrules.Rule, actual jsonvalue.Value) string {
	code, ok := actual.AsInt64()
	if !ok {
		return fmt.Sprintf("Expected %s to be a status code", describe(actual))
	}
	if len(rule.Codes) > 0 {
		for _, c := range rule.Codes {
			if int64(c) == code {
				return ""
			}
		}
		return fmt.Sprintf("Expected status code %d to be one of %v", code, rule.Codes)
	}
	if !inStatusClass(rule.Status, int(code)) {
		return fmt.Sprintf("Expected status code %d to be a %s status", code, rule.Status)
	}
	return ""
}

func inStatusClass(class string, code int) bool {
	switch class {
	case matchingrules.StatusInformation:
		return code >= 100 && code < 200
	case matchingrules.StatusSuccess:
		return code >= 200 && code < 300
	case matchingrules.StatusRedirect:
		return code >= 300 && code < 400
	case matchingrules.StatusClientError:
		return code >= 400 && code < 500
	case matchingrules.StatusServerError:
		return code >= 500 && code < 600
	case matchingrules.StatusNonError:
		return code < 400
	case matchingrules.StatusError:
		return code >= 400
	}
	return false
}

func isEmptyValue(v jsonvalue.Value) bool {
	switch {
	case v.IsNull():
		return true
	case v.IsString():
		s, _ := v.AsString()
		return s == ""
	case v.IsArray(), v.IsObject():
		return v.Len() == 0
	}
	return false
}

// isSemver accepts MAJOR.MINOR.PATCH with optional pre-release and build
// parts, without the "v" prefix golang.org/x/mod/semver expects.
func isSemver(s string) bool {
	if s == "" || s[0] == 'v' {
		return false
	}
	v := "v" + s
	if !semver.IsValid(v) {
		return false
	}
	core := strings.TrimSuffix(strings.TrimSuffix(v, semver.Build(v)), semver.Prerelease(v))
	return strings.Count(core, ".") == 2
}

// evaluateList applies a rule list to one value and returns the failure
// messages: every failing rule for AND, the first rule's failure when no
// rule passes for OR.
func evaluateList(list matchingrules.RuleList, expected, actual jsonvalue.Value) []string {
	var failures []string
	for _, rule := range list.Rules {
		msg := ruleFailure(rule, expected, actual, true)
		if msg == "" {
			if list.Logic == matchingrules.Or {
				return nil
			}
			continue
		}
		failures = append(failures, msg)
	}
	if list.Logic == matchingrules.Or && len(failures) > 0 {
		return failures[:1]
	}
	return failures
}
