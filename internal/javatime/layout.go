// Package javatime converts date/time patterns written in the
// SimpleDateFormat style used by contract documents ("yyyy-MM-dd'T'HH:mm:ss")
// into Go time layouts.
package javatime

import (
	"fmt"
	"strings"
	"time"
)

// Default patterns used when a rule or generator carries no format.
const (
	DefaultDate     = "yyyy-MM-dd"
	DefaultTime     = "HH:mm:ss"
	DefaultDateTime = "yyyy-MM-dd'T'HH:mm:ss"
)

// letters maps a pattern letter and its repeat count to a Go layout token.
// A count missing from the table falls back to the largest smaller count.
var letters = map[byte]map[int]string{
	'y': {1: "2006", 2: "06", 3: "2006", 4: "2006"},
	'u': {1: "2006", 2: "06", 4: "2006"},
	'M': {1: "1", 2: "01", 3: "Jan", 4: "January"},
	'L': {1: "1", 2: "01", 3: "Jan", 4: "January"},
	'd': {1: "2", 2: "02"},
	'D': {1: "__2", 3: "002"},
	'E': {1: "Mon", 4: "Monday"},
	'a': {1: "PM"},
	'H': {1: "15", 2: "15"},
	'h': {1: "3", 2: "03"},
	'm': {1: "4", 2: "04"},
	's': {1: "5", 2: "05"},
	'S': {1: "0", 2: "00", 3: "000", 6: "000000", 9: "000000000"},
	'z': {1: "MST"},
	'Z': {1: "-0700", 4: "-07:00"},
	'X': {1: "Z07", 2: "Z0700", 3: "Z07:00"},
	'x': {1: "-07", 2: "-0700", 3: "-07:00"},
}

// Layout converts pattern into a Go time layout.
func Layout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			i++
			closed := false
			for i < len(pattern) {
				if pattern[i] == '\'' {
					if i+1 < len(pattern) && pattern[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				b.WriteByte(pattern[i])
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			n := 1
			for i+n < len(pattern) && pattern[i+n] == c {
				n++
			}
			token, err := letterToken(c, n)
			if err != nil {
				return "", fmt.Errorf("date pattern %q: %w", pattern, err)
			}
			b.WriteString(token)
			i += n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func letterToken(c byte, n int) (string, error) {
	counts, ok := letters[c]
	if !ok {
		return "", fmt.Errorf("unsupported pattern letter %q", c)
	}
	for k := n; k > 0; k-- {
		if token, ok := counts[k]; ok {
			return token, nil
		}
	}
	return "", fmt.Errorf("unsupported repeat of pattern letter %q", c)
}

// Format renders t with pattern.
func Format(pattern string, t time.Time) (string, error) {
	layout, err := Layout(pattern)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// Parse parses value with pattern.
func Parse(pattern, value string) (time.Time, error) {
	layout, err := Layout(pattern)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(layout, value)
}
