package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyInput is returned when parsing an empty or blank document.
var ErrEmptyInput = errors.New("input is empty or contains only whitespace")

// ParseError reports malformed JSON input.
type ParseError struct {
	// Offset is the byte offset where parsing stopped.
	Offset int64
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes exactly one JSON document.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null(), &ParseError{Err: ErrEmptyInput}
	}
	return ParseReader(bytes.NewReader(data))
}

// ParseString decodes exactly one JSON document held in a string.
func ParseString(s string) (Value, error) {
	if strings.TrimSpace(s) == "" {
		return Null(), &ParseError{Err: ErrEmptyInput}
	}
	return ParseReader(strings.NewReader(s))
}

// ParseReader decodes exactly one JSON document from r. Number literals are
// kept verbatim.
func ParseReader(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Null(), wrapParseError(dec, err)
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Null(), wrapParseError(dec, err)
	}
	return v, nil
}

func wrapParseError(dec *json.Decoder, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Offset: syntaxErr.Offset, Err: err}
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &ParseError{Offset: dec.InputOffset(), Err: err}
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String())
	case json.Delim:
		switch t {
		case '[':
			arr := []Value{}
			for dec.More() {
				e, err := parseValue(dec)
				if err != nil {
					return Null(), err
				}
				arr = append(arr, e)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Array(arr...), nil
		case '{':
			obj := map[string]Value{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("expected object key, got %v", keyTok)
				}
				e, err := parseValue(dec)
				if err != nil {
					return Null(), err
				}
				obj[key] = e
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Object(obj), nil
		}
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.Serialize()), nil
}
