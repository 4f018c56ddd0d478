package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/pact.json
var pactSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// ValidationError lists the schema violations of a pact document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPact, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPact }

// ValidateDocument checks the structure of a pact document against the
// bundled JSON schema. It returns a *ValidationError listing every violation.
func ValidateDocument(data []byte) error {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = compileSchema()
	})
	if schemaErr != nil {
		return fmt.Errorf("schema compilation error: %w", schemaErr)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Problems: []string{fmt.Sprintf("not valid JSON: %v", err)}}
	}

	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		result := &ValidationError{}
		collectProblems(validationErr, result)
		return result
	}
	return &ValidationError{Problems: []string{err.Error()}}
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("pact.json", bytes.NewReader(pactSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("pact.json")
}

func collectProblems(err *jsonschema.ValidationError, result *ValidationError) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		result.Problems = append(result.Problems, fmt.Sprintf("%s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectProblems(cause, result)
	}
}
