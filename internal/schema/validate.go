// Package schema validates JSON documents against embedded JSON Schemas.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled caches compiled schemas by name.
var compiled sync.Map // map[string]*jsonschema.Schema

// ValidationError reports a document that does not conform to its schema.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks raw against the schema definition registered under name.
// Definitions are compiled once per name and reused.
func Validate(name string, definition []byte, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ValidationError{Schema: name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return ValidateValue(name, definition, parsed)
}

// ValidateValue is Validate for an already decoded document.
func ValidateValue(name string, definition []byte, doc any) error {
	sch, err := compile(name, definition)
	if err != nil {
		return &ValidationError{Schema: name, Err: fmt.Errorf("compile schema: %w", err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &ValidationError{Schema: name, Err: err}
	}
	return nil
}

func compile(name string, definition []byte) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	var def any
	if err := json.Unmarshal(definition, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	compiled.Store(name, sch)
	return sch, nil
}
