package schema

import (
	"errors"
	"testing"
)

var testDef = []byte(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer", "minimum": 0}
	},
	"required": ["name", "age"]
}`)

func TestValidate_Valid(t *testing.T) {
	if err := Validate("test-person", testDef, []byte(`{"name":"Ada","age":36}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing required", `{"name":"Ada"}`},
		{"wrong type", `{"name":"Ada","age":"old"}`},
		{"below minimum", `{"name":"Ada","age":-1}`},
		{"malformed", `{not json}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("test-person", testDef, []byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Schema != "test-person" {
				t.Errorf("Schema = %q, want %q", verr.Schema, "test-person")
			}
		})
	}
}

func TestValidate_BadDefinition(t *testing.T) {
	err := Validate("test-broken", []byte(`{not a schema`), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for broken definition")
	}
}
