package patient

import (
	"fmt"
	"strings"
)

// Range is the inclusive interval a numeric input widget accepts.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Acceptance bounds of the numeric inputs.
var (
	AgeRange       = Range{Min: 1, Max: 120, Step: 1}
	RestingBPRange = Range{Min: 50, Max: 300, Step: 1}
	CholRange      = Range{Min: 50, Max: 600, Step: 1}
	MaxHRRange     = Range{Min: 60, Max: 250, Step: 1}
	OldpeakRange   = Range{Min: 0, Max: 10, Step: 0.1}
)

// Bounds returns the numeric ranges keyed by field name.
func Bounds() map[string]Range {
	return map[string]Range{
		"age":      AgeRange,
		"trtbps":   RestingBPRange,
		"chol":     CholRange,
		"thalachh": MaxHRRange,
		"oldpeak":  OldpeakRange,
	}
}

// FieldError describes one rejected input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every input the form rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid patient input: " + strings.Join(parts, "; ")
}

// Validate applies the input widgets' acceptance constraints. It returns
// nil or a *ValidationError naming every offending field.
func (f Form) Validate() error {
	var errs []FieldError

	checkRange := func(field string, v float64, r Range) {
		if !r.Contains(v) {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("%g is outside %g-%g", v, r.Min, r.Max),
			})
		}
	}
	checkCode := func(v int, c Catalog) {
		if !c.Has(v) {
			errs = append(errs, FieldError{
				Field:   c.Field,
				Message: fmt.Sprintf("%d is not a valid %s code", v, strings.ToLower(c.Title)),
			})
		}
	}

	checkRange("age", float64(f.Age), AgeRange)
	checkCode(f.Sex, Sex)
	checkCode(f.ChestPain, ChestPain)
	checkRange("trtbps", float64(f.RestingBP), RestingBPRange)
	checkRange("chol", float64(f.Chol), CholRange)
	checkCode(f.FastingBloodSugar, FastingBloodSugar)
	checkCode(f.RestECG, RestECG)
	checkRange("thalachh", float64(f.MaxHR), MaxHRRange)
	checkCode(f.ExerciseAngina, ExerciseAngina)
	checkRange("oldpeak", f.Oldpeak, OldpeakRange)
	checkCode(f.Slope, Slope)
	checkCode(f.MajorVessels, MajorVessels)
	checkCode(f.Thalassemia, Thalassemia)

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
