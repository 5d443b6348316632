// Package patient models the clinical input form: every attribute the user
// enters, the selectable options, the example patients and the acceptance
// bounds of each input. Only a subset of the form reaches the model; see
// Form.Features.
package patient

import (
	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/label"
)

// Form holds decoded values for every attribute the form collects.
type Form struct {
	Age               int     `json:"age"`
	Sex               int     `json:"sex"`
	ChestPain         int     `json:"cp"`
	RestingBP         int     `json:"trtbps"`
	Chol              int     `json:"chol"`
	FastingBloodSugar int     `json:"fbs"`
	RestECG           int     `json:"restecg"`
	MaxHR             int     `json:"thalachh"`
	ExerciseAngina    int     `json:"exng"`
	Oldpeak           float64 `json:"oldpeak"`
	Slope             int     `json:"slp"`
	MajorVessels      int     `json:"caa"`
	Thalassemia       int     `json:"thall"`
}

// Defaults is the form a user sees when no example is loaded.
func Defaults() Form {
	return Form{
		Age:               50,
		Sex:               1,
		ChestPain:         0,
		RestingBP:         120,
		Chol:              200,
		FastingBloodSugar: 0,
		RestECG:           0,
		MaxHR:             140,
		ExerciseAngina:    0,
		Oldpeak:           1.0,
		Slope:             1,
		MajorVessels:      0,
		Thalassemia:       2,
	}
}

// Features assembles the model's feature row from the form.
func (f Form) Features() features.Record {
	return features.Assemble(
		f.Thalassemia,
		f.MajorVessels,
		f.ChestPain,
		f.Oldpeak,
		f.ExerciseAngina,
		f.Chol,
		f.MaxHR,
	)
}

// Selections are raw widget values before decoding. Categorical fields hold
// whatever the widget produced: a code or a display label.
type Selections struct {
	Age               int
	Sex               label.Value
	ChestPain         label.Value
	RestingBP         int
	Chol              int
	FastingBloodSugar label.Value
	RestECG           label.Value
	MaxHR             int
	ExerciseAngina    label.Value
	Oldpeak           float64
	Slope             label.Value
	MajorVessels      label.Value
	Thalassemia       label.Value
}

// Resolve decodes the selections into a Form. Each categorical field falls
// back to the matching value of defaults when its label carries no code.
func (s Selections) Resolve(defaults Form) Form {
	return Form{
		Age:               s.Age,
		Sex:               Sex.Decode(s.Sex, defaults.Sex),
		ChestPain:         ChestPain.Decode(s.ChestPain, defaults.ChestPain),
		RestingBP:         s.RestingBP,
		Chol:              s.Chol,
		FastingBloodSugar: FastingBloodSugar.Decode(s.FastingBloodSugar, defaults.FastingBloodSugar),
		RestECG:           RestECG.Decode(s.RestECG, defaults.RestECG),
		MaxHR:             s.MaxHR,
		ExerciseAngina:    ExerciseAngina.Decode(s.ExerciseAngina, defaults.ExerciseAngina),
		Oldpeak:           s.Oldpeak,
		Slope:             Slope.Decode(s.Slope, defaults.Slope),
		MajorVessels:      MajorVessels.Decode(s.MajorVessels, defaults.MajorVessels),
		Thalassemia:       Thalassemia.Decode(s.Thalassemia, defaults.Thalassemia),
	}
}

// Example is a named, pre-filled patient.
type Example struct {
	Name string `json:"name"`
	Form Form   `json:"form"`
}

// Example names.
const (
	LowRiskExample  = "Low risk example"
	HighRiskExample = "High risk example"
)

var examples = []Example{
	{Name: LowRiskExample, Form: Form{
		Age:               45,
		Sex:               1,
		ChestPain:         0,
		RestingBP:         120,
		Chol:              180,
		FastingBloodSugar: 0,
		RestECG:           0,
		MaxHR:             150,
		ExerciseAngina:    0,
		Oldpeak:           0.0,
		Slope:             2,
		MajorVessels:      0,
		Thalassemia:       2,
	}},
	{Name: HighRiskExample, Form: Form{
		Age:               64,
		Sex:               1,
		ChestPain:         3,
		RestingBP:         160,
		Chol:              300,
		FastingBloodSugar: 1,
		RestECG:           1,
		MaxHR:             120,
		ExerciseAngina:    1,
		Oldpeak:           3.0,
		Slope:             0,
		MajorVessels:      2,
		Thalassemia:       3,
	}},
}

// LookupExample returns the example form with the given name.
func LookupExample(name string) (Form, bool) {
	for _, e := range examples {
		if e.Name == name {
			return e.Form, true
		}
	}
	return Form{}, false
}

// Examples returns the example patients, low risk first.
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}
