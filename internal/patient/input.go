package patient

import (
	"fmt"

	"github.com/abhisek/heartrisk/internal/label"
)

// Input is a partially filled form as submitted through the HTTP API or
// CLI flags. Unset fields take their value from the base form: the named
// example if Example is set, Defaults otherwise. The base values are also
// the decoder defaults for categorical labels that carry no code.
type Input struct {
	Example string `json:"example,omitempty"`

	Age               *int        `json:"age,omitempty"`
	Sex               label.Field `json:"sex"`
	ChestPain         label.Field `json:"cp"`
	RestingBP         *int        `json:"trtbps,omitempty"`
	Chol              *int        `json:"chol,omitempty"`
	FastingBloodSugar label.Field `json:"fbs"`
	RestECG           label.Field `json:"restecg"`
	MaxHR             *int        `json:"thalachh,omitempty"`
	ExerciseAngina    label.Field `json:"exng"`
	Oldpeak           *float64    `json:"oldpeak,omitempty"`
	Slope             label.Field `json:"slp"`
	MajorVessels      label.Field `json:"caa"`
	Thalassemia       label.Field `json:"thall"`
}

// Base returns the form unset fields fall back to.
func (in Input) Base() (Form, error) {
	if in.Example == "" {
		return Defaults(), nil
	}
	f, ok := LookupExample(in.Example)
	if !ok {
		return Form{}, fmt.Errorf("unknown example %q", in.Example)
	}
	return f, nil
}

// Resolve decodes the input into a complete Form. It does not apply the
// acceptance bounds; call Form.Validate for that.
func (in Input) Resolve() (Form, error) {
	base, err := in.Base()
	if err != nil {
		return Form{}, err
	}
	sel := Selections{
		Age:               intOr(in.Age, base.Age),
		Sex:               valueOr(in.Sex, base.Sex),
		ChestPain:         valueOr(in.ChestPain, base.ChestPain),
		RestingBP:         intOr(in.RestingBP, base.RestingBP),
		Chol:              intOr(in.Chol, base.Chol),
		FastingBloodSugar: valueOr(in.FastingBloodSugar, base.FastingBloodSugar),
		RestECG:           valueOr(in.RestECG, base.RestECG),
		MaxHR:             intOr(in.MaxHR, base.MaxHR),
		ExerciseAngina:    valueOr(in.ExerciseAngina, base.ExerciseAngina),
		Oldpeak:           base.Oldpeak,
		Slope:             valueOr(in.Slope, base.Slope),
		MajorVessels:      valueOr(in.MajorVessels, base.MajorVessels),
		Thalassemia:       valueOr(in.Thalassemia, base.Thalassemia),
	}
	if in.Oldpeak != nil {
		sel.Oldpeak = *in.Oldpeak
	}
	return sel.Resolve(base), nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func valueOr(f label.Field, def int) label.Value {
	if !f.IsSet() {
		return label.Code(def)
	}
	return f.Value
}
