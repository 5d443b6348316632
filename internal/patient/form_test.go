package patient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/label"
)

func TestExamples_Features(t *testing.T) {
	low, ok := LookupExample(LowRiskExample)
	require.True(t, ok)
	assert.Equal(t, features.Assemble(2, 0, 0, 0.0, 0, 180, 150), low.Features())

	high, ok := LookupExample(HighRiskExample)
	require.True(t, ok)
	assert.Equal(t, features.Assemble(3, 2, 3, 3.0, 1, 300, 120), high.Features())

	_, ok = LookupExample("Medium risk example")
	assert.False(t, ok)
}

func TestExamples_Order(t *testing.T) {
	ex := Examples()
	require.Len(t, ex, 2)
	assert.Equal(t, LowRiskExample, ex[0].Name)
	assert.Equal(t, HighRiskExample, ex[1].Name)
}

func TestExamplesAndDefaultsAreValid(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
	for _, e := range Examples() {
		assert.NoError(t, e.Form.Validate(), e.Name)
	}
}

func TestSelections_ResolveLabels(t *testing.T) {
	sel := Selections{
		Age:               64,
		Sex:               label.Display("Male"),
		ChestPain:         label.Display("Typical angina (3)"),
		RestingBP:         160,
		Chol:              300,
		FastingBloodSugar: label.Display("Yes"),
		RestECG:           label.Display("ST-T abnormality (1)"),
		MaxHR:             120,
		ExerciseAngina:    label.Display("Yes"),
		Oldpeak:           3.0,
		Slope:             label.Display("Downsloping (0)"),
		MajorVessels:      label.Code(2),
		Thalassemia:       label.Display("Reversible defect (3)"),
	}
	high, _ := LookupExample(HighRiskExample)
	assert.Equal(t, high, sel.Resolve(Defaults()))
}

func TestSelections_ResolveFallsBackToDefaults(t *testing.T) {
	defaults := Defaults()
	sel := Selections{
		Age:          50,
		Sex:          label.Display("Female"),
		ChestPain:    label.Display("Unknown pain"),
		RestECG:      nil,
		Slope:        label.Display("Flat"),
		MajorVessels: label.Code(1),
		Thalassemia:  label.Display("Normal"),
	}
	f := sel.Resolve(defaults)
	assert.Equal(t, 0, f.Sex)
	assert.Equal(t, defaults.ChestPain, f.ChestPain)
	assert.Equal(t, defaults.RestECG, f.RestECG)
	assert.Equal(t, defaults.Slope, f.Slope)
	assert.Equal(t, 1, f.MajorVessels)
	assert.Equal(t, defaults.Thalassemia, f.Thalassemia)
}

func TestCatalog_Decode(t *testing.T) {
	assert.Equal(t, 1, Sex.Decode(label.Display("Male"), 0))
	assert.Equal(t, 0, Sex.Decode(label.Display("Female"), 1))
	assert.Equal(t, 1, ExerciseAngina.Decode(label.Code(1), 0))
	assert.Equal(t, 2, Slope.Decode(label.Display("Upsloping (2)"), 1))
	assert.Equal(t, 3, Thalassemia.Decode(label.Display("something (3)"), 2))
}

func TestCatalog_IndexMatchesCode(t *testing.T) {
	for _, c := range Catalogs() {
		for i, o := range c.Options {
			assert.Equal(t, i, c.Index(o.Code), "%s/%s", c.Field, o.Label)
		}
		assert.Equal(t, -1, c.Index(99), c.Field)
	}
}

func TestCatalog_LabelsDecodeToCodes(t *testing.T) {
	for _, c := range []Catalog{ChestPain, RestECG, Slope, Thalassemia, MajorVessels} {
		for _, o := range c.Options {
			assert.Equal(t, o.Code, label.Decode(label.Display(o.Label), -1), o.Label)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		fields []string
	}{
		{"age too low", func(f *Form) { f.Age = 0 }, []string{"age"}},
		{"age too high", func(f *Form) { f.Age = 121 }, []string{"age"}},
		{"bp bounds", func(f *Form) { f.RestingBP = 301 }, []string{"trtbps"}},
		{"chol bounds", func(f *Form) { f.Chol = 49 }, []string{"chol"}},
		{"max hr bounds", func(f *Form) { f.MaxHR = 251 }, []string{"thalachh"}},
		{"oldpeak negative", func(f *Form) { f.Oldpeak = -0.1 }, []string{"oldpeak"}},
		{"oldpeak upper edge ok", func(f *Form) { f.Oldpeak = 10.0 }, nil},
		{"bad chest pain code", func(f *Form) { f.ChestPain = 4 }, []string{"cp"}},
		{"bad thal code", func(f *Form) { f.Thalassemia = -1 }, []string{"thall"}},
		{"several", func(f *Form) { f.Age = 200; f.Sex = 2; f.MajorVessels = 4 }, []string{"age", "sex", "caa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Defaults()
			tt.mutate(&f)
			err := f.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var got []string
			for _, fe := range verr.Fields {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
