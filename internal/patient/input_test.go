package patient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_EmptyResolvesToDefaults(t *testing.T) {
	f, err := Input{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), f)
}

func TestInput_ExampleBase(t *testing.T) {
	f, err := Input{Example: HighRiskExample}.Resolve()
	require.NoError(t, err)
	want, _ := LookupExample(HighRiskExample)
	assert.Equal(t, want, f)

	_, err = Input{Example: "Medium risk example"}.Resolve()
	assert.ErrorContains(t, err, "unknown example")
}

func TestInput_JSON(t *testing.T) {
	body := `{
		"example": "Low risk example",
		"age": 70,
		"cp": "Typical angina (3)",
		"thall": 1,
		"slp": "Flat",
		"caa": "2 vessels",
		"oldpeak": 2.5
	}`
	var in Input
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	f, err := in.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 70, f.Age)
	assert.Equal(t, 3, f.ChestPain)
	assert.Equal(t, 1, f.Thalassemia)
	// "Flat" is not a catalog label and carries no digits, so the
	// example's slope is the fallback.
	assert.Equal(t, 2, f.Slope)
	assert.Equal(t, 2, f.MajorVessels)
	assert.Equal(t, 2.5, f.Oldpeak)
	// Untouched fields come from the example.
	assert.Equal(t, 180, f.Chol)
	assert.Equal(t, 150, f.MaxHR)
}

func TestInput_ExactCatalogLabel(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"sex":"Female","exng":"Yes"}`), &in))
	f, err := in.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Sex)
	assert.Equal(t, 1, f.ExerciseAngina)
}
