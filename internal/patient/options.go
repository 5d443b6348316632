package patient

import "github.com/abhisek/heartrisk/internal/label"

// Option is one entry of a categorical selector: the text shown to the user
// and the code the model expects.
type Option struct {
	Label string `json:"label"`
	Code  int    `json:"code"`
}

// Catalog is the ordered option list of one categorical field. The position
// of an option in Options equals its code for every built-in catalog.
type Catalog struct {
	Field   string   `json:"field"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// Labels returns the display labels in order.
func (c Catalog) Labels() []string {
	out := make([]string, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Label
	}
	return out
}

// Index returns the position of the option with the given code, or -1.
func (c Catalog) Index(code int) int {
	for i, o := range c.Options {
		if o.Code == code {
			return i
		}
	}
	return -1
}

// Decode resolves a widget value against the catalog. A label naming one of
// the options yields that option's code; anything else goes through
// label.Decode with def as the fallback.
func (c Catalog) Decode(v label.Value, def int) int {
	if d, ok := v.(label.Display); ok {
		for _, o := range c.Options {
			if o.Label == string(d) {
				return o.Code
			}
		}
	}
	return label.Decode(v, def)
}

// Has reports whether code is one of the catalog's codes.
func (c Catalog) Has(code int) bool {
	return c.Index(code) >= 0
}

var (
	Sex = Catalog{Field: "sex", Title: "Sex", Options: []Option{
		{"Female", 0}, {"Male", 1},
	}}

	ChestPain = Catalog{Field: "cp", Title: "Chest pain type", Options: []Option{
		{"Asymptomatic (0)", 0},
		{"Atypical angina (1)", 1},
		{"Non-anginal pain (2)", 2},
		{"Typical angina (3)", 3},
	}}

	FastingBloodSugar = Catalog{Field: "fbs", Title: "Fasting blood sugar > 120 mg/dl", Options: []Option{
		{"No", 0}, {"Yes", 1},
	}}

	RestECG = Catalog{Field: "restecg", Title: "Resting ECG result", Options: []Option{
		{"Normal (0)", 0},
		{"ST-T abnormality (1)", 1},
		{"Left ventricular hypertrophy (2)", 2},
	}}

	ExerciseAngina = Catalog{Field: "exng", Title: "Exercise induced angina", Options: []Option{
		{"No", 0}, {"Yes", 1},
	}}

	Slope = Catalog{Field: "slp", Title: "Slope of peak exercise ST segment", Options: []Option{
		{"Downsloping (0)", 0},
		{"Flat (1)", 1},
		{"Upsloping (2)", 2},
	}}

	MajorVessels = Catalog{Field: "caa", Title: "Number of major vessels (0-3)", Options: []Option{
		{"0", 0}, {"1", 1}, {"2", 2}, {"3", 3},
	}}

	Thalassemia = Catalog{Field: "thall", Title: "Thalassemia", Options: []Option{
		{"NULL/Unknown (0)", 0},
		{"Fixed defect (1)", 1},
		{"Normal (2)", 2},
		{"Reversible defect (3)", 3},
	}}
)

// Catalogs lists every categorical field in form order.
func Catalogs() []Catalog {
	return []Catalog{Sex, ChestPain, FastingBloodSugar, RestECG, ExerciseAngina, Slope, MajorVessels, Thalassemia}
}
