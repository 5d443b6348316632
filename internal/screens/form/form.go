// Package form implements the patient input screen: thirteen clinical
// attributes, an optional pre-filled example and the predict action.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/label"
	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/result"
	"github.com/abhisek/heartrisk/internal/store"
	"github.com/abhisek/heartrisk/internal/ui/components"
	"github.com/abhisek/heartrisk/internal/ui/layout"
	"github.com/abhisek/heartrisk/internal/ui/theme"
)

const predictTimeout = 10 * time.Second

// field is one row of the form: a numeric input or a catalog picker.
type field struct {
	key     string
	label   string
	input   components.TextInput
	sel     components.Select
	catalog *patient.Catalog
}

func (f *field) numeric() bool { return f.catalog == nil }

// predictionDoneMsg carries the adapter outcome back to the screen.
type predictionDoneMsg struct {
	rec features.Record
	res predict.Result
	err error
}

// FormScreen collects patient attributes and runs a prediction.
type FormScreen struct {
	deps     screen.Deps
	example  string
	defaults patient.Form

	fields []field
	focus  int // len(fields) focuses the predict button

	modelErr   error
	submitting bool
	errMsg     string
}

var _ screen.Screen = (*FormScreen)(nil)
var _ screen.KeyHintProvider = (*FormScreen)(nil)

// New creates a form pre-filled with patient.Defaults.
func New(deps screen.Deps) *FormScreen {
	return newForm(deps, "", patient.Defaults())
}

// NewWithExample creates a form pre-filled with the named example patient.
// The example's values also become the fallback codes of the label decoder.
func NewWithExample(deps screen.Deps, name string) (*FormScreen, error) {
	f, ok := patient.LookupExample(name)
	if !ok {
		return nil, fmt.Errorf("unknown example %q", name)
	}
	return newForm(deps, name, f), nil
}

func newForm(deps screen.Deps, example string, base patient.Form) *FormScreen {
	s := &FormScreen{
		deps:     deps,
		example:  example,
		defaults: base,
	}
	s.fields = []field{
		numericField("age", "Age", strconv.Itoa(base.Age), 3, false),
		catalogField(&patient.Sex, base.Sex),
		catalogField(&patient.ChestPain, base.ChestPain),
		numericField("trtbps", "Resting blood pressure (mm Hg)", strconv.Itoa(base.RestingBP), 3, false),
		numericField("chol", "Cholesterol (mg/dl)", strconv.Itoa(base.Chol), 3, false),
		catalogField(&patient.FastingBloodSugar, base.FastingBloodSugar),
		catalogField(&patient.RestECG, base.RestECG),
		numericField("thalachh", "Maximum heart rate achieved", strconv.Itoa(base.MaxHR), 3, false),
		catalogField(&patient.ExerciseAngina, base.ExerciseAngina),
		numericField("oldpeak", "ST depression (oldpeak)", strconv.FormatFloat(base.Oldpeak, 'f', 1, 64), 4, true),
		catalogField(&patient.Slope, base.Slope),
		catalogField(&patient.MajorVessels, base.MajorVessels),
		catalogField(&patient.Thalassemia, base.Thalassemia),
	}
	s.setFocus(0)
	return s
}

func numericField(key, title, value string, width int, decimal bool) field {
	ti := components.NewTextInput(title, true, width)
	ti.Decimal = decimal
	ti.SetValue(value)
	return field{key: key, label: title, input: ti}
}

func catalogField(c *patient.Catalog, code int) field {
	return field{
		key:     c.Field,
		label:   c.Title,
		sel:     components.NewSelect(c.Labels(), c.Index(code)),
		catalog: c,
	}
}

func (s *FormScreen) Init() tea.Cmd {
	return screen.CheckModel(s.deps.Model)
}

func (s *FormScreen) Title() string {
	if s.example != "" {
		return s.example
	}
	return "Assessment"
}

func (s *FormScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Field"},
		{Key: "←→", Description: "Option"},
		{Key: "Ctrl+S", Description: "Predict"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *FormScreen) setFocus(i int) tea.Cmd {
	if i < 0 {
		i = 0
	}
	if i > len(s.fields) {
		i = len(s.fields)
	}
	var cmd tea.Cmd
	for j := range s.fields {
		f := &s.fields[j]
		active := j == i
		if f.numeric() {
			if active {
				cmd = f.input.Focus()
			} else {
				f.input.Blur()
			}
		} else {
			f.sel.Focused = active
		}
	}
	s.focus = i
	return cmd
}

func (s *FormScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.ModelStatusMsg:
		s.modelErr = msg.Err
		return s, nil

	case predictionDoneMsg:
		return s, s.finish(msg)

	case tea.KeyMsg:
		if s.submitting {
			return s, nil
		}
		switch msg.String() {
		case "up", "shift+tab":
			return s, s.setFocus(s.focus - 1)
		case "down", "tab":
			return s, s.setFocus(s.focus + 1)
		case "ctrl+s":
			return s, s.submit()
		case "enter":
			if s.focus == len(s.fields) {
				return s, s.submit()
			}
			return s, s.setFocus(s.focus + 1)
		}
		if s.focus < len(s.fields) {
			var cmd tea.Cmd
			f := &s.fields[s.focus]
			if f.numeric() {
				f.input, cmd = f.input.Update(msg)
			} else {
				f.sel, cmd = f.sel.Update(msg)
			}
			return s, cmd
		}
	}
	return s, nil
}

// Selections reads the raw widget values. Numeric inputs that do not parse
// are returned by key in bad.
func (s *FormScreen) Selections() (sel patient.Selections, bad []string) {
	ints := map[string]*int{
		"age":      &sel.Age,
		"trtbps":   &sel.RestingBP,
		"chol":     &sel.Chol,
		"thalachh": &sel.MaxHR,
	}
	cats := map[string]*label.Value{
		patient.Sex.Field:               &sel.Sex,
		patient.ChestPain.Field:         &sel.ChestPain,
		patient.FastingBloodSugar.Field: &sel.FastingBloodSugar,
		patient.RestECG.Field:           &sel.RestECG,
		patient.ExerciseAngina.Field:    &sel.ExerciseAngina,
		patient.Slope.Field:             &sel.Slope,
		patient.MajorVessels.Field:      &sel.MajorVessels,
		patient.Thalassemia.Field:       &sel.Thalassemia,
	}

	for i := range s.fields {
		f := &s.fields[i]
		switch {
		case f.key == "oldpeak":
			v, err := f.input.FloatValue()
			if err != nil {
				bad = append(bad, f.key)
				continue
			}
			sel.Oldpeak = v
		case f.numeric():
			v, err := f.input.NumericValue()
			if err != nil {
				bad = append(bad, f.key)
				continue
			}
			*ints[f.key] = v
		default:
			*cats[f.key] = label.Display(f.sel.Value())
		}
	}
	return sel, bad
}

func (s *FormScreen) markInvalid(keys []string) {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	for i := range s.fields {
		if s.fields[i].numeric() {
			s.fields[i].input.MarkInvalid(set[s.fields[i].key])
		}
	}
}

func (s *FormScreen) submit() tea.Cmd {
	sel, bad := s.Selections()
	if len(bad) > 0 {
		s.markInvalid(bad)
		s.errMsg = "Enter a number for: " + strings.Join(bad, ", ")
		return nil
	}

	form := sel.Resolve(s.defaults)
	if err := form.Validate(); err != nil {
		var ve *patient.ValidationError
		if errors.As(err, &ve) {
			keys := make([]string, len(ve.Fields))
			msgs := make([]string, len(ve.Fields))
			for i, fe := range ve.Fields {
				keys[i] = fe.Field
				msgs[i] = fe.Field + " " + fe.Message
			}
			s.markInvalid(keys)
			s.errMsg = strings.Join(msgs, "; ")
		} else {
			s.errMsg = err.Error()
		}
		return nil
	}

	s.markInvalid(nil)
	s.errMsg = ""
	s.submitting = true

	deps := s.deps
	rec := form.Features()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), predictTimeout)
		defer cancel()

		res, err := deps.Adapter.Predict(ctx, rec)
		if deps.Events != nil {
			ev := store.PredictionFromResult(deps.SessionID, deps.Model.Path(), rec, res, err, deps.Clock())
			if _, aerr := deps.Events.AppendPrediction(ctx, ev); aerr != nil {
				deps.Log().Warn("record prediction", "error", aerr)
			}
		}
		return predictionDoneMsg{rec: rec, res: res, err: err}
	}
}

func (s *FormScreen) finish(msg predictionDoneMsg) tea.Cmd {
	s.submitting = false
	if msg.err != nil {
		var unavailable *predict.ModelUnavailableError
		if errors.As(msg.err, &unavailable) {
			s.modelErr = unavailable.Err
		}
		s.errMsg = predict.UserMessage(msg.err)
		return nil
	}

	if s.deps.Session != nil {
		if err := s.deps.Session.Save(msg.rec, msg.res, s.deps.Clock()); err != nil {
			s.deps.Log().Warn("save session", "error", err)
		}
	}
	res := result.New(s.deps, msg.rec, msg.res)
	return func() tea.Msg { return router.PushScreenMsg{Screen: res} }
}

func (s *FormScreen) View(width, height int) string {
	var b strings.Builder

	if s.modelErr != nil {
		banner := theme.ErrorBanner.Width(min(width-4, 76)).
			Render("Model failed to load: " + s.modelErr.Error())
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, banner))
		b.WriteString("\n")
	}

	if s.example != "" {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.Subtitle.Render("Loaded: "+s.example)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim).Width(36)
	for i := range s.fields {
		f := &s.fields[i]
		prefix := "  "
		if i == s.focus {
			prefix = theme.Selected.Render("▸ ")
			labelStyle = labelStyle.Foreground(theme.Text)
		} else {
			labelStyle = labelStyle.Foreground(theme.TextDim)
		}
		var value string
		if f.numeric() {
			value = f.input.View()
		} else {
			value = f.sel.View()
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Width(76).Render(prefix+labelStyle.Render(f.label)+value)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	label := "Predict"
	if s.submitting {
		label = "Predicting..."
	}
	btn := components.NewButton(label, s.focus == len(s.fields), nil)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, btn.View()))
	b.WriteString("\n")

	if s.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Error).Width(min(width-4, 76)).Render(s.errMsg)))
	}

	return b.String()
}
