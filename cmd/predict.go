package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/config"
	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/label"
	"github.com/abhisek/heartrisk/internal/logging"
	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/store"
)

// predictOutput is the --json rendering of one prediction.
type predictOutput struct {
	Input       features.Record `json:"input"`
	ProbNoEvent float64         `json:"prob_no_event"`
	ProbEvent   float64         `json:"prob_event"`
	HighRisk    bool            `json:"high_risk"`
	Risk        string          `json:"risk"`
}

// Numeric flags and the categorical ones, which take a code or a display
// label such as "Typical angina (3)".
var (
	intFlags = []struct{ name, usage string }{
		{"age", "Age in years"},
		{"trtbps", "Resting blood pressure (mm Hg)"},
		{"chol", "Serum cholesterol (mg/dl)"},
		{"thalachh", "Maximum heart rate achieved"},
	}
	labelFlags = []patient.Catalog{
		patient.Sex, patient.ChestPain, patient.FastingBloodSugar, patient.RestECG,
		patient.ExerciseAngina, patient.Slope, patient.MajorVessels, patient.Thalassemia,
	}
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score one patient and print the risk",
	Example: `  heartrisk predict --example "High risk example"
  heartrisk predict --age 58 --cp "Typical angina (3)" --thall 3 --caa 1 --oldpeak 2.3 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.New(os.Stderr, cfg.Logging)

		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		form, err := in.Resolve()
		if err != nil {
			return err
		}
		if err := form.Validate(); err != nil {
			return err
		}
		rec := form.Features()

		handle := model.NewHandle(cfg.ModelPath, model.Load, logger)
		adapter := predict.New(handle, predict.WithLogger(logger))
		res, perr := adapter.Predict(cmd.Context(), rec)

		recordCLIPrediction(cmd.Context(), cfg, handle.Path(), rec, res, perr, logger)

		if perr != nil {
			return errors.New(predict.UserMessage(perr))
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return printResult(cmd.OutOrStdout(), rec, res, asJSON)
	},
}

func init() {
	f := predictCmd.Flags()
	f.String("example", "", fmt.Sprintf("Start from a bundled example: %q or %q", patient.LowRiskExample, patient.HighRiskExample))
	for _, fl := range intFlags {
		f.Int(fl.name, 0, fl.usage)
	}
	f.Float64("oldpeak", 0, "ST depression induced by exercise relative to rest")
	for _, c := range labelFlags {
		f.String(c.Field, "", fmt.Sprintf("%s: %s", c.Title, strings.Join(c.Labels(), ", ")))
	}
	f.Bool("json", false, "Print the result as JSON")
}

// inputFromFlags collects the flags the user set. Unset flags fall back to
// the example or the form defaults.
func inputFromFlags(cmd *cobra.Command) (patient.Input, error) {
	f := cmd.Flags()
	var in patient.Input
	in.Example, _ = f.GetString("example")

	ints := map[string]**int{
		"age":      &in.Age,
		"trtbps":   &in.RestingBP,
		"chol":     &in.Chol,
		"thalachh": &in.MaxHR,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return patient.Input{}, err
		}
		*dst = &v
	}
	if f.Changed("oldpeak") {
		v, err := f.GetFloat64("oldpeak")
		if err != nil {
			return patient.Input{}, err
		}
		in.Oldpeak = &v
	}

	labels := map[string]*label.Field{
		patient.Sex.Field:               &in.Sex,
		patient.ChestPain.Field:         &in.ChestPain,
		patient.FastingBloodSugar.Field: &in.FastingBloodSugar,
		patient.RestECG.Field:           &in.RestECG,
		patient.ExerciseAngina.Field:    &in.ExerciseAngina,
		patient.Slope.Field:             &in.Slope,
		patient.MajorVessels.Field:      &in.MajorVessels,
		patient.Thalassemia.Field:       &in.Thalassemia,
	}
	for name, dst := range labels {
		if !f.Changed(name) {
			continue
		}
		v, _ := f.GetString(name)
		dst.Value = label.Parse(v)
	}
	return in, nil
}

func printResult(w io.Writer, rec features.Record, res predict.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(predictOutput{
			Input:       rec,
			ProbNoEvent: res.ProbNoEvent,
			ProbEvent:   res.ProbEvent,
			HighRisk:    res.HighRisk,
			Risk:        res.RiskLabel(),
		})
	}

	fmt.Fprintf(w, "Input:                          %s\n", rec)
	fmt.Fprintf(w, "Probability of no heart attack: %.3f\n", res.ProbNoEvent)
	fmt.Fprintf(w, "Probability of heart attack:    %.3f\n", res.ProbEvent)
	fmt.Fprintf(w, "Risk:                           %d%%\n", res.RiskPercent())
	fmt.Fprintln(w, res.RiskLabel())
	return nil
}

// recordCLIPrediction appends the attempt to the history store. Failures
// are logged, never returned.
func recordCLIPrediction(ctx context.Context, cfg config.Config, modelPath string, rec features.Record, res predict.Result, perr error, logger *slog.Logger) {
	st, err := openHistory(cfg)
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	if st == nil {
		return
	}
	defer st.Close()
	ev := store.PredictionFromResult("cli-"+session.NewID(), modelPath, rec, res, perr, time.Now())
	if _, err := st.EventRepo().AppendPrediction(ctx, ev); err != nil {
		logger.Warn("record prediction", "error", err)
	}
}
