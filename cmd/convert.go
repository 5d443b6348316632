package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert xgb_model.bin to xgb_model.json in the working directory",
	Long: "Reads the legacy XGBoost binary model " + convert.DefaultSource +
		" and writes the equivalent JSON model " + convert.DefaultDest + ".\n" +
		"The output is replaced atomically, so rerunning is safe.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		err := convert.Convert(convert.DefaultSource, convert.DefaultDest, func(p convert.Progress) {
			fmt.Fprintln(out, p)
		})
		if errors.Is(err, convert.ErrInputMissing) {
			fmt.Fprintf(out, "Binary model not found at %s\n", convert.DefaultSource)
			exit(1)
			return nil
		}
		return err
	},
}

// exit is replaced in tests.
var exit = os.Exit
