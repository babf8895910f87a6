// File: cmd/replay.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BondarenkoCom/applyflow/internal/engine"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <snapshot.html>",
		Short: "Re-survey a captured HTML snapshot offline.",
		Long: `Replay parses a debug snapshot and prints the controls, the required
questions still unanswered, and the advance button the walker would pick.
Useful for diagnosing a needs_manual outcome without reopening the browser.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open snapshot: %w", err)
			}
			defer f.Close()

			raws, buttons, err := engine.SurveyHTML(f)
			if err != nil {
				return err
			}
			controls := engine.BuildControls(raws)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "controls: %d (from %d elements)\n", len(controls), len(raws))
			for _, c := range controls {
				marker := " "
				if c.Required && c.Value == "" {
					marker = "!"
				}
				fmt.Fprintf(out, "  %s [%s] %q value=%q\n", marker, c.Kind, c.Question, c.Value)
			}

			missing := engine.RequiredEmpty(controls)
			fmt.Fprintf(out, "required and empty: %d\n", len(missing))
			for _, c := range missing {
				m := engine.AsMissing(c)
				fmt.Fprintf(out, "  - %q (%s/%s) options=%v\n", m.Question, m.Tag, m.Type, m.Options)
			}

			if btn, ok := engine.ChooseAdvance(buttons); ok {
				fmt.Fprintf(out, "advance button: %q (disabled=%v)\n", btn.Text, btn.Disabled)
			} else {
				fmt.Fprintln(out, "advance button: none found")
			}
			return nil
		},
	}
}
