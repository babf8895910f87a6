// File: cmd/answers.go
package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BondarenkoCom/applyflow/internal/answerbank"
	"github.com/BondarenkoCom/applyflow/internal/engine"
)

func newAnswersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Manage the reviewed answer bank.",
	}
	cmd.AddCommand(
		newAnswersListCommand(),
		newAnswersAddCommand(),
		newAnswersProfileCommand(),
	)
	return cmd
}

func newAnswersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored answers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bank, err := answerbank.NewFromConfig(ctx, appConfig.Bank)
			if err != nil {
				return err
			}
			defer bank.Close()

			entries, err := bank.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tQUESTION\tANSWER")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Status, e.QRaw, e.Answer)
			}
			return w.Flush()
		},
	}
}

func newAnswersAddCommand() *cobra.Command {
	var observed bool

	cmd := &cobra.Command{
		Use:   "add <question> <answer>",
		Short: "Add or overwrite one answer.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question, answer := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			qNorm := engine.NormalizeQuestion(question)
			if qNorm == "" {
				return fmt.Errorf("question must not be empty")
			}

			bank, err := answerbank.NewFromConfig(ctx, appConfig.Bank)
			if err != nil {
				return err
			}
			defer bank.Close()

			status := answerbank.StatusConfirmed
			if observed {
				status = answerbank.StatusObserved
			}
			if err := bank.Upsert(ctx, answerbank.Entry{
				QNorm:  qNorm,
				QRaw:   question,
				Answer: answer,
				Status: status,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %q -> %q (%s)\n", question, answer, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&observed, "observed", false, "mark the answer as observed instead of confirmed")
	return cmd
}

func newAnswersProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [key value]",
		Short: "Show the profile key/value imprint, or set one value.",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bank, err := answerbank.NewFromConfig(ctx, appConfig.Bank)
			if err != nil {
				return err
			}
			defer bank.Close()

			if len(args) == 2 {
				if err := bank.SetProfileValue(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "set %s\n", args[0])
				return nil
			}
			if len(args) == 1 {
				return fmt.Errorf("pass a key and a value to set, or nothing to list")
			}

			profile, err := bank.LoadProfile(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for k, v := range profile {
				fmt.Fprintf(w, "%s\t%s\n", k, v)
			}
			return w.Flush()
		},
	}
}
