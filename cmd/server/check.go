package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var (
		manual bool
		role   string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the holiday check once and exit",
		Long: `Run the holiday check once, print the result as JSON and exit.

Without --manual the check is skipped when today is already done, exactly
like the scheduled run. With --manual it always runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			res := a.checker.RunCheck(cmd.Context(), manual, role)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&manual, "manual", false, "ignore today's done marker")
	cmd.Flags().StringVar(&role, "role", "", "role to mention (default everyone)")
	return cmd
}
