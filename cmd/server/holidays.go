package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func holidaysCmd() *cobra.Command {
	var (
		days  int
		limit int
	)
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List upcoming holidays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			list, err := a.fetcher.Upcoming(cmd.Context(), a.clock.Now(), time.Duration(days)*24*time.Hour, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Printf("No holidays in the next %d days\n", days)
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tNAME\tTYPE")
			for _, h := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Date, h.Name, h.Type)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "how many days ahead to look")
	cmd.Flags().IntVar(&limit, "limit", 15, "maximum number of holidays to print")
	return cmd
}
