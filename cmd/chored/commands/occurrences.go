package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/cyp0633/chorecal/recurrence"
)

func (c *CLI) newOccurrencesCmd() *cobra.Command {
	var (
		flags    scheduleFlags
		anchor   string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List the occurrences of a schedule in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			engine, err := offlineEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			loc := engine.Location()
			s, err := flags.schedule(loc)
			if err != nil {
				return err
			}
			start, err := recurrence.ParseDate(from, loc)
			if err != nil {
				return zerr.Wrap(err, "invalid --from")
			}
			end, err := recurrence.ParseDate(to, loc)
			if err != nil {
				return zerr.Wrap(err, "invalid --to")
			}
			if !start.Before(end) {
				return zerr.New("--from must be before --to")
			}
			at, err := parseInstant(anchor, loc, time.Now().In(loc))
			if err != nil {
				return err
			}

			for _, occ := range engine.Occurrences(s, at, start.In(loc), end.In(loc)) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatInstant(occ))
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&anchor, "anchor", "", "First occurrence (RFC 3339 or YYYY-MM-DD, default now)")
	cmd.Flags().StringVar(&from, "from", "", "First date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Date after the range (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
