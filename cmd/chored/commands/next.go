package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newNextCmd() *cobra.Command {
	var (
		flags scheduleFlags
		from  string
	)
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Compute the next due date of a schedule",
		Long: "Compute the next due date of a schedule without a server. The date is\n" +
			"moved past holidays and exception dates.",
		Args: cobra.NoArgs,
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
			ref, err := parseInstant(from, loc, time.Now().In(loc))
			if err != nil {
				return err
			}

			out := engine.Evaluate(s, ref)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatInstant(out.Due))
			if note := describeFallback(out); note != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), note)
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&from, "from", "", "Reference instant (RFC 3339 or YYYY-MM-DD, default now)")
	return cmd
}
