package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/chorecal/choreclient"
)

const defaultServerURL = "http://localhost:8080"

type clientFlags struct {
	serverURL string
	secret    string
}

func (c *CLI) newTaskCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with the tasks of a running server",
	}

	serverURL := os.Getenv("CHORECAL_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	cmd.PersistentFlags().StringVarP(&flags.serverURL, "server", "s", serverURL, "Base URL of the chored server")
	cmd.PersistentFlags().StringVar(&flags.secret, "secret", "", "Shared secret (default auth.secret from the configuration)")

	cmd.AddCommand(c.newTaskListCmd(&flags))
	cmd.AddCommand(c.newTaskCompleteCmd(&flags))
	return cmd
}

func (c *CLI) newClient(flags *clientFlags) (*choreclient.Client, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	secret := flags.secret
	if secret == "" {
		secret = cfg.Auth.Secret
	}

	var opts []choreclient.Option
	if secret != "" {
		opts = append(opts, choreclient.WithSecret(cfg.Auth.Header, secret))
	}
	return choreclient.New(flags.serverURL, opts...)
}

func (c *CLI) newTaskListCmd(flags *clientFlags) *cobra.Command {
	var opts choreclient.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.newClient(flags)
			if err != nil {
				return err
			}
			tasks, err := client.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tASSIGNEE\tDUE\tOVERDUE")
			for _, t := range tasks {
				due := "-"
				if !t.NextDueDate.IsZero() {
					due = formatInstant(t.NextDueDate)
				}
				overdue := ""
				if t.IsOverdue(now) {
					overdue = "yes"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Assignee, due, overdue)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&opts.Overdue, "overdue", false, "Only overdue tasks")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Only tasks in this category")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "Only tasks assigned to this person")
	return cmd
}

func (c *CLI) newTaskCompleteCmd(flags *clientFlags) *cobra.Command {
	var author, at string
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient(flags)
			if err != nil {
				return err
			}
			opts := choreclient.CompleteOptions{Author: author}
			if at != "" {
				opts.At, err = parseInstant(at, time.UTC, time.Time{})
				if err != nil {
					return err
				}
			}

			t, err := client.Complete(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s next due %s\n", t.ID, formatInstant(t.NextDueDate))
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Who did it (default the task assignee)")
	cmd.Flags().StringVar(&at, "at", "", "When it was done (RFC 3339 or YYYY-MM-DD, default now)")
	return cmd
}
