// Package commands implements the chored CLI commands.
package commands

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyp0633/chorecal/internal/config"
)

// Version is set at build time.
var Version = "dev"

// CLI represents the command line interface for chored.
type CLI struct {
	rootCmd    *cobra.Command
	configPath string
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "chored",
		Short:         "Household chore scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	c := &CLI{rootCmd: rootCmd}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("CHORECAL_CONFIG"),
		"Path to the YAML configuration file")

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newNextCmd())
	rootCmd.AddCommand(c.newOccurrencesCmd())
	rootCmd.AddCommand(c.newTaskCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}
