package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/paramx/paramx/internal/config"
	"github.com/paramx/paramx/internal/rules"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "paramx",
		Short:        "OWS parameter extraction gateway",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newEchoCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func printError(err error) {
	var verr *config.ValidationError
	var rerr *rules.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, msg := range verr.Problems {
			fmt.Fprintln(os.Stderr, msg)
		}
	case errors.As(err, &rerr):
		fmt.Fprintln(os.Stderr, err)
		for _, msg := range rerr.Problems {
			fmt.Fprintln(os.Stderr, "  "+msg)
		}
	default:
		fmt.Fprintln(os.Stderr, err)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version=%s commit=%s buildDate=%s\n", version, commit, buildDate)
		},
	}
}
