package main

import (
	"errors"
	"fmt"

	"github.com/paramx/paramx/internal/config"
	"github.com/paramx/paramx/internal/store"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and its extraction rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errors.New("config path is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			loaded, err := store.NewRulesDAO(cfg.DataPath()).Rules()
			if err != nil {
				return err
			}
			for _, rule := range loaded {
				if err := rule.TemplateError(); err != nil {
					_, _ = fmt.Fprintf(out, "warning: rule %s fails when it matches (transform %q): %v\n", rule.ID, rule.Raw().Transform, err)
				}
			}
			echo, err := store.NewEchoDAO(cfg.DataPath()).Parameters()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(out, "config ok (%d rules, %d echo parameters)\n", len(loaded), len(echo))
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}
