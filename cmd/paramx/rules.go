package main

import (
	"fmt"

	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage extraction rules",
	}
	data.register(cmd)

	cmd.AddCommand(newRulesListCmd(&data))
	cmd.AddCommand(newRulesAddCmd(&data))
	cmd.AddCommand(newRulesDeleteCmd(&data))
	return cmd
}

func newRulesListCmd(data *dataFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extraction rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			raws, err := store.NewRulesDAO(dir).Raw()
			if err != nil {
				return err
			}
			if raws == nil {
				raws = []rules.RawRule{}
			}
			return writeFormatted(cmd.OutOrStdout(), format, raws)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json")
	return cmd
}

func newRulesAddCmd(data *dataFlags) *cobra.Command {
	var raw rules.RawRule
	var activated, repeat bool
	var position, remove int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule or replace the rule with the same id",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("activated") {
				raw.Activated = &activated
			}
			if flags.Changed("position") {
				raw.Position = &position
			}
			if flags.Changed("remove") {
				raw.Remove = &remove
			}
			if flags.Changed("repeat") {
				raw.Repeat = &repeat
			}

			if err := store.NewRulesDAO(dir).SaveOrUpdate(raw); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rule %s saved\n", raw.ID)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&raw.ID, "id", "", "Rule id")
	flags.BoolVar(&activated, "activated", true, "Whether the rule is applied")
	flags.IntVar(&position, "position", 0, "1-based path segment to extract (exclusive with --match)")
	flags.StringVar(&raw.Match, "match", "", "Regular expression matched against the request path")
	flags.StringVar(&raw.Activation, "activation", "", "Regular expression the path must match for the rule to run")
	flags.StringVar(&raw.Parameter, "parameter", "", "Query parameter to set")
	flags.StringVar(&raw.Transform, "transform", "", "Value template using $n group references")
	flags.IntVar(&remove, "remove", 1, "Group removed from the path")
	flags.StringVar(&raw.Combine, "combine", "", "Template merging an existing value ($1) with the new one ($2)")
	flags.BoolVar(&repeat, "repeat", false, "Combine once per element of LAYERS")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newRulesDeleteCmd(data *dataFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete rules by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			if err := store.NewRulesDAO(dir).Delete(args...); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) deleted\n", len(args))
			return err
		},
	}
}

func newEchoCmd() *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Manage parameters echoed into capabilities documents",
	}
	data.register(cmd)

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List echo parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			raws, err := store.NewEchoDAO(dir).Raw()
			if err != nil {
				return err
			}
			if raws == nil {
				raws = []rules.RawEchoParameter{}
			}
			return writeFormatted(cmd.OutOrStdout(), format, raws)
		},
	}
	list.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json")

	var raw rules.RawEchoParameter
	var activated bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an echo parameter or replace the one with the same id",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("activated") {
				raw.Activated = &activated
			}
			if err := store.NewEchoDAO(dir).SaveOrUpdate(raw); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "echo parameter %s saved\n", raw.ID)
			return err
		},
	}
	add.Flags().StringVar(&raw.ID, "id", "", "Echo parameter id")
	add.Flags().StringVar(&raw.Parameter, "parameter", "", "Parameter name")
	add.Flags().BoolVar(&activated, "activated", true, "Whether the parameter is echoed")
	_ = add.MarkFlagRequired("id")

	del := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete echo parameters by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			if err := store.NewEchoDAO(dir).Delete(args...); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d echo parameter(s) deleted\n", len(args))
			return err
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}
