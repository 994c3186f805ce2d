package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/paramx/paramx/internal/transform"
	"github.com/spf13/cobra"
)

// applyResult is the dry-run outcome of running the rules on one URI.
type applyResult struct {
	Original   string     `json:"original" yaml:"original"`
	Rewritten  string     `json:"rewritten" yaml:"rewritten"`
	Changed    bool       `json:"changed" yaml:"changed"`
	FiredRules []string   `json:"fired_rules,omitempty" yaml:"fired_rules,omitempty"`
	Parameters url.Values `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func newApplyCmd() *cobra.Command {
	var data dataFlags
	var uri string
	var format string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Show how the extraction rules rewrite a request URI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uri == "" {
				return errors.New("--uri is required")
			}
			dir, err := data.resolve()
			if err != nil {
				return err
			}
			loaded, err := store.NewRulesDAO(dir).Rules()
			if err != nil {
				return err
			}
			result, err := dryRun(loaded, uri)
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, result)
		},
	}

	data.register(cmd)
	cmd.Flags().StringVar(&uri, "uri", "", "Request URI with optional query, e.g. /geoserver/tiger/wms/H11?SERVICE=WMS")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json")
	return cmd
}

func dryRun(loaded []*rules.Rule, uri string) (applyResult, error) {
	parsed, err := url.ParseRequestURI(uri)
	if err != nil {
		return applyResult{}, fmt.Errorf("invalid uri: %w", err)
	}

	t := transform.New(parsed.EscapedPath(), transform.ParseQuery(parsed.RawQuery))
	fired, applyErr := rules.NewEngine(loaded).Apply(t)

	result := applyResult{
		Original:   uri,
		Rewritten:  uri,
		FiredRules: fired,
	}
	if applyErr != nil {
		result.Error = applyErr.Error()
		return result, nil
	}
	if t.HaveChanged() {
		result.Changed = true
		result.Rewritten = t.String()
	}
	if params := t.Parameters(); params.Len() > 0 {
		result.Parameters = params.URLValues()
	}
	return result, nil
}
