package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/paramx/paramx/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// dataFlags locate the data directory either directly or through a config file.
type dataFlags struct {
	configPath string
	dataDir    string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Data directory holding params-extractor/ (overrides config)")
}

func (f *dataFlags) resolve() (string, error) {
	if f.dataDir != "" {
		return f.dataDir, nil
	}
	if f.configPath == "" {
		return "", errors.New("config path or data dir is required")
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return "", err
	}
	if cfg.DataDir == "" {
		return "", errors.New("dataDir is required")
	}
	return cfg.DataPath(), nil
}

func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
