package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/paramx/paramx/internal/config"
	"github.com/paramx/paramx/internal/gateway"
	"github.com/paramx/paramx/internal/logging"
	"github.com/paramx/paramx/internal/observability"
	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/paramx/paramx/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var configPath string
	var placement string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errors.New("config path is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if placement != "" {
				cfg.Extractor.Placement = placement
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runGateway(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&placement, "placement", "", "Override extractor placement: outer|dispatcher")

	return cmd
}

func runGateway(ctx context.Context, cfg *config.Config) error {
	log, closeLog, err := logging.New(cfg.Logging, cfg.ResolvePath(cfg.Logging.File))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	var metrics *observability.Metrics
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
	}

	dataDir := cfg.DataPath()
	rulesDAO := store.NewRulesDAO(dataDir)
	echoDAO := store.NewEchoDAO(dataDir)

	ruleSet, err := store.NewLive("rules", rulesDAO.Rules, log)
	if err != nil {
		return err
	}
	echoSet, err := store.NewLive("echo", echoDAO.Parameters, log)
	if err != nil {
		return err
	}
	ruleSet.OnReload(metrics.ObserveReload)
	echoSet.OnReload(metrics.ObserveReload)
	log.WithFields(logrus.Fields{
		"rules":     len(ruleSet.Get()),
		"echo":      len(echoSet.Get()),
		"placement": cfg.Extractor.Placement,
		"enabled":   cfg.Extractor.Enabled,
	}).Info("extraction configuration loaded")

	gw, err := gateway.New(cfg, gateway.Sets{Rules: ruleSet, Echo: echoSet}, log)
	if err != nil {
		return err
	}
	gw.SetMetrics(metrics)

	if cfg.Logging.RewriteLog != "" {
		recordLog, closeRecords := logging.OpenRecordLog(cfg.ResolvePath(cfg.Logging.RewriteLog), cfg.Logging.Rotation)
		defer func() { _ = closeRecords() }()
		gw.SetRecordLogger(recordLog)
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(signalCtx)

	if cfg.Extractor.Watch.Enabled {
		if err := followChanges(groupCtx, group, cfg, log, rulesDAO.Path(), echoDAO.Path(), ruleSet, echoSet); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           gw,
		ReadHeaderTimeout: 5 * time.Second,
	}
	group.Go(func() error {
		log.WithField("listen", cfg.Server.Listen).Info("gateway listening")
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.ResolvePath(cfg.Server.TLS.CertFile), cfg.ResolvePath(cfg.Server.TLS.KeyFile))
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	var metricsSrv *http.Server
	if metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	log.Info("gateway stopped")
	return err
}

// followChanges reloads the rule and echo sets whenever their files change.
func followChanges(
	ctx context.Context,
	group *errgroup.Group,
	cfg *config.Config,
	log logrus.FieldLogger,
	rulesPath, echoPath string,
	ruleSet *store.Live[[]*rules.Rule],
	echoSet *store.Live[[]rules.EchoParameter],
) error {
	if err := os.MkdirAll(filepath.Dir(rulesPath), 0o755); err != nil {
		return err
	}

	watcher, err := watch.New(watch.Config{Debounce: cfg.Extractor.Watch.Debounce, Log: log})
	if err != nil {
		return err
	}
	ruleChanges, err := watcher.Subscribe(rulesPath)
	if err != nil {
		_ = watcher.Close()
		return err
	}
	echoChanges, err := watcher.Subscribe(echoPath)
	if err != nil {
		_ = watcher.Close()
		return err
	}

	group.Go(func() error {
		ruleSet.Follow(ctx, ruleChanges)
		return nil
	})
	group.Go(func() error {
		echoSet.Follow(ctx, echoChanges)
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return watcher.Close()
	})
	return nil
}
