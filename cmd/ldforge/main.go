// Package main provides the ldforge binary: the JSON-LD engine as a
// command line tool and an HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/config"
	"sourcery.dny.nu/ldforge/loader"
	"sourcery.dny.nu/ldforge/registry"
)

const appName = "ldforge"

// Set at build time with -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range ldforge.Hints(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// app holds what the commands share. It's populated before any command
// runs.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *prometheus.Registry
	proc    *ldforge.Processor
	closers []func() error
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "JSON-LD processing engine",
		Long: `ldforge expands, compacts, flattens and frames JSON-LD documents,
converts them to RDF and validates them against SHACL shapes.

Documents are read from the file given as argument, or from stdin when
there is none or it is "-".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config file")

	cmd.AddCommand(
		expandCmd(a),
		compactCmd(a),
		flattenCmd(a),
		frameCmd(a),
		nquadsCmd(a),
		canonicalCmd(a),
		turtleCmd(a),
		yamlCmd(a),
		validateCmd(a),
		registerCmd(a),
		serveCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a.metrics = prometheus.NewRegistry()
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return nil
}

// processor connects to the registry store and builds the processor on
// first use, so that commands which don't need one don't fail on an
// unreachable store.
func (a *app) processor(ctx context.Context) (*ldforge.Processor, error) {
	if a.proc != nil {
		return a.proc, nil
	}

	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	l := loader.New(
		loader.WithHTTPClient(&http.Client{Timeout: a.cfg.Loader.Timeout}),
		loader.WithProxies(a.cfg.Loader.Proxies...),
		loader.WithLogger(a.logger),
		loader.WithMetrics(a.metrics),
	)

	resolver := ldforge.NewResolver(store,
		ldforge.WithLoader(l.Load),
		ldforge.WithResolverLogger(a.logger),
		ldforge.WithMetrics(a.metrics),
	)
	if err := resolver.Load(ctx); err != nil {
		return nil, fmt.Errorf("load context registry: %w", err)
	}

	a.proc = ldforge.NewProcessor(
		ldforge.WithResolver(resolver),
		ldforge.WithLogger(a.logger),
	)
	return a.proc, nil
}

func (a *app) store(ctx context.Context) (registry.Store, error) {
	switch a.cfg.Registry.Backend {
	case config.BackendFile:
		return registry.NewFile(a.cfg.Registry.Path), nil
	case config.BackendRedis:
		r, err := registry.NewRedis(ctx, registry.RedisOptions{
			URL: a.cfg.Registry.RedisURL,
			Key: a.cfg.Registry.Key,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	default:
		return registry.NewMemory(), nil
	}
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
