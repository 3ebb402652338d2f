// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sirseerhq/cf-tracker/internal/analytics"
	"github.com/sirseerhq/cf-tracker/internal/cache"
	"github.com/sirseerhq/cf-tracker/internal/catalog"
	"github.com/sirseerhq/cf-tracker/internal/config"
	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/observability"
	"github.com/sirseerhq/cf-tracker/internal/output"
	"github.com/sirseerhq/cf-tracker/internal/remote"
	"github.com/sirseerhq/cf-tracker/internal/session"
	"github.com/sirseerhq/cf-tracker/internal/state"
)

type globalOptions struct {
	configPath  string
	apiURL      string
	handle      string
	verbose     bool
	logFormat   string
	metricsAddr string
}

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE, after flags are parsed.
type app struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	cache    *cache.Cache
	client   remote.Client
	session  *session.Session
	reports  *analytics.Engine
	out      *output.Renderer
	status   *output.Renderer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "cftracker",
		Short: "Browse a competitive programming catalog and track your progress",
		Long: `cftracker browses the problem catalog of a practice service, filtered by
tags, rating and solved status, and summarizes a user's submission history.

The last handle you log in with is remembered between runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Config file (default: .cftracker.yaml or ~/.cftracker/config.yaml)")
	flags.StringVar(&a.opts.apiURL, "api-url", "", "Problem service base URL (overrides config and CFTRACKER_API_URL)")
	flags.StringVar(&a.opts.handle, "handle", "", "Use this handle for one command without changing the saved login")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&a.opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while browsing")

	rootCmd.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newTagsCommand(a),
		newProblemsCommand(a),
		newBrowseCommand(a),
		newStatsCommand(a),
		newSubmissionsCommand(a),
		newBookmarksCommand(a),
	)
	return rootCmd
}

// init loads configuration and builds the client stack:
// HTTP -> retry -> cache, shared by the session and the catalog controller.
func (a *app) init() error {
	cfg, err := config.LoadConfig(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.apiURL != "" {
		cfg.API.BaseURL = a.opts.apiURL
	}
	if a.opts.verbose {
		cfg.Log.Level = "debug"
	}
	if a.opts.logFormat != "" {
		cfg.Log.Format = a.opts.logFormat
	}
	if a.opts.metricsAddr != "" {
		cfg.Metrics.Addr = a.opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	a.metrics = observability.NewMetrics(a.registry)

	httpClient, err := remote.NewHTTPClient(cfg.API.BaseURL,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithUserAgent("cf-tracker/"+version),
		remote.WithLogger(logger),
		remote.WithRequestMetrics(a.metrics.Requests),
	)
	if err != nil {
		return err
	}

	retryConfig := remote.DefaultRetryConfig()
	retryConfig.MaxRetries = cfg.API.MaxRetries
	retrying := remote.NewRetryClient(httpClient, retryConfig,
		remote.WithRetryLogger(logger),
		remote.WithRetryMetrics(a.metrics.Requests),
	)

	a.cache = cache.New(
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithFetchTimeout(retryConfig.Budget(cfg.API.Timeout)),
		cache.WithMetrics(a.metrics.Cache),
	)
	a.client = remote.NewCachedClient(retrying, a.cache)

	// An explicit --handle is a one-off; it must not replace the saved login.
	var store session.HandleStore
	if a.opts.handle == "" {
		store = state.NewFileStore(cfg.SessionPath())
	}
	a.session = session.New(a.client, store, session.WithLogger(logger))
	a.reports = analytics.NewEngine()

	a.out = output.NewRenderer(a.stdout)
	a.status = output.NewRenderer(a.stderr)
	return nil
}

// resume logs in with --handle, the saved handle or the service default.
// It returns nil when none of them is available.
func (a *app) resume(ctx context.Context) (*remote.User, error) {
	if a.opts.handle != "" {
		return a.session.Login(ctx, a.opts.handle)
	}
	return a.session.Resume(ctx)
}

// requireUser is resume for commands that cannot run without a handle.
func (a *app) requireUser(ctx context.Context) (*remote.User, error) {
	user, err := a.resume(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no handle set. Run 'cftracker login <handle>' or pass --handle: %w", trackerrors.ErrNoSession)
	}
	return user, nil
}

func (a *app) newController() *catalog.Controller {
	return catalog.NewController(a.client,
		catalog.WithBatchSize(a.cfg.Catalog.BatchSize),
		catalog.WithLogger(a.logger),
		catalog.WithMetrics(a.metrics.Fetch),
	)
}

// serveMetrics starts the metrics endpoint, if configured, until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := observability.Serve(ctx, a.cfg.Metrics.Addr, a.registry, a.logger); err != nil {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
}
