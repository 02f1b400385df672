package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/linkgraph/linkgraph/internal/config"
	"github.com/linkgraph/linkgraph/internal/eventbus"
	"github.com/linkgraph/linkgraph/internal/executor"
	"github.com/linkgraph/linkgraph/internal/introspection"
	"github.com/linkgraph/linkgraph/internal/linkrt"
	"github.com/linkgraph/linkgraph/internal/logging"
	"github.com/linkgraph/linkgraph/internal/metrics"
	"github.com/linkgraph/linkgraph/internal/otel"
	"github.com/linkgraph/linkgraph/internal/schema"
	"github.com/linkgraph/linkgraph/internal/server"
	"github.com/linkgraph/linkgraph/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "linkgraph",
		Short:         "GraphQL server for a links catalogue with a GraphiQL browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if err := config.BindFlags(root.PersistentFlags(), v); err != nil {
		panic(err)
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "print-schema",
		Short: "Print the served schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return printSchema(cmd.OutOrStdout(), cfg)
		},
	})
	return root
}

func loadSchema(cfg config.GraphQL) (*schema.Schema, error) {
	if cfg.Schema == "" {
		return linkrt.LoadSchema("", "")
	}
	sdl, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return linkrt.LoadSchema(cfg.Schema, string(sdl))
}

func printSchema(w io.Writer, cfg config.Config) error {
	sch, err := loadSchema(cfg.GraphQL)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, schema.Render(sch))
	return err
}

// app is everything serve builds from a Config.
type app struct {
	handler http.Handler
	repo    store.Repository
	cleanup []func()
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// build wires the store, runtime, schema, observers and router. Observers
// subscribe to the global bus, which must be set by the caller.
func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	a.cleanup = append(a.cleanup, logging.Subscribe(logger))

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		m := metrics.New()
		a.cleanup = append(a.cleanup, m.Subscribe())
		metricsHandler = m.Handler()
	}

	sch, err := loadSchema(cfg.GraphQL)
	if err != nil {
		a.Close()
		return nil, err
	}
	repo, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo

	var runtime executor.Runtime = linkrt.NewRuntime(repo)
	if cfg.GraphQL.Introspection {
		wrapper, err := introspection.Wrap(runtime, sch)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("introspection: %w", err)
		}
		runtime, sch = wrapper.Runtime, wrapper.Schema
	}

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	gql, err := server.New(runtime, sch, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	browser := server.NewBrowserHandler(cfg.Browser.Dir, cfg.Browser.Index)
	a.handler = server.NewRouter(gql, browser, metricsHandler)
	return a, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("could not flush traces", zap.Error(err))
		}
	}()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Backend),
			zap.String("browser", cfg.Browser.Dir))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
