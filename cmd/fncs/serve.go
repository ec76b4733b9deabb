package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/mlambe/fncs/pkg/adapters/http"
	"github.com/mlambe/fncs/pkg/adapters/memory"
	redisadapter "github.com/mlambe/fncs/pkg/adapters/redis"
	"github.com/mlambe/fncs/pkg/binder"
	"github.com/mlambe/fncs/pkg/dispatcher"
	"github.com/mlambe/fncs/pkg/fncsapi"
	"github.com/mlambe/fncs/pkg/session"
	"github.com/mlambe/fncs/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mlambe/fncs/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session engine HTTP server",
	Long: `Starts the event endpoint for transport gateways. Sessions are held
in Redis when --redis is given, otherwise in process memory.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("route", "ussd", "Route name namespacing session keys")
	serveCmd.Flags().String("flow", "price_lookup", "Conversation flow (tree or price_lookup)")
	serveCmd.Flags().String("tree", "", "Decision tree document (required for the tree flow)")
	serveCmd.Flags().String("api-url", "", "Base URL of the farmer data service (required for the price_lookup flow)")
	serveCmd.Flags().String("redis", "", "Redis address for the session store (empty: in-memory store)")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Duration("session-ttl", redisadapter.DefaultTTL, "Expiry for abandoned sessions")
}

func runServe(cmd *cobra.Command) error {
	logger := newLogger(cmd)

	cfg := dispatcher.Config{}
	cfg.Route, _ = cmd.Flags().GetString("route")
	flow, _ := cmd.Flags().GetString("flow")
	cfg.Flow = dispatcher.FlowKind(flow)

	if path, _ := cmd.Flags().GetString("tree"); path != "" {
		spec, err := loadTree(path)
		if err != nil {
			return err
		}
		cfg.Tree = spec
	}

	sessions, err := newSessionManager(cmd, logger)
	if err != nil {
		return err
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(logger),
		dispatcher.WithBinder(binder.New(binder.WithLogger(logger))),
		dispatcher.WithRegisterer(prometheus.DefaultRegisterer),
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		opts = append(opts, dispatcher.WithAPI(fncsapi.New(apiURL, fncsapi.WithLogger(logger))))
	}

	d, err := dispatcher.New(cfg, sessions, opts...)
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetString("port")
	srv := &http.Server{
		Addr: ":" + port,
		Handler: httpadapter.NewHandler(d,
			httpadapter.WithLogger(logger),
			httpadapter.WithVersion(version)),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "route", cfg.Route, "flow", cfg.Flow)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete, closing", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

// newSessionManager wires the session store: Redis with a distributed
// locker when an address is configured, otherwise in-process memory.
func newSessionManager(cmd *cobra.Command, logger *slog.Logger) (*session.Manager, error) {
	addr, _ := cmd.Flags().GetString("redis")
	if addr == "" {
		logger.Warn("no redis address configured, sessions are held in memory and lost on restart")
		return session.NewManager(memory.NewStore(), session.WithLogger(logger)), nil
	}

	db, _ := cmd.Flags().GetInt("redis-db")
	password, _ := cmd.Flags().GetString("redis-password")
	ttl, _ := cmd.Flags().GetDuration("session-ttl")

	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})
	if err := client.Ping(cmd.Context()).Err(); err != nil {
		return nil, fmt.Errorf("redis unreachable at %s: %w", addr, err)
	}

	store := redisadapter.NewFromClient(client, redisadapter.WithTTL(ttl))
	locker := redisadapter.NewLocker(client, "fncs:")
	return session.NewManager(store,
		session.WithLocker(locker),
		session.WithLogger(logger)), nil
}

func loadTree(path string) (*tree.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree document: %w", err)
	}
	spec, err := tree.Parse(treeName(path), data)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level)
}
