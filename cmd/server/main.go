package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fcavalcantirj/jarls-sub005/internal/config"
	"github.com/fcavalcantirj/jarls-sub005/internal/events"
	"github.com/fcavalcantirj/jarls-sub005/internal/httpapi"
	"github.com/fcavalcantirj/jarls-sub005/internal/hub"
	"github.com/fcavalcantirj/jarls-sub005/internal/lobby"
	"github.com/fcavalcantirj/jarls-sub005/internal/logging"
	"github.com/fcavalcantirj/jarls-sub005/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "jarls-server",
	Short: "Jarls game server",
}

var envFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg, err := config.Load(files...)
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var st store.Store = store.NewMemory()
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
		log.Info("checkpointing to postgres")
	}

	bus := events.NewBus(log.Named("events"))
	defer bus.Close()

	g, ctx := errgroup.WithContext(ctx)

	h := hub.NewHub(ctx,
		hub.WithLogger(log.Named("hub")),
		hub.WithLoader(st),
		hub.WithLobbyOptions(lobby.WithPublisher(bus)),
	)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, log.Named("http")),
	}

	g.Go(func() error {
		return store.NewRecorder(st, log.Named("recorder")).Run(ctx, bus)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// The hub shares ctx and stops its lobbies on its own.
		select {
		case <-h.Done():
		case <-shutdownCtx.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
