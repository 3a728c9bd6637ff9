package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"videotube-api/internal/app"
	"videotube-api/internal/config"
	"videotube-api/internal/db"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "videotube-api",
		Usage:   "video sharing backend API",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dotenv",
				Usage: "load .env into the environment before reading configuration",
				Value: true,
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API until interrupted",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations and exit",
				Action: migrate,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, app.Options{LoadDotEnv: cmd.Bool("dotenv")})
	if err != nil {
		return err
	}
	defer rt.Close()

	server := &http.Server{
		Addr:              rt.Config.Addr(),
		Handler:           rt.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("server_start", map[string]any{"addr": server.Addr, "env": rt.Config.AppEnv})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			rt.Logger.Error("server_failed", map[string]any{"error": err})
			return err
		}
		return nil
	case <-ctx.Done():
	}

	rt.Logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	var opts []config.Option
	if cmd.Bool("dotenv") {
		opts = append(opts, config.WithDotEnv())
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if cfg.StorageBackend != config.StorageBackendPostgres {
		return fmt.Errorf("migrate requires STORAGE_BACKEND=%s", config.StorageBackendPostgres)
	}

	database, err := db.Open(ctx, db.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, database); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}
