package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"commentservice/internal/config"
	"commentservice/internal/db"
	"commentservice/internal/logger"
	"commentservice/internal/persist"
	"commentservice/internal/router"
	"commentservice/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "commentservice",
		Short:         "Hierarchical comment service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			return logger.Configure(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: serve,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  serve,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE:  migrate,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func migrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Memory() {
		return errors.New("migrate needs DATABASE_URL")
	}
	gdb, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	return db.Migrate(ctx, gdb)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.For(ctx)

	gin.SetMode(cfg.GinMode)

	var st persist.Store = persist.Nop{}
	if cfg.Memory() {
		log.Warn("DATABASE_URL not set, comments will not survive a restart")
	} else {
		gdb, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		st = persist.NewGormStore(gdb)
	}

	svc, err := services.New(cfg, st)
	if err != nil {
		return err
	}
	if err := svc.Restore(ctx); err != nil {
		return errors.Wrap(err, "failed to restore state")
	}

	engine, err := router.New(cfg, svc)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	// Count sync outlives the listener so writes made while draining still land.
	countsCtx, stopCounts := context.WithCancel(context.WithoutCancel(ctx))
	defer stopCounts()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Counts.Run(countsCtx)
	})
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Comment service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down")
		err := srv.Shutdown(shutdownCtx)
		stopCounts()
		return err
	})
	return g.Wait()
}

func openDatabase(ctx context.Context) (*gorm.DB, error) {
	gdb, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		db.Close(gdb)
		return nil, err
	}
	return gdb, nil
}
