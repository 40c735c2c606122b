package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kartoteka.org/internal/audit"
	"kartoteka.org/internal/auth"
	"kartoteka.org/internal/bot"
	"kartoteka.org/internal/config"
	"kartoteka.org/internal/obs"
	"kartoteka.org/internal/ops"
	"kartoteka.org/internal/person"
	"kartoteka.org/internal/store/pg"
	"kartoteka.org/internal/transport"
)

var (
	consoleUserID   int64
	consoleUsername string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot on the console transport plus the ops HTTP server",
	RunE:  runBot,
}

func init() {
	runCmd.Flags().Int64Var(&consoleUserID, "user-id", 1, "chat user id for the console transport")
	runCmd.Flags().StringVar(&consoleUsername, "username", "console", "chat username for the console transport")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := obs.InitLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	obs.Init()

	// Хранилище: Postgres при заданном DSN, иначе память.
	var (
		store person.Store
		db    *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		pgStore, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer func() { _ = pgStore.Close() }()
		store = pgStore
		db = pgStore.DB()
	} else {
		logger.Warn("no database_dsn configured, using the in-memory store")
		store = person.NewInMemory()
	}

	console := transport.NewConsole(os.Stdin, os.Stdout, consoleUserID, consoleUsername)
	router := bot.New(bot.Config{
		Transport:   console,
		Store:       store,
		Auth:        auth.NewManager(cfg.UserCode, cfg.AdminCode),
		Audit:       audit.NewRecorder(store, logger),
		Logger:      logger,
		SearchLimit: cfg.SearchLimit,
	})

	srv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           ops.New(ops.ReadyProbe{DB: db}, version).Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("kartoteka bot started", zap.String("version", version))
	if err := console.Run(ctx, router); err != nil && err != context.Canceled {
		logger.Error("console transport", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
	return nil
}
