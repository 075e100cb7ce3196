package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/financas-voz/internal/agenda"
	"github.com/dvloznov/financas-voz/internal/api"
	"github.com/dvloznov/financas-voz/internal/app"
	"github.com/dvloznov/financas-voz/internal/config"
	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/jobs/inmemory"
	"github.com/dvloznov/financas-voz/internal/logger"
	"github.com/dvloznov/financas-voz/internal/voice"
)

func main() {
	configDir := flag.String("config", os.Getenv("FINANCAS_CONFIG_PATH"), "directory containing financas-voz.yaml")
	port := flag.String("port", "", "HTTP server port (overrides FINANCAS_PORT)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.NewConsole(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	defer a.Close()

	months, err := agenda.NewMonthCache(24)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create month cache")
	}
	defer months.Close()

	// Speech clients post recognizer events; the session consumes them.
	recognizer := voice.NewChannelRecognizer(64)
	voiceLog := logger.Component(log, "voice")
	session := voice.NewSession(voice.Config{
		Recognizer: recognizer,
		Handler:    a.Dispatcher,
		Listener: voice.Hooks{
			StateChangeFunc: func(s voice.State) {
				voiceLog.Info().Str("state", string(s)).Msg("Voice state changed")
			},
			WakeFunc: func(mode domain.Mode) {
				st := a.Store.Wake(mode)
				voiceLog.Info().Str("mode", string(mode)).Str("view", string(st.View)).Msg("Wake word heard")
			},
			ErrorFunc: func(message string) {
				a.Store.SetLastMessage(message)
			},
		},
		Log: voiceLog,
	})
	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			voiceLog.Error().Err(err).Msg("Voice session stopped")
		}
	}()

	// Backup and export jobs
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore, logger.Component(log, "jobs"))
	runner := a.BackupRunner()
	if err := jobQueue.Start(ctx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := api.NewRouter(api.Deps{
		BaseContext: ctx,
		Log:         log,
		Location:    a.Location,
		APIToken:    cfg.APIToken,
		Store:       a.Store,
		MonthCache:  months,
		Commands:    a.Dispatcher,
		Session:     session,
		Events:      recognizer,
		Publisher:   jobQueue,
		JobStore:    jobStore,
		Backups:     runner,
		Snapshots:   a.Snapshotter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // commands wait on the classifier
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("data_dir", cfg.DataDir).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := session.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop voice session")
	}
	session.Wait()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancel()

	log.Info().Msg("Server exited")
}
