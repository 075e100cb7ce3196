package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/app"
	"github.com/dvloznov/financas-voz/internal/backup"
	"github.com/dvloznov/financas-voz/internal/config"
	"github.com/dvloznov/financas-voz/internal/jobs"
	"github.com/dvloznov/financas-voz/internal/jobs/inmemory"
	"github.com/dvloznov/financas-voz/internal/logger"
	"github.com/dvloznov/financas-voz/internal/state"
)

func main() {
	configDir := flag.String("config", os.Getenv("FINANCAS_CONFIG_PATH"), "directory containing financas-voz.yaml")
	interval := flag.Duration("interval", 24*time.Hour, "time between scheduled backups")
	types := flag.String("types", "snapshot,export", "comma-separated job types to schedule")
	once := flag.Bool("once", false, "run each job type once and exit")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewConsole(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	jobTypes, err := parseJobTypes(*types)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -types")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	defer a.Close()

	// The server may be writing to the same directory; read it afresh per job.
	source := state.Reader{Dir: cfg.DataDir, Location: a.Location, Log: logger.Component(log, "reader")}
	runner := backup.NewRunner(source, a.Snapshotter, a.Exporter, logger.Component(log, "backup"))

	jobTypes = enabledTypes(jobTypes, runner, log)
	if len(jobTypes) == 0 {
		log.Fatal().Msg("No backup target configured (set FINANCAS_BACKUP_BUCKET or FINANCAS_BIGQUERY_PROJECT)")
	}

	if *once {
		failed := false
		for _, t := range jobTypes {
			job := &jobs.Job{JobID: uuid.New().String(), Type: t, CreatedAt: time.Now()}
			if err := runner.Handle(ctx, job); err != nil {
				log.Error().Err(err).Str("job_type", string(t)).Msg("Backup failed")
				failed = true
				continue
			}
			fmt.Println(job.Result)
		}
		if failed {
			a.Close()
			os.Exit(1)
		}
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(jobTypes)*2, 1, jobStore, logger.Component(log, "jobs"))
	if err := jobQueue.Start(ctx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Dur("interval", *interval).Msg("Backup worker started")

	schedule := func() {
		for _, t := range jobTypes {
			job := &jobs.Job{Type: t}
			if err := jobQueue.Publish(ctx, job); err != nil {
				log.Error().Err(err).Str("job_type", string(t)).Msg("Failed to enqueue backup job")
				continue
			}
			log.Info().Str("job_id", job.JobID).Str("job_type", string(t)).Msg("Backup job enqueued")
		}
	}
	schedule()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-ticker.C:
			schedule()
		case <-quit:
			break loop
		}
	}

	log.Info().Msg("Shutting down backup worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Let in-flight jobs finish before cancelling their context.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Backup worker exited")
}

func parseJobTypes(s string) ([]jobs.JobType, error) {
	var out []jobs.JobType
	seen := make(map[jobs.JobType]bool)
	for _, part := range strings.Split(s, ",") {
		t := jobs.JobType(strings.TrimSpace(part))
		if t == "" || seen[t] {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("unknown job type %q", t)
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no job types given")
	}
	return out, nil
}

// enabledTypes drops the types whose target is not configured.
func enabledTypes(types []jobs.JobType, targets interface{ Enabled(jobs.JobType) bool }, log zerolog.Logger) []jobs.JobType {
	out := make([]jobs.JobType, 0, len(types))
	for _, t := range types {
		if !targets.Enabled(t) {
			log.Warn().Str("job_type", string(t)).Msg("Target not configured, skipping")
			continue
		}
		out = append(out, t)
	}
	return out
}
