package main

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/financas-voz/internal/config"
	"github.com/dvloznov/financas-voz/internal/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migration is a single versioned SQL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// migrationPattern matches 0001_name.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	configDir := flag.String("config", os.Getenv("FINANCAS_CONFIG_PATH"), "directory containing financas-voz.yaml")
	project := flag.String("project", "", "GCP project ID (default: FINANCAS_BIGQUERY_PROJECT)")
	dataset := flag.String("dataset", "", "BigQuery dataset ID (default: FINANCAS_BIGQUERY_DATASET)")
	location := flag.String("location", "US", "location used when the dataset has to be created")
	appliedBy := flag.String("applied-by", "financas-migrate", "name recorded in schema_migrations")
	dryRun := flag.Bool("dry-run", false, "list pending migrations without applying them")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *project == "" {
		*project = cfg.BigQueryProject
	}
	if *dataset == "" {
		*dataset = cfg.BigQueryDataset
	}
	if *project == "" {
		log.Fatal().Msg("Error: -project flag or FINANCAS_BIGQUERY_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := bigquery.NewClient(ctx, *project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log = log.With().Str("project", *project).Str("dataset", *dataset).Logger()
	m := &migrator{client: client, project: *project, dataset: *dataset, appliedBy: *appliedBy, log: log}

	if err := m.ensureDataset(ctx, *location); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure dataset")
	}

	migrations, err := readMigrations(embedded, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found applied migrations")

	pending, err := pendingMigrations(migrations, applied)
	if err != nil {
		log.Fatal().Err(err).Msg("Applied migrations do not match the embedded ones")
	}

	for _, mig := range pending {
		if *dryRun {
			log.Info().Msgf("  [PENDING] %04d_%s", mig.Version, mig.Name)
			continue
		}
		log.Info().Msgf("  [RUN]  %04d_%s", mig.Version, mig.Name)
		if err := m.run(ctx, mig.SQL, nil); err != nil {
			log.Fatal().Err(err).Msgf("Failed to execute migration %04d_%s", mig.Version, mig.Name)
		}
		if err := m.record(ctx, mig); err != nil {
			log.Fatal().Err(err).Msgf("Failed to record migration %04d_%s", mig.Version, mig.Name)
		}
		log.Info().Msgf("  [OK]   %04d_%s", mig.Version, mig.Name)
	}

	switch {
	case len(pending) == 0:
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	case *dryRun:
		log.Info().Int("pending", len(pending)).Msg("Dry run finished")
	default:
		log.Info().Int("applied", len(pending)).Msg("Migrations applied")
	}
}

// readMigrations loads every migration file in fsys's migrations directory,
// sorted by version. Placeholders are filled in after the checksum is taken,
// so the checksum does not depend on the target project.
func readMigrations(fsys fs.FS, project, dataset string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("readMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("readMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("readMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pendingMigrations returns the migrations not yet applied. An applied
// migration whose file has changed since is an error.
func pendingMigrations(migrations []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		done[am.Version] = am
	}

	var pending []Migration
	for _, m := range migrations {
		am, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration %04d_%s changed after it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

type migrator struct {
	client    *bigquery.Client
	project   string
	dataset   string
	appliedBy string
	log       zerolog.Logger
}

func (m *migrator) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", m.project, m.dataset, name)
}

// ensureDataset creates the dataset when it does not exist yet.
func (m *migrator) ensureDataset(ctx context.Context, location string) error {
	ds := m.client.DatasetInProject(m.project, m.dataset)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("ensureDataset: reading metadata: %w", err)
	}

	m.log.Info().Str("location", location).Msg("Creating dataset")
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
		return fmt.Errorf("ensureDataset: creating dataset: %w", err)
	}
	return nil
}

// appliedMigrations reads schema_migrations. A missing table means nothing has been applied.
func (m *migrator) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, m.table("schema_migrations"))

	it, err := m.client.Query(sql).Read(ctx)
	if err != nil {
		if isNotFound(err) {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("appliedMigrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appliedMigrations: iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (m *migrator) record(ctx context.Context, mig Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.table("schema_migrations"))

	return m.run(ctx, sql, []bigquery.QueryParameter{
		{Name: "version", Value: mig.Version},
		{Name: "name", Value: mig.Name},
		{Name: "checksum", Value: mig.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	})
}

// run executes a statement and waits for it to finish.
func (m *migrator) run(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := m.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return strings.Contains(err.Error(), "Not found")
}
