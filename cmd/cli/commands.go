package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/financas-voz/internal/agenda"
	"github.com/dvloznov/financas-voz/internal/app"
	"github.com/dvloznov/financas-voz/internal/backup"
	"github.com/dvloznov/financas-voz/internal/config"
	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/jobs"
	"github.com/dvloznov/financas-voz/internal/logger"
	"github.com/dvloznov/financas-voz/internal/report"
	"github.com/dvloznov/financas-voz/internal/voice"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	ConfigDir string
	LogLevel  string

	app *app.App
}

func newRootCommand() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "financas",
		Short:         "Voice-controlled finance and agenda assistant.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if o.app == nil {
				return nil
			}
			return o.app.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&o.ConfigDir, "config", os.Getenv("FINANCAS_CONFIG_PATH"),
		"directory containing financas-voz.yaml")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "",
		"log level (debug, info, warn, error); overrides the configured one")

	addListen(cmd, o)
	addSay(cmd, o)
	addTransactions(cmd, o)
	addCategories(cmd, o)
	addAgenda(cmd, o)
	addSummary(cmd, o)
	addSetup(cmd, o)
	addBackup(cmd, o)
	return cmd
}

func (o *rootOptions) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	log := logger.NewConsole(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	o.app, err = app.New(ctx, cfg, log)
	return err
}

func (o *rootOptions) now() time.Time {
	return time.Now().In(o.app.Location)
}

func addListen(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Read utterances from stdin, one per line, as if spoken.",
		Example: `
echo "Finanças gastei 30 reais no almoço" | financas listen
financas listen   # then type "Agenda o que tenho hoje"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a := o.app
			out := color.Output
			rec := voice.NewLineRecognizer(cmd.InOrStdin())
			defer rec.Close()

			session := voice.NewSession(voice.Config{
				Recognizer: rec,
				Handler:    &printingHandler{commands: a.Dispatcher, out: out},
				Listener: voice.Hooks{
					StateChangeFunc: func(s voice.State) {
						_, _ = fmt.Fprintln(out, faint.Sprintf("[%s]", s))
						if s == voice.StateInactive {
							cancel()
						}
					},
					WakeFunc: func(mode domain.Mode) {
						a.Store.Wake(mode)
					},
					ErrorFunc: func(message string) {
						a.Store.SetLastMessage(message)
						_, _ = fmt.Fprintln(out, color.RedString(message))
					},
				},
				Log: logger.Component(a.Log, "voice"),
			})

			if err := session.Start(ctx); err != nil {
				return err
			}
			err := session.Run(ctx)
			session.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	topLevel.AddCommand(cmd)
}

func addSay(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "say <command...>",
		Short: "Run one command without a wake word.",
		Example: `
financas say recebi 2500 de salário
financas say marcar dentista amanhã às 15h
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.app.Dispatcher.HandleCommand(cmd.Context(), strings.Join(args, " "))
			printResult(color.Output, res)
			return err
		},
	}
	topLevel.AddCommand(cmd)
}

func addTransactions(topLevel *cobra.Command, o *rootOptions) {
	var all bool

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List transactions, honouring the active filter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := o.app.Store.Snapshot()
			txs := st.Visible()
			if all {
				txs = st.Transactions
			}
			printFilter(color.Output, st.Filter)
			printTransactions(color.Output, txs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "ignore the active filter")

	toggleDeleted := &cobra.Command{
		Use:   "toggle-deleted <id>",
		Short: "Soft-delete a transaction, or bring it back.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := o.app.Store.ToggleDeleted(args[0])
			if err != nil {
				return err
			}
			printTransactions(color.Output, []domain.Transaction{tx})
			return nil
		},
	}

	chargeback := &cobra.Command{
		Use:   "chargeback <id>",
		Short: "Mark a transaction as reversed, or clear the mark.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := o.app.Store.ToggleChargeback(args[0])
			if err != nil {
				return err
			}
			printTransactions(color.Output, []domain.Transaction{tx})
			return nil
		},
	}

	clearFilter := &cobra.Command{
		Use:   "clear-filter",
		Short: "Drop the active filter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.app.Store.ClearFilter()
			return nil
		},
	}

	cmd.AddCommand(toggleDeleted, chargeback, clearFilter)
	topLevel.AddCommand(cmd)
}

func addCategories(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printCategories(color.Output, o.app.Store.Snapshot().Categories)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a category. Transactions keep its name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.app.Store.RemoveCategory(args[0])
		},
	}

	cmd.AddCommand(remove)
	topLevel.AddCommand(cmd)
}

func addAgenda(topLevel *cobra.Command, o *rootOptions) {
	var date string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show the appointments of a day.",
		Example: `
financas agenda
financas agenda --date 2026-03-15
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := civil.DateOf(o.now())
			if date != "" {
				d, err := civil.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				day = d
			}
			appts := agenda.AppointmentsOn(o.app.Store.Snapshot().Appointments, day)
			_, _ = fmt.Fprintln(color.Output, bold.Sprint(day.String()))
			printAppointments(color.Output, appts)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default today)")

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an appointment as done, or not done.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app.Store.ToggleCompleted(args[0])
			if err != nil {
				return err
			}
			printAppointments(color.Output, []domain.Appointment{a})
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an appointment and all its occurrences.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.app.Store.RemoveAppointment(args[0])
		},
	}

	cmd.AddCommand(complete, remove)
	topLevel.AddCommand(cmd)
}

func addSummary(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show balance, top expense categories and the last days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printSummary(color.Output, report.Summarize(o.app.Store.Snapshot().Transactions, o.now()))
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addSetup(topLevel *cobra.Command, o *rootOptions) {
	var reset bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Mark the first-run setup as complete.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.app.Store.SetSetupComplete(!reset); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(color.Output, "Setup complete: %v\n", !reset)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "show the setup screen again on next start")
	topLevel.AddCommand(cmd)
}

func addBackup(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "backup [snapshot|export]",
		Short: "Upload a snapshot to Cloud Storage or export transactions to BigQuery.",
		Example: `
financas backup
financas backup export
financas backup list
financas backup restore gs://my-bucket/snapshots/2026/03/15/abc.json
`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(jobs.JobTypeSnapshot), string(jobs.JobTypeExport)},
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType := jobs.JobTypeSnapshot
			if len(args) == 1 {
				jobType = jobs.JobType(args[0])
			}
			if !jobType.Valid() {
				return fmt.Errorf("unknown backup type %q", jobType)
			}

			runner := o.app.BackupRunner()
			job := &jobs.Job{JobID: uuid.New().String(), Type: jobType, CreatedAt: time.Now()}
			if err := runner.Handle(cmd.Context(), job); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(color.Output, green.Sprint(job.Result))
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <gs://bucket/object>",
		Short: "Replace all data with a snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.app.Snapshotter == nil {
				return backup.ErrNotConfigured
			}
			st, err := backup.Restore(cmd.Context(), o.app.Snapshotter, o.app.Store, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(color.Output, "Restored %d transactions, %d categories, %d appointments\n",
				len(st.Transactions), len(st.Categories), len(st.Appointments))
			return nil
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := o.app.Snapshotter.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printSnapshots(color.Output, snapshots)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots to show (0 for all)")

	cmd.AddCommand(restore, list)
	topLevel.AddCommand(cmd)
}
