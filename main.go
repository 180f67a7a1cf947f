package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"attendance-server-go/attendance"
	"attendance-server-go/config"
	"attendance-server-go/db"
	"attendance-server-go/export"
	"attendance-server-go/handlers"
	"attendance-server-go/models"
)

const demoClassName = "Demo Class"

// rootOptions holds global flags for all commands
type rootOptions struct {
	Verbose   bool
	ConfigDir string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Class attendance tracker",
		Long: `Tracks a tri-state attendance mark (present, half present, absent) for up to
100 students per class and date, and exports daily snapshots as xlsx files.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.Verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "config", "directory holding .env.<env> files")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// openRepository builds the class repository on the configured store
func openRepository(ctx context.Context, cfg config.Config) (*db.ClassRepository, func(), error) {
	switch cfg.Store {
	case "memory":
		slog.Warn("using in-memory store, records are lost on exit")
		store := db.NewMemoryStore(cfg.MemoryCapacityBytes)
		return db.NewClassRepository(store, cfg.MaxRecordBytes), func() {}, nil
	default:
		client, err := db.InitializeRedisClient(ctx, cfg.RedisOptions())
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("closing redis client failed", "error", err)
			}
		}
		return db.NewClassRepository(db.NewRedisStore(client), cfg.MaxRecordBytes), closeFn, nil
	}
}

func newSession(cfg config.Config, repo *db.ClassRepository) (*attendance.Session, error) {
	policy, err := attendance.ParseHiddenRowPolicy(cfg.HiddenRows)
	if err != nil {
		return nil, err
	}
	return attendance.NewSession(repo,
		attendance.WithHiddenRowPolicy(policy),
		attendance.WithRowListener(func(r attendance.Row) {
			slog.Debug("row changed", "slot", r.Slot, "mark", string(r.Mark))
		}),
	), nil
}

// seedDemoClass saves a small demo roster when no class has been saved yet
func seedDemoClass(ctx context.Context, repo *db.ClassRepository) error {
	classes, err := repo.ListClasses(ctx)
	if err != nil {
		return errors.Wrap(err, "checking for existing classes")
	}
	if len(classes) > 0 {
		slog.Info("existing classes found, skipping demo data", "count", len(classes))
		return nil
	}

	rec := models.NewClassRecord()
	for slot, name := range map[int]string{1: "Alice", 2: "Bob", 3: "Charlie"} {
		rec.Students[slot] = models.NeutralizeName(name)
	}
	if err := repo.Save(ctx, demoClassName, rec); err != nil {
		return errors.Wrap(err, "saving demo class")
	}
	slog.Info("added demo class", "class", demoClassName)
	return nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigDir)
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			session, err := newSession(cfg, repo)
			if err != nil {
				return err
			}
			if seed {
				if err := seedDemoClass(cmd.Context(), repo); err != nil {
					slog.Warn("demo data not added", "error", err)
				}
			}
			apiHandler := handlers.NewAPIHandler(repo, session)

			router := gin.New()
			router.Use(gin.Logger(), gin.CustomRecovery(handlers.RecoveryHandler))
			apiHandler.RegisterRoutes(router)

			slog.Info("starting server", "addr", cfg.Addr, "store", cfg.Store, "env", cfg.Env)
			if err := router.Run(cfg.Addr); err != nil {
				return errors.Wrap(err, "failed to run server")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "add a demo class when the store is empty")
	return cmd
}

type exportOptions struct {
	ClassName string
	Date      string
	OutDir    string
}

func newExportCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one class/date snapshot to an xlsx file",
		Long: `Write the stored attendance of one class and date to
<class>_Attendance_<date>.xlsx. Slots without a stored mark are exported as present.

Example:
  attendance export --class "Violin A" --date 2026-10-19 --out ./exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigDir)
			if err != nil {
				return err
			}
			if opts.OutDir == "" {
				opts.OutDir = cfg.ExportDir
			}
			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			session, err := newSession(cfg, repo)
			if err != nil {
				return err
			}
			path, err := exportSnapshot(cmd.Context(), session, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ClassName, "class", "", "class name (required)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (default export_dir setting)")
	_ = cmd.MarkFlagRequired("class")

	return cmd
}

func exportSnapshot(ctx context.Context, session *attendance.Session, opts *exportOptions) (string, error) {
	if _, err := session.SelectClass(ctx, opts.ClassName); err != nil {
		return "", err
	}
	if opts.Date != "" {
		if _, err := session.SelectDate(ctx, opts.Date); err != nil {
			return "", err
		}
	}
	_, rows, err := session.Export()
	if err != nil {
		return "", err
	}
	path, err := export.SaveFile(opts.OutDir, session.ClassName(), session.Date(), rows)
	if err != nil {
		return "", errors.Wrap(attendance.ErrExport, err.Error())
	}
	slog.Info("exported attendance", "class", session.ClassName(), "date", session.Date(), "path", path)
	return path, nil
}
