package reap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/database"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/service"
	"github.com/taskory/taskory/internal/tools/common"
	"github.com/taskory/taskory/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "reap", Short: "Completed-task cleanup tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newOnceCommand(opts))
	return cmd
}

func newOnceCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single reaper sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "reap once", func(ctx context.Context) ([]string, error) {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				cfg, err := config.Load()
				if err != nil {
					return nil, err
				}
				db, err := database.Open(cfg)
				if err != nil {
					return nil, err
				}
				sqlDB, _ := db.DB()
				defer func() { _ = sqlDB.Close() }()

				logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
				reaper := service.NewTaskReaper(repository.NewTaskRepository(db), logger, cfg.ReaperInterval)
				deleted, err := reaper.RunOnce(ctx)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("completed tasks removed: %d", deleted)}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "reap once", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}
