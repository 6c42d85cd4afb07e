package cmd

import (
	"log/slog"

	"github.com/demstat/demstat/internal/batch"
	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Parse every replay found under a directory",
		Long: "Walk a directory tree, parse each replay with a worker pool and " +
			"write a batch report alongside the generated records. A replay that " +
			"fails to parse is reported without stopping the rest.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logCloser, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}

			defer logCloser()

			if workers > 0 {
				conf.Batch.Workers = workers
			}

			report, errRun := batch.Run(cmd.Context(), args[0], batch.Options{
				Workers: conf.Batch.Workers,
				Match:   matchOptions(conf),
			})
			if errRun != nil {
				return errRun
			}

			slog.Info("Batch report written", slog.String("path", report.ReportPath(args[0])))

			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent parser count (0 selects automatically)")

	return cmd
}
