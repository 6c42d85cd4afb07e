package cmd

import (
	"log/slog"
	"os"

	"github.com/demstat/demstat/internal/match"
	"github.com/demstat/demstat/pkg/log"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	var showSummary bool

	cmd := &cobra.Command{
		Use:   "parse <replay.dem>",
		Short: "Parse a replay into a match record",
		Long: "Parse a replay into a match record JSON written beside the input. " +
			"Compressed replays (.dem.bz2, .dem.zst) are unpacked on the fly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logCloser, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}

			defer logCloser()

			result, errProcess := match.ProcessFile(cmd.Context(), args[0], matchOptions(conf))
			if errProcess != nil {
				slog.Error("Failed to parse replay", slog.String("path", args[0]), log.ErrAttr(errProcess))

				return errProcess
			}

			slog.Info("Wrote match record",
				slog.String("path", result.OutputPath),
				slog.Bool("truncated", result.Truncated))

			if showSummary {
				return match.WriteSummary(os.Stdout, result.Record)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showSummary, "summary", false, "print a table summary of the parsed match")

	return cmd
}
