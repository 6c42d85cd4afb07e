package cmd

import (
	"os"

	"github.com/demstat/demstat/internal/match"
	"github.com/demstat/demstat/pkg/json"
	"github.com/demstat/demstat/pkg/log"
	"github.com/spf13/cobra"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <record.json>",
		Short: "Summarize a previously generated match record",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file, errOpen := os.Open(args[0])
			if errOpen != nil {
				return errOpen
			}

			defer log.Closer(file)

			record, errDecode := json.Decode[match.Record](file)
			if errDecode != nil {
				return errDecode
			}

			return match.WriteSummary(os.Stdout, record)
		},
	}
}
