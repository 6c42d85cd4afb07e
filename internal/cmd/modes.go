package cmd

import (
	"os"

	"github.com/demstat/demstat/internal/match"
	"github.com/spf13/cobra"
)

func modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "Print the known game mode table",
		RunE: func(_ *cobra.Command, _ []string) error {
			return match.WriteModes(os.Stdout)
		},
	}
}
