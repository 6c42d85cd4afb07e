// Package cmd implements the CLI (Command Line Interface) of the application.
//
// parse - Parse a single replay into a match record
// batch - Parse every replay found under a directory
// info  - Summarize a previously generated match record
// modes - Print the known game mode table
package cmd

import (
	"os"

	"github.com/demstat/demstat/internal/app"
	"github.com/demstat/demstat/internal/config"
	"github.com/demstat/demstat/internal/match"
	"github.com/demstat/demstat/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string //nolint:gochecknoglobals

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "demstat",
	Short: "Dota 2 replay parser, turns .dem captures into match record JSON",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupCLI()

	if errExecute := rootCmd.Execute(); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	rootCmd.Version = app.Version().BuildVersion
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(modesCmd())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/demstat.yml)")
}

// loadConfig applies the --config override, reads settings and installs the
// default logger. The returned closer releases the optional debug log file.
func loadConfig() (config.Config, func(), error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var conf config.Config
	if errConfig := config.ReadConfig(&conf, cfgFile == ""); errConfig != nil {
		return conf, nil, errConfig
	}

	logCloser := log.MustCreateLogger(conf.Log.File, conf.Log.Level)

	return conf, logCloser, nil
}

func matchOptions(conf config.Config) match.Options {
	return match.Options{
		MaxFrameSize: uint32(conf.Parse.MaxFrameSize),
		OutputSuffix: conf.Output.Suffix,
		Indent:       conf.Output.Indent,
	}
}
