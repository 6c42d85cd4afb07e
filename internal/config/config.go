// Package config loads runtime settings from a yaml config file and the
// environment via viper.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/demstat/demstat/pkg/log"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var (
	ErrReadConfig   = errors.New("failed to read config file")
	ErrFormatConfig = errors.New("invalid config file format")
	ErrFormatValue  = errors.New("invalid config value")
)

// FrameSize is a byte count that accepts humanized values ("64MiB", "512kb")
// in the config file.
type FrameSize uint32

type Config struct {
	Log    Log    `mapstructure:"log"`
	Output Output `mapstructure:"output"`
	Parse  Parse  `mapstructure:"parse"`
	Batch  Batch  `mapstructure:"batch"`
}

type Log struct {
	Level log.Level `mapstructure:"level"`
	File  string    `mapstructure:"file"`
}

type Output struct {
	// Suffix replaces the replay extension on generated record paths.
	Suffix string `mapstructure:"suffix"`
	Indent bool   `mapstructure:"indent"`
}

type Parse struct {
	// MaxFrameSize bounds a single outer frame body in bytes.
	MaxFrameSize FrameSize `mapstructure:"max_frame_size"`
}

type Batch struct {
	// Workers caps concurrent replay parses. Zero selects an automatic cap.
	Workers int `mapstructure:"workers"`
}

// ReadConfig reads in the config file and ENV variables if set.
func ReadConfig(conf *Config, noFileOk bool) error {
	setDefaultConfigValues()

	if errReadConfig := viper.ReadInConfig(); errReadConfig != nil && !noFileOk {
		return errors.Join(errReadConfig, ErrReadConfig)
	}

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(decodeLogLevel(), decodeFrameSize()))
	if errUnmarshal := viper.Unmarshal(conf, hooks); errUnmarshal != nil {
		return errors.Join(errUnmarshal, ErrFormatConfig)
	}

	if conf.Output.Suffix == "" {
		return fmt.Errorf("%w: output.suffix cannot be empty", ErrFormatValue)
	}

	if !strings.HasPrefix(conf.Output.Suffix, ".") {
		conf.Output.Suffix = "." + conf.Output.Suffix
	}

	if conf.Batch.Workers < 0 {
		return fmt.Errorf("%w: batch.workers cannot be negative", ErrFormatValue)
	}

	return nil
}

// decodeLogLevel rejects unknown levels at load time instead of silently
// defaulting at the first log call.
func decodeLogLevel() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, target reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || target != reflect.TypeOf(log.Level("")) {
			return data, nil
		}

		level := log.Level(strings.ToLower(data.(string)))
		switch level {
		case log.Debug, log.Info, log.Warn, log.Error:
			return level, nil
		default:
			return nil, fmt.Errorf("%w: log.level %q", ErrFormatValue, data)
		}
	}
}

// decodeFrameSize parses humanized byte sizes into the frame cap. Plain
// integers pass through untouched.
func decodeFrameSize() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, target reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || target != reflect.TypeOf(FrameSize(0)) {
			return data, nil
		}

		size, errSize := humanize.ParseBytes(data.(string))
		if errSize != nil {
			return nil, fmt.Errorf("%w: parse.max_frame_size %q", ErrFormatValue, data)
		}

		return FrameSize(size), nil //nolint:gosec
	}
}

func setDefaultConfigValues() {
	if home, errHomeDir := homedir.Dir(); errHomeDir == nil {
		viper.AddConfigPath(home)
	}

	viper.AddConfigPath(".")
	viper.SetConfigName("demstat")
	viper.SetConfigType("yml")
	viper.SetEnvPrefix("demstat")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defaultConfig := map[string]any{
		"log.level":            "info",
		"log.file":             "",
		"output.suffix":        ".json",
		"output.indent":        true,
		"parse.max_frame_size": "64MiB",
		"batch.workers":        0,
	}

	for configKey, value := range defaultConfig {
		viper.SetDefault(configKey, value)
	}
}
