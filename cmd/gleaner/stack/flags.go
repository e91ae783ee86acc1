package stack

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/gleaner/pkg/config"
	"github.com/papercomputeco/gleaner/pkg/logger"
)

// AddFlags registers every pipeline flag on cmd. Values are read back
// through the viper instance returned by LoadViper.
func AddFlags(cmd *cobra.Command) {
	for _, key := range config.PipelineFlagKeys() {
		if key == config.FlagEmbeddingDims {
			config.AddUintFlag(cmd, config.PipelineFlags, key, new(uint))
			continue
		}
		config.AddStringFlag(cmd, config.PipelineFlags, key, new(string))
	}
}

// LoadViper resolves the configuration for cmd and binds its pipeline flags
// plus any extra flags from fs. It returns the config dir override as well.
func LoadViper(cmd *cobra.Command, fs config.FlagSet, keys ...string) (*viper.Viper, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.PipelineFlags, config.PipelineFlagKeys())
	if fs != nil {
		config.BindRegisteredFlags(v, cmd, fs, keys)
	}

	return v, configDir, nil
}

// NewLogger builds the command logger from the persistent --debug flag.
// Terminals get pretty output, everything else JSON.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	tty := logger.IsTerminal()

	return logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatFor(tty)),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
}
