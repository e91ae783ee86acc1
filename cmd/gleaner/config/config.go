// Package configcmder provides the config command for managing persistent
// gleaner configuration stored in the .gleaner/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/gleaner/pkg/cliui"
	"github.com/papercomputeco/gleaner/pkg/config"
)

const configLongDesc string = `Manage persistent gleaner configuration.

Configuration is stored as config.toml in the .gleaner/ directory and provides
default values for command flags. GLEANER_* environment variables and CLI
flags take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  reasoning.provider, reasoning.target, reasoning.model,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.collection,
  pipeline.duplicate_threshold, pipeline.conflict_threshold,
  event_stream.provider, event_stream.brokers, event_stream.topic

Use subcommands to get, set, or list configuration values:
  gleaner config set <key> <value>    Set a configuration value
  gleaner config get <key>            Get a configuration value
  gleaner config list                 List all configuration values

Examples:
  gleaner config set reasoning.provider openai
  gleaner config set pipeline.duplicate_threshold 0.92
  gleaner config get embedding.model
  gleaner config list`

const configShortDesc string = "Manage persistent gleaner configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
