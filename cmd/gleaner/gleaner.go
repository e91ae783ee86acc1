// Package gleanercmder
package gleanercmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/gleaner/cmd/gleaner/config"
	ingestcmder "github.com/papercomputeco/gleaner/cmd/gleaner/ingest"
	initcmder "github.com/papercomputeco/gleaner/cmd/gleaner/init"
	servecmder "github.com/papercomputeco/gleaner/cmd/gleaner/serve"
	watchcmder "github.com/papercomputeco/gleaner/cmd/gleaner/watch"
	versioncmder "github.com/papercomputeco/gleaner/cmd/version"
	"github.com/papercomputeco/gleaner/pkg/utils"
)

const gleanerLongDesc string = `Gleaner turns conversations into claims and follow-up actions.

Turns are queued, extracted by a reasoning model, checked against what is
already known and published to memory. Suggested actions are surfaced one
at a time for you to accept or dismiss.

Get started:
  gleaner init                 Create a local .gleaner/ directory
  gleaner serve                Run the pipeline behind the HTTP API
  gleaner ingest notes.txt     Glean a transcript and print a report
  gleaner watch notes.txt      Tail a transcript as it is written`

const gleanerShortDesc string = "Gleaner - claims and actions from conversations"

func NewGleanerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gleaner",
		Short:        gleanerShortDesc,
		Long:         gleanerLongDesc,
		Version:      utils.Version,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .gleaner/ directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
