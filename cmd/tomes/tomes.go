// Package tomescmder
package tomescmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/tomes/cmd/tomes/ask"
	configcmder "github.com/papercomputeco/tomes/cmd/tomes/config"
	dispatchcmder "github.com/papercomputeco/tomes/cmd/tomes/dispatch"
	initcmder "github.com/papercomputeco/tomes/cmd/tomes/init"
	servecmder "github.com/papercomputeco/tomes/cmd/tomes/serve"
	synccmder "github.com/papercomputeco/tomes/cmd/tomes/sync"
	versioncmder "github.com/papercomputeco/tomes/cmd/version"
)

const tomesLongDesc string = `Tomes answers questions over your course materials.

Materials are split, embedded and indexed, then retrieved to ground the
answers of a language model.

Get started using:
  tomes init --preset local        Create a local .tomes/ directory
  tomes sync --file notes.pdf      Ingest a material
  tomes ask "what is a B-tree?"    Ask a question
  tomes serve                      Run the API and MCP server`

const tomesShortDesc string = "Tomes - Course Material RAG"

func NewTomesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tomes",
		Short:        tomesShortDesc,
		Long:         tomesLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .tomes/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(dispatchcmder.NewDispatchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
