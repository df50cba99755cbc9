// Package configcmder provides the config command for managing persistent
// tomes configuration stored in the .tomes/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tomes/pkg/config"
)

const configLongDesc string = `Manage persistent tomes configuration.

Configuration is stored as config.toml in the .tomes/ directory and provides
default values for command flags. CLI flags and TOMES_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
llm.provider, embedding.model, ingest.batch_size or retrieval.top_k.

Use subcommands to get, set, or list configuration values:
  tomes config set <key> <value>    Set a configuration value
  tomes config get <key>            Get a configuration value
  tomes config list                 List all configuration values

Examples:
  tomes config set llm.provider anthropic
  tomes config set ingest.chunk_size 400
  tomes config get embedding.model
  tomes config list`

const configShortDesc string = "Manage persistent tomes configuration"

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

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// display masks secret values, keeping the last four characters.
func display(key, value string) string {
	if value == "" || !config.IsSecretKey(key) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
