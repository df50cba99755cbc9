// Package cmdutil holds the config loading and component wiring shared by
// tomes commands.
package cmdutil

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/config"
	"github.com/papercomputeco/tomes/pkg/dotdir"
	"github.com/papercomputeco/tomes/pkg/logger"
	"github.com/papercomputeco/tomes/pkg/stack"
)

// StackFlags are the registry keys of every flag that shapes the component
// stack.
var StackFlags = []string{
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagBatchSize,
	config.FlagMaxDelay,
	config.FlagIDScheme,
	config.FlagTopK,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
}

var intFlags = map[string]bool{
	config.FlagChunkSize:    true,
	config.FlagChunkOverlap: true,
	config.FlagBatchSize:    true,
	config.FlagMaxDelay:     true,
	config.FlagTopK:         true,
}

// AddFlags registers the given registry flags on cmd. Values are read back
// through viper, so the flag targets are discarded.
func AddFlags(cmd *cobra.Command, keys []string) {
	for _, key := range keys {
		switch {
		case key == config.FlagEmbeddingDims:
			config.AddUintFlag(cmd, config.Flags, key, new(uint))
		case intFlags[key]:
			config.AddIntFlag(cmd, config.Flags, key, new(int))
		default:
			config.AddStringFlag(cmd, config.Flags, key, new(string))
		}
	}
}

// Load resolves the .tomes dir and reads the config with the given flags
// bound over env, file and defaults.
func Load(cmd *cobra.Command, keys []string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving .tomes dir: %w", err)
	}

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return config.FromViper(v), dir, nil
}

// NewLogger builds the command logger from the persistent debug flag.
func NewLogger(cmd *cobra.Command) *zap.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(logger.WithDebug(debug), logger.WithCommand(cmd.Name()))
}

// Build loads the config and constructs the component stack.
func Build(ctx context.Context, cmd *cobra.Command, keys []string, log *zap.Logger) (*stack.Stack, error) {
	cfg, dir, err := Load(cmd, keys)
	if err != nil {
		return nil, err
	}

	return stack.New(ctx, stack.Options{
		Config:  cfg,
		DataDir: dir,
		Logger:  log,
	})
}
