// Package initcmder provides the init command for initializing a local .tomes
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tomes/pkg/cliui"
	"github.com/papercomputeco/tomes/pkg/config"
	"github.com/papercomputeco/tomes/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .tomes/ directory in the current working directory.

Creates a local .tomes/ directory that takes precedence over the default
~/.tomes/ directory for the chunk store, vector database, sync history
and configuration.

With --preset, a config.toml is written using the provider defaults for the
named preset. An existing config.toml is never overwritten.

Presets:
  ollama      Local ollama for chat and embeddings (default values)
  openai      OpenAI chat and embeddings
  anthropic   Anthropic chat with ollama embeddings
  local       In-memory stores with hash embeddings

Examples:
  tomes init
  tomes init --preset openai`

const initShortDesc string = "Initialize a local .tomes/ directory"

type initer struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initer{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset to write into config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (i *initer) run(w io.Writer) error {
	var cfg *config.Config
	if i.preset != "" {
		var err error
		cfg, err = config.PresetConfig(i.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .tomes directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .tomes directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	return writePreset(w, dir, i.preset, cfg)
}

func writePreset(w io.Writer, dir, preset string, cfg *config.Config) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil:
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("config.toml exists, preset not applied:"), cfger.GetTarget())
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(preset), cfger.GetTarget())
	return nil
}
