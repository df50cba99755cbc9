// Package dispatchcmder provides the `tomes dispatch` CLI command.
package dispatchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/cmd/tomes/cmdutil"
	"github.com/papercomputeco/tomes/pkg/cliui"
)

type dispatchCommander struct {
	jsonOut bool

	out    io.Writer
	logger *zap.Logger
}

const dispatchLongDesc string = `Ask the chat model which tool a prompt calls for.

The model is offered the ask_material, sync_material and handoff_human tools
and must pick at most one. The chosen tool and its arguments are printed; the
tool itself is not run.

Examples:
  tomes dispatch "what does my handbook say about holidays?"
  tomes dispatch "add https://example.com/guide to my notes" --json`

const dispatchShortDesc string = "Select a tool for a prompt"

func NewDispatchCmd() *cobra.Command {
	cmder := &dispatchCommander{}

	cmd := &cobra.Command{
		Use:   "dispatch <prompt>",
		Short: dispatchShortDesc,
		Long:  dispatchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.logger = cmdutil.NewLogger(cmd)
			defer func() { _ = cmder.logger.Sync() }()

			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the selection as JSON")
	cmdutil.AddFlags(cmd, cmdutil.StackFlags)

	return cmd
}

func (c *dispatchCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	s, err := cmdutil.Build(ctx, cmd, cmdutil.StackFlags, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sel, err := s.Dispatcher.Dispatch(ctx, prompt)
	if err != nil {
		return err
	}

	if c.jsonOut {
		data, err := json.Marshal(sel)
		if err != nil {
			return fmt.Errorf("marshaling selection: %w", err)
		}
		fmt.Fprintln(c.out, string(data))
		return nil
	}

	if sel == nil {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("no tool selected"))
		return nil
	}

	fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(sel.ToolName))
	args, err := json.MarshalIndent(sel.Arguments, "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshaling arguments: %w", err)
	}
	fmt.Fprintf(c.out, "  %s\n", cliui.ValueStyle.Render(string(args)))
	return nil
}
