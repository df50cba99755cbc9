// Package askcmder provides the `tomes ask` CLI command.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/cmd/tomes/cmdutil"
	"github.com/papercomputeco/tomes/pkg/cliui"
	"github.com/papercomputeco/tomes/pkg/rag"
	"github.com/papercomputeco/tomes/pkg/utils"
)

const previewLen = 160

type askCommander struct {
	showContext bool
	plain       bool

	out    io.Writer
	logger *zap.Logger
}

const askLongDesc string = `Answer a question from synced material.

The question is split like ingested text, the closest passages are retrieved
from the collection and the chat model answers using only those passages.

Examples:
  tomes ask "where do penguins live?"
  tomes ask "what does the handbook say about leave?" --top-k 8 --context`

const askShortDesc string = "Answer a question from synced material"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.logger = cmdutil.NewLogger(cmd)
			defer func() { _ = cmder.logger.Sync() }()

			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.showContext, "context", false, "Print the retrieved passages")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the answer without markdown rendering")
	cmdutil.AddFlags(cmd, cmdutil.StackFlags)

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	s, err := cmdutil.Build(ctx, cmd, cmdutil.StackFlags, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	answer, err := s.Pipeline.Ask(ctx, question)
	if err != nil {
		return err
	}

	c.print(answer)
	return nil
}

func (c *askCommander) print(answer *rag.Answer) {
	text := answer.Answer
	if !c.plain {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))

	if !c.showContext {
		return
	}

	fmt.Fprintf(c.out, "\n  %s\n", cliui.HeaderStyle.Render("Passages"))
	if len(answer.Passages) == 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("no passages retrieved"))
		return
	}
	for i, p := range answer.Passages {
		fmt.Fprintf(c.out, "  %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("%d.", i+1)),
			utils.Truncate(strings.Join(strings.Fields(p), " "), previewLen),
		)
	}
}
