// Package synccmder provides the `tomes sync` CLI command.
package synccmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/cmd/tomes/cmdutil"
	"github.com/papercomputeco/tomes/pkg/cliui"
	"github.com/papercomputeco/tomes/pkg/dotdir"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/material"
)

type syncCommander struct {
	materialID string
	text       string
	file       string
	url        string
	fileID     string
	linkID     string

	out    io.Writer
	logger *zap.Logger
}

const syncLongDesc string = `Sync one material item into the index.

Exactly one of --text, --file or --url selects the source. File and link
chunks are also recorded in the chunk store so they can be listed and
removed later. Each sync is appended to the .tomes/history.json log.

Examples:
  tomes sync --text "Penguins live in Antarctica." --material-id notes
  tomes sync --file ./handbook.pdf --file-id handbook
  tomes sync --url https://example.com/guide --collection guides`

const syncShortDesc string = "Sync a text, file or link item"

// NewSyncCmd creates the sync cobra command.
func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.logger = cmdutil.NewLogger(cmd)
			defer func() { _ = cmder.logger.Sync() }()

			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.materialID, "material-id", "", "Material the item belongs to")
	cmd.Flags().StringVar(&cmder.text, "text", "", "Raw text to sync")
	cmd.Flags().StringVar(&cmder.file, "file", "", "Path of a file to sync (.txt, .md, .html, .pdf)")
	cmd.Flags().StringVar(&cmder.url, "url", "", "URL of a web page to sync")
	cmd.Flags().StringVar(&cmder.fileID, "file-id", "", "Identifier recorded on file chunks (default: the path)")
	cmd.Flags().StringVar(&cmder.linkID, "link-id", "", "Identifier recorded on link chunks (default: the URL)")
	cmd.MarkFlagsMutuallyExclusive("text", "file", "url")
	cmd.MarkFlagsOneRequired("text", "file", "url")
	cmdutil.AddFlags(cmd, cmdutil.StackFlags)

	return cmd
}

func (c *syncCommander) run(ctx context.Context, cmd *cobra.Command) error {
	item, err := material.ParseItem(c.materialID, c.text, c.file, c.url, c.fileID, c.linkID)
	if err != nil {
		return err
	}

	s, err := cmdutil.Build(ctx, cmd, cmdutil.StackFlags, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var report *ingest.Report
	err = cliui.Step(c.out, "Syncing "+item.Describe(), func() error {
		var syncErr error
		report, syncErr = s.Ingest.Sync(ctx, item)
		return syncErr
	})
	if err != nil {
		var ierr *ingest.IngestionError
		if errors.As(err, &ierr) && ierr.CommittedBatches > 0 {
			fmt.Fprintf(c.out, "\n  %s %d batches (%d chunks) were indexed before the %s stage failed\n\n",
				cliui.FailMark, ierr.CommittedBatches, ierr.CommittedChunks, ierr.Stage)
		}
		return err
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	entry := dotdir.SyncEntry{
		MaterialID: report.MaterialID,
		Source:     report.Source,
		Collection: report.Collection,
		Chunks:     report.Chunks,
		Batches:    report.Batches,
		IDs:        report.IDs,
	}
	if err := dotdir.NewManager().AppendHistory(entry, configDir); err != nil {
		c.logger.Warn("could not record sync history", zap.Error(err))
	}

	fmt.Fprintf(c.out, "\n  %s Indexed %d chunks in %d batches into %s\n\n",
		cliui.SuccessMark, report.Chunks, report.Batches, cliui.KeyStyle.Render(report.Collection))
	return nil
}
