package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-notes/internal/app"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text from a local file without uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			cfg.Blob.Backend = "memory"

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger, app.WithoutLLM())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			kind := extract.Classify(filepath.Base(path), contentType)
			res := a.Extractor.Extract(ctx, data, kind)
			logger.Info("extract.done",
				"path", path,
				"kind", kind,
				"method", res.Method,
				"pages", res.Pages,
				"failed", res.Failed(),
				"elapsed_ms", res.Duration.Milliseconds(),
			)
			if res.Failed() {
				return errors.New(res.Reason)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return err
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type used when the extension is unknown")
	return cmd
}
