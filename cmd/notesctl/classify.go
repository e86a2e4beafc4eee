package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-notes/internal/extract"
)

func newClassifyCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Print the document kind of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				kind := extract.Classify(filepath.Base(p), contentType)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p, kind); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type used when the extension is unknown")
	return cmd
}
