package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-notes/internal/app"
	"github.com/joseph-ayodele/clinical-notes/internal/llm"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

type refineOutput struct {
	Note     llm.Note `json:"note"`
	Unified  string   `json:"unified"`
	Degraded bool     `json:"degraded"`
}

func newRefineCmd(root *rootOptions) *cobra.Command {
	var doctorFile, attachmentsFile, transcriptFile string
	var noLLM bool
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Refine already-extracted text files into a SOAP note printed as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			cfg.Blob.Backend = "memory"

			var req notes.RefineRequest
			for _, in := range []struct {
				path string
				dst  *string
			}{
				{doctorFile, &req.DoctorText},
				{attachmentsFile, &req.AttachmentsText},
				{transcriptFile, &req.TranscriptText},
			} {
				if in.path == "" {
					continue
				}
				b, err := os.ReadFile(in.path)
				if err != nil {
					return fmt.Errorf("read %s: %w", in.path, err)
				}
				*in.dst = string(b)
			}

			ctx := cmd.Context()
			var appOpts []app.Option
			if noLLM {
				appOpts = append(appOpts, app.WithoutLLM())
			}
			a, err := app.New(ctx, cfg, logger, appOpts...)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			out, err := a.Notes.Refine(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(refineOutput{Note: out.Note, Unified: out.Unified, Degraded: out.Degraded})
		},
	}
	f := cmd.Flags()
	f.StringVar(&doctorFile, "doctor-file", "", "doctor notes")
	f.StringVar(&attachmentsFile, "attachments-file", "", "text already extracted from attachments")
	f.StringVar(&transcriptFile, "transcript-file", "", "consultation transcript")
	f.BoolVar(&noLLM, "no-llm", false, "skip the language model; the note degrades to a placeholder")
	return cmd
}
