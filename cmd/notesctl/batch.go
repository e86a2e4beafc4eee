package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-notes/internal/app"
	"github.com/joseph-ayodele/clinical-notes/internal/ingest"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

type batchOptions struct {
	dir        string
	doctorFile string
	out        string
	store      string
	noLLM      bool
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	o := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Build a clinical note from a directory of attachments and recordings",
		Long: "Uploads every supported file under --dir, extracts documents, transcribes\n" +
			"audio, refines the unified text into a SOAP note and writes it as XLSX.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, root, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", "", "directory to process files from (required)")
	f.StringVar(&o.doctorFile, "doctor-file", "", "text file with the doctor's own notes")
	f.StringVar(&o.out, "out", "", "output XLSX file path (defaults to the parent directory of --dir)")
	f.StringVar(&o.store, "store", "sqlite", "blob backend for the run (sqlite keeps everything in memory unless BLOB_SQLITE_PATH is set)")
	f.BoolVar(&o.noLLM, "no-llm", false, "skip the language model; the note degrades to a placeholder")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, o *batchOptions) error {
	if o.out == "" {
		o.out = filepath.Join(filepath.Dir(filepath.Clean(o.dir)), "clinical-note.xlsx")
	}

	cfg, logger, err := root.setup(cmd)
	if err != nil {
		return err
	}
	cfg.Blob.Backend = o.store

	var doctorText string
	if o.doctorFile != "" {
		b, err := os.ReadFile(o.doctorFile)
		if err != nil {
			return fmt.Errorf("read doctor file: %w", err)
		}
		doctorText = string(b)
	}

	ctx := cmd.Context()
	var appOpts []app.Option
	if o.noLLM {
		appOpts = append(appOpts, app.WithoutLLM())
	}
	a, err := app.New(ctx, cfg, logger, appOpts...)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	logger.Info("batch.ingest.start", "dir", o.dir)
	results, stats, err := ingest.NewFSIngestor(a.Notes, logger).IngestDirectory(ctx, o.dir, true)
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}
	for _, r := range results {
		if r.Err != "" {
			printError(cmd, "skipped %s: %s\n", r.SourcePath, r.Err)
		}
	}
	docs, audio := ingest.Split(results)
	logger.Info("batch.ingest.ok",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"documents", len(docs),
		"audio", len(audio),
	)
	if doctorText == "" && len(docs) == 0 && len(audio) == 0 {
		return errors.New("nothing to process: no supported files and no doctor notes")
	}

	note, err := a.Notes.AutoRefine(ctx, notes.AutoRefineRequest{
		DoctorText:   doctorText,
		FileIDs:      docs,
		AudioFileIDs: audio,
	})
	if err != nil {
		return err
	}

	xlsx, err := a.Export.NoteXLSX(ctx, note)
	if err != nil {
		return fmt.Errorf("export note: %w", err)
	}
	if err := os.WriteFile(o.out, xlsx, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	failures := 0
	for _, it := range note.Items {
		if it.Result.Failed() {
			failures++
		}
	}
	logger.Info("batch.done", "output_file", o.out, "degraded", note.Degraded, "failures", failures)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Batch processing complete!\n")
	fmt.Fprintf(w, "- Documents: %d\n", len(docs))
	fmt.Fprintf(w, "- Recordings: %d\n", len(audio))
	fmt.Fprintf(w, "- Failures: %d\n", failures)
	fmt.Fprintf(w, "- Degraded: %t\n", note.Degraded)
	fmt.Fprintf(w, "- Output: %s\n", o.out)
	return nil
}
