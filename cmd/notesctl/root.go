package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-notes/internal/common"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "notesctl",
		Short:         "Local tools for the clinical notes pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log format (json or text)")

	cmd.AddCommand(
		newClassifyCmd(),
		newExtractCmd(opts),
		newBatchCmd(opts),
		newRefineCmd(opts),
		newDBHealthCmd(opts),
	)
	return cmd
}

// setup loads configuration and builds a logger that writes to the
// command's stderr, keeping stdout for results.
func (o *rootOptions) setup(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfigFile(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger := common.NewLogger(cfg.Log, cmd.ErrOrStderr())
	return cfg, logger, nil
}

// printError prints an error message to the command's stderr.
func printError(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}
