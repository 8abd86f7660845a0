package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/narrative-engine/internal/content"
	"github.com/jwebster45206/narrative-engine/pkg/event"
)

var errFindings = errors.New("content has validation findings")

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "narrativectl",
		Short: "Inspect and validate narrative content",
		Long: `Loads a content directory (chapters/, groups/<id>/, events/)
and reports on it without running the API.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loader output to stderr")

	cmd.AddCommand(
		newValidateCmd(opts),
		newAvailableCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadDir loads a content directory, failing if it does not exist
func (o *rootOptions) loadDir(cmd *cobra.Command, dir string) (*content.Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New(dir + " is not a directory")
	}
	return content.Load(os.DirFS(dir), o.logger(cmd)), nil
}

// loadRomance reads <dir>/romance.toml unless path overrides it
func (o *rootOptions) loadRomance(cmd *cobra.Command, dir, path string) (*event.RomanceConfig, error) {
	if path == "" {
		path = filepath.Join(dir, "romance.toml")
	}
	return event.LoadRomanceConfig(path, o.logger(cmd))
}
