package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var entryPoints []string
	cmd := &cobra.Command{
		Use:   "validate <content-dir>",
		Short: "Check the chapter graph for broken references and unreachable chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, err := chapter.NewValidator(entryPoints...)
			if err != nil {
				return err
			}
			b, err := opts.loadDir(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range b.Skipped {
				fmt.Fprintf(out, "skipped: %s\n", s)
			}
			findings := validator.ValidateAll(b.Graph)
			for _, f := range findings {
				fmt.Fprintln(out, f)
			}
			fmt.Fprintf(out, "%d chapters, %d events, %d skipped, %d findings\n",
				b.Graph.Len(), b.Events.Len(), len(b.Skipped), len(findings))

			if len(findings) > 0 {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&entryPoints, "entry-point", nil, "regexp naming chapters reachable without a reference (repeatable)")
	return cmd
}
