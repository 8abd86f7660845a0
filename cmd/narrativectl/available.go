package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
)

func newAvailableCmd(opts *rootOptions) *cobra.Command {
	var (
		completed []string
		stats     []string
	)
	cmd := &cobra.Command{
		Use:   "available <content-dir>",
		Short: "List the chapters a player with the given history could start",
		Example: `  narrativectl available ./data
  narrativectl available ./data --completed intro,harbor --stat charm=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := parsePairs(stats, strconv.Atoi)
			if err != nil {
				return err
			}
			b, err := opts.loadDir(cmd, args[0])
			if err != nil {
				return err
			}

			for _, id := range b.Graph.AvailableChapters(chapter.NewSnapshot(completed, attributes)) {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&completed, "completed", nil, "completed chapter ids")
	cmd.Flags().StringSliceVar(&stats, "stat", nil, "player attribute as name=value (repeatable)")
	return cmd
}
