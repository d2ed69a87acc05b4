package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <document-name>",
		Short: "List the chunks of a document in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			chunks, err := app.Chunks.ListChunks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			header := color.New(color.FgCyan, color.Bold)
			for i, c := range chunks {
				header.Fprintf(out, "[%d] %s\n", i+1, c.ID)
				fmt.Fprintf(out, "%s\n\n", c.Content)
			}
			return nil
		},
	}
}
