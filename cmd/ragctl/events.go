package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/agrisense-rag/internal/bootstrap"
	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func newEventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent recorded chat events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			repo, closeFn, err := bootstrap.OpenEventLog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := repo.ListRecentChatEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events")
	return cmd
}

func printEvents(w io.Writer, events []domain.ChatEvent) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tFILTERS\tPASSAGES\tDURATION\tQUESTION")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			statusColor(e.Status).Sprint(e.Status),
			e.FilterSource,
			len(e.PassageIDs),
			(time.Duration(e.DurationMS) * time.Millisecond).String(),
			truncateRunes(e.Question, 60),
		)
	}
	return tw.Flush()
}

func statusColor(status domain.ChatStatus) *color.Color {
	switch status {
	case domain.ChatStatusOK:
		return color.New(color.FgGreen)
	case domain.ChatStatusCanceled:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
