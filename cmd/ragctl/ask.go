package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

func newAskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question and stream the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			session, err := app.Chat.Chat(cmd.Context(), ports.ChatRequest{Question: strings.Join(args, " ")})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fragments := 0
			status := domain.ChatStatusOK
			var streamErr error
			for fragment, err := range session.Fragments {
				if err != nil {
					streamErr = err
					status = domain.ChatStatusError
					if errors.Is(err, context.Canceled) {
						status = domain.ChatStatusCanceled
					}
					break
				}
				fmt.Fprint(out, fragment)
				fragments++
			}
			fmt.Fprintln(out)
			if err := session.Finish(context.WithoutCancel(cmd.Context()), status, fragments); err != nil {
				slog.Warn("chat_event_publish_failed", "error", err)
			}

			if showSources && !session.Retrieval.Empty() {
				color.New(color.Faint).Fprintf(out, "sources: %s\n", strings.Join(session.Retrieval.PassageIDs(), ", "))
			}
			return streamErr
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the ids of the passages used")
	return cmd
}
