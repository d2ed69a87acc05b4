package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

func newSearchCmd() *cobra.Command {
	var (
		limit   int
		asJSON  bool
		preview int
	)

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Run hybrid retrieval and print the ranked passages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			retrieval, err := app.Retriever.Retrieve(cmd.Context(), domain.RetrievalRequest{
				Question: strings.Join(args, " "),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(retrieval)
			}
			printRetrieval(cmd.OutOrStdout(), retrieval, preview)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum passages (0 uses RAG_TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw retrieval as JSON")
	cmd.Flags().IntVar(&preview, "preview", 160, "characters of passage content to show (0 shows all)")
	return cmd
}

func printRetrieval(w io.Writer, retrieval *domain.Retrieval, preview int) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	header.Fprintf(w, "filters (%s)\n", retrieval.FilterSource)
	printLabels(w, "section_type", retrieval.Filters.SectionType)
	printLabels(w, "crop_type", retrieval.Filters.CropType)
	printLabels(w, "key_topics", retrieval.Filters.KeyTopics)
	printLabels(w, "organization", retrieval.Filters.Organization)
	dim.Fprintf(w, "candidates: metadata=%d fulltext=%d vector=%d\n\n",
		retrieval.Candidates.Metadata, retrieval.Candidates.FullText, retrieval.Candidates.Vector)

	if retrieval.Empty() {
		color.New(color.FgYellow).Fprintln(w, "no passages")
		return
	}
	for i, p := range retrieval.Passages {
		header.Fprintf(w, "%2d. %s", i+1, p.ID)
		dim.Fprintf(w, "  score=%.4f\n", p.Score)
		fmt.Fprintf(w, "    %s\n", truncateRunes(p.Content, preview))
	}
}

func printLabels(w io.Writer, name string, labels []string) {
	if len(labels) == 0 {
		return
	}
	fmt.Fprintf(w, "  %-13s %s\n", name+":", strings.Join(labels, ", "))
}

func truncateRunes(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
