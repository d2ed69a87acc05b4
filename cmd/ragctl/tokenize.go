package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/agrisense-rag/internal/bootstrap"
)

func newTokenizeCmd() *cobra.Command {
	var (
		words          []string
		dictionaryFile string
	)

	cmd := &cobra.Command{
		Use:   "tokenize [text]",
		Short: "Segment Thai text into space-separated words",
		Long:  "Segment Thai text into space-separated words. Reads lines from stdin when no text is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			segmenter, err := bootstrap.NewTokenizer(dictionaryFile, words...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				fmt.Fprintln(out, segmenter.Tokenize(strings.Join(args, " ")))
				return nil
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for scanner.Scan() {
				fmt.Fprintln(out, segmenter.Tokenize(scanner.Text()))
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringSliceVar(&words, "word", nil, "extra dictionary word (repeatable)")
	cmd.Flags().StringVar(&dictionaryFile, "dictionary", os.Getenv("THAI_DICTIONARY_FILE"), "word list file, one word per line")
	return cmd
}
