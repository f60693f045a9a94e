package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paperfinder/paperfinder/internal/domain/label"
)

func newLabelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label LABEL_ID...",
		Short: "Show display names and asset paths of question labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLabels(cmd.OutOrStdout(), label.DefaultAssets(), args)
		},
	}
}

func printLabels(w io.Writer, assets label.Assets, ids []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, id := range ids {
		if err := label.Validate(id); err != nil {
			return err //nolint:wrapcheck // domain validation error
		}
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "id\t%s\n", id)
		fmt.Fprintf(tw, "name\t%s\n", label.Format(id))
		if base, ok := label.DocumentBase(id); ok {
			fmt.Fprintf(tw, "document\t%s\n", base)
		}
		fmt.Fprintf(tw, "question\t%s\n", assets.QuestionPath(id))
		fmt.Fprintf(tw, "answer\t%s\n", assets.AnswerPath(id))
		if p, ok := assets.PaperPath(id); ok {
			fmt.Fprintf(tw, "paper\t%s\n", p)
		}
		if p, ok := assets.MarkschemePath(id); ok {
			fmt.Fprintf(tw, "markscheme\t%s\n", p)
		}
	}
	return tw.Flush() //nolint:wrapcheck // writer error
}
