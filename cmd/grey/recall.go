package main

import (
	"fmt"
	"strings"

	"github.com/sandevgo/greybot/internal/service/ui"
	"github.com/sandevgo/greybot/pkg/conv"
	"github.com/spf13/cobra"
)

var (
	recallTopK  int
	recallFloor float64
)

var recallCmd = &cobra.Command{
	Use:          "recall <text>",
	Short:        "Show stored memories similar to text",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		c, err := newComponents(ctx)
		if err != nil {
			return err
		}
		defer c.db.Close()

		topK, floor := recallTopK, recallFloor
		if topK <= 0 {
			topK = c.mem.TopK
		}
		if floor < 0 {
			floor = c.mem.SimilarityFloor
		}

		matches, err := c.store.QuerySimilar(ctx, strings.Join(args, " "), topK, floor)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(matches) == 0 {
			fmt.Fprintln(out, ui.DescStyle.Render("no memories above the similarity floor"))
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(out, "%s  %s  %s\n",
				ui.ScoreStyle.Render(fmt.Sprintf("%.3f", m.Similarity)),
				ui.DescStyle.Render(m.CreatedAt.Format("2006-01-02 15:04")),
				conv.Preview(m.Text, 120))
		}
		return nil
	},
}

func init() {
	recallCmd.Flags().IntVarP(&recallTopK, "top", "k", 0, "number of matches (default from GREY_SIMILARITY_TOP_K)")
	recallCmd.Flags().Float64VarP(&recallFloor, "floor", "f", -1, "minimum similarity (default from GREY_SIMILARITY_FLOOR)")
	rootCmd.AddCommand(recallCmd)
}
