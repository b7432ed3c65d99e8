package main

import (
	"fmt"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/sandevgo/greybot/internal/service/ui"
	"github.com/spf13/cobra"
)

var usedCmd = &cobra.Command{
	Use:          "used",
	Short:        "Show how much content is marked as used",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}
		app, err := config.ParseAppConfig()
		if err != nil {
			return err
		}
		mem, err := config.ParseMemoryConfig()
		if err != nil {
			return err
		}

		tracker, err := used.NewTrackerFromConfig(app, mem)
		if err != nil {
			return err
		}
		if err := tracker.Load(ctx); err != nil {
			return err
		}

		sizes := tracker.Sizes()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.TitleStyle.Render("USED CONTENT"))
		for _, kind := range []used.Kind{used.KindPosts, used.KindTopics, used.KindMemes} {
			fmt.Fprintf(out, "  %-7s %d\n", kind, sizes[kind])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usedCmd)
}
