package main

import (
	"fmt"
	"time"

	"github.com/sandevgo/greybot/internal/transport/logalert"
	"github.com/sandevgo/greybot/pkg/log"
	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:          "rebuild",
	Short:        "Rebuild memory from the bot's post history now",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		c, err := newComponents(ctx)
		if err != nil {
			return err
		}
		defer c.db.Close()

		report, err := c.newUpdater(logalert.New()).Run(ctx)
		if err != nil {
			return err
		}

		log.FromCtx(ctx).Debug().Str("run_id", report.RunID).Msg("rebuild done")
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: fetched %d posts, stored %d memories in %s\n",
			report.RunID, report.Fetched, report.Stored, report.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
