package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/service/ui"
	pkgenv "github.com/sandevgo/greybot/pkg/env"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration with secrets masked",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		sections := []struct {
			title string
			cfg   any
		}{
			{"APP", &config.AppConfig{}},
			{"BLUESKY", &config.BlueskyConfig{}},
			{"LLM", &config.LLMConfig{}},
			{"EMBEDDING", &config.EmbeddingConfig{}},
			{"MEMORY", &config.MemoryConfig{}},
			{"TELEGRAM", &config.TelegramConfig{}},
		}

		out := cmd.OutOrStdout()
		for _, s := range sections {
			// missing required values are reported inline, the rest still prints
			parseErr := env.Parse(s.cfg)

			text, err := pkgenv.MarshalEnvMasked(s.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.TitleStyle.Render(s.title))
			fmt.Fprint(out, text)
			if parseErr != nil {
				fmt.Fprintln(out, ui.DescStyle.Render(parseErr.Error()))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
