// internal/cli/root.go
package cli

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/feed-harvest/scrape/internal/app"
	"github.com/feed-harvest/scrape/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "feedscrape",
	Short:   "Collect structured records from lazily loading feed pages",
	Long:    `Feedscrape drives a headless browser against script-rendered feeds, extracting structured records via declarative field schemas while adapting its scroll pace to rate limiting.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Lazily initialize the application before running commands (avoid
	// starting anything for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp() != nil {
			return nil
		}

		cfg, err := config.Load(rootCmd)
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return err
		}

		SetApp(cmd, a)
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a := GetApp()
		if a == nil {
			return
		}
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Shutdown error")
		}
		SetApp(cmd, nil)
	}
}
