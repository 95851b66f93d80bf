package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/shelfscan/internal/config"
	"github.com/lehigh-university-libraries/shelfscan/internal/logging"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the configuration they resolve to
type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Inventory bookshelves from photographs with a vision LLM",
		Long: `Shelfscan turns a folder of bookshelf photographs into a list of books.

Each photo is normalized to a small JPEG and the whole folder is sent to a
vision-capable LLM in one request. The model's answer is checked and returned
as one entry per book, with the photos it was seen in.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, path, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Logging.Level = "debug"
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			if path != "" {
				slog.Debug("Loaded config", "path", path)
			}

			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newGPSCmd(opts))
	cmd.AddCommand(newEnrichCmd(opts))
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newFoldersCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}
