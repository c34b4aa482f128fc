// Command billdocs turns billing workbooks into the printable bill document set.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/billdocs/internal/config"
	"github.com/JonMunkholm/billdocs/internal/logging"
)

// app carries what every subcommand needs after PersistentPreRunE.
type app struct {
	cfg     *config.Config
	engines []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "billdocs",
		Short: "Generate bill documents from public-works billing workbooks",
		Long: `billdocs reads billing workbooks (work order, bill quantity, extra items
and title sheets) and writes the summary, deviation statement, scrutiny sheet,
extra items statement and certificates as PDFs, plus a combined bill.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringSliceVar(&a.engines, "engines", nil, "Ranked render engines (overrides RENDER_ENGINES)")

	root.AddCommand(
		newBatchCmd(a),
		newRenderCmd(a),
		newServeCmd(a),
		newSampleCmd(),
	)
	return root
}

// load reads .env and the environment, then applies flag overrides.
func (a *app) load() error {
	// Overload lets a local .env win over stale shell exports
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(a.engines) > 0 {
		cfg.Render.Engines = a.engines
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	a.cfg = cfg
	return nil
}
