package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"avail-risk/internal/config"
	"avail-risk/internal/engine"
	"avail-risk/internal/logging"
	"avail-risk/internal/observability"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose    bool
	configFile string
	dataFile   string

	cfg     *config.AppConfig
	metrics *observability.Metrics
	eng     *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "avail-risk",
	Short: "avail-risk estimates wind farm availability risk and contractual penalties",
	Long: `Availability risk and penalty engine for wind farm portfolios: per-year statistics,
distribution fitting, breach probabilities, penalty/bonus calculation and Monte-Carlo
simulation of portfolio penalty exposure. Without a subcommand it serves MCP over stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Init(logging.Options{Verbose: verbose}); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dataFile != "" {
			if cfg.DatasetFile, err = filepath.Abs(dataFile); err != nil {
				return err
			}
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("avail-risk starting")

		metrics = observability.NewMetrics("")
		eng, err = engine.New(cfg, metrics)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML configuration file (default $AVR_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "availability dataset (.jsonl or .xlsx); overrides AVR_DATASET_FILE")

	rootCmd.AddCommand(serveCmd, versionCmd)
	rootCmd.AddCommand(statsCmd, fitCmd, probabilityCmd, impactCmd, simulateCmd, trendCmd, decomposeCmd, intervalCmd)
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "avail-risk %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}
