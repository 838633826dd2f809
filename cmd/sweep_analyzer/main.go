package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/sweep_analyzer_go/internal/config"
)

var (
	configPath string
	envFile    string
	verbose    bool
	v          = viper.New()
)

func setupLogger(level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetOutput(os.Stdout)

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return logger
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// loadEnvFile exports SWEEP_* settings from a dotenv file. Variables already
// set in the environment win, and a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "sweep_analyzer",
	Short: "Resample, aggregate and chart parameter sweep results",
	Long: `sweep_analyzer reads the data files of one or more experiments, resamples
every run onto a shared time axis, folds the seed dimensions into mean and
standard deviation summaries, caches them, and renders comparison charts
and a PDF summary report.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.LogLevel, verbose)
		if used := v.ConfigFileUsed(); used != "" {
			logger.WithField("config", used).Debug("Configuration loaded")
		}
		return NewApp(cfg, logger).Run(cmd.Context())
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration to a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteFile(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "sweep_analyzer.yaml", "Configuration file path")
	flags.StringVar(&envFile, "env-file", ".env", "Dotenv file with SWEEP_* settings")
	flags.BoolVar(&verbose, "verbose", false, "Verbose output")

	rootCmd.Flags().String("input-dir", "", "Directory holding the experiment data files (overrides config)")
	rootCmd.Flags().String("output-dir", "", "Directory charts are written to (overrides config)")
	rootCmd.Flags().String("cache-backend", "", "Cache backend: bolt or sqlite (overrides config)")
	rootCmd.Flags().StringSlice("experiments", nil, "Experiment file prefixes (overrides config)")
	rootCmd.Flags().Int("time-samples", 0, "Points on the shared time axis (overrides config)")
	rootCmd.Flags().Bool("charts", true, "Render comparison charts")
	rootCmd.Flags().String("chart-format", "", "Chart file format: pdf, png or svg (overrides config)")
	rootCmd.Flags().Int("workers", 0, "Experiments charted concurrently (overrides config)")
	rootCmd.Flags().Bool("report", true, "Write the PDF summary report")

	v.BindPFlag("input_dir", rootCmd.Flags().Lookup("input-dir"))
	v.BindPFlag("output_dir", rootCmd.Flags().Lookup("output-dir"))
	v.BindPFlag("cache_backend", rootCmd.Flags().Lookup("cache-backend"))
	v.BindPFlag("experiments", rootCmd.Flags().Lookup("experiments"))
	v.BindPFlag("time_samples", rootCmd.Flags().Lookup("time-samples"))
	v.BindPFlag("charts.enabled", rootCmd.Flags().Lookup("charts"))
	v.BindPFlag("charts.format", rootCmd.Flags().Lookup("chart-format"))
	v.BindPFlag("charts.workers", rootCmd.Flags().Lookup("workers"))
	v.BindPFlag("report.enabled", rootCmd.Flags().Lookup("report"))

	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
