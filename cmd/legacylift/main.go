package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"legacylift/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "legacylift",
	Short: "LegacyLift - modernize legacy apps for Google Cloud Run",
	Long: `LegacyLift clones a repository, reads its dependency manifests and asks
Gemini for a Dockerfile, a cloudbuild.yaml and a Cloud Run service.yaml.

Run "legacylift serve" for the web UI, "legacylift tui" for the terminal UI
or "legacylift migrate <url>" for a one-shot run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logger == nil {
			logger, err = newLogger(cfg.LogLevel, verbose, "")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, tuiCmd, migrateCmd, deployScriptCmd)
}

// newLogger builds the production logger. An output path other than ""
// redirects it away from stderr.
func newLogger(level string, verbose bool, output string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil && level != "" {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if output != "" {
		zcfg.OutputPaths = []string{output}
		zcfg.ErrorOutputPaths = []string{output}
	}
	return zcfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
