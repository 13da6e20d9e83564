package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legacylift/internal/store"
	"legacylift/internal/tui"
)

var (
	tuiOutDir  string
	tuiStyle   string
	tuiLogFile string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The terminal belongs to the UI; log to a file or not at all.
		log := zap.NewNop()
		if tuiLogFile != "" {
			l, err := newLogger(cfg.LogLevel, verbose, tuiLogFile)
			if err != nil {
				return err
			}
			defer l.Sync()
			log = l
		}

		a, err := buildApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		outDir := tuiOutDir
		if outDir == "" {
			outDir = cfg.Artifact.DiskRoot
		}
		model := tui.New(tui.Options{
			Runner: a.pipeline,
			Saver:  store.NewDiskStore(outDir),
			OutDir: outDir,
			Style:  tuiStyle,
			Logger: log,
		})
		_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiOutDir, "out", "o", "", "Directory the s key saves bundles to (default ARTIFACT_DISK_ROOT)")
	tuiCmd.Flags().StringVar(&tuiStyle, "style", "auto", "Glamour style: auto, dark, light, notty")
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "Write logs to this file")
}
