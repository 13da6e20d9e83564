package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"legacylift/internal/artifact"
	"legacylift/internal/pipeline"
	"legacylift/internal/session"
	"legacylift/internal/store"
)

var migrateOut string

var migrateCmd = &cobra.Command{
	Use:   "migrate [repository-url]",
	Short: "Generate the deployment artifacts for one repository",
	Long: `Clones the repository, generates a Dockerfile, cloudbuild.yaml and
service.yaml and prints them. With --out the files are also written to
<out>/<repository-name>/.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return runMigrate(cmd.Context(), a, args[0], migrateOut, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateOut, "out", "o", "", "Write the artifacts under this directory")
}

func runMigrate(ctx context.Context, a *app, repoURL, outDir string, stdout, stderr io.Writer) error {
	b, err := a.pipeline.Run(ctx, repoURL, func(e pipeline.Event) {
		if e.Stage == pipeline.StageGenerated {
			status := "ok"
			if e.Failed {
				status = "failed"
			}
			fmt.Fprintf(stderr, "  %s: %s\n", e.Kind.FileName(), status)
			return
		}
		if e.Stage != pipeline.StageFailed {
			fmt.Fprintf(stderr, "%s...\n", e.Stage)
		}
	})
	if err != nil {
		fmt.Fprintln(stderr, session.Message(err))
		return err
	}

	for _, art := range b.Artifacts() {
		fmt.Fprintf(stdout, "===== %s =====\n%s\n\n", art.Kind.FileName(), art.Content)
	}
	fmt.Fprintf(stdout, "===== deploy =====\n%s\n", strings.TrimSpace(artifact.DeployCommands))

	if outDir != "" {
		key := b.RepoName
		if key == "" {
			key = b.RunID
		}
		if _, err := store.SaveBundle(ctx, store.NewDiskStore(outDir), key, b); err != nil {
			return fmt.Errorf("write artifacts: %w", err)
		}
		fmt.Fprintf(stderr, "wrote %s\n", filepath.Join(outDir, key))
	}
	if failed := b.FailedKinds(); len(failed) > 0 {
		return fmt.Errorf("%d of %d artifacts failed to generate", len(failed), len(artifact.Kinds()))
	}
	return nil
}
