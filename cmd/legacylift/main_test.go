package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"legacylift/internal/config"
	"legacylift/internal/llm"
	"legacylift/internal/pipeline"
	"legacylift/internal/store"
)

type dirCloner struct {
	dir string
	err error
}

func (c dirCloner) Clone(context.Context, string) (string, error) { return c.dir, c.err }

func testApp(t *testing.T, cloner pipeline.Cloner, failOn string) *app {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Sequential = true
	model := &llm.FakeClient{Respond: func(_ context.Context, prompt string) (string, error) {
		if failOn != "" && strings.Contains(prompt, failOn) {
			return "", errors.New("quota exceeded")
		}
		switch {
		case strings.Contains(prompt, "Dockerfile"):
			return "```dockerfile\nFROM python:3.12-slim\n```", nil
		case strings.Contains(prompt, "cloudbuild"):
			return "steps: []", nil
		default:
			return "apiVersion: serving.knative.dev/v1", nil
		}
	}}
	return newApp(&cfg, zap.NewNop(), model, cloner)
}

func TestRunMigrateWritesBundle(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "requirements.txt"), []byte("flask\n"), 0o644))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := runMigrate(context.Background(), testApp(t, dirCloner{dir: repo}, ""),
		"https://github.com/acme/shop.git", out, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "===== Dockerfile =====\nFROM python:3.12-slim")
	assert.Contains(t, stdout.String(), "gcloud builds submit --config cloudbuild.yaml .")
	assert.Contains(t, stderr.String(), "cloning...")

	raw, err := os.ReadFile(filepath.Join(out, "shop", "Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, "FROM python:3.12-slim", string(raw))

	m, err := store.LoadManifest(context.Background(), store.NewDiskStore(out), "shop")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/shop.git", m.RepoURL)
}

func TestRunMigrateCloneFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	a := testApp(t, dirCloner{err: errors.New("repository not found")}, "")

	err := runMigrate(context.Background(), a, "https://github.com/acme/nope", "", &stdout, &stderr)
	require.ErrorIs(t, err, pipeline.ErrClone)
	assert.Contains(t, stderr.String(), "Git Clone Error: repository not found")
	assert.Empty(t, stdout.String())
}

func TestRunMigratePartialFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	a := testApp(t, dirCloner{dir: t.TempDir()}, "service.yaml")

	err := runMigrate(context.Background(), a, "https://github.com/acme/shop", "", &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
	assert.Contains(t, stdout.String(), "AI Error: quota exceeded")
	assert.Contains(t, stderr.String(), "service.yaml: failed")
}

func TestDeployScriptCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"deploy-script", "--project", "acme", "--service", "shop"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	logger = zap.NewNop()
	t.Chdir(t.TempDir())

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "gcloud config set project acme")
	assert.Contains(t, out.String(), "--region us-central1")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := openStore(ctx, config.ArtifactConfig{Backend: config.BackendMemory}, 4)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
	assert.NoError(t, closeFn())

	s, _, err = openStore(ctx, config.ArtifactConfig{Backend: config.BackendDisk, DiskRoot: t.TempDir()}, 4)
	require.NoError(t, err)
	assert.IsType(t, &store.DiskStore{}, s)

	s, _, err = openStore(ctx, config.ArtifactConfig{
		Backend: config.BackendS3,
		Cache:   true,
		S3:      config.S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "x"},
	}, 4)
	require.NoError(t, err)
	assert.IsType(t, &store.CachedStore{}, s)
	assert.Implements(t, (*store.MetricsReporter)(nil), s)
}

func TestOpenStoreRejectsMisconfiguredBackends(t *testing.T) {
	ctx := context.Background()

	_, _, err := openStore(ctx, config.ArtifactConfig{Backend: "ftp"}, 4)
	assert.ErrorContains(t, err, "unknown artifact backend")

	_, _, err = openStore(ctx, config.ArtifactConfig{Backend: config.BackendS3}, 4)
	assert.ErrorContains(t, err, "ARTIFACT_S3_ENDPOINT")

	_, _, err = openStore(ctx, config.ArtifactConfig{Backend: config.BackendPostgres}, 4)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestBuildAppIgnoresArtifactBackend(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.LLM.Model = "gemini-1.5-flash"
	cfg.Artifact.Backend = config.BackendPostgres

	a, err := buildApp(context.Background(), &cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

func TestBuildAppRequiresKey(t *testing.T) {
	cfg := config.Default()
	_, err := buildApp(context.Background(), &cfg, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
