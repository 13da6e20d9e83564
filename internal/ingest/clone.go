package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCloneDir is the single working copy reused by every run.
const DefaultCloneDir = "./temp_legacy_app"

var ErrEmptyURL = errors.New("repository url is required")

// GitRunner executes a git subcommand.
type GitRunner func(ctx context.Context, args ...string) error

func execGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Cloner produces a fresh working copy of a repository at Dir.
type Cloner struct {
	Dir string
	// Depth limits history; 0 clones everything.
	Depth int
	// Timeout bounds a single clone; 0 disables it.
	Timeout time.Duration

	Git    GitRunner
	Logger *zap.Logger
}

// Clone wipes Dir and clones repoURL into it, returning the local path.
func (c *Cloner) Clone(ctx context.Context, repoURL string) (string, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return "", ErrEmptyURL
	}
	dir, err := c.dir()
	if err != nil {
		return "", err
	}
	log := c.logger()

	if err := wipe(dir); err != nil {
		return "", fmt.Errorf("clean %s: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", filepath.Dir(dir), err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := []string{"clone"}
	if c.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(c.Depth))
	}
	// "--" keeps a URL starting with "-" from being read as an option.
	args = append(args, "--", repoURL, dir)

	run := c.Git
	if run == nil {
		run = execGit
	}
	start := time.Now()
	if err := run(ctx, args...); err != nil {
		log.Warn("clone failed", zap.String("repo", repoURL), zap.Error(err))
		return "", err
	}
	log.Info("cloned repository",
		zap.String("repo", repoURL),
		zap.String("dir", dir),
		zap.Duration("took", time.Since(start)))
	return dir, nil
}

func (c *Cloner) dir() (string, error) {
	dir := strings.TrimSpace(c.Dir)
	if dir == "" {
		dir = DefaultCloneDir
	}
	dir = filepath.Clean(dir)
	if dir == "." || dir == string(filepath.Separator) || dir == ".." {
		return "", fmt.Errorf("refusing to use %q as clone directory", c.Dir)
	}
	return dir, nil
}

func (c *Cloner) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// wipe removes dir, first granting owner write permission on every entry so
// read-only files (git pack files) do not block removal.
func wipe(dir string) error {
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0o200 == 0 || (d.IsDir() && info.Mode().Perm()&0o700 != 0o700) {
			mode := info.Mode().Perm() | 0o200
			if d.IsDir() {
				mode |= 0o700
			}
			_ = os.Chmod(path, mode)
		}
		return nil
	})
	return os.RemoveAll(dir)
}
