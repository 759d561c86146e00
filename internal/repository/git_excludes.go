package repository

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const excludesFileOption = "excludesfile"

// excludePatterns returns the patterns of the excludes file git would use for this
// repository. core.excludesfile is looked up in local, global and system
// configuration, in that order; without it the XDG default git/ignore applies.
func (r *gitRepository) excludePatterns(root string) ([]gitignore.Pattern, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read git config: %w", err)
	}
	if path := cfg.Raw.Section("core").Option(excludesFileOption); path != "" {
		return readExcludesFile(resolveExcludesPath(path, root))
	}
	rootFS := osfs.New("/")
	global, err := gitignore.LoadGlobalPatterns(rootFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load global excludes: %w", err)
	}
	if len(global) > 0 {
		return global, nil
	}
	system, err := gitignore.LoadSystemPatterns(rootFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load system excludes: %w", err)
	}
	if len(system) > 0 {
		return system, nil
	}
	if path := defaultExcludesPath(); path != "" {
		return readExcludesFile(path)
	}
	return nil, nil
}

func resolveExcludesPath(path, root string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(root, path)
	}
	return path
}

func defaultExcludesPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "git", "ignore")
}

// readExcludesFile parses a gitignore-format file. A missing file has no patterns.
func readExcludesFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open excludes file %s: %w", path, err)
	}
	defer f.Close()
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read excludes file %s: %w", path, err)
	}
	return patterns, nil
}
