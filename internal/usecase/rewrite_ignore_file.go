package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/spf13/afero"
)

// IgnoreFileRewrite describes the outcome of a rewrite.
type IgnoreFileRewrite struct {
	Path     string
	Original string
	Changed  bool
}

// RewriteIgnoreFileUseCase removes an exclusion pattern from an ignore-file.
type RewriteIgnoreFileUseCase struct {
	FS afero.Fs
}

// Execute removes every occurrence of pattern from the file at path and writes it back.
func (uc *RewriteIgnoreFileUseCase) Execute(_ context.Context, path, pattern string) (*IgnoreFileRewrite, error) {
	const op = "rewrite ignore file"
	info, original, err := uc.read(path)
	if err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindIgnoreFile, op, err)
	}
	result := &IgnoreFileRewrite{Path: path, Original: original}
	if pattern == "" || !strings.Contains(original, pattern) {
		return result, nil
	}
	rewritten := strings.ReplaceAll(original, pattern, "")
	if err := afero.WriteFile(uc.FS, path, []byte(rewritten), info.Mode().Perm()); err != nil {
		return nil, domain.NewReleaseError(domain.ErrorKindIgnoreFile, op,
			fmt.Errorf("failed to write %s: %w", path, err))
	}
	result.Changed = true
	return result, nil
}

// Contains reports whether the ignore-file still holds pattern.
func (uc *RewriteIgnoreFileUseCase) Contains(_ context.Context, path, pattern string) (bool, error) {
	_, content, err := uc.read(path)
	if err != nil {
		return false, domain.NewReleaseError(domain.ErrorKindIgnoreFile, "inspect ignore file", err)
	}
	return pattern != "" && strings.Contains(content, pattern), nil
}

// Restore writes content back to path, keeping the current file mode.
func (uc *RewriteIgnoreFileUseCase) Restore(_ context.Context, path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := uc.FS.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := afero.WriteFile(uc.FS, path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}
	return nil
}

func (uc *RewriteIgnoreFileUseCase) read(path string) (os.FileInfo, string, error) {
	info, err := uc.FS.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrIgnoreFileNotFound, path)
		}
		return nil, "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	data, err := afero.ReadFile(uc.FS, path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return info, string(data), nil
}
