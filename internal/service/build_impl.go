package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// buildService is the implementation of the BuildService interface.
type buildService struct {
	// timeout for command execution
	timeout time.Duration
	shell   string
	logger  *zap.Logger
}

// NewBuildService creates a BuildService. A non-positive timeout selects DefaultBuildTimeout.
func NewBuildService(timeout time.Duration, logger *zap.Logger) BuildService {
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &buildService{
		timeout: timeout,
		shell:   "sh",
		logger:  logger,
	}
}

// Run executes the build command and fails on a non-zero exit.
func (s *buildService) Run(ctx context.Context, command, version string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("build command cannot be empty")
	}
	s.logger.Info("running build command", zap.String("command", command), zap.String("version", version))
	start := time.Now()
	output, err := s.executeCommand(ctx, []string{"RELEASE_VERSION=" + version}, s.shell, "-c", command)
	if err != nil {
		return err
	}
	s.logger.Debug("build command finished",
		zap.Duration("duration", time.Since(start)),
		zap.String("output", tail(output)),
	)
	return nil
}

// executeCommand runs a command with timeout and captures its combined output.
func (s *buildService) executeCommand(ctx context.Context, env []string, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("build command timed out after %v", s.timeout)
		}
		if errMsg := tail(stderr.String()); errMsg != "" {
			return "", fmt.Errorf("build command failed: %w (stderr: %s)", err, errMsg)
		}
		return "", fmt.Errorf("build command failed: %w", err)
	}
	return stdout.String(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputTail {
		return s[len(s)-maxOutputTail:]
	}
	return s
}
