package service

import "time"

// Timeout constants for service operations
const (
	// DefaultBuildTimeout is the timeout for the pre-release build command
	DefaultBuildTimeout = 10 * time.Minute
	// waitDelay bounds how long output pipes are drained after the command is killed
	waitDelay = 2 * time.Second
	// maxOutputTail bounds the command output kept in error messages
	maxOutputTail = 2048
)
