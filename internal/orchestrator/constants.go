package orchestrator

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// Timeout constants for different operations
var (
	// DefaultWorkflowTimeout bounds a whole release run
	DefaultWorkflowTimeout = getTimeoutOrDefault("WORKFLOW_TIMEOUT", 10*time.Minute, 5*time.Second)
	// RollbackTimeout is the timeout for rollback operations
	RollbackTimeout = getTimeoutOrDefault("ROLLBACK_TIMEOUT", 5*time.Minute, 2*time.Second)
	// DefaultRetryCount is the number of retries of network steps and compensations
	DefaultRetryCount = uint64(getRetryCountOrDefault("RETRY_COUNT", 3, 1))
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = getTimeoutOrDefault("RETRY_DELAY", 1*time.Second, 10*time.Millisecond)
)

// isTestEnvironment reports whether the package runs inside a test binary or
// test mode was requested through the environment.
func isTestEnvironment() bool {
	return testing.Testing() || testModeFromEnv()
}

// testModeFromEnv only consults the environment. Command line arguments are
// release input and never select test defaults.
func testModeFromEnv() bool {
	return os.Getenv("GO_TEST") == "true" || os.Getenv("TEST_MODE") == "true"
}

// getTimeoutOrDefault returns production timeout or test timeout based on environment
func getTimeoutOrDefault(envVar string, prodDefault, testDefault time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil {
			return duration
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

// getRetryCountOrDefault returns production retry count or test retry count based on environment
func getRetryCountOrDefault(envVar string, prodDefault, testDefault int) int {
	if env := os.Getenv(envVar); env != "" {
		if count, err := strconv.Atoi(env); err == nil {
			return count
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

// GitHub Actions identity used when no author is configured on a runner.
const (
	githubActionsTrue = "true"
	envGithubActions  = "GITHUB_ACTIONS"
	actionsBotName    = "github-actions[bot]"
	actionsBotEmail   = "github-actions[bot]@users.noreply.github.com"
)
