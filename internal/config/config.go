package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	IgnoreFile        string        `mapstructure:"ignore_file"`
	ExcludePattern    string        `mapstructure:"exclude_pattern"`
	Remote            string        `mapstructure:"remote"`
	CommitMessage     string        `mapstructure:"commit_message"`
	TagMessage        string        `mapstructure:"tag_message"`
	AnnotateTag       bool          `mapstructure:"annotate_tag"`
	AuthorName        string        `mapstructure:"author_name"`
	AuthorEmail       string        `mapstructure:"author_email"`
	RequireSemver     bool          `mapstructure:"require_semver"`
	CheckVersionOrder bool          `mapstructure:"check_version_order"`
	BuildCommand      string        `mapstructure:"build_command"`
	BuildTimeout      time.Duration `mapstructure:"build_timeout"`
	EnableRollback    bool          `mapstructure:"enable_rollback"`
	StateDir          string        `mapstructure:"state_dir"`
	GithubToken       string        `mapstructure:"github_token"`
	GithubOwner       string        `mapstructure:"github_owner"`
	GithubRepo        string        `mapstructure:"github_repo"`
	GithubRelease     bool          `mapstructure:"github_release"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		IgnoreFile:     ".gitignore",
		ExcludePattern: "/dist",
		Remote:         "origin",
		CommitMessage:  "chore release: new release %s",
		TagMessage:     "Release %s",
		BuildTimeout:   10 * time.Minute,
		EnableRollback: true,
		StateDir:       ".git/release-tag",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

var (
	remoteNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"console", "json"}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateRelativePath("ignore_file", c.IgnoreFile); err != nil {
		return err
	}
	if c.ExcludePattern == "" {
		return fmt.Errorf("exclude_pattern cannot be empty")
	}
	if !remoteNameRegex.MatchString(c.Remote) {
		return fmt.Errorf("invalid remote name: %q", c.Remote)
	}
	if strings.Count(c.CommitMessage, "%") > 1 || strings.Count(c.TagMessage, "%") > 1 {
		return fmt.Errorf("message templates accept a single %%s placeholder")
	}
	if (c.AuthorName == "") != (c.AuthorEmail == "") {
		return fmt.Errorf("author_name and author_email must be set together")
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("build_timeout must be positive")
	}
	if err := validateRelativePath("state_dir", c.StateDir); err != nil {
		return err
	}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q: expected one of %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q: expected one of %s", c.LogFormat, strings.Join(validLogFormats, ", "))
	}
	// The token is only checked when a release is published; an ambient
	// GITHUB_TOKEN must not break plain tag pushes.
	if c.GithubRelease {
		if c.GithubToken != "" {
			if err := ValidateGitHubToken(c.GithubToken); err != nil {
				return fmt.Errorf("invalid github_token: %w", err)
			}
		}
		if err := ValidateGitHubOwnerRepo(c.GithubOwner, c.GithubRepo); err != nil {
			return fmt.Errorf("invalid github configuration: %w", err)
		}
	}
	return nil
}

func validateRelativePath(key, path string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s must be relative to the repository root", key)
	}
	// Check for path traversal
	if strings.Contains(filepath.ToSlash(filepath.Clean(path)), "..") {
		return fmt.Errorf("%s contains invalid path traversal", key)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// ValidateGitHubToken validates GitHub token format (exported for reuse)
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 40 {
		return fmt.Errorf("token too short: expected at least 40 characters")
	}
	// Validate token format patterns
	classicPAT := regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	fineGrainedPAT := regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)
	appToken := regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)
	oauthToken := regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`)
	personalToken := regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}$`)
	if !classicPAT.MatchString(token) &&
		!fineGrainedPAT.MatchString(token) &&
		!appToken.MatchString(token) &&
		!oauthToken.MatchString(token) &&
		!personalToken.MatchString(token) {
		return fmt.Errorf("invalid token format")
	}
	return nil
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	validName := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

// populateRepositoryDefaults fills owner and repo from the GitHub Actions environment
// (GITHUB_REPOSITORY=owner/repo) when they are not configured.
func populateRepositoryDefaults(cfg *Config, slug string) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || repo == "" {
		return
	}
	if cfg.GithubOwner == "" {
		cfg.GithubOwner = owner
	}
	if cfg.GithubRepo == "" {
		cfg.GithubRepo = repo
	}
}

// LoadConfig reads .release-tag.yaml from the working directory, then the environment.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName(".release-tag")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	// Configure environment variables
	v.SetEnvPrefix("RELEASE_TAG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// BindEnv allows multiple env vars - it will check them in order
	if err := v.BindEnv("github_token", "RELEASE_TAG_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind github_token env: %w", err)
	}
	if err := v.BindEnv("github_owner", "RELEASE_TAG_GITHUB_OWNER", "GITHUB_REPOSITORY_OWNER"); err != nil {
		return nil, fmt.Errorf("failed to bind github_owner env: %w", err)
	}
	if err := v.BindEnv("github_repository", "GITHUB_REPOSITORY"); err != nil {
		return nil, fmt.Errorf("failed to bind github_repository env: %w", err)
	}
	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("ignore_file", defaults.IgnoreFile)
	v.SetDefault("exclude_pattern", defaults.ExcludePattern)
	v.SetDefault("remote", defaults.Remote)
	v.SetDefault("commit_message", defaults.CommitMessage)
	v.SetDefault("tag_message", defaults.TagMessage)
	v.SetDefault("annotate_tag", defaults.AnnotateTag)
	v.SetDefault("author_name", defaults.AuthorName)
	v.SetDefault("author_email", defaults.AuthorEmail)
	v.SetDefault("require_semver", defaults.RequireSemver)
	v.SetDefault("check_version_order", defaults.CheckVersionOrder)
	v.SetDefault("build_command", defaults.BuildCommand)
	v.SetDefault("build_timeout", defaults.BuildTimeout)
	v.SetDefault("enable_rollback", defaults.EnableRollback)
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("github_repo", defaults.GithubRepo)
	v.SetDefault("github_release", defaults.GithubRelease)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	populateRepositoryDefaults(&config, v.GetString("github_repository"))
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}
