package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// StateSchemaVersion defines the current schema version for state files
	StateSchemaVersion = "1.0.0"
	// StateFilePermissions defines the permissions for state files
	StateFilePermissions = 0600
	// StateDirPermissions defines the permissions for state directory
	StateDirPermissions = 0700
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 50 * time.Millisecond
)

// ErrStateNotFound is returned when no persisted release session matches.
var ErrStateNotFound = errors.New("release state not found")

// StateRepository persists the rollback journal of release sessions.
type StateRepository interface {
	Save(ctx context.Context, state *domain.RollbackState) error
	Load(ctx context.Context, sessionID string) (*domain.RollbackState, error)
	LoadLatest(ctx context.Context) (*domain.RollbackState, error)
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// StateMetadata contains metadata about the state file
type StateMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateWrapper wraps the state with metadata
type StateWrapper struct {
	Metadata StateMetadata         `json:"metadata"`
	State    *domain.RollbackState `json:"state"`
}

// JSONStateRepository stores one JSON file per session under stateDir.
// Locks are taken on the OS filesystem, so fs must be backed by it.
type JSONStateRepository struct {
	fs       afero.Fs
	stateDir string
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewJSONStateRepository creates a new JSON-based state repository
func NewJSONStateRepository(fs afero.Fs, stateDir string, logger *zap.Logger) StateRepository {
	if stateDir == "" {
		stateDir = ".git/release-tag"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStateRepository{
		fs:       fs,
		stateDir: stateDir,
		logger:   logger,
	}
}

// Save writes the state atomically under an exclusive lock.
func (r *JSONStateRepository) Save(ctx context.Context, state *domain.RollbackState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("state with a session id is required")
	}
	if err := r.fs.MkdirAll(r.stateDir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}
	unlock, err := r.lock(ctx, state.SessionID, false)
	if err != nil {
		return err
	}
	defer unlock()
	stateData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state for checksum: %w", err)
	}
	wrapper := StateWrapper{
		Metadata: StateMetadata{
			SchemaVersion: StateSchemaVersion,
			Checksum:      checksum(stateData),
			CreatedAt:     state.StartedAt,
			UpdatedAt:     time.Now(),
		},
		State: state,
	}
	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state wrapper: %w", err)
	}
	if err := r.writeAtomic(r.stateFile(state.SessionID), data); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeAtomic(r.latestFile(), []byte(state.SessionID)); err != nil {
		return fmt.Errorf("failed to update latest session: %w", err)
	}
	return nil
}

// Load reads and verifies the state of a session.
func (r *JSONStateRepository) Load(ctx context.Context, sessionID string) (*domain.RollbackState, error) {
	exists, err := r.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: session %s", ErrStateNotFound, sessionID)
	}
	unlock, err := r.lock(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	defer unlock()
	data, err := afero.ReadFile(r.fs, r.stateFile(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var wrapper StateWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state wrapper: %w", err)
	}
	if wrapper.Metadata.SchemaVersion != StateSchemaVersion {
		return nil, fmt.Errorf("incompatible schema version: expected %s, got %s",
			StateSchemaVersion, wrapper.Metadata.SchemaVersion)
	}
	if wrapper.State == nil {
		return nil, fmt.Errorf("state file for session %s is empty", sessionID)
	}
	stateData, err := json.Marshal(wrapper.State)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state for checksum validation: %w", err)
	}
	if wrapper.Metadata.Checksum != checksum(stateData) {
		return nil, fmt.Errorf("state checksum mismatch: data may be corrupted")
	}
	return wrapper.State, nil
}

// LoadLatest loads the session saved most recently.
func (r *JSONStateRepository) LoadLatest(ctx context.Context) (*domain.RollbackState, error) {
	r.mu.RLock()
	data, err := afero.ReadFile(r.fs, r.latestFile())
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no release session recorded", ErrStateNotFound)
		}
		return nil, fmt.Errorf("failed to read latest session: %w", err)
	}
	sessionID := strings.TrimSpace(string(data))
	if sessionID == "" {
		return nil, fmt.Errorf("latest session marker is empty")
	}
	return r.Load(ctx, sessionID)
}

// Delete removes the state of a session and the latest marker when it names the
// session. Missing sessions are ignored.
func (r *JSONStateRepository) Delete(ctx context.Context, sessionID string) error {
	exists, err := r.Exists(ctx, sessionID)
	if err != nil || !exists {
		return err
	}
	unlock, err := r.lock(ctx, sessionID, false)
	if err != nil {
		return err
	}
	if err := r.fs.Remove(r.stateFile(sessionID)); err != nil && !os.IsNotExist(err) {
		unlock()
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	unlock()
	if err := r.fs.Remove(r.lockFile(sessionID)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove lock file", zap.String("session_id", sessionID), zap.Error(err))
	}
	return r.clearLatest(sessionID)
}

// clearLatest removes the latest marker when it names sessionID.
func (r *JSONStateRepository) clearLatest(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := afero.ReadFile(r.fs, r.latestFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read latest session: %w", err)
	}
	if strings.TrimSpace(string(data)) != sessionID {
		return nil
	}
	if err := r.fs.Remove(r.latestFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear latest session: %w", err)
	}
	return nil
}

// Exists checks if a rollback state exists
func (r *JSONStateRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	_, err := r.fs.Stat(r.stateFile(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check state file: %w", err)
	}
	return true, nil
}

// lock takes the per-session file lock and returns its release function.
func (r *JSONStateRepository) lock(ctx context.Context, sessionID string, shared bool) (func(), error) {
	fileLock := flock.New(r.lockFile(sessionID))
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fileLock.TryRLockContext(lockCtx, LockRetryInterval)
	} else {
		locked, err = fileLock.TryLockContext(lockCtx, LockRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for session %s: %w", sessionID, err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire lock for session %s within %s", sessionID, LockTimeout)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			r.logger.Warn("failed to release state lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, nil
}

func (r *JSONStateRepository) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, StateFilePermissions); err != nil {
		return err
	}
	if err := r.fs.Rename(tmp, path); err != nil {
		if removeErr := r.fs.Remove(tmp); removeErr != nil {
			r.logger.Warn("failed to remove temp file", zap.String("path", tmp), zap.Error(removeErr))
		}
		return err
	}
	return nil
}

func (r *JSONStateRepository) stateFile(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf("state-%s.json", sessionID))
}

func (r *JSONStateRepository) lockFile(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf(".state-%s.lock", sessionID))
}

func (r *JSONStateRepository) latestFile() string {
	return filepath.Join(r.stateDir, "latest")
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
