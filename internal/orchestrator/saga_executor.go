package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/compozy/releasetag/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// SagaStep represents a single step in the saga workflow
type SagaStep struct {
	Name       string
	Type       domain.OperationType
	Execute    func(ctx context.Context) (rollbackData map[string]any, err error)
	Compensate func(ctx context.Context, rollbackData map[string]any) error
	// Retryable steps are retried with exponential backoff. Only network steps set it.
	Retryable bool
}

// SagaExecutor manages the execution of saga workflows with rollback support
type SagaExecutor struct {
	sessionID      string
	stateRepo      repository.StateRepository
	state          *domain.RollbackState
	steps          []SagaStep
	enableRollback bool
	logger         *zap.Logger
}

// NewSagaExecutor creates a new saga executor. With rollback disabled, the state is
// neither persisted nor compensated.
func NewSagaExecutor(stateRepo repository.StateRepository, enableRollback bool, logger *zap.Logger) *SagaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	return &SagaExecutor{
		sessionID:      sessionID,
		stateRepo:      stateRepo,
		state:          domain.NewRollbackState(sessionID),
		steps:          []SagaStep{},
		enableRollback: enableRollback,
		logger:         logger.With(zap.String("session_id", sessionID)),
	}
}

// LoadExistingSaga loads an existing saga from state
func LoadExistingSaga(
	ctx context.Context,
	stateRepo repository.StateRepository,
	sessionID string,
	logger *zap.Logger,
) (*SagaExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, err := stateRepo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saga state: %w", err)
	}
	return &SagaExecutor{
		sessionID:      sessionID,
		stateRepo:      stateRepo,
		state:          state,
		steps:          []SagaStep{},
		enableRollback: true,
		logger:         logger.With(zap.String("session_id", sessionID)),
	}, nil
}

// AddStep adds a step to the saga
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.state.AddOperation(step.Type)
}

// registerCompensation attaches a compensation to an operation already in the state.
func (s *SagaExecutor) registerCompensation(step SagaStep) {
	s.steps = append(s.steps, step)
}

// Execute runs the saga workflow with automatic rollback on failure
func (s *SagaExecutor) Execute(ctx context.Context) error {
	s.state.Status = domain.WorkflowStatusRunning
	if s.enableRollback {
		if err := s.saveState(ctx); err != nil {
			return fmt.Errorf("failed to save initial state: %w", err)
		}
	}
	for _, step := range s.steps {
		if err := s.executeStep(ctx, step); err != nil {
			s.state.MarkOperationFailed(step.Type, err)
			s.logger.Error("release step failed", zap.String("step", step.Name), zap.Error(err))
			if s.enableRollback {
				s.saveStateBestEffort(ctx, "before rollback")
				// Rollback must complete even when the workflow context is done.
				rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
				rollbackErr := s.rollback(rollbackCtx)
				cancel()
				if rollbackErr != nil {
					return domain.NewReleaseError(domain.ErrorKindRollback, "rollback",
						fmt.Errorf("step '%s' failed: %w; rollback also failed: %w", step.Name, err, rollbackErr))
				}
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	s.state.Status = domain.WorkflowStatusCompleted
	if s.enableRollback {
		s.saveStateBestEffort(ctx, "at completion")
	}
	return nil
}

// executeStep executes a single saga step, retrying it when it is retryable
func (s *SagaExecutor) executeStep(ctx context.Context, step SagaStep) error {
	s.state.MarkOperationStarted(step.Type)
	if s.enableRollback {
		s.saveStateBestEffort(ctx, "after marking operation started")
	}
	s.logger.Debug("executing release step", zap.String("step", step.Name))
	var rollbackData map[string]any
	run := func(runCtx context.Context) error {
		// Check if context is canceled before executing
		if err := runCtx.Err(); err != nil {
			return err
		}
		data, err := step.Execute(runCtx)
		if err != nil {
			return err
		}
		rollbackData = data
		return nil
	}
	var err error
	if step.Retryable {
		err = retry.Do(ctx, s.backoff(), func(retryCtx context.Context) error {
			if execErr := run(retryCtx); execErr != nil {
				if isPermanent(execErr) {
					return execErr
				}
				s.logger.Warn("retrying release step", zap.String("step", step.Name), zap.Error(execErr))
				return retry.RetryableError(execErr)
			}
			return nil
		})
	} else {
		err = run(ctx)
	}
	if err != nil {
		return err
	}
	s.state.MarkOperationCompleted(step.Type, rollbackData)
	if s.enableRollback {
		s.saveStateBestEffort(ctx, "after marking operation completed")
	}
	return nil
}

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	if errors.Is(err, domain.ErrRemoteNotFound) || errors.Is(err, context.Canceled) {
		return true
	}
	switch domain.KindOf(err) {
	case domain.ErrorKindUsage, domain.ErrorKindConflict:
		return true
	}
	return false
}

func (s *SagaExecutor) backoff() retry.Backoff {
	return retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
}

// Rollback executes compensating actions for completed operations
func (s *SagaExecutor) Rollback(ctx context.Context) error {
	return s.rollback(ctx)
}

func (s *SagaExecutor) rollback(ctx context.Context) error {
	completedOps := s.state.GetCompletedOperations()
	if len(completedOps) == 0 {
		s.logger.Info("no operations to roll back")
		s.state.Status = domain.WorkflowStatusRolledBack
		s.saveStateBestEffort(ctx, "after rollback")
		return nil
	}
	s.logger.Info("starting rollback", zap.Int("operations", len(completedOps)))
	// A failed compensation does not stop the others; the failed ones stay completed
	// so a later rollback command retries them.
	var failures []error
	for _, op := range completedOps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rollback canceled: %w", errors.Join(append(failures, err)...))
		}
		step := s.findStepByType(op.Type)
		if step == nil || step.Compensate == nil {
			s.state.MarkOperationRolledBack(op.Type)
			continue
		}
		s.logger.Info("rolling back", zap.String("step", step.Name))
		if err := s.executeCompensation(ctx, step, op.RollbackData); err != nil {
			s.logger.Error("compensation failed", zap.String("step", step.Name), zap.Error(err))
			failures = append(failures, fmt.Errorf("rollback failed for %s: %w", step.Name, err))
			s.saveStateBestEffort(ctx, "after failed compensation")
			continue
		}
		s.state.MarkOperationRolledBack(op.Type)
		s.saveStateBestEffort(ctx, "during rollback")
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	s.state.Status = domain.WorkflowStatusRolledBack
	s.saveStateBestEffort(ctx, "after rollback")
	s.logger.Info("rollback completed")
	return nil
}

// executeCompensation executes a compensating action with retry
func (s *SagaExecutor) executeCompensation(ctx context.Context, step *SagaStep, rollbackData map[string]any) error {
	return retry.Do(ctx, s.backoff(), func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		if err := step.Compensate(retryCtx, rollbackData); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// findStepByType finds a saga step by operation type
func (s *SagaExecutor) findStepByType(opType domain.OperationType) *SagaStep {
	for i := range s.steps {
		if s.steps[i].Type == opType {
			return &s.steps[i]
		}
	}
	return nil
}

func (s *SagaExecutor) saveState(ctx context.Context) error {
	return s.stateRepo.Save(ctx, s.state)
}

func (s *SagaExecutor) saveStateBestEffort(ctx context.Context, when string) {
	if !s.enableRollback {
		return
	}
	if err := s.saveState(ctx); err != nil {
		s.logger.Warn("failed to save release state", zap.String("when", when), zap.Error(err))
	}
}

// SessionID returns the identifier of the saga session.
func (s *SagaExecutor) SessionID() string {
	return s.sessionID
}

// GetState returns the current saga state
func (s *SagaExecutor) GetState() *domain.RollbackState {
	return s.state
}

// SetVersion sets the version in the state
func (s *SagaExecutor) SetVersion(version string) {
	s.state.Version = version
}

// SetRemote sets the remote the release is pushed to
func (s *SagaExecutor) SetRemote(remote string) {
	s.state.Remote = remote
}

// SetOriginalBranch sets the original branch in the state
func (s *SagaExecutor) SetOriginalBranch(branchName string) {
	s.state.OriginalBranch = branchName
}

// SetOriginalHead sets the commit HEAD pointed at before the release
func (s *SagaExecutor) SetOriginalHead(sha string) {
	s.state.OriginalHead = sha
}
