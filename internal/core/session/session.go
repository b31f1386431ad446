package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"tmexport.in/cli/internal/core/domain"
)

// RunID is a value object identifying a single workflow run.
type RunID struct {
	value string
}

// NewRunID creates a RunID with validation.
func NewRunID(value string) (RunID, error) {
	if value == "" {
		return RunID{}, fmt.Errorf("run ID cannot be empty")
	}
	return RunID{value: value}, nil
}

// GenerateRunID creates a new unique RunID.
func GenerateRunID() RunID {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return RunID{value: hex.EncodeToString(bytes)}
}

// Value returns the string value of the RunID.
func (id RunID) Value() string {
	return id.value
}

// String implements the Stringer interface.
func (id RunID) String() string {
	return id.value
}

// AuthState tracks whether the portal considers the session authenticated.
type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateAuthenticated   AuthState = "authenticated"
	AuthStateExpired         AuthState = "expired"
)

// Session is the aggregate owning one authenticated browser interaction. It
// enforces the workflow invariant: the run never advances to stage N+1 while
// stage N's result has Success=false.
type Session struct {
	mu              sync.RWMutex
	id              RunID
	stage           domain.Stage
	auth            AuthState
	steps           []domain.StepResult
	captchaAttempts []domain.CaptchaAttempt
	artifact        *domain.ExportArtifact
	failReason      string
	startTime       time.Time
	endTime         *time.Time
}

// New creates a session in the Init stage.
func New() *Session {
	return &Session{
		id:        GenerateRunID(),
		stage:     domain.StageInit,
		auth:      AuthStateUnauthenticated,
		startTime: time.Now(),
	}
}

// ID returns the run identifier.
func (s *Session) ID() RunID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Stage returns the current logical stage.
func (s *Session) Stage() domain.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// AuthState returns the current authentication state.
func (s *Session) AuthState() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// Duration returns how long the run has been (or was) active.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.endTime != nil {
		return s.endTime.Sub(s.startTime)
	}
	return time.Since(s.startTime)
}

// RecordStep appends a step result and, on success, advances the stage. A
// failed result transitions the session to Failed instead; it never silently
// continues to the next stage.
func (s *Session) RecordStep(result domain.StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.IsTerminal() {
		return fmt.Errorf("cannot record step %s: session is already terminal in %s", result.Stage, s.stage)
	}
	if result.Stage != s.stage {
		return fmt.Errorf("step result for stage %s does not match current stage %s", result.Stage, s.stage)
	}

	s.steps = append(s.steps, result)

	if !result.Success {
		s.stage = domain.StageFailed
		if result.Err != nil {
			s.failReason = result.Err.Error()
		} else {
			s.failReason = fmt.Sprintf("stage %s failed", result.Stage)
		}
		s.close()
		return nil
	}

	next, err := s.stage.Next()
	if err != nil {
		return err
	}
	s.stage = next

	if s.stage == domain.StageAuthenticated {
		s.auth = AuthStateAuthenticated
	}
	if s.stage.IsTerminal() {
		s.close()
	}
	return nil
}

// RecordCaptchaAttempt appends one solve cycle to the session history.
func (s *Session) RecordCaptchaAttempt(attempt domain.CaptchaAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captchaAttempts = append(s.captchaAttempts, attempt)
}

// CaptchaAttempts returns a copy of the recorded solve cycles.
func (s *Session) CaptchaAttempts() []domain.CaptchaAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := make([]domain.CaptchaAttempt, len(s.captchaAttempts))
	copy(attempts, s.captchaAttempts)
	return attempts
}

// SetArtifact records the verified export artifact.
func (s *Session) SetArtifact(artifact domain.ExportArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = &artifact
}

// Artifact returns a copy of the recorded export artifact, or nil.
func (s *Session) Artifact() *domain.ExportArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return nil
	}
	a := *s.artifact
	return &a
}

// Fail forces the session into the Failed terminal stage with a reason. Used
// for failures that occur outside a recorded stage boundary.
func (s *Session) Fail(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.IsTerminal() {
		return
	}
	s.stage = domain.StageFailed
	s.failReason = reason
	s.close()
}

// FailReason returns the recorded failure reason, empty unless Failed.
func (s *Session) FailReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failReason
}

// Steps returns a copy of all recorded step results.
func (s *Session) Steps() []domain.StepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]domain.StepResult, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// Succeeded reports whether the run reached the Downloaded terminal stage.
func (s *Session) Succeeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage == domain.StageDownloaded
}

// close stamps the end time. Caller must hold the lock.
func (s *Session) close() {
	if s.endTime == nil {
		now := time.Now()
		s.endTime = &now
	}
}

// String returns a string representation of the session.
func (s *Session) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("Session{ID: %s, Stage: %s, Auth: %s, Steps: %d}",
		s.id.value, s.stage, s.auth, len(s.steps))
}
