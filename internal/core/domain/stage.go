package domain

import "fmt"

// Stage identifies one discrete step in the fixed export workflow.
type Stage string

const (
	StageInit                      Stage = "init"
	StageLoggingIn                 Stage = "logging_in"
	StageSolvingCaptcha            Stage = "solving_captcha"
	StageAuthenticated             Stage = "authenticated"
	StageNavigatingToNotifications Stage = "navigating_to_notifications"
	StageNavigatingToDetail        Stage = "navigating_to_detail"
	StageExporting                 Stage = "exporting"
	StageDownloaded                Stage = "downloaded"
	StageFailed                    Stage = "failed"
)

// stageOrder is the forward path through the workflow. Failed is reachable
// from every non-terminal stage and is not part of the forward path.
var stageOrder = []Stage{
	StageInit,
	StageLoggingIn,
	StageSolvingCaptcha,
	StageAuthenticated,
	StageNavigatingToNotifications,
	StageNavigatingToDetail,
	StageExporting,
	StageDownloaded,
}

// IsTerminal returns true for stages from which no further transition occurs.
func (s Stage) IsTerminal() bool {
	return s == StageDownloaded || s == StageFailed
}

// Next returns the stage that follows s on the forward path.
func (s Stage) Next() (Stage, error) {
	for i, stage := range stageOrder {
		if stage == s {
			if i == len(stageOrder)-1 {
				return "", fmt.Errorf("stage %q is terminal", s)
			}
			return stageOrder[i+1], nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
// Legal moves are: one step forward on the path, a retry of solving_captcha,
// or a drop to failed from any non-terminal stage.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	if s == StageSolvingCaptcha && next == StageSolvingCaptcha {
		return true
	}
	forward, err := s.Next()
	return err == nil && next == forward
}

// String implements the Stringer interface.
func (s Stage) String() string {
	return string(s)
}
