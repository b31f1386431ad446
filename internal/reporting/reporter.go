// Package reporting turns workflow events into log lines and the
// end-of-run console summary.
package reporting

import (
	"go.uber.org/zap"

	"tmexport.in/cli/internal/core/domain"
)

// ZapReporter implements the StepReporter port by emitting one structured
// line per step event: stage, outcome, duration, optional error detail and
// artifact paths. Together with the exit code this is the externally
// observable record of a run.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter creates a reporter writing through the given logger.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	return &ZapReporter{logger: logger}
}

// ReportStep logs the outcome of one workflow step.
func (r *ZapReporter) ReportStep(result domain.StepResult) {
	fields := []zap.Field{
		zap.String("stage", result.Stage.String()),
		zap.Duration("duration", result.Duration()),
	}
	if result.Artifact != "" {
		fields = append(fields, zap.String("artifact", result.Artifact))
	}
	if result.Screenshot != "" {
		fields = append(fields, zap.String("screenshot", result.Screenshot))
	}

	if result.Success {
		r.logger.Info("stage completed", fields...)
		return
	}
	fields = append(fields, zap.String("error", result.ErrorDetail()))
	r.logger.Error("stage failed", fields...)
}

// ReportCaptchaAttempt logs one solve cycle.
func (r *ZapReporter) ReportCaptchaAttempt(attempt domain.CaptchaAttempt) {
	r.logger.Info("captcha attempt",
		zap.Int("attempt", attempt.Index),
		zap.String("solved_text", attempt.SolvedText),
		zap.Bool("accepted", attempt.Accepted),
		zap.String("image", attempt.ImagePath),
	)
}
