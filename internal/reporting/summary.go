package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tmexport.in/cli/internal/core/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// RenderSummary produces a human-readable end-of-run report for a terminal
// session: one row per recorded step, the CAPTCHA attempt tally, and the
// artifact or failure reason.
func RenderSummary(sess *session.Session) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s", sess.ID())))
	b.WriteString("\n\n")

	for _, step := range sess.Steps() {
		mark := okStyle.Render("ok")
		detail := ""
		if !step.Success {
			mark = failStyle.Render("failed")
			detail = " " + dimStyle.Render(step.ErrorDetail())
		}
		b.WriteString(fmt.Sprintf("%-30s %s%s\n", step.Stage, mark, detail))
	}

	if attempts := sess.CaptchaAttempts(); len(attempts) > 0 {
		accepted := 0
		for _, a := range attempts {
			if a.Accepted {
				accepted++
			}
		}
		b.WriteString(fmt.Sprintf("\ncaptcha attempts: %d (%d accepted)\n", len(attempts), accepted))
	}

	b.WriteString("\n")
	if sess.Succeeded() {
		artifact := sess.Artifact()
		b.WriteString(okStyle.Render("Downloaded"))
		if artifact != nil {
			b.WriteString(fmt.Sprintf("  %s (%d bytes)", artifact.Path, artifact.Size))
		}
	} else {
		b.WriteString(failStyle.Render("Failed"))
		if reason := sess.FailReason(); reason != "" {
			b.WriteString("  " + reason)
		}
	}
	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("duration: %s", sess.Duration().Round(10*time.Millisecond))))

	return summaryFrame.Render(b.String())
}
