package domain

import "strings"

// CaptchaAttempt records one solve cycle: the image that was captured, what
// the solver guessed, and whether the portal accepted the guess.
type CaptchaAttempt struct {
	Index      int    // 1-based attempt index
	ImagePath  string // saved copy of the challenge image
	SolvedText string // sanitized solver output
	Accepted   bool
}

// SanitizeCaptchaText strips everything but alphanumerics from a solver
// guess. Vision models occasionally wrap the answer in whitespace,
// punctuation or quoting; the portal accepts only the raw characters.
func SanitizeCaptchaText(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
