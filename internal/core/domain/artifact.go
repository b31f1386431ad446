package domain

import (
	"fmt"
	"time"
)

// ExportArtifact describes the downloaded spreadsheet produced by a
// successful run.
type ExportArtifact struct {
	SourceURL   string // page URL the export was triggered from
	Path        string // final destination path in the downloads directory
	Size        int64  // verified byte size, always > 0 for a reported artifact
	CompletedAt time.Time
}

// Verify checks that the artifact is usable: a portal returning an error page
// or an empty payload instead of the spreadsheet must not be reported as
// success.
func (a ExportArtifact) Verify() error {
	if a.Path == "" {
		return &VerificationError{Reason: "no artifact path recorded"}
	}
	if a.Size <= 0 {
		return &VerificationError{Reason: fmt.Sprintf("artifact %s is empty", a.Path)}
	}
	return nil
}
