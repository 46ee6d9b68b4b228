// Package changeset defines the Changeset record PlanExecutor produces and
// the narrow registrar interface the daemon uses to hand completed plan
// executions off to an external VCS-aware collaborator.
package changeset

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Status is a Changeset's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Changeset is a pending/approved/rejected record referring to a set of
// file changes produced by a plan execution.
type Changeset struct {
	ID              string
	TraceID         string
	Portal          string
	Branch          string
	Status          Status
	Description     string
	CommitSHA       string
	FilesChanged    int
	Created         time.Time
	CreatedBy       string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason string
}

// ErrInvalidSlug is returned by ValidateSlug for a slug unsafe to use in a
// file path (path traversal, uppercase, or disallowed characters).
var ErrInvalidSlug = errors.New("changeset: invalid slug")

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,48}[a-z0-9])?$`)

// ValidateSlug checks a branch/portal-derived slug is safe for use in a
// file path: no traversal segments, no path separators, and restricted to
// the slug character set.
func ValidateSlug(slug string) error {
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, "/\\") || !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// Registrar is the external collaborator that records a Changeset and
// returns the commit it produced. The core never performs the underlying
// version-control operations itself (GLOSSARY: Changeset).
type Registrar interface {
	Register(ctx context.Context, cs Changeset) (commitSHA string, err error)
}
