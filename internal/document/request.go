package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStatus enumerates the lifecycle states of a Request document.
type RequestStatus string

// Pending, InProgress, Completed and Failed are the Request lifecycle states.
const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed"
)

// Sentinel errors surfaced by Request parsing/validation.
var (
	ErrMissingTraceID  = errors.New("document: trace_id is required")
	ErrInvalidTraceID  = errors.New("document: trace_id must be a valid UUID")
	ErrMissingAgentID  = errors.New("document: agent_id is required")
	ErrInvalidPriority = errors.New("document: priority must be in [0,10]")
	ErrInvalidStatus   = errors.New("document: invalid status")
)

// Request is a parsed Request document: a markdown file with YAML
// frontmatter describing a natural-language work item.
type Request struct {
	TraceID     string
	AgentID     string
	Status      RequestStatus
	Priority    int
	CreatedAt   time.Time
	Tags        []string
	Skills      []string
	SkipSkills  []string
	Flow        string
	Model       string
	Body        string
	Frontmatter map[string]any // raw, for unknown-key preservation
}

// ParseRequest parses a Request document from its raw markdown content.
func ParseRequest(content string) (*Request, error) {
	parsed, err := ExtractFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("document: parse request: %w", err)
	}

	req := &Request{
		TraceID:    StringField(parsed.Frontmatter, "trace_id"),
		AgentID:    StringField(parsed.Frontmatter, "agent_id"),
		Status:     RequestStatus(StringField(parsed.Frontmatter, "status")),
		Priority:   IntField(parsed.Frontmatter, "priority", 5),
		Tags:       StringSliceField(parsed.Frontmatter, "tags"),
		Skills:     StringSliceField(parsed.Frontmatter, "skills"),
		SkipSkills: StringSliceField(parsed.Frontmatter, "skip_skills"),
		Flow:       StringField(parsed.Frontmatter, "flow"),
		Model:      StringField(parsed.Frontmatter, "model"),
		Body:       parsed.Body,

		Frontmatter: parsed.Frontmatter,
	}

	if created := StringField(parsed.Frontmatter, "created_at"); created != "" {
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("document: parse created_at: %w", err)
		}
		req.CreatedAt = t
	}

	if req.Status == "" {
		req.Status = RequestPending
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks Request invariants.
func (r *Request) Validate() error {
	if r.TraceID == "" {
		return ErrMissingTraceID
	}
	if _, err := uuid.Parse(r.TraceID); err != nil {
		return ErrInvalidTraceID
	}
	if r.AgentID == "" {
		return ErrMissingAgentID
	}
	if r.Priority < 0 || r.Priority > 10 {
		return ErrInvalidPriority
	}
	switch r.Status {
	case RequestPending, RequestInProgress, RequestCompleted, RequestFailed:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// HasFlow reports whether the request opted into flow dispatch.
func (r *Request) HasFlow() bool {
	return r.Flow != ""
}
