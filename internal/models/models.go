package models

import (
	"context"
	"time"
)

// Diff sides as understood by the review APIs. RIGHT is the modified (green)
// side of the diff, LEFT the original.
const (
	DiffSideLeft  = "LEFT"
	DiffSideRight = "RIGHT"
)

// Commit represents a git commit reference
type Commit struct {
	SHA string
}

// PullRequest represents a pull request or merge request
type PullRequest struct {
	Number      int
	Title       string
	Description string
	State       string
	Locked      bool
	Base        Commit
	Head        Commit
	HTMLURL     string
}

// CommitFile represents a file changed in a pull request. Patch is empty for
// binary or very large files.
type CommitFile struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Changes   int
	Patch     string
}

// ExistingComment is a comment already present on the pull request: an inline
// review comment (Path and Line set) or a top-level discussion comment. Fed
// into the prompt so the model can avoid duplicate feedback.
type ExistingComment struct {
	Body      string
	Path      string
	Line      int
	CreatedAt time.Time
}

// CommentDraft is a candidate inline comment recovered from the model
// response. Body, Path and Line must be present for the draft to be postable;
// CommitID defaults to the pull request head and Side to RIGHT before
// submission.
type CommentDraft struct {
	Body      string `json:"body"`
	CommitID  string `json:"commit_id,omitempty"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Side      string `json:"side,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	StartSide string `json:"start_side,omitempty"`
}

// ReviewVerdict is the model's structured review output: either a positive
// verdict (LGTM with a summary body) or a negative one carrying zero or more
// comment drafts.
type ReviewVerdict struct {
	LGTM     bool           `json:"lgtm"`
	Summary  string         `json:"summary"`
	Comments []CommentDraft `json:"comments"`
}

// GitPlatform defines the interface for git hosting platforms
type GitPlatform interface {
	// GetPullRequest gets a pull request by number
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)

	// ListChangedFiles lists the files changed by a pull request
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*CommitFile, error)

	// ListReviewComments lists existing inline review comments
	ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*ExistingComment, error)

	// ListIssueComments lists existing top-level discussion comments
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*ExistingComment, error)

	// CreateReviewComment submits an inline comment anchored to the draft's
	// file and line(s); multi-line when StartLine is set
	CreateReviewComment(ctx context.Context, owner, repo string, number int, draft *CommentDraft) error

	// CreateIssueComment creates a top-level discussion comment
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
}
