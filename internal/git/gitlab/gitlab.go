package gitlab

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/xanzy/go-gitlab"
)

// String returns a pointer to the string value passed in.
func String(v string) *string {
	return &v
}

// Int returns a pointer to the int value passed in.
func Int(v int) *int {
	return &v
}

// Client implements the models.GitPlatform interface for GitLab
type Client struct {
	client *gitlab.Client
	config *config.Config
}

// NewClient creates a new GitLab client
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Platform == "gitlab" && cfg.GitlabToken == "" {
		return nil, errors.New("GitLab token is required when using GitLab platform")
	}

	baseURL := cfg.GitlabBaseURL
	if baseURL == "" {
		baseURL = "https://gitlab.com/api/v4"
	}

	client, err := gitlab.NewClient(cfg.GitlabToken, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// GetPullRequest gets a merge request by number (iid in GitLab)
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	mr, _, err := c.client.MergeRequests.GetMergeRequest(projectPath(owner, repo), number, &gitlab.GetMergeRequestsOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("merge request %s/%s!%d not found: %w", owner, repo, number, err)
		}
		return nil, err
	}

	return &models.PullRequest{
		Number:      mr.IID,
		Title:       mr.Title,
		Description: mr.Description,
		State:       mr.State,
		Locked:      mr.DiscussionLocked,
		Base: models.Commit{
			SHA: mr.DiffRefs.BaseSha,
		},
		Head: models.Commit{
			SHA: mr.DiffRefs.HeadSha,
		},
		HTMLURL: mr.WebURL,
	}, nil
}

// ListChangedFiles lists the files changed by a merge request
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*models.CommitFile, error) {
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	files := make([]*models.CommitFile, 0)

	for {
		diffs, resp, err := c.client.MergeRequests.ListMergeRequestDiffs(projectPath(owner, repo), number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		for _, diff := range diffs {
			additions, deletions := countDiffLines(diff.Diff)
			files = append(files, &models.CommitFile{
				Filename:  diff.NewPath,
				Status:    diffStatus(diff),
				Additions: additions,
				Deletions: deletions,
				Changes:   additions + deletions,
				Patch:     diff.Diff,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListReviewComments lists existing inline notes on a merge request
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	notes, err := c.listNotes(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	comments := make([]*models.ExistingComment, 0, len(notes))
	for _, note := range notes {
		if note.Position == nil {
			continue
		}

		comment := &models.ExistingComment{
			Body: note.Body,
			Path: note.Position.NewPath,
			Line: note.Position.NewLine,
		}
		if note.CreatedAt != nil {
			comment.CreatedAt = *note.CreatedAt
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// ListIssueComments lists existing top-level notes on a merge request
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	notes, err := c.listNotes(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	comments := make([]*models.ExistingComment, 0, len(notes))
	for _, note := range notes {
		if note.Position != nil {
			continue
		}

		comment := &models.ExistingComment{
			Body: note.Body,
		}
		if note.CreatedAt != nil {
			comment.CreatedAt = *note.CreatedAt
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// CreateReviewComment submits an inline comment as a positioned discussion.
// Positioned discussions need the MR diff refs, so the merge request is
// refetched here rather than widening the platform interface.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, draft *models.CommentDraft) error {
	mr, _, err := c.client.MergeRequests.GetMergeRequest(projectPath(owner, repo), number, &gitlab.GetMergeRequestsOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to get merge request diff refs: %w", err)
	}

	_, _, err = c.client.Discussions.CreateMergeRequestDiscussion(projectPath(owner, repo), number, &gitlab.CreateMergeRequestDiscussionOptions{
		Body:     String(draft.Body),
		Position: buildPosition(mr.DiffRefs.BaseSha, mr.DiffRefs.HeadSha, mr.DiffRefs.StartSha, draft),
	}, gitlab.WithContext(ctx))
	return err
}

// buildPosition maps a draft onto a GitLab diff position. Drafts with a start
// line become a line range between the start and end lines.
func buildPosition(baseSHA, headSHA, startSHA string, draft *models.CommentDraft) *gitlab.PositionOptions {
	position := &gitlab.PositionOptions{
		BaseSHA:      String(baseSHA),
		HeadSHA:      String(headSHA),
		StartSHA:     String(startSHA),
		NewPath:      String(draft.Path),
		OldPath:      String(draft.Path),
		PositionType: String("text"),
	}
	if draft.Side == models.DiffSideLeft {
		position.OldLine = Int(draft.Line)
	} else {
		position.NewLine = Int(draft.Line)
	}

	if draft.StartLine > 0 {
		position.LineRange = &gitlab.LineRangeOptions{
			Start: linePosition(draft.Path, draft.StartSide, draft.StartLine),
			End:   linePosition(draft.Path, draft.Side, draft.Line),
		}
	}

	return position
}

// linePosition builds one endpoint of a line range. GitLab identifies range
// endpoints by a line code of the form sha1(path)_oldline_newline.
func linePosition(path, side string, line int) *gitlab.LinePositionOptions {
	oldLine, newLine := 0, line
	lineType := "new"
	if side == models.DiffSideLeft {
		oldLine, newLine = line, 0
		lineType = "old"
	}
	sum := sha1.Sum([]byte(path))
	return &gitlab.LinePositionOptions{
		LineCode: String(fmt.Sprintf("%x_%d_%d", sum, oldLine, newLine)),
		Type:     String(lineType),
	}
}

// CreateIssueComment creates a top-level note on a merge request
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.client.Notes.CreateMergeRequestNote(projectPath(owner, repo), number, &gitlab.CreateMergeRequestNoteOptions{
		Body: String(body),
	}, gitlab.WithContext(ctx))
	return err
}

func (c *Client) listNotes(ctx context.Context, owner, repo string, number int) ([]*gitlab.Note, error) {
	opts := &gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	notes := make([]*gitlab.Note, 0)

	for {
		page, resp, err := c.client.Notes.ListMergeRequestNotes(projectPath(owner, repo), number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		for _, note := range page {
			if note.System {
				continue
			}
			notes = append(notes, note)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return notes, nil
}

// IsNotFound checks if an error is a 404 Not Found error
func IsNotFound(err error) bool {
	var rerr *gitlab.ErrorResponse
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}

func projectPath(owner, repo string) string {
	return fmt.Sprintf("%s/%s", owner, repo)
}

func diffStatus(diff *gitlab.MergeRequestDiff) string {
	switch {
	case diff.NewFile:
		return "added"
	case diff.DeletedFile:
		return "removed"
	case diff.RenamedFile:
		return "renamed"
	default:
		return "modified"
	}
}

func countDiffLines(diff string) (additions, deletions int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
