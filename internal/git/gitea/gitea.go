package gitea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"code.gitea.io/sdk/gitea"
	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/sirupsen/logrus"
)

// Client implements the models.GitPlatform interface for Gitea
type Client struct {
	client *gitea.Client
	config *config.Config
}

// NewClient creates a new Gitea client
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Platform == "gitea" {
		if cfg.GiteaToken == "" {
			return nil, errors.New("Gitea token is required when using Gitea platform")
		}

		if cfg.GiteaBaseURL == "" {
			return nil, errors.New("Gitea base URL is required when using Gitea platform")
		}
	}

	client, err := gitea.NewClient(cfg.GiteaBaseURL, gitea.SetToken(cfg.GiteaToken))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gitea client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// GetPullRequest gets a pull request by number
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	pr, _, err := c.client.GetPullRequest(owner, repo, int64(number))
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("pull request %s/%s#%d not found: %w", owner, repo, number, err)
		}
		return nil, err
	}

	return &models.PullRequest{
		Number:      int(pr.Index),
		Title:       pr.Title,
		Description: pr.Body,
		State:       string(pr.State),
		Locked:      false, // Gitea doesn't have a direct equivalent to locked
		Base: models.Commit{
			SHA: pr.Base.Sha,
		},
		Head: models.Commit{
			SHA: pr.Head.Sha,
		},
		HTMLURL: pr.HTMLURL,
	}, nil
}

// ListChangedFiles lists the files changed by a pull request. The Gitea SDK
// has no endpoint for per-file changes, so the raw .diff download is parsed
// into per-file records.
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*models.CommitFile, error) {
	diffURL := fmt.Sprintf("%s/api/v1/repos/%s/%s/pulls/%d.diff",
		strings.TrimSuffix(c.config.GiteaBaseURL, "/"),
		owner,
		repo,
		number)

	logrus.Debugf("Fetching diff from: %s", diffURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, diffURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create diff request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("token %s", c.config.GiteaToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull request diff: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch pull request diff, status code: %d", resp.StatusCode)
	}

	diffContent, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pull request diff: %w", err)
	}

	return parseDiff(string(diffContent)), nil
}

// parseDiff splits a unified diff into per-file change records
func parseDiff(diff string) []*models.CommitFile {
	files := make([]*models.CommitFile, 0)

	fileDiffs := strings.Split(diff, "diff --git ")
	if len(fileDiffs) > 0 {
		fileDiffs = fileDiffs[1:]
	}

	for _, fileDiff := range fileDiffs {
		// Header format: "a/path b/path"
		parts := strings.SplitN(fileDiff, " ", 2)
		if len(parts) < 2 {
			continue
		}
		filename := strings.TrimPrefix(strings.TrimSpace(parts[0]), "a/")

		status := "modified"
		if strings.Contains(fileDiff, "\nnew file mode") {
			status = "added"
			// Added files are only named on the b/ side
			bPath := strings.SplitN(strings.TrimSpace(parts[1]), "\n", 2)[0]
			filename = strings.TrimPrefix(bPath, "b/")
		}
		if strings.Contains(fileDiff, "\ndeleted file mode") {
			status = "removed"
		}
		if strings.Contains(fileDiff, "\nrename from ") {
			status = "renamed"
		}

		// Patch body starts at the first hunk marker; binary files have none
		patch := ""
		if patchStart := strings.Index(fileDiff, "@@"); patchStart != -1 {
			patch = fileDiff[patchStart:]
		}

		additions, deletions := countPatchLines(patch)
		files = append(files, &models.CommitFile{
			Filename:  filename,
			Status:    status,
			Additions: additions,
			Deletions: deletions,
			Changes:   additions + deletions,
			Patch:     patch,
		})
	}

	return files
}

func countPatchLines(patch string) (additions, deletions int) {
	for _, line := range strings.Split(patch, "\n") {
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

// ListReviewComments lists existing inline review comments on a pull request
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	reviews, _, err := c.client.ListPullReviews(owner, repo, int64(number), gitea.ListPullReviewsOptions{})
	if err != nil {
		return nil, err
	}

	comments := make([]*models.ExistingComment, 0)
	for _, review := range reviews {
		reviewComments, _, err := c.client.ListPullReviewComments(owner, repo, int64(number), review.ID)
		if err != nil {
			return nil, err
		}

		for _, comment := range reviewComments {
			comments = append(comments, &models.ExistingComment{
				Body:      comment.Body,
				Path:      comment.Path,
				Line:      int(comment.LineNum),
				CreatedAt: comment.Created,
			})
		}
	}

	return comments, nil
}

// ListIssueComments lists existing top-level discussion comments on a pull request
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	issueComments, _, err := c.client.ListIssueComments(owner, repo, int64(number), gitea.ListIssueCommentOptions{})
	if err != nil {
		return nil, err
	}

	comments := make([]*models.ExistingComment, 0, len(issueComments))
	for _, comment := range issueComments {
		comments = append(comments, &models.ExistingComment{
			Body:      comment.Body,
			CreatedAt: comment.Created,
		})
	}

	return comments, nil
}

// CreateReviewComment submits an inline comment via a single-comment review
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, draft *models.CommentDraft) error {
	_, _, err := c.client.CreatePullReview(owner, repo, int64(number), gitea.CreatePullReviewOptions{
		State:    gitea.ReviewStateComment,
		CommitID: draft.CommitID,
		Comments: []gitea.CreatePullReviewComment{reviewComment(draft)},
	})
	return err
}

// reviewComment maps a draft onto a Gitea review comment. The Gitea API has no
// multi-line anchors, so ranged drafts narrow to their end line.
func reviewComment(draft *models.CommentDraft) gitea.CreatePullReviewComment {
	if draft.StartLine > 0 {
		logrus.Warnf("Gitea does not support multi-line comments, anchoring %s:%d-%d to line %d",
			draft.Path, draft.StartLine, draft.Line, draft.Line)
	}

	comment := gitea.CreatePullReviewComment{
		Path: draft.Path,
		Body: draft.Body,
	}
	if draft.Side == models.DiffSideLeft {
		comment.OldLineNum = int64(draft.Line)
	} else {
		comment.NewLineNum = int64(draft.Line)
	}
	return comment
}

// CreateIssueComment creates a top-level discussion comment on a pull request
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.client.CreateIssueComment(owner, repo, int64(number), gitea.CreateIssueCommentOption{
		Body: body,
	})
	return err
}

// IsNotFound checks if an error is a 404 Not Found error
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), "404") ||
		strings.Contains(err.Error(), "not found")
}
