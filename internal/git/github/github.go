package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Client implements the models.GitPlatform interface for GitHub
type Client struct {
	client *github.Client
	config *config.Config
}

// NewClient creates a new GitHub client
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Platform == "github" && cfg.GithubToken == "" {
		return nil, errors.New("GitHub token is required when using GitHub platform")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GithubToken},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		client: github.NewClient(tc),
		config: cfg,
	}, nil
}

// GetPullRequest gets a pull request by number
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("pull request %s/%s#%d not found: %w", owner, repo, number, err)
		}
		return nil, err
	}

	return &models.PullRequest{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		State:       pr.GetState(),
		Locked:      pr.GetLocked(),
		Base: models.Commit{
			SHA: pr.GetBase().GetSHA(),
		},
		Head: models.Commit{
			SHA: pr.GetHead().GetSHA(),
		},
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}

// ListChangedFiles lists the files changed by a pull request
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*models.CommitFile, error) {
	opts := &github.ListOptions{PerPage: 100}
	files := make([]*models.CommitFile, 0)

	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, err
		}

		for _, file := range page {
			files = append(files, &models.CommitFile{
				Filename:  file.GetFilename(),
				Status:    file.GetStatus(),
				Additions: file.GetAdditions(),
				Deletions: file.GetDeletions(),
				Changes:   file.GetChanges(),
				Patch:     file.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListReviewComments lists existing inline review comments on a pull request
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	comments := make([]*models.ExistingComment, 0)

	for {
		page, resp, err := c.client.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, err
		}

		for _, comment := range page {
			comments = append(comments, &models.ExistingComment{
				Body:      comment.GetBody(),
				Path:      comment.GetPath(),
				Line:      comment.GetLine(),
				CreatedAt: comment.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// ListIssueComments lists existing top-level discussion comments on a pull request
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	comments := make([]*models.ExistingComment, 0)

	for {
		page, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, err
		}

		for _, comment := range page {
			comments = append(comments, &models.ExistingComment{
				Body:      comment.GetBody(),
				CreatedAt: comment.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// CreateReviewComment submits an inline comment anchored to the draft's file
// and line(s). Drafts with a start line become multi-line comments.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, draft *models.CommentDraft) error {
	comment := &github.PullRequestComment{
		Body:     github.String(draft.Body),
		CommitID: github.String(draft.CommitID),
		Path:     github.String(draft.Path),
		Line:     github.Int(draft.Line),
		Side:     github.String(draft.Side),
	}

	if draft.StartLine > 0 {
		comment.StartLine = github.Int(draft.StartLine)
		comment.StartSide = github.String(draft.StartSide)
	}

	_, _, err := c.client.PullRequests.CreateComment(ctx, owner, repo, number, comment)
	return err
}

// CreateIssueComment creates a top-level discussion comment on a pull request
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	return err
}

// IsNotFound checks if an error is a 404 Not Found error
func IsNotFound(err error) bool {
	var rerr *github.ErrorResponse
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}
