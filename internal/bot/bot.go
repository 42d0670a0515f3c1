package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/codelens-ai/pr-reviewer/internal/chat"
	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/git"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/google/go-github/v60/github"
	"github.com/sirupsen/logrus"
)

// Completion is the completion client consumed by the bot
type Completion interface {
	Review(ctx context.Context, prompt string) (*chat.Result, error)
}

// Bot handles a single pull request review pass
type Bot struct {
	config   *config.Config
	platform git.Platform
	chat     Completion
}

// NewBot creates a new Bot instance
func NewBot(cfg *config.Config, platform git.Platform, completion Completion) *Bot {
	return &Bot{
		config:   cfg,
		platform: platform,
		chat:     completion,
	}
}

// HandlePullRequestEvent handles GitHub pull request events
func (b *Bot) HandlePullRequestEvent(ctx context.Context, event *github.PullRequestEvent) error {
	// Skip if not opened or synchronized
	action := event.GetAction()
	if action != "opened" && action != "synchronize" {
		logrus.Infof("Skipping event with action: %s", action)
		return nil
	}

	pr := event.GetPullRequest()
	if pr.GetState() == "closed" || pr.GetLocked() {
		logrus.Info("Pull request is closed or locked, skipping")
		return nil
	}

	repo := event.GetRepo()
	owner := repo.GetOwner().GetLogin()
	repoName := repo.GetName()
	prNumber := pr.GetNumber()

	return b.ReviewPullRequest(ctx, owner, repoName, prNumber)
}

// ReviewPullRequest runs one review pass: gather context, build the prompt,
// call the model, interpret the response, post the feedback. Context-fetch
// and completion-call failures abort the pass; per-comment failures inside
// the submission loop do not.
func (b *Bot) ReviewPullRequest(ctx context.Context, owner, repo string, number int) error {
	start := time.Now()

	pr, err := b.platform.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request: %w", err)
	}

	changedFiles, err := b.platform.ListChangedFiles(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to list changed files: %w", err)
	}

	files := b.filterFiles(changedFiles)
	for _, file := range files {
		if b.config.MaxPatchLength > 0 && len(file.Patch) > b.config.MaxPatchLength {
			logrus.Infof("Patch for %s exceeds %d bytes, omitting from prompt", file.Filename, b.config.MaxPatchLength)
			file.Patch = ""
		}
	}

	reviewComments, err := b.platform.ListReviewComments(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to list review comments: %w", err)
	}

	issueComments, err := b.platform.ListIssueComments(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to list discussion comments: %w", err)
	}

	existing := make([]*models.ExistingComment, 0, len(reviewComments)+len(issueComments))
	existing = append(existing, reviewComments...)
	existing = append(existing, issueComments...)

	prompt := buildPrompt(promptInput{
		PR:           pr,
		Files:        files,
		Existing:     existing,
		MaxComments:  b.config.MaxComments,
		Language:     b.config.Language,
		Instructions: b.config.Prompt,
	})

	result, err := b.chat.Review(ctx, prompt)
	if err != nil {
		return fmt.Errorf("completion call failed: %w", err)
	}

	if err := b.publish(ctx, owner, repo, number, pr, existing, result); err != nil {
		return err
	}

	logrus.Infof("Successfully reviewed PR #%d in %s", number, time.Since(start))
	return nil
}
