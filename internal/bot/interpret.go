package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codelens-ai/pr-reviewer/internal/chat"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/sirupsen/logrus"
)

// approvalLiteral is the phrase a degraded free-text response opens with when
// the model found nothing to flag.
const approvalLiteral = "LGTM"

const defaultApprovalComment = "LGTM 👍 No issues found."

// publish turns the model response into comment submissions. Three tiers:
// structured verdict, best-effort segment recovery from free text, and a raw
// fallback comment so the reviewer always sees something.
func (b *Bot) publish(ctx context.Context, owner, repo string, number int, pr *models.PullRequest, existing []*models.ExistingComment, result *chat.Result) error {
	// Positive verdict: exactly one discussion comment, no inline comments
	if result.Verdict != nil && result.Verdict.LGTM {
		body := result.Verdict.Summary
		if strings.TrimSpace(body) == "" {
			body = defaultApprovalComment
		}
		logrus.Info("Positive verdict, posting summary comment")
		if err := b.platform.CreateIssueComment(ctx, owner, repo, number, body); err != nil {
			return fmt.Errorf("failed to post summary comment: %w", err)
		}
		return nil
	}
	if result.Verdict == nil && isApprovalText(result.Text) {
		logrus.Info("Approval phrase in free-text response, posting summary comment")
		if err := b.platform.CreateIssueComment(ctx, owner, repo, number, result.Text); err != nil {
			return fmt.Errorf("failed to post summary comment: %w", err)
		}
		return nil
	}

	drafts := b.recoverDrafts(result)
	if len(drafts) == 0 {
		// Nothing recoverable: dump the raw response as a discussion comment
		body := result.Text
		if result.Verdict != nil && strings.TrimSpace(result.Verdict.Summary) != "" {
			body = result.Verdict.Summary
		}
		logrus.Warn("No structured comments recovered from response, posting fallback comment")
		if err := b.platform.CreateIssueComment(ctx, owner, repo, number, body); err != nil {
			return fmt.Errorf("failed to post fallback comment: %w", err)
		}
		return nil
	}

	prepared := b.prepareDrafts(drafts, pr, existing)
	if len(prepared) == 0 {
		logrus.Info("No comments left after deduplication and the submission cap, nothing to post")
		return nil
	}

	submitted := 0
	for _, draft := range prepared {
		if err := b.platform.CreateReviewComment(ctx, owner, repo, number, draft); err != nil {
			logrus.Warnf("Failed to submit inline comment on %s:%d: %v", draft.Path, draft.Line, err)
			continue
		}
		submitted++
	}

	logrus.Infof("Submitted %d/%d inline comments", submitted, len(prepared))
	return nil
}

// recoverDrafts extracts candidate comment drafts from the response. For a
// structured verdict the drafts come straight from the payload; free text is
// scanned for independent JSON segments, each parsed on its own. Invalid
// candidates are skipped with a warning, never fatal.
func (b *Bot) recoverDrafts(result *chat.Result) []*models.CommentDraft {
	if result.Verdict != nil {
		drafts := make([]*models.CommentDraft, 0, len(result.Verdict.Comments))
		for i := range result.Verdict.Comments {
			draft := result.Verdict.Comments[i]
			if err := validateDraft(&draft); err != nil {
				logrus.Warnf("Skipping invalid comment in verdict: %v", err)
				continue
			}
			drafts = append(drafts, &draft)
		}
		return drafts
	}

	segments := extractJSONObjects(result.Text)
	drafts := make([]*models.CommentDraft, 0, len(segments))
	for _, segment := range segments {
		draft, err := parseDraft(segment)
		if err != nil {
			logrus.Warnf("Skipping unrecoverable segment: %v", err)
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

// prepareDrafts fills in defaults, drops feedback already present on the pull
// request, and enforces the submission cap.
func (b *Bot) prepareDrafts(drafts []*models.CommentDraft, pr *models.PullRequest, existing []*models.ExistingComment) []*models.CommentDraft {
	seen := make(map[string]bool, len(existing))
	for _, comment := range existing {
		seen[normalizeBody(comment.Body)] = true
	}

	max := b.config.MaxComments
	prepared := make([]*models.CommentDraft, 0, len(drafts))
	for _, draft := range drafts {
		if seen[normalizeBody(draft.Body)] {
			logrus.Infof("Skipping duplicate comment for %s:%d", draft.Path, draft.Line)
			continue
		}

		if len(prepared) == max {
			logrus.Warnf("Comment limit of %d reached, dropping remaining drafts", max)
			break
		}

		if draft.CommitID == "" {
			draft.CommitID = pr.Head.SHA
		}
		if draft.Side == "" {
			draft.Side = models.DiffSideRight
		}
		if draft.StartLine > 0 && draft.StartSide == "" {
			draft.StartSide = draft.Side
		}

		prepared = append(prepared, draft)
	}

	return prepared
}

func parseDraft(segment string) (*models.CommentDraft, error) {
	var draft models.CommentDraft
	if err := json.Unmarshal([]byte(segment), &draft); err != nil {
		return nil, fmt.Errorf("invalid JSON segment: %w", err)
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func validateDraft(draft *models.CommentDraft) error {
	if strings.TrimSpace(draft.Body) == "" {
		return errors.New("comment body is required")
	}
	if draft.Path == "" {
		return errors.New("file path is required")
	}
	if draft.Line <= 0 {
		return errors.New("line number is required")
	}
	return nil
}

func isApprovalText(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), approvalLiteral)
}

func normalizeBody(body string) string {
	return strings.ToLower(strings.TrimSpace(body))
}
