package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codelens-ai/pr-reviewer/internal/chat"
	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/models"
)

type fakePlatform struct {
	pr             *models.PullRequest
	files          []*models.CommitFile
	reviewComments []*models.ExistingComment
	issueComments  []*models.ExistingComment

	prErr    error
	filesErr error

	failInlineOn map[string]bool

	inlineAttempts int
	inlineDrafts   []*models.CommentDraft
	issueBodies    []string
}

func (f *fakePlatform) GetPullRequest(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	if f.prErr != nil {
		return nil, f.prErr
	}
	return f.pr, nil
}

func (f *fakePlatform) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]*models.CommitFile, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return f.files, nil
}

func (f *fakePlatform) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	return f.reviewComments, nil
}

func (f *fakePlatform) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*models.ExistingComment, error) {
	return f.issueComments, nil
}

func (f *fakePlatform) CreateReviewComment(ctx context.Context, owner, repo string, number int, draft *models.CommentDraft) error {
	f.inlineAttempts++
	if f.failInlineOn[draft.Path] {
		return errors.New("line not part of the diff")
	}
	f.inlineDrafts = append(f.inlineDrafts, draft)
	return nil
}

func (f *fakePlatform) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	f.issueBodies = append(f.issueBodies, body)
	return nil
}

type fakeCompletion struct {
	result  *chat.Result
	err     error
	prompts []string
}

func (f *fakeCompletion) Review(ctx context.Context, prompt string) (*chat.Result, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testPR() *models.PullRequest {
	return &models.PullRequest{
		Number:      7,
		Title:       "Add parser",
		Description: "Adds the new parser",
		State:       "open",
		Base:        models.Commit{SHA: "basesha"},
		Head:        models.Commit{SHA: "headsha"},
	}
}

func newTestBot(platform *fakePlatform, completion *fakeCompletion) *Bot {
	return NewBot(&config.Config{MaxComments: 3}, platform, completion)
}

func TestPublishPositiveVerdict(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	result := &chat.Result{
		Verdict: &models.ReviewVerdict{LGTM: true, Summary: "Looks good to merge."},
		Text:    `{"lgtm": true, "summary": "Looks good to merge."}`,
	}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.issueBodies) != 1 {
		t.Fatalf("expected 1 discussion comment, got %d", len(platform.issueBodies))
	}
	if platform.issueBodies[0] != "Looks good to merge." {
		t.Errorf("comment body = %q, want summary text", platform.issueBodies[0])
	}
	if len(platform.inlineDrafts) != 0 {
		t.Errorf("expected no inline comments, got %d", len(platform.inlineDrafts))
	}
}

func TestPublishApprovalText(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	result := &chat.Result{Text: "LGTM 👍 nothing to flag here"}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.issueBodies) != 1 {
		t.Fatalf("expected 1 discussion comment, got %d", len(platform.issueBodies))
	}
	if platform.issueBodies[0] != result.Text {
		t.Errorf("comment body = %q, want raw text", platform.issueBodies[0])
	}
	if platform.inlineAttempts != 0 {
		t.Errorf("expected no inline submissions, got %d", platform.inlineAttempts)
	}
}

func TestPublishRecoversSegmentsWithDefaults(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	result := &chat.Result{Text: `Some issues found:
{"body": "possible nil dereference", "path": "internal/parser/parser.go", "line": 42}
and also
{"body": "off-by-one in loop bound", "path": "internal/parser/lexer.go", "line": 10, "start_line": 8, "side": "RIGHT"}`}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.inlineDrafts) != 2 {
		t.Fatalf("expected 2 inline comments, got %d", len(platform.inlineDrafts))
	}
	if len(platform.issueBodies) != 0 {
		t.Errorf("expected no discussion comments, got %d", len(platform.issueBodies))
	}

	first := platform.inlineDrafts[0]
	if first.CommitID != "headsha" {
		t.Errorf("commit id = %q, want head commit default", first.CommitID)
	}
	if first.Side != models.DiffSideRight {
		t.Errorf("side = %q, want RIGHT default", first.Side)
	}

	second := platform.inlineDrafts[1]
	if second.StartLine != 8 {
		t.Errorf("start line = %d, want 8", second.StartLine)
	}
	if second.StartSide != models.DiffSideRight {
		t.Errorf("start side = %q, want inherited RIGHT", second.StartSide)
	}
}

func TestPublishSkipsMalformedSegment(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	result := &chat.Result{Text: `{"body": "valid finding", "path": "a.go", "line": 5}
{"body": "missing the path field", "line": 9}`}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.inlineDrafts) != 1 {
		t.Fatalf("expected 1 inline comment, got %d", len(platform.inlineDrafts))
	}
	if platform.inlineDrafts[0].Path != "a.go" {
		t.Errorf("submitted draft path = %q, want a.go", platform.inlineDrafts[0].Path)
	}
}

func TestPublishFallbackRawText(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	raw := "The change has problems but I cannot point at a line."
	result := &chat.Result{Text: raw}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.issueBodies) != 1 {
		t.Fatalf("expected 1 fallback comment, got %d", len(platform.issueBodies))
	}
	if platform.issueBodies[0] != raw {
		t.Errorf("fallback body = %q, want the full raw response", platform.issueBodies[0])
	}
	if platform.inlineAttempts != 0 {
		t.Errorf("expected no inline submissions, got %d", platform.inlineAttempts)
	}
}

func TestPublishCapsSubmissions(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	verdict := &models.ReviewVerdict{LGTM: false}
	for i := 1; i <= 5; i++ {
		verdict.Comments = append(verdict.Comments, models.CommentDraft{
			Body: strings.Repeat("x", i),
			Path: "a.go",
			Line: i,
		})
	}
	result := &chat.Result{Verdict: verdict, Text: "raw"}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.inlineDrafts) != 3 {
		t.Errorf("expected submissions capped at 3, got %d", len(platform.inlineDrafts))
	}
}

func TestPublishHonorsLowCommentLimit(t *testing.T) {
	verdict := &models.ReviewVerdict{LGTM: false}
	for i := 1; i <= 3; i++ {
		verdict.Comments = append(verdict.Comments, models.CommentDraft{
			Body: strings.Repeat("y", i),
			Path: "a.go",
			Line: i,
		})
	}

	tests := []struct {
		name        string
		maxComments int
		wantInline  int
	}{
		{"limit of one", 1, 1},
		{"limit of zero posts nothing", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := &fakePlatform{pr: testPR()}
			b := NewBot(&config.Config{MaxComments: tt.maxComments}, platform, nil)
			result := &chat.Result{Verdict: verdict, Text: "raw"}

			if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
				t.Fatalf("publish() error = %v", err)
			}

			if len(platform.inlineDrafts) != tt.wantInline {
				t.Errorf("inline comments = %d, want %d", len(platform.inlineDrafts), tt.wantInline)
			}
			if len(platform.issueBodies) != 0 {
				t.Errorf("expected no discussion comments, got %d", len(platform.issueBodies))
			}
		})
	}
}

func TestPublishSkipsDuplicateFeedback(t *testing.T) {
	existing := []*models.ExistingComment{
		{Body: "Possible nil dereference", Path: "a.go", Line: 5, CreatedAt: time.Now()},
	}
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	verdict := &models.ReviewVerdict{
		LGTM: false,
		Comments: []models.CommentDraft{
			{Body: "  possible nil dereference  ", Path: "a.go", Line: 5},
			{Body: "unchecked error return", Path: "b.go", Line: 12},
		},
	}
	result := &chat.Result{Verdict: verdict, Text: "raw"}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), existing, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if len(platform.inlineDrafts) != 1 {
		t.Fatalf("expected 1 inline comment after dedup, got %d", len(platform.inlineDrafts))
	}
	if platform.inlineDrafts[0].Path != "b.go" {
		t.Errorf("surviving draft path = %q, want b.go", platform.inlineDrafts[0].Path)
	}
	if len(platform.issueBodies) != 0 {
		t.Errorf("expected no fallback comment, got %d", len(platform.issueBodies))
	}
}

func TestPublishAllDuplicatesPostsNothing(t *testing.T) {
	existing := []*models.ExistingComment{
		{Body: "unchecked error return", Path: "b.go", Line: 12},
	}
	platform := &fakePlatform{pr: testPR()}
	b := newTestBot(platform, nil)

	verdict := &models.ReviewVerdict{
		LGTM: false,
		Comments: []models.CommentDraft{
			{Body: "unchecked error return", Path: "b.go", Line: 12},
		},
	}
	result := &chat.Result{Verdict: verdict, Text: "raw"}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), existing, result); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	if platform.inlineAttempts != 0 || len(platform.issueBodies) != 0 {
		t.Errorf("expected nothing posted, got %d inline attempts and %d discussion comments",
			platform.inlineAttempts, len(platform.issueBodies))
	}
}

func TestPublishSubmissionFailureContinues(t *testing.T) {
	platform := &fakePlatform{
		pr:           testPR(),
		failInlineOn: map[string]bool{"a.go": true},
	}
	b := newTestBot(platform, nil)

	verdict := &models.ReviewVerdict{
		LGTM: false,
		Comments: []models.CommentDraft{
			{Body: "first finding", Path: "a.go", Line: 3},
			{Body: "second finding", Path: "b.go", Line: 8},
		},
	}
	result := &chat.Result{Verdict: verdict, Text: "raw"}

	if err := b.publish(context.Background(), "o", "r", 7, testPR(), nil, result); err != nil {
		t.Fatalf("publish() error = %v, want nil despite one failed submission", err)
	}

	if platform.inlineAttempts != 2 {
		t.Errorf("expected 2 submission attempts, got %d", platform.inlineAttempts)
	}
	if len(platform.inlineDrafts) != 1 || platform.inlineDrafts[0].Path != "b.go" {
		t.Errorf("expected the second draft to land, got %+v", platform.inlineDrafts)
	}
}

func TestReviewPullRequestFetchFailureSkipsModel(t *testing.T) {
	platform := &fakePlatform{prErr: errors.New("pull request not found")}
	completion := &fakeCompletion{}
	b := newTestBot(platform, completion)

	err := b.ReviewPullRequest(context.Background(), "o", "r", 404)
	if err == nil {
		t.Fatal("ReviewPullRequest() error = nil, want fetch failure")
	}
	if !strings.Contains(err.Error(), "pull request not found") {
		t.Errorf("error = %v, want underlying message surfaced", err)
	}
	if len(completion.prompts) != 0 {
		t.Errorf("completion model was invoked %d times, want 0", len(completion.prompts))
	}
	if platform.inlineAttempts != 0 || len(platform.issueBodies) != 0 {
		t.Error("no comments should be posted on fetch failure")
	}
}

func TestReviewPullRequestZeroFiles(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	completion := &fakeCompletion{
		result: &chat.Result{
			Verdict: &models.ReviewVerdict{LGTM: true, Summary: "Nothing to review."},
			Text:    `{"lgtm": true, "summary": "Nothing to review."}`,
		},
	}
	b := newTestBot(platform, completion)

	if err := b.ReviewPullRequest(context.Background(), "o", "r", 7); err != nil {
		t.Fatalf("ReviewPullRequest() error = %v", err)
	}

	if len(completion.prompts) != 1 {
		t.Fatalf("completion model invoked %d times, want 1", len(completion.prompts))
	}
	if !strings.Contains(completion.prompts[0], "No files changed.") {
		t.Error("prompt should state that no files changed")
	}
	if len(platform.issueBodies) != 1 {
		t.Errorf("expected 1 summary comment, got %d", len(platform.issueBodies))
	}
}

func TestReviewPullRequestCompletionFailureIsFatal(t *testing.T) {
	platform := &fakePlatform{pr: testPR()}
	completion := &fakeCompletion{err: errors.New("model unreachable")}
	b := newTestBot(platform, completion)

	err := b.ReviewPullRequest(context.Background(), "o", "r", 7)
	if err == nil {
		t.Fatal("ReviewPullRequest() error = nil, want completion failure")
	}
	if platform.inlineAttempts != 0 || len(platform.issueBodies) != 0 {
		t.Error("no comments should be posted when the completion call fails")
	}
}
