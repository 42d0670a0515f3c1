package git

import (
	"github.com/codelens-ai/pr-reviewer/internal/models"
)

// Aliases for the platform-neutral types defined in the models package.
type Platform = models.GitPlatform
type Commit = models.Commit
type PullRequest = models.PullRequest
type CommitFile = models.CommitFile
type ExistingComment = models.ExistingComment
type CommentDraft = models.CommentDraft
