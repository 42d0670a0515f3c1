package bot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/sirupsen/logrus"
)

// noPatchPlaceholder stands in for binary or oversized files so the model
// never invents line references for content it cannot see.
const noPatchPlaceholder = "No patch content available."

type promptInput struct {
	PR           *models.PullRequest
	Files        []*models.CommitFile
	Existing     []*models.ExistingComment
	MaxComments  int
	Language     string
	Instructions string
}

// serializedComment is the compact form of a prior comment fed to the model
// for deduplication
type serializedComment struct {
	Body      string `json:"body"`
	Path      string `json:"path,omitempty"`
	Line      int    `json:"line,omitempty"`
	CreatedAt string `json:"created_at"`
}

// buildPrompt serializes the pull request, its change set, and the prior
// comments into the single instruction payload sent to the completion model.
func buildPrompt(in promptInput) string {
	var sb strings.Builder

	sb.WriteString(in.Instructions)
	sb.WriteString("\n\n")
	sb.WriteString(languageInstruction(in.Language))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, `Review policy:
1. Submit at most %d comments.
2. Prefer inline comments anchored to specific diff lines over a general summary.
3. Do NOT repeat feedback already covered by the existing comments listed below.
4. Never propose to modify this repository yourself; provide feedback only.

You MUST respond with a single JSON object and NOTHING ELSE, using this structure:
{
  "lgtm": boolean, // true if the changes look good to merge, false if there are concerns
  "summary": string, // a concise summary of the review
  "comments": [ // empty when lgtm is true
    {
      "body": string, // the comment text, markdown allowed
      "path": string, // the file the comment is anchored to
      "line": number, // the line in the diff the comment ends on
      "side": "LEFT" or "RIGHT", // optional, RIGHT (the modified side) if omitted
      "start_line": number, // optional, only for multi-line comments
      "start_side": "LEFT" or "RIGHT" // optional
    }
  ]
}

Line numbers MUST refer to lines that appear in the patches below.
`, in.MaxComments)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Pull request title: %s\n", in.PR.Title)
	if in.PR.Description != "" {
		fmt.Fprintf(&sb, "Pull request description:\n%s\n", in.PR.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("Changed files:\n")
	if len(in.Files) == 0 {
		sb.WriteString("No files changed.\n")
	}
	for _, file := range in.Files {
		fmt.Fprintf(&sb, "\n### %s (%s, +%d -%d)\n", file.Filename, file.Status, file.Additions, file.Deletions)
		if file.Patch == "" {
			sb.WriteString(noPatchPlaceholder)
			sb.WriteString("\n")
			continue
		}
		fmt.Fprintf(&sb, "```diff\n%s\n```\n", file.Patch)
	}
	sb.WriteString("\n")

	sb.WriteString("Existing comments on this pull request:\n")
	if len(in.Existing) == 0 {
		sb.WriteString("None.\n")
	}
	for _, comment := range in.Existing {
		data, err := json.Marshal(serializedComment{
			Body:      comment.Body,
			Path:      comment.Path,
			Line:      comment.Line,
			CreatedAt: comment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			logrus.Warnf("Failed to serialize existing comment: %v", err)
			continue
		}
		sb.Write(data)
		sb.WriteString("\n")
	}

	return sb.String()
}

func languageInstruction(language string) string {
	if strings.ToLower(language) == "chinese" {
		return "你必须用中文回复。所有的反馈、评论和建议都应该使用中文。"
	}
	return "You MUST respond in English. All your feedback, comments, and suggestions should be in English."
}
