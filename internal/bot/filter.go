package bot

import (
	"strings"

	"github.com/codelens-ai/pr-reviewer/internal/git"
	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
)

// filterFiles filters files based on include/ignore patterns
func (b *Bot) filterFiles(files []*git.CommitFile) []*git.CommitFile {
	logrus.Debugf("Filtering %d files", len(files))
	logrus.Debugf("Include patterns: %v", b.config.IncludePatterns)
	logrus.Debugf("Ignore patterns: %v", b.config.IgnorePatterns)

	if len(files) == 0 {
		return files
	}

	filtered := make([]*git.CommitFile, 0, len(files))
	for _, file := range files {
		filename := file.Filename
		logrus.Debugf("Checking file: %s, status: %s", filename, file.Status)

		// Check ignore list
		ignored := false
		for _, ignoreItem := range b.config.IgnoreList {
			if ignoreItem == filename {
				logrus.Debugf("File %s ignored by ignore list", filename)
				ignored = true
				break
			}
		}
		if ignored {
			continue
		}

		// Check include patterns
		if len(b.config.IncludePatterns) > 0 {
			if !matchPatterns(b.config.IncludePatterns, filename) {
				logrus.Debugf("File %s excluded by include patterns", filename)
				continue
			}
		}

		// Check ignore patterns
		if len(b.config.IgnorePatterns) > 0 {
			if matchPatterns(b.config.IgnorePatterns, filename) {
				logrus.Debugf("File %s excluded by ignore patterns", filename)
				continue
			}
		}

		filtered = append(filtered, file)
	}

	return filtered
}

// matchPatterns checks if a path matches any of the patterns
func matchPatterns(patterns []string, path string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if pattern == "*" {
			return true
		}
		pattern = strings.TrimPrefix(pattern, "/")

		g, err := glob.Compile(pattern)
		if err != nil {
			logrus.Warnf("Invalid pattern %q: %v", pattern, err)
			continue
		}
		if g.Match(path) {
			return true
		}

		// Relative patterns also match at any depth
		if !strings.HasPrefix(pattern, "**") {
			if nested, err := glob.Compile("**/" + pattern); err == nil && nested.Match(path) {
				return true
			}
		}
	}

	return false
}
