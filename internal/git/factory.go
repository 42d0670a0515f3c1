package git

import (
	"fmt"
	"strings"

	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/git/gitea"
	"github.com/codelens-ai/pr-reviewer/internal/git/github"
	"github.com/codelens-ai/pr-reviewer/internal/git/gitlab"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/sirupsen/logrus"
)

// Factory creates platform clients based on configuration
type Factory struct {
	config *config.Config
}

// NewFactory creates a new platform factory
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		config: cfg,
	}
}

// PlatformType represents the type of git platform
type PlatformType string

const (
	GitHubPlatform PlatformType = "github"
	GitLabPlatform PlatformType = "gitlab"
	GiteaPlatform  PlatformType = "gitea"
)

// CreatePlatform creates a platform client based on configuration
func (f *Factory) CreatePlatform() (models.GitPlatform, error) {
	platform := strings.ToLower(f.config.Platform)

	switch platform {
	case string(GitHubPlatform):
		logrus.Info("Creating GitHub platform client")
		return github.NewClient(f.config)
	case string(GitLabPlatform):
		logrus.Info("Creating GitLab platform client")
		return gitlab.NewClient(f.config)
	case string(GiteaPlatform):
		logrus.Info("Creating Gitea platform client")
		return gitea.NewClient(f.config)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}
