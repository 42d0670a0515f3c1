package main

import (
	"context"
	"os"

	"github.com/codelens-ai/pr-reviewer/internal/bot"
	"github.com/codelens-ai/pr-reviewer/internal/chat"
	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/git"
	"github.com/sirupsen/logrus"
)

func main() {
	// Configure logging
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Set log level based on environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		level, err := logrus.ParseLevel(logLevel)
		if err == nil {
			logrus.SetLevel(level)
		}
	}

	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	// Create git platform client based on configuration
	platformFactory := git.NewFactory(cfg)
	platform, err := platformFactory.CreatePlatform()
	if err != nil {
		logrus.Fatalf("Failed to create git platform client: %v", err)
	}

	// Create chat client
	chatClient, err := chat.NewChat(cfg)
	if err != nil {
		logrus.Fatalf("Failed to create chat client: %v", err)
	}

	// Create bot and run a single review pass
	reviewBot := bot.NewBot(cfg, platform, chatClient)

	ctx := context.Background()
	if err := reviewBot.ReviewPullRequest(ctx, cfg.Owner, cfg.Repo, cfg.PRNumber); err != nil {
		logrus.Fatalf("Error reviewing pull request #%d: %v", cfg.PRNumber, err)
	}

	logrus.Infof("Review of %s/%s#%d completed successfully", cfg.Owner, cfg.Repo, cfg.PRNumber)
}
