package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	// Platform selection
	Platform string

	// GitHub related
	GithubToken string

	// GitLab related
	GitlabToken   string
	GitlabBaseURL string

	// Gitea related
	GiteaToken   string
	GiteaBaseURL string

	// Target pull request
	Owner    string
	Repo     string
	PRNumber int

	// OpenAI related
	OpenAIAPIKey      string
	OpenAIAPIEndpoint string
	Model             string
	Temperature       float32
	TopP              float32
	MaxTokens         int
	Language          string
	Prompt            string

	// Azure OpenAI related
	AzureAPIVersion string
	AzureDeployment string
	IsAzure         bool

	// Direct LLM provider related
	DirectLLMEndpoint string
	DirectLLMModelID  string
	DirectLLMAPIKey   string
	IsDirectLLM       bool

	// Review policy
	MaxComments     int
	MaxPatchLength  int
	IgnorePatterns  []string
	IncludePatterns []string
	IgnoreList      []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		// Platform selection (default to GitHub if not specified)
		Platform: getEnvWithDefault("PLATFORM", "github"),

		// GitHub configuration
		GithubToken: os.Getenv("GITHUB_TOKEN"),

		// GitLab configuration
		GitlabToken:   os.Getenv("GITLAB_TOKEN"),
		GitlabBaseURL: getEnvWithDefault("GITLAB_BASE_URL", "https://gitlab.com/api/v4"),

		// Gitea configuration
		GiteaToken:   os.Getenv("GITEA_TOKEN"),
		GiteaBaseURL: os.Getenv("GITEA_BASE_URL"),

		// OpenAI configuration
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIAPIEndpoint: getEnvWithDefault("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
		Model:             getEnvWithDefault("MODEL", "gpt-4o-mini"),
		Language:          os.Getenv("LANGUAGE"),
		Prompt:            getEnvWithDefault("PROMPT", "Please review the following pull request. Focus on potential bugs, risks, and improvement suggestions."),
		AzureAPIVersion:   os.Getenv("AZURE_API_VERSION"),
		AzureDeployment:   os.Getenv("AZURE_DEPLOYMENT"),
		IgnorePatterns:    splitAndTrim(os.Getenv("IGNORE_PATTERNS"), ","),
		IncludePatterns:   splitAndTrim(os.Getenv("INCLUDE_PATTERNS"), ","),
		IgnoreList:        splitAndTrim(os.Getenv("IGNORE"), "\n"),
	}

	// Target pull request: REPO_OWNER/REPO_NAME override GITHUB_REPOSITORY
	config.Owner, config.Repo = splitRepository(os.Getenv("GITHUB_REPOSITORY"))
	if v := os.Getenv("REPO_OWNER"); v != "" {
		config.Owner = v
	}
	if v := os.Getenv("REPO_NAME"); v != "" {
		config.Repo = v
	}
	config.PRNumber = parseInt(os.Getenv("PR_NUMBER"), 0)

	// Parse numeric values
	config.Temperature = parseFloat32(getEnvWithDefault("temperature", "1"))
	config.TopP = parseFloat32(getEnvWithDefault("top_p", "1"))
	config.MaxTokens = parseInt(os.Getenv("max_tokens"), 0)
	config.MaxPatchLength = parseInt(os.Getenv("MAX_PATCH_LENGTH"), 0)
	config.MaxComments = parseInt(os.Getenv("MAX_COMMENTS"), 3)

	// Check if Azure OpenAI is configured
	config.IsAzure = config.AzureAPIVersion != "" && config.AzureDeployment != ""

	// Load direct LLM provider configuration
	config.DirectLLMEndpoint = os.Getenv("DIRECT_LLM_ENDPOINT")
	config.DirectLLMModelID = os.Getenv("DIRECT_LLM_MODEL_ID")
	config.DirectLLMAPIKey = os.Getenv("DIRECT_LLM_API_KEY")
	config.IsDirectLLM = config.DirectLLMEndpoint != "" && config.DirectLLMModelID != "" && config.DirectLLMAPIKey != ""

	return config
}

// Validate checks the required invocation inputs: a completion credential, an
// access token for the selected platform, and the target pull request.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" && !c.IsDirectLLM {
		return errors.New("completion credential is required: set OPENAI_API_KEY or the DIRECT_LLM_* variables")
	}

	switch strings.ToLower(c.Platform) {
	case "github":
		if c.GithubToken == "" {
			return errors.New("GITHUB_TOKEN is required when using the GitHub platform")
		}
	case "gitlab":
		if c.GitlabToken == "" {
			return errors.New("GITLAB_TOKEN is required when using the GitLab platform")
		}
	case "gitea":
		if c.GiteaToken == "" {
			return errors.New("GITEA_TOKEN is required when using the Gitea platform")
		}
	default:
		return errors.New("unsupported platform: " + c.Platform)
	}

	if c.Owner == "" || c.Repo == "" {
		return errors.New("repository is required: set GITHUB_REPOSITORY or REPO_OWNER and REPO_NAME")
	}
	if c.PRNumber <= 0 {
		return errors.New("PR_NUMBER is required and must be a positive integer")
	}

	return nil
}

// Helper functions
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseFloat32(value string) float32 {
	if value == "" {
		return 0
	}

	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		logrus.Warnf("Failed to parse float value: %s, using default 0", value)
		return 0
	}
	return float32(f)
}

func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Failed to parse int value: %s, using default %d", value, defaultValue)
		return defaultValue
	}
	return i
}

// splitRepository splits an "owner/name" value as provided by GITHUB_REPOSITORY
func splitRepository(value string) (string, string) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

func splitAndTrim(value, separator string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, separator)
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
