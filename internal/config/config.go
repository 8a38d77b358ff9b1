// Package config reads process configuration from the environment,
// .env included via godotenv at the entry point.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Workbook-backed tabular store.
	WorkbookPath string

	// External collaborators.
	DriveBaseURL      string
	MediaBaseURL      string
	TranscribeBaseURL string
	LLMGatewayURL     string
	LLMAPIKey         string
	LLMModel          string

	// Mock switches for offline runs and tests.
	MockDrive      bool
	MockMedia      bool
	MockTranscribe bool
	MockLLM        bool

	// Working directories.
	TempDir      string
	DownloadsDir string
	AudioDir     string

	// Job execution.
	MaxConcurrency int

	// Dashboard.
	Port string
}

func Load() Config {
	return Config{
		WorkbookPath: envOr("WORKBOOK_PATH", "insights.xlsx"),

		DriveBaseURL:      os.Getenv("DRIVE_URL"),
		MediaBaseURL:      os.Getenv("MEDIA_URL"),
		TranscribeBaseURL: os.Getenv("TRANSCRIBE_URL"),
		LLMGatewayURL:     os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:         os.Getenv("LLM_API_KEY"),
		LLMModel:          envOr("LLM_MODEL", "gpt-4o-mini"),

		MockDrive:      boolEnv("USE_MOCK_DRIVE"),
		MockMedia:      boolEnv("USE_MOCK_MEDIA"),
		MockTranscribe: boolEnv("USE_MOCK_TRANSCRIBE"),
		MockLLM:        boolEnv("USE_MOCK_LLM"),

		TempDir:      envOr("TEMP_DIR", "./temp"),
		DownloadsDir: envOr("DOWNLOADS_DIR", "./temp/downloads"),
		AudioDir:     envOr("AUDIO_DIR", "./temp/audio"),

		MaxConcurrency: intEnv("MAX_CONCURRENCY", 5),

		Port: envOr("PORT", "8080"),
	}
}

// Validate reports every missing required setting. A non-nil error is fatal
// at job startup, before any processing.
func (c Config) Validate() error {
	var missing []string
	if c.WorkbookPath == "" {
		missing = append(missing, "WORKBOOK_PATH")
	}
	if !c.MockDrive && c.DriveBaseURL == "" {
		missing = append(missing, "DRIVE_URL")
	}
	if !c.MockMedia && c.MediaBaseURL == "" {
		missing = append(missing, "MEDIA_URL")
	}
	if !c.MockTranscribe && c.TranscribeBaseURL == "" {
		missing = append(missing, "TRANSCRIBE_URL")
	}
	if !c.MockLLM {
		if c.LLMGatewayURL == "" {
			missing = append(missing, "LLM_GATEWAY_URL")
		}
		if c.LLMAPIKey == "" {
			missing = append(missing, "LLM_API_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolEnv(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
