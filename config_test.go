package main

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, ok := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "GCP_PROJECT_ID", "GCP_REGION", "GEMINI_MODEL", "PIXABAY_API_KEY"} {
		unsetEnv(t, k)
	}

	cfg := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.Port != "8080" || cfg.GCPRegion != defaultRegion || cfg.GeminiModel != defaultModel {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.GCPProjectID != "" || cfg.PixabayAPIKey != "" {
		t.Fatalf("collaborators should be disabled by default: %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	for _, k := range []string{"PORT", "GCP_PROJECT_ID", "GCP_REGION", "GEMINI_MODEL", "PIXABAY_API_KEY"} {
		unsetEnv(t, k)
	}
	t.Setenv("GEMINI_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	data := "PORT=9090\nGCP_PROJECT_ID=bingo-project\nPIXABAY_API_KEY=abc\nGEMINI_MODEL=from-file\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := loadConfig(path)
	if cfg.Port != "9090" || cfg.GCPProjectID != "bingo-project" || cfg.PixabayAPIKey != "abc" {
		t.Fatalf("file values not loaded: %+v", cfg)
	}
	if cfg.GeminiModel != "from-env" {
		t.Fatalf("environment should win over the file, got %q", cfg.GeminiModel)
	}
}
