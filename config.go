package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the settings read from the environment.
type Config struct {
	Port          string
	GCPProjectID  string
	GCPRegion     string
	GeminiModel   string
	PixabayAPIKey string
}

// loadConfig reads an optional .env file, then the environment. Variables
// already set in the environment win over the file.
func loadConfig(files ...string) Config {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Println("No .env file, using the environment only")
		} else {
			log.Printf("Could not load .env: %v", err)
		}
	}

	return Config{
		Port:          getEnv("PORT", "8080"),
		GCPProjectID:  os.Getenv("GCP_PROJECT_ID"),
		GCPRegion:     getEnv("GCP_REGION", defaultRegion),
		GeminiModel:   getEnv("GEMINI_MODEL", defaultModel),
		PixabayAPIKey: os.Getenv("PIXABAY_API_KEY"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
