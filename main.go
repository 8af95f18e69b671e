package main

import (
	"context"
	"log"
	"net/http"
)

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	var topics TopicSource
	if cfg.GCPProjectID != "" {
		gemini, err := NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPRegion, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Could not initialise Gemini: %v", err)
		}
		defer gemini.Close()
		topics = gemini
		log.Printf("Gemini client ready (project: %s, model: %s)", cfg.GCPProjectID, cfg.GeminiModel)
	} else {
		log.Println("GCP_PROJECT_ID not set, boards use the built-in word list")
	}

	var images ImageSource
	if cfg.PixabayAPIKey != "" {
		images = NewPixabayClient(cfg.PixabayAPIKey)
		log.Println("Pixabay image search enabled")
	} else {
		log.Println("PIXABAY_API_KEY not set, cells use placeholder images")
	}

	srv := NewServer(NewStore(), topics, images)

	log.Printf("Server listening on http://localhost:%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv); err != nil {
		log.Fatal(err)
	}
}
