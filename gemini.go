package main

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const topicsPrompt = `Given the Bible reference %q, create a list of 24 single words related to its themes and message. These should be simple, clear words suitable for a Bible study bingo game. Include a mix of:
- Key actions or verbs from the passage
- Important objects or symbols mentioned
- Themes or concepts discussed
- Character traits demonstrated

Give each word a relevant image description. The image descriptions should be simple terms like: cross, bible, heart, star, angel, church, dove, fish, crown, light, water, bread, lamb, scroll.
Don't use any number related words.

Reply ONLY with a JSON array, no comment and no markdown:
[
  {"word": "PRAY", "imageDescription": "pray"},
  {"word": "FAITH", "imageDescription": "cross"}
]`

// Topics asks Gemini for the words of a board about a scripture reference.
func (g *GeminiClient) Topics(ctx context.Context, reference string) ([]Topic, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf(topicsPrompt, reference)}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.7)),
			MaxOutputTokens:  1000,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response: %w", ErrInvalidTopicData)
	}
	return parseTopics(text)
}

// parseTopics decodes the JSON array returned by the model.
func parseTopics(text string) ([]Topic, error) {
	var topics []Topic
	if err := json.Unmarshal([]byte(text), &topics); err != nil {
		return nil, fmt.Errorf("parse topics JSON: %w: %w\nraw response: %s", ErrInvalidTopicData, err, text)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics in response: %w", ErrInvalidTopicData)
	}
	return topics, nil
}
