// Package llm produces a synopsis of a finished transcript. It sits outside
// the pipeline: analysis failures never touch job state.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "Analyze the following audio transcript and provide a " +
	"concise synopsis. Summarize the key points as short paragraphs and " +
	"call out any action items at the end."

// AnalyzeTranscript sends the transcript text to OpenAI and returns the
// synopsis.
func AnalyzeTranscript(
	ctx context.Context,
	apiKey string,
	transcriptText string,
) (string, error) {
	if apiKey == "" {
		return "", errors.New("missing OpenAI API key")
	}
	if transcriptText == "" {
		return "", errors.New("transcript is empty")
	}

	client := openai.NewClient(apiKey)
	req := openai.ChatCompletionRequest{
		Model:     openai.GPT4o,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: transcriptText,
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
