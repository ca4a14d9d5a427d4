// Package llm implements the scoring oracle over an OpenAI-compatible API.
// The oracle grades a whole submission in one call; its marks are validated
// downstream and never trusted to respect point ceilings.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/examhall/examhall/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new scoring oracle client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// gradesResponse is the JSON object the oracle is instructed to return.
type gradesResponse struct {
	Results []model.OracleGrade `json:"results"`
}

// GradeSubmission sends all question/answer/key tuples of a submission to
// the oracle and returns one grade per tuple, in input order.
func (c *Client) GradeSubmission(ctx context.Context, items []model.OracleItem) ([]model.OracleGrade, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal grading items: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGradingSystemPrompt(len(items))},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("oracle response", "raw", raw)

	return parseGrades(raw, len(items))
}

// parseGrades decodes the oracle's JSON and checks it covers every item.
func parseGrades(raw string, want int) ([]model.OracleGrade, error) {
	var parsed gradesResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w (raw: %s)", err, raw)
	}
	if len(parsed.Results) != want {
		return nil, fmt.Errorf("oracle returned %d results, want %d", len(parsed.Results), want)
	}
	return parsed.Results, nil
}

func buildGradingSystemPrompt(n int) string {
	var sb strings.Builder
	sb.WriteString("You are an exam grader. The user message is a JSON array of ")
	sb.WriteString(fmt.Sprintf("%d answered questions. Each entry has the question text, ", n))
	sb.WriteString("its type, the maximum points, the student's answer, and, when available, the answer key.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Grade every entry for correctness, completeness, and understanding.\n")
	sb.WriteString("- For MULTIPLE_CHOICE, award full points for a matching answer and zero otherwise.\n")
	sb.WriteString("- For SHORT_ANSWER, compare against the key allowing equivalent phrasing.\n")
	sb.WriteString("- For ESSAY, judge the answer on its own merits against the question.\n")
	sb.WriteString("- awarded_marks must be between 0 and that entry's points.\n")
	sb.WriteString("- Keep feedback brief and specific.\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this exact shape, with one result per ")
	sb.WriteString("input entry in the same order:\n")
	sb.WriteString(`{"results": [{"awarded_marks": <number>, "feedback": "<brief feedback>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}
