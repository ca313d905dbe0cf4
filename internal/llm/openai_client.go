package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
)

var (
	// ErrOpenAIUnavailable indicates the OpenAI service is not configured or unavailable.
	ErrOpenAIUnavailable = errors.New("OpenAI service unavailable")
	// ErrOpenAIRequest indicates an error during the OpenAI API request.
	ErrOpenAIRequest = errors.New("OpenAI request failed")
	// ErrOpenAIResponse indicates an unusable OpenAI response.
	ErrOpenAIResponse = errors.New("empty OpenAI response")
)

const systemPrompt = `You are an analytical sleep expert. You analyze one week of wearable sleep data, given as a list of objects with the keys: date, deepSleepTime, shallowSleepTime, wakeTime (minutes awake during the night), start (sleep onset), stop (sleep end), REMTime, naps.

Write a brief weekly report with:
1) The key metrics and what they mean: what went well and what to improve.
2) Two strengths and two areas to improve.

Be precise, actionable, and specific; use the numbers. Give recommendations tailored to this user, not generic advice: name which days went best and why, and which days to improve and how. Refer to days by weekday name (Monday, Tuesday, ...).`

// Client generates the weekly narrative from exported rows.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates an OpenAI-backed narrative client. Returns nil if
// apiKey is empty; callers treat a nil client as "no narrative".
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return nil
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// WeeklyReport asks the model for a narrative over the given records.
// Failures here must never abort the export; the caller downgrades any
// error to an empty narrative.
func (c *Client) WeeklyReport(ctx context.Context, records []domain.SleepRecord, windowLabel string) (string, error) {
	if c == nil {
		return "", ErrOpenAIUnavailable
	}

	payload, err := json.Marshal(struct {
		Window string               `json:"window"`
		Rows   []domain.SleepRecord `json:"rows"`
	}{Window: windowLabel, Rows: records})
	if err != nil {
		return "", fmt.Errorf("%w: failed to serialize rows: %v", ErrOpenAIRequest, err)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Temperature: openai.Float(0.2),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpenAIRequest, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrOpenAIResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrOpenAIResponse
	}

	return content, nil
}
