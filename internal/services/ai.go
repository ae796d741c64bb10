package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/models"
)

// TaskSuggester turns free text into suggested cards.
type TaskSuggester interface {
	SuggestTasks(ctx context.Context, text string) ([]SuggestedTask, error)
}

type AIService struct {
	client *openai.Client
	now    func() time.Time
}

// SuggestedTask is one card proposed by the model.
type SuggestedTask struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Mode        models.TaskMode `json:"mode"`
	Time        string          `json:"time,omitempty"`
	AlarmTime   string          `json:"alarmTime,omitempty"`
	AlarmDate   string          `json:"alarmDate,omitempty"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		now:    time.Now,
	}
}

// NewAIServiceWithBaseURL points the client at a compatible endpoint
func NewAIServiceWithBaseURL(apiKey, baseURL string) *AIService {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		now:    time.Now,
	}
}

// SuggestTasks asks the model for timer and alarm cards described by text
func (s *AIService) SuggestTasks(ctx context.Context, text string) ([]SuggestedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := s.now().Format("2006-01-02 15:04")
	prompt := fmt.Sprintf(`You are a planning assistant for a timer board. Split the text below into concrete steps.

Current time: %s

Text:
%s

Return a JSON array of cards:
[
  {
    "title": "short step title",
    "description": "one sentence of detail",
    "mode": "timer" or "alarm",
    "time": "countdown as MM:SS when mode is timer",
    "alarmTime": "HH:MM when mode is alarm",
    "alarmDate": "YYYY-MM-DD when the alarm is not today, otherwise omit"
  }
]

Rules:
- Return [] when the text has no steps
- Use timer mode for durations and alarm mode for wall-clock times
- Return only JSON, no commentary`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var tasks []SuggestedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return SanitizeSuggestions(tasks), nil
}

// SanitizeSuggestions drops cards the board would reject and caps the list.
func SanitizeSuggestions(in []SuggestedTask) []SuggestedTask {
	out := make([]SuggestedTask, 0, len(in))
	for _, t := range in {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			continue
		}

		if t.Mode == models.TaskModeAlarm {
			at, date, err := engine.NormalizeAlarm(t.AlarmTime, t.AlarmDate)
			if err != nil {
				continue
			}
			t.AlarmTime, t.AlarmDate, t.Time = at, date, ""
		} else {
			t.Mode = models.TaskModeTimer
			countdown, err := engine.NormalizeCountdown(t.Time)
			if err != nil {
				countdown = constants.DefaultTaskTime
			}
			t.Time, t.AlarmTime, t.AlarmDate = countdown, "", ""
		}

		out = append(out, t)
		if len(out) == constants.MaxAIGeneratedTasks {
			break
		}
	}
	return out
}

// stripCodeFence removes a markdown fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
