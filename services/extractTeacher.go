package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/go-huggingface"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/prompts"
)

// ErrNoTeacher is returned when the model could not name a teacher.
var ErrNoTeacher = errors.New("no teacher name in question")

// maxTeacherName bounds what is accepted back from a model.
const maxTeacherName = 100

func intPtr(i int) *int {
	return &i
}

func float64Ptr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

// TeacherExtractor turns a free-text question into a teacher name. The name
// is only ever used as a bound parameter.
type TeacherExtractor interface {
	ExtractTeacher(ctx context.Context, question string) (string, error)
}

var teacherPrompt = prompts.NewPromptTemplate(
	`Extract the name of the teacher the following question asks about.
Return ONLY the teacher's name exactly as written, no explanation, no quotes.
If no teacher is named, return NONE.

Question: {{.question}}

Teacher:`,
	[]string{"question"},
)

func buildTeacherPrompt(question string) (string, error) {
	return teacherPrompt.Format(map[string]any{"question": question})
}

// NewTeacherExtractor returns the extractor for provider, or nil when no
// provider is configured.
func NewTeacherExtractor(provider, apiKey, model string) (TeacherExtractor, error) {
	switch provider {
	case "":
		return nil, nil
	case "huggingface":
		return &HuggingFaceExtractor{client: huggingface.NewInferenceClient(apiKey)}, nil
	case "openai":
		return &OpenAIExtractor{client: openai.NewClient(apiKey), model: model}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

type HuggingFaceExtractor struct {
	client *huggingface.InferenceClient
}

func (e *HuggingFaceExtractor) ExtractTeacher(ctx context.Context, question string) (string, error) {
	prompt, err := buildTeacherPrompt(question)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	req := &huggingface.TextGenerationRequest{
		Inputs: prompt,
		Parameters: huggingface.TextGenerationParameters{
			MaxNewTokens:   intPtr(20),
			Temperature:    float64Ptr(0.1), // names, not prose
			TopK:           intPtr(10),
			TopP:           float64Ptr(0.9),
			ReturnFullText: boolPtr(false),
		},
	}

	res, err := e.client.TextGeneration(ctx, req)
	if err != nil {
		return "", fmt.Errorf("text generation error: %w", err)
	}
	if len(res) == 0 {
		return "", ErrNoTeacher
	}
	return cleanTeacherName(res[0].GeneratedText)
}

type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

func (e *OpenAIExtractor) ExtractTeacher(ctx context.Context, question string) (string, error) {
	prompt, err := buildTeacherPrompt(question)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   20,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoTeacher
	}
	return cleanTeacherName(resp.Choices[0].Message.Content)
}

// cleanTeacherName keeps the first line of a model answer and strips code
// fences, wrapping quotes and trailing punctuation.
func cleanTeacherName(text string) (string, error) {
	name := strings.TrimSpace(text)
	name = strings.TrimPrefix(name, "```")
	name = strings.TrimSuffix(name, "```")
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "Teacher:")
	name = strings.Trim(name, " \t\"`.!?")
	if name == "" || strings.EqualFold(name, "none") {
		return "", ErrNoTeacher
	}
	if len(name) > maxTeacherName {
		return "", fmt.Errorf("%w: answer too long", ErrNoTeacher)
	}
	return name, nil
}
