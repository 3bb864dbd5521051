package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the prompt configuration sent with every analysis request.
type Config struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	APIKey       string // may be empty; remote analyzers reject that themselves
}

// ItemResult is one detected item as returned by the model.
type ItemResult struct {
	Type        string   `json:"type"`
	Brand       string   `json:"brand"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// Result is the outcome of analyzing one image.
type Result struct {
	Items       []ItemResult
	VisibleText []string
	Raw         map[string]any // full provider response, stored on the Prompt
	Elapsed     time.Duration
}

// Analyzer runs item detection on an encoded image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, cfg Config) (Result, error)
}

// RemoteStore uploads ingested images to a hosted backend. No
// implementation ships with the catalog.
type RemoteStore interface {
	UploadImage(ctx context.Context, imageID string, image []byte) error
}

// ErrNoContent is returned when a response carries no JSON object.
var ErrNoContent = errors.New("response contains no JSON object")

type parsedContent struct {
	Items       []ItemResult `json:"items"`
	VisibleText []string     `json:"visible_text"`
}

// ParseResponse extracts items and visible text from a chat completion
// content string. Anything before the first '{' or after the last '}' is
// ignored.
func ParseResponse(content string) ([]ItemResult, []string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, nil, ErrNoContent
	}

	var pc parsedContent
	if err := json.Unmarshal([]byte(content[start:end+1]), &pc); err != nil {
		return nil, nil, fmt.Errorf("parse response content: %w", err)
	}
	if pc.Items == nil {
		pc.Items = []ItemResult{}
	}
	if pc.VisibleText == nil {
		pc.VisibleText = []string{}
	}
	return pc.Items, pc.VisibleText, nil
}

// MessageContent returns choices[0].message.content of a chat completion
// response.
func MessageContent(raw map[string]any) (string, error) {
	choices, _ := raw["choices"].([]any)
	if len(choices) == 0 {
		return "", errors.New("response has no choices")
	}
	choice, _ := choices[0].(map[string]any)
	msg, _ := choice["message"].(map[string]any)
	content, ok := msg["content"].(string)
	if !ok {
		return "", errors.New("response has no message content")
	}
	return content, nil
}

// FileAnalyzer replays a chat completion response saved on disk instead of
// calling a model.
type FileAnalyzer struct {
	Path string
}

// Analyze implements Analyzer. The image bytes are not inspected.
func (a FileAnalyzer) Analyze(ctx context.Context, image []byte, cfg Config) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read analysis: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("decode analysis %s: %w", a.Path, err)
	}

	content, err := MessageContent(raw)
	if err != nil {
		return Result{}, fmt.Errorf("analysis %s: %w", a.Path, err)
	}
	items, text, err := ParseResponse(content)
	if err != nil {
		return Result{}, fmt.Errorf("analysis %s: %w", a.Path, err)
	}

	return Result{
		Items:       items,
		VisibleText: text,
		Raw:         raw,
		Elapsed:     time.Since(start),
	}, nil
}
