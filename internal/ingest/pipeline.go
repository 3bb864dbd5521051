package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/service"
)

// Field limits enforced by the entity schemas.
const (
	maxLine = 50
	maxArea = 300
)

// Pipeline turns an image into persisted Image, Item and Prompt records.
type Pipeline struct {
	reg      *service.Registry
	analyzer Analyzer
}

// Outcome is everything one Ingest call wrote.
type Outcome struct {
	Image  model.Image
	Items  []model.Item
	Prompt model.Prompt
}

// NewPipeline creates a Pipeline over reg using analyzer.
func NewPipeline(reg *service.Registry, analyzer Analyzer) *Pipeline {
	return &Pipeline{reg: reg, analyzer: analyzer}
}

// LoadConfig reads the prompt configuration from Settings. Every field
// except the API key is required.
func (p *Pipeline) LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	var err error

	if cfg.SystemPrompt, err = p.requireString(ctx, model.SettingSystemPrompt); err != nil {
		return Config{}, err
	}
	if cfg.UserPrompt, err = p.requireString(ctx, model.SettingUserPrompt); err != nil {
		return Config{}, err
	}
	if cfg.Model, err = p.requireString(ctx, model.SettingModelName); err != nil {
		return Config{}, err
	}

	v, err := p.setting(ctx, model.SettingMaxTokens)
	if err != nil {
		return Config{}, err
	}
	n, ok := v.AsNumber()
	if !ok || n < 1 || n != math.Trunc(n) {
		return Config{}, missing(model.SettingMaxTokens)
	}
	cfg.MaxTokens = int(n)

	if v, err := p.setting(ctx, model.SettingAIAPIKey); err == nil {
		cfg.APIKey, _ = v.AsString()
	} else if !errors.Is(err, errMissing) {
		return Config{}, err
	}
	return cfg, nil
}

// Ingest analyzes image and stores the results. The Image, its Items and
// its Prompt are written in one transaction: on failure nothing is stored.
func (p *Pipeline) Ingest(ctx context.Context, name string, image []byte) (Outcome, error) {
	if len(image) == 0 {
		return Outcome{}, errors.New("Image is missing")
	}

	cfg, err := p.LoadConfig(ctx)
	if err != nil {
		return Outcome{}, err
	}

	res, err := p.analyzer.Analyze(ctx, image, cfg)
	if err != nil {
		return Outcome{}, fmt.Errorf("analyze image: %w", err)
	}

	tree, err := p.reg.AddImageTree(ctx, buildTree(name, image, cfg, res))
	if err != nil {
		return Outcome{}, fmt.Errorf("save image: %w", err)
	}
	out := Outcome{Image: tree.Image, Items: tree.Items, Prompt: tree.Prompts[0]}

	slog.Info("image ingested",
		"image", out.Image.ID,
		"items", len(out.Items),
		"model", cfg.Model,
		"elapsed_ms", res.Elapsed.Milliseconds())
	return out, nil
}

func buildTree(name string, image []byte, cfg Config, res Result) service.ImageTree {
	img := model.NewImage(model.ImageParams{
		Name:        clip(name, maxLine),
		File:        image,
		VisibleText: res.VisibleText,
	})

	items := make([]model.Item, 0, len(res.Items))
	for _, r := range res.Items {
		items = append(items, model.NewItem(model.ItemParams{
			ImageID:     img.ID,
			Type:        clip(r.Type, maxLine),
			Brand:       clip(r.Brand, maxLine),
			Label:       clip(r.Label, maxLine),
			Description: clip(r.Description, maxArea),
			Categories:  r.Categories,
		}))
	}

	elapsed := res.Elapsed.Milliseconds()
	prompt := model.NewPrompt(model.PromptParams{
		ImageID:        img.ID,
		Model:          cfg.Model,
		SystemPrompt:   cfg.SystemPrompt,
		UserPrompt:     cfg.UserPrompt,
		MaxTokens:      cfg.MaxTokens,
		ResponseTimeMs: &elapsed,
		ResponseData:   res.Raw,
	})

	return service.ImageTree{Image: img, Items: items, Prompts: []model.Prompt{prompt}}
}

var errMissing = errors.New("missing")

func missing(id model.SettingID) error {
	return fmt.Errorf("%s is %w", id, errMissing)
}

func (p *Pipeline) setting(ctx context.Context, id model.SettingID) (model.SettingValue, error) {
	v, err := p.reg.Setting(ctx, id)
	if service.IsNotFound(err) {
		return model.SettingValue{}, missing(id)
	}
	return v, err
}

func (p *Pipeline) requireString(ctx context.Context, id model.SettingID) (string, error) {
	v, err := p.setting(ctx, id)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok || s == "" {
		return "", missing(id)
	}
	return s, nil
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// IsMissingSetting reports whether err is a missing prompt configuration
// error from LoadConfig.
func IsMissingSetting(err error) bool {
	return errors.Is(err, errMissing)
}
