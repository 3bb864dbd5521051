package model

// ChildRef points at the most recently created child of a parent record.
// It is a cache: the child tables remain the source of truth.
type ChildRef struct {
	Table     Table  `json:"table"`
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

// Image is the parent record of potentially multiple Items and Prompts.
type Image struct {
	ID          string    `json:"id"`
	CreatedAt   int64     `json:"createdAt"`
	Name        string    `json:"name,omitempty"`
	File        []byte    `json:"file"`
	VisibleText []string  `json:"visibleText"`
	LastChild   *ChildRef `json:"lastChild,omitempty"`
}

// RecordID implements Record.
func (i Image) RecordID() string { return i.ID }

// Created returns the creation timestamp.
func (i Image) Created() int64 { return i.CreatedAt }

// ImageParams are the inputs to NewImage.
type ImageParams struct {
	ID          string
	CreatedAt   int64
	Name        string
	File        []byte // required
	VisibleText []string
}

// NewImage constructs an Image.
func NewImage(p ImageParams) Image {
	img := Image{
		ID:          p.ID,
		CreatedAt:   p.CreatedAt,
		Name:        p.Name,
		File:        p.File,
		VisibleText: p.VisibleText,
	}
	if img.ID == "" {
		img.ID = NewID(TableImages)
	}
	if img.CreatedAt == 0 {
		img.CreatedAt = Now()
	}
	if img.VisibleText == nil {
		img.VisibleText = []string{}
	}
	return img
}

// Item is a single inventory item detected in an Image.
type Item struct {
	ID          string   `json:"id"`
	CreatedAt   int64    `json:"createdAt"`
	ImageID     string   `json:"imageId"`
	Type        string   `json:"type,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories"`
}

// RecordID implements Record.
func (i Item) RecordID() string { return i.ID }

// ParentRef implements Child.
func (i Item) ParentRef() string { return i.ImageID }

// Created implements Child.
func (i Item) Created() int64 { return i.CreatedAt }

// ItemParams are the inputs to NewItem. ImageID is never defaulted.
type ItemParams struct {
	ID          string
	CreatedAt   int64
	ImageID     string
	Type        string
	Brand       string
	Label       string
	Description string
	Categories  []string
}

// NewItem constructs an Item.
func NewItem(p ItemParams) Item {
	it := Item{
		ID:          p.ID,
		CreatedAt:   p.CreatedAt,
		ImageID:     p.ImageID,
		Type:        p.Type,
		Brand:       p.Brand,
		Label:       p.Label,
		Description: p.Description,
		Categories:  p.Categories,
	}
	if it.ID == "" {
		it.ID = NewID(TableItems)
	}
	if it.CreatedAt == 0 {
		it.CreatedAt = Now()
	}
	if it.Categories == nil {
		it.Categories = []string{}
	}
	return it
}

// Prompt records one image analysis request and its response.
type Prompt struct {
	ID             string         `json:"id"`
	CreatedAt      int64          `json:"createdAt"`
	ImageID        string         `json:"imageId"`
	Model          string         `json:"model"`
	SystemPrompt   string         `json:"systemPrompt"`
	UserPrompt     string         `json:"userPrompt"`
	MaxTokens      int            `json:"maxTokens"`
	ResponseTimeMs *int64         `json:"responseTimeMs,omitempty"`
	ResponseData   map[string]any `json:"responseData,omitempty"`
}

// RecordID implements Record.
func (p Prompt) RecordID() string { return p.ID }

// ParentRef implements Child.
func (p Prompt) ParentRef() string { return p.ImageID }

// Created implements Child.
func (p Prompt) Created() int64 { return p.CreatedAt }

// PromptParams are the inputs to NewPrompt. ImageID is never defaulted.
type PromptParams struct {
	ID             string
	CreatedAt      int64
	ImageID        string
	Model          string
	SystemPrompt   string
	UserPrompt     string
	MaxTokens      int
	ResponseTimeMs *int64
	ResponseData   map[string]any
}

// NewPrompt constructs a Prompt.
func NewPrompt(p PromptParams) Prompt {
	pr := Prompt{
		ID:             p.ID,
		CreatedAt:      p.CreatedAt,
		ImageID:        p.ImageID,
		Model:          p.Model,
		SystemPrompt:   p.SystemPrompt,
		UserPrompt:     p.UserPrompt,
		MaxTokens:      p.MaxTokens,
		ResponseTimeMs: p.ResponseTimeMs,
		ResponseData:   p.ResponseData,
	}
	if pr.ID == "" {
		pr.ID = NewID(TablePrompts)
	}
	if pr.CreatedAt == 0 {
		pr.CreatedAt = Now()
	}
	return pr
}
