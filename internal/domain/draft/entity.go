// Package draft contains the domain model of an AI-generated recipe that has
// not been published yet.
package draft

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tastyfood/web/internal/domain/shared"
)

// SentinelTag marks AI-originated content. It is never removable.
const SentinelTag = "AI generate"

var validate = validator.New()

// Draft is the in-progress, not-yet-persisted recipe
type Draft struct {
	shared.AggregateRoot `json:"-"`

	MenuName        string   `json:"menuName" validate:"required"`
	Ingredients     []string `json:"ingredients" validate:"min=1"`
	Instructions    []string `json:"instructions" validate:"min=1"`
	Category        string   `json:"category" validate:"required"`
	Tags            []string `json:"tags" validate:"min=1"`
	Characteristics string   `json:"characteristics"`
	Flavors         string   `json:"flavors"`
	CoverImageURL   string   `json:"coverImage,omitempty"`
	Videos          []Video  `json:"videos,omitempty"`
}

// New builds a draft from generated data. Text fields are trimmed; tags are
// label-sanitized, then deduplicated in their first-seen order.
func New(menuName string, ingredients, instructions []string, category string, tags []string, characteristics, flavors string) *Draft {
	d := &Draft{
		MenuName:        strings.TrimSpace(menuName),
		Ingredients:     slices.Clone(ingredients),
		Instructions:    slices.Clone(instructions),
		Category:        strings.TrimSpace(category),
		Characteristics: strings.TrimSpace(characteristics),
		Flavors:         strings.TrimSpace(flavors),
	}
	for _, tag := range tags {
		tag = DefaultSanitizer.Label(tag)
		if tag != "" && !slices.Contains(d.Tags, tag) {
			d.Tags = append(d.Tags, tag)
		}
	}
	return d
}

// Validate reports ErrIncomplete when any required field is missing
func (d *Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return nil
}

// MarkGenerated records that generation produced this draft
func (d *Draft) MarkGenerated(prompt string) {
	d.AddEvent(DraftGeneratedEvent{
		MenuName:    d.MenuName,
		Prompt:      prompt,
		GeneratedAt: time.Now(),
	})
}

// MarkSubmitted records that the backend accepted this draft
func (d *Draft) MarkSubmitted() {
	d.AddEvent(DraftSubmittedEvent{
		MenuName:    d.MenuName,
		SubmittedAt: time.Now(),
	})
}

// AddIngredient appends sanitized text. Empty input is a no-op and returns false.
func (d *Draft) AddIngredient(text string) bool {
	return d.appendItem(&d.Ingredients, text)
}

// AddInstruction appends sanitized text. Empty input is a no-op and returns false.
func (d *Draft) AddInstruction(text string) bool {
	return d.appendItem(&d.Instructions, text)
}

func (d *Draft) appendItem(items *[]string, text string) bool {
	text = DefaultSanitizer.FreeText(text)
	if text == "" {
		return false
	}
	*items = append(*items, text)
	return true
}

// EditItem replaces an ingredient or instruction in place
func (d *Draft) EditItem(kind ItemKind, index int, text string) error {
	items, err := d.sequence(kind)
	if err != nil {
		return err
	}
	if kind == KindTag {
		return ErrNotEditable
	}
	if index < 0 || index >= len(*items) {
		return fmt.Errorf("%w: %s %d of %d", ErrIndexOutOfRange, kind, index, len(*items))
	}

	text = DefaultSanitizer.FreeText(text)
	if text == "" {
		return ErrEmptyText
	}
	(*items)[index] = text
	return nil
}

// DeleteItem removes an item. Deleting the sentinel tag returns
// ErrProtectedTag and leaves the tags untouched.
func (d *Draft) DeleteItem(kind ItemKind, index int) error {
	items, err := d.sequence(kind)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*items) {
		return fmt.Errorf("%w: %s %d of %d", ErrIndexOutOfRange, kind, index, len(*items))
	}
	if kind == KindTag && (*items)[index] == SentinelTag {
		return ErrProtectedTag
	}

	*items = slices.Delete(*items, index, index+1)
	return nil
}

// AddTag adds a label-sanitized tag with set semantics
func (d *Draft) AddTag(text string) error {
	tag := DefaultSanitizer.Label(text)
	switch {
	case tag == "":
		return ErrEmptyText
	case tag == SentinelTag:
		return ErrReservedTag
	case slices.Contains(d.Tags, tag):
		return ErrDuplicateTag
	}
	d.Tags = append(d.Tags, tag)
	return nil
}

// SetCoverImage records the URL of an uploaded cover image
func (d *Draft) SetCoverImage(url string) {
	d.CoverImageURL = url
}

// Submission assembles the payload for the safety check and creation
// endpoints. Category and tags go through the label filter.
func (d *Draft) Submission() Submission {
	tags := make([]string, len(d.Tags))
	for i, tag := range d.Tags {
		tags[i] = DefaultSanitizer.Label(tag)
	}

	videos := make([]SubmittedVideo, len(d.Videos))
	for i, v := range d.Videos {
		videos[i] = SubmittedVideo{Title: v.Title, URL: v.WatchURL()}
	}

	return Submission{
		Name:            d.MenuName,
		Ingredients:     nonNil(d.Ingredients),
		Instructions:    nonNil(d.Instructions),
		CoverImage:      d.CoverImageURL,
		Category:        DefaultSanitizer.Label(d.Category),
		Tags:            tags,
		Characteristics: d.Characteristics,
		Flavors:         d.Flavors,
		Videos:          videos,
	}
}

func (d *Draft) sequence(kind ItemKind) (*[]string, error) {
	switch kind {
	case KindIngredient:
		return &d.Ingredients, nil
	case KindInstruction:
		return &d.Instructions, nil
	case KindTag:
		return &d.Tags, nil
	}
	return nil, ErrUnknownItemKind
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
