// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// DraftBuilder provides a fluent interface for building test drafts
type DraftBuilder struct {
	menuName        string
	ingredients     []string
	instructions    []string
	category        string
	tags            []string
	characteristics string
	flavors         string
	coverImage      string
	videos          []draft.Video
}

// NewDraftBuilder creates a builder filled with random, complete data
func NewDraftBuilder() *DraftBuilder {
	faker := gofakeit.New(time.Now().UnixNano())

	return &DraftBuilder{
		menuName:        faker.Dinner(),
		ingredients:     []string{faker.Fruit(), faker.Vegetable(), faker.Vegetable()},
		instructions:    []string{faker.Sentence(6), faker.Sentence(8)},
		category:        "Main Dish",
		tags:            []string{draft.SentinelTag, faker.Adjective()},
		characteristics: faker.Sentence(4),
		flavors:         faker.Adjective(),
	}
}

// WithMenuName sets the menu name
func (b *DraftBuilder) WithMenuName(name string) *DraftBuilder {
	b.menuName = name
	return b
}

// WithIngredients sets the ingredients
func (b *DraftBuilder) WithIngredients(items ...string) *DraftBuilder {
	b.ingredients = items
	return b
}

// WithInstructions sets the instructions
func (b *DraftBuilder) WithInstructions(items ...string) *DraftBuilder {
	b.instructions = items
	return b
}

// WithCategory sets the category
func (b *DraftBuilder) WithCategory(category string) *DraftBuilder {
	b.category = category
	return b
}

// WithTags sets the tags
func (b *DraftBuilder) WithTags(tags ...string) *DraftBuilder {
	b.tags = tags
	return b
}

// WithCoverImage sets the cover image URL
func (b *DraftBuilder) WithCoverImage(url string) *DraftBuilder {
	b.coverImage = url
	return b
}

// WithVideos sets the videos
func (b *DraftBuilder) WithVideos(videos ...draft.Video) *DraftBuilder {
	b.videos = videos
	return b
}

// Build creates the draft
func (b *DraftBuilder) Build() *draft.Draft {
	d := draft.New(b.menuName, b.ingredients, b.instructions, b.category, b.tags, b.characteristics, b.flavors)
	d.CoverImageURL = b.coverImage
	d.Videos = b.videos
	return d
}

// ParseResponse renders the draft as the parse endpoint would return it
func (b *DraftBuilder) ParseResponse(dangerStatus string) *outbound.ParseResponse {
	return &outbound.ParseResponse{
		MenuName:        b.menuName,
		Ingredients:     b.ingredients,
		Instructions:    b.instructions,
		Category:        b.category,
		Tags:            b.tags,
		Characteristics: b.characteristics,
		Flavors:         b.flavors,
		DangerCheck:     outbound.DangerCheck{Status: dangerStatus},
	}
}

// SafeGenerateResponse returns a generate answer flagged safe
func SafeGenerateResponse(text string) *outbound.GenerateResponse {
	safe := true
	return &outbound.GenerateResponse{Response: text, IsSafe: &safe}
}

// UnsafeGenerateResponse returns a generate answer flagged unsafe
func UnsafeGenerateResponse(text, reason, fix string) *outbound.GenerateResponse {
	safe := false
	return &outbound.GenerateResponse{Response: text, IsSafe: &safe, Reason: reason, Fix: fix}
}
