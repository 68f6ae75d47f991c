package draft

import (
	"fmt"
	"net/url"
	"strings"
)

// Video is a supplementary how-to video found for the draft
type Video struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WatchURL returns the public YouTube page for the video
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(v.ID)
}

// SubmittedVideo is the shape the recipe backend stores
type SubmittedVideo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SafetyVerdict is the result of a content-safety classification
type SafetyVerdict struct {
	Safe   bool   `json:"is_safe"`
	Reason string `json:"reason,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

// Message joins reason and fix into the text shown to the user
func (v SafetyVerdict) Message() string {
	switch {
	case v.Reason != "" && v.Fix != "":
		return fmt.Sprintf("%s\n\nSuggested fix: %s", v.Reason, v.Fix)
	case v.Fix != "":
		return "Suggested fix: " + v.Fix
	default:
		return v.Reason
	}
}

// Submission is the full recipe payload sent to the safety check and the
// recipe-creation endpoint.
type Submission struct {
	Name            string           `json:"name"`
	Ingredients     []string         `json:"ingredients"`
	Instructions    []string         `json:"instructions"`
	CoverImage      string           `json:"cover_image"`
	Category        string           `json:"category"`
	Tags            []string         `json:"tags"`
	Characteristics string           `json:"characteristics"`
	Flavors         string           `json:"flavors"`
	Videos          []SubmittedVideo `json:"videos"`
}

// Field names a staged draft value. The names match the keys the original
// browser client kept in session storage.
type Field string

const (
	FieldCoverImage      Field = "coverImage"
	FieldIngredients     Field = "generatedIngredients"
	FieldInstructions    Field = "generatedInstructions"
	FieldVideos          Field = "youtubeVideos"
	FieldCategory        Field = "generatedCategory"
	FieldTags            Field = "generatedTags"
	FieldCharacteristics Field = "generatedCharacteristics"
	FieldFlavors         Field = "generatedFlavors"
	FieldMenuName        Field = "generatedMenuName"
)

// Fields lists the staging schema
func Fields() []Field {
	return []Field{
		FieldCoverImage,
		FieldIngredients,
		FieldInstructions,
		FieldVideos,
		FieldCategory,
		FieldTags,
		FieldCharacteristics,
		FieldFlavors,
		FieldMenuName,
	}
}

// Structured reports whether the field holds a JSON-encoded value
func (f Field) Structured() bool {
	switch f {
	case FieldIngredients, FieldInstructions, FieldTags, FieldVideos:
		return true
	}
	return false
}

// ItemKind selects one of the draft's editable sequences
type ItemKind string

const (
	KindIngredient  ItemKind = "ingredient"
	KindInstruction ItemKind = "instruction"
	KindTag         ItemKind = "tag"
)

// ParseItemKind accepts singular or plural names, case-insensitively
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ingredient", "ingredients":
		return KindIngredient, nil
	case "instruction", "instructions":
		return KindInstruction, nil
	case "tag", "tags":
		return KindTag, nil
	}
	return "", ErrUnknownItemKind
}

// Field returns the staging field that holds this kind's sequence
func (k ItemKind) Field() Field {
	switch k {
	case KindIngredient:
		return FieldIngredients
	case KindInstruction:
		return FieldInstructions
	default:
		return FieldTags
	}
}
