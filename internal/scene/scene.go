// Package scene defines the four fixed product-photography
// compositions and builds the final render prompt for each.
package scene

import (
	"fmt"
	"strings"

	"snapsell-bot/internal/analysis"
)

type Scene struct {
	Key      string
	Emoji    string
	Name     string
	Fallback string
}

// catalog order is the delivery order of the album: display,
// lifestyle, interior, closeup.
var catalog = []Scene{
	{
		Key:      "display",
		Emoji:    "🏪",
		Name:     "Витрина",
		Fallback: "elegant product display on a premium marble table or illuminated store shelf, professional studio lighting with soft shadows, clean minimal background, high-end retail photography",
	},
	{
		Key:      "lifestyle",
		Emoji:    "🧍",
		Name:     "Лайфстайл",
		Fallback: "lifestyle photography with a person naturally using or wearing the product, warm natural light, blurred modern interior background, authentic candid moment, editorial style",
	},
	{
		Key:      "interior",
		Emoji:    "🏠",
		Name:     "Интерьер",
		Fallback: "product beautifully arranged in a cozy Scandinavian home interior, morning window light, minimalist decor, atmospheric depth of field, hygge aesthetic",
	},
	{
		Key:      "closeup",
		Emoji:    "🔍",
		Name:     "Крупный план",
		Fallback: "extreme close-up macro photography of the product, dramatic side lighting highlighting texture and material, ultra-sharp details, dark luxury background, premium hero shot",
	},
}

func Catalog() []Scene {
	out := make([]Scene, len(catalog))
	copy(out, catalog)
	return out
}

const (
	promptPreamble = "Professional commercial photography"
	promptSuffix   = "photorealistic, 8K resolution, sharp focus, commercial product photography"
)

// BuildPrompt prefers the model-written prompt for the scene and falls
// back to a deterministic composition when the analysis under-delivers.
// Always returns a non-empty prompt.
func BuildPrompt(desc analysis.ProductDescription, sc Scene) string {
	if prompt := strings.TrimSpace(desc.Scenes[sc.Key]); prompt != "" {
		return prompt
	}

	name := strings.TrimSpace(desc.ProductEN)
	if name == "" {
		name = "product"
	}

	colors := "neutral"
	if len(desc.Colors) > 0 {
		colors = strings.Join(desc.Colors, ", ")
	}

	style := strings.TrimSpace(desc.Style)
	if style == "" {
		style = "modern"
	}

	return fmt.Sprintf("%s, %s, %s colors, %s style, %s, %s",
		promptPreamble, name, colors, style, sc.Fallback, promptSuffix)
}
