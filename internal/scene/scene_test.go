package scene

import (
	"strings"
	"testing"

	"snapsell-bot/internal/analysis"
)

func TestCatalogOrder(t *testing.T) {
	keys := []string{"display", "lifestyle", "interior", "closeup"}

	scenes := Catalog()
	if len(scenes) != len(keys) {
		t.Fatalf("catalog has %d scenes, want %d", len(scenes), len(keys))
	}
	for i, want := range keys {
		if scenes[i].Key != want {
			t.Errorf("scene[%d].Key = %q, want %q", i, scenes[i].Key, want)
		}
	}
}

func TestBuildPromptPrefersModelScene(t *testing.T) {
	desc := analysis.ProductDescription{
		ProductEN: "silk scarf",
		Scenes: map[string]string{
			"display": "Professional commercial photography, silk scarf on a glass stand",
		},
	}

	got := BuildPrompt(desc, Catalog()[0])
	if got != desc.Scenes["display"] {
		t.Errorf("BuildPrompt = %q, want the model-provided prompt", got)
	}
}

func TestBuildPromptFallback(t *testing.T) {
	desc := analysis.ProductDescription{
		ProductEN: "leather wallet",
		Colors:    []string{"brown", "tan"},
		Style:     "vintage",
	}

	got := BuildPrompt(desc, Catalog()[3])
	for _, want := range []string{
		"Professional commercial photography",
		"leather wallet",
		"brown, tan colors",
		"vintage style",
		"macro photography",
		"commercial product photography",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("fallback prompt missing %q: %s", want, got)
		}
	}
}

func TestBuildPromptNeverEmpty(t *testing.T) {
	for _, sc := range Catalog() {
		t.Run(sc.Key, func(t *testing.T) {
			got := BuildPrompt(analysis.ProductDescription{}, sc)
			if strings.TrimSpace(got) == "" {
				t.Error("empty prompt for empty description")
			}
			if !strings.Contains(got, "neutral colors") {
				t.Errorf("expected neutral color default, got %s", got)
			}
		})
	}
}

func TestBuildPromptIgnoresWhitespaceScene(t *testing.T) {
	desc := analysis.ProductDescription{
		Scenes: map[string]string{"interior": "   "},
	}

	got := BuildPrompt(desc, Catalog()[2])
	if strings.TrimSpace(got) == "" || got == "   " {
		t.Error("whitespace-only scene prompt should trigger the fallback")
	}
}
