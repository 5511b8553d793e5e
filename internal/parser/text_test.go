package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	html := `<p>Hello <b>world</b></p><script>track()</script><ul><li>One</li><li>Two</li></ul>`
	assert.Equal(t, "Hello world\nOne\nTwo", HTMLToText(html))
	assert.Equal(t, "", HTMLToText("   "))
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"Monsoon Malabar AA - 250g": "Monsoon Malabar AA",
		"Kenya  AA (1 kg)":          "Kenya AA",
		"Ｃｏｆｆｅｅ":                    "Coffee",
		"Espresso Blend 2":          "Espresso Blend 2",
		"250g":                      "250g",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanName(in), in)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cafe-de-olla-edition-speciale", Slugify("Café de Olla: Édition Spéciale!"))
	assert.Equal(t, "kenya-aa", Slugify("  Kenya AA  "))
}

func TestDetectDecaf(t *testing.T) {
	assert.True(t, DetectDecaf("Swiss Water Colombia"))
	assert.True(t, DetectDecaf("", "Decaffeinated via CO2 process"))
	assert.False(t, DetectDecaf("Colombia", ""))
	assert.False(t, DetectDecaf())
}
