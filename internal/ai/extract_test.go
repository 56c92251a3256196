package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONFencedWithLanguageTag(t *testing.T) {
	text := "Sure, here you go:\n```json\n{\"directives\": []}\n```\nLet me know."
	assert.Equal(t, `{"directives": []}`, ExtractJSON(text))
}

func TestExtractJSONBareFence(t *testing.T) {
	text := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, ExtractJSON(text))
}

func TestExtractJSONBracePair(t *testing.T) {
	text := `The answer is {"a": {"b": 2}} as discussed.`
	assert.Equal(t, `{"a": {"b": 2}}`, ExtractJSON(text))
}

func TestExtractJSONPrefersJSONFence(t *testing.T) {
	text := "```\nnot it\n```\n```json\n{\"right\": true}\n```"
	assert.Equal(t, `{"right": true}`, ExtractJSON(text))
}

func TestExtractJSONNothingThere(t *testing.T) {
	assert.Empty(t, ExtractJSON("plain refusal, no structure"))
	assert.Empty(t, ExtractJSON(""))
}
