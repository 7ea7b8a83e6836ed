package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("summary.json", "talent")
	require.NoError(t, err)
	assert.Contains(t, prompt, "인재상")
	assert.Contains(t, prompt, "{{.Company}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("summary.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("summary.json", "frame")
		assert.Contains(t, prompt, "{{.Evidence}}")
		assert.Contains(t, prompt, "{{.Task}}")
	})
}

func TestFormat(t *testing.T) {
	template := "{{.Company}}의 {{.Topic}}을 요약하세요"
	data := map[string]string{
		"Company": "테스트기업",
		"Topic":   "인재상",
	}

	assert.Equal(t, "테스트기업의 인재상을 요약하세요", Format(template, data))
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	template := "{{.Task}} / {{.Company}}"
	data := map[string]string{
		"Task":    "{{.Company}} 요약",
		"Company": "테스트기업",
	}

	assert.Equal(t, "{{.Company}} 요약 / 테스트기업", Format(template, data))
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	assert.Equal(t, template, Format(template, map[string]string{"Key": "Value"}))
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("summary.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"frame", "overview", "talent", "vision"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("summary.json", "vision")
	require.NoError(t, err)

	prompt2, err := Get("summary.json", "vision")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
