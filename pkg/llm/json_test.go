package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	jsonStr, err := ExtractJSON(`{"match_score": 72}`)
	require.NoError(t, err)
	assert.Equal(t, `{"match_score": 72}`, jsonStr)
}

func TestExtractJSON_CodeFence(t *testing.T) {
	response := "```json\n{\"match_score\": 72}\n```"
	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"match_score": 72}`, jsonStr)
}

func TestExtractJSON_FenceWithoutLanguage(t *testing.T) {
	response := "```\n{\"ok\": true}\n```"
	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, jsonStr)
}

func TestExtractJSON_ThinkTags(t *testing.T) {
	response := "<think>let me reason about the resume</think>\n{\"match_score\": 45}"
	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, `{"match_score": 45}`, jsonStr)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	response := `Here is the analysis you asked for:

{"match_score": 88, "summary": "strong fit"}

Let me know if you need anything else.`
	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_score": 88, "summary": "strong fit"}`, jsonStr)
}

func TestExtractJSON_NestedBracesInStrings(t *testing.T) {
	response := `{"summary": "uses {braces} and \"quotes\" inside"}`
	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, response, jsonStr)
}

func TestExtractJSON_Array(t *testing.T) {
	jsonStr, err := ExtractJSON(`Here: [1, 2, 3]`)
	require.NoError(t, err)
	assert.Equal(t, `[1, 2, 3]`, jsonStr)
}

func TestExtractJSON_ProseOnly(t *testing.T) {
	_, err := ExtractJSON("I'm sorry, I cannot analyze this resume.")
	require.Error(t, err)
}

func TestExtractJSON_UnbalancedBraces(t *testing.T) {
	_, err := ExtractJSON(`{"match_score": 72`)
	require.Error(t, err)
}

func TestStripCodeFences_NoFence(t *testing.T) {
	assert.Equal(t, "plain text", StripCodeFences("plain text"))
}

func TestParseJSONResponse_Typed(t *testing.T) {
	type scored struct {
		MatchScore int    `json:"match_score"`
		Summary    string `json:"summary"`
	}

	result, err := ParseJSONResponse[scored]("```json\n{\"match_score\": 60, \"summary\": \"partial fit\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 60, result.MatchScore)
	assert.Equal(t, "partial fit", result.Summary)
}

func TestParseJSONResponse_ProseFails(t *testing.T) {
	type scored struct {
		MatchScore int `json:"match_score"`
	}

	_, err := ParseJSONResponse[scored]("The resume looks great, around 80% match.")
	require.Error(t, err)
}
