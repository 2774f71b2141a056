package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

func TestBuildScanPrompt_ContainsInputsAndContract(t *testing.T) {
	prompt := BuildScanPrompt("Senior Go engineer, 8 years", "We need a backend engineer")

	assert.Contains(t, prompt, "Senior Go engineer, 8 years")
	assert.Contains(t, prompt, "We need a backend engineer")
	assert.Contains(t, prompt, `"score"`)
	assert.Contains(t, prompt, `"keywords"`)
	assert.Contains(t, prompt, `"interview_questions"`)
}

func TestBuildInterviewPrompt_ContainsInputs(t *testing.T) {
	prompt := BuildInterviewPrompt("resume text", "job description text")

	assert.Contains(t, prompt, "resume text")
	assert.Contains(t, prompt, "job description text")
	assert.Contains(t, prompt, `"question"`)
}

func TestBuildCoachSystem_NoAnalysis(t *testing.T) {
	sys := BuildCoachSystem(nil)
	assert.Contains(t, sys, "career coach")
	assert.NotContains(t, sys, "most recent resume scan")
}

func TestBuildCoachSystem_EmbedsAnalysis(t *testing.T) {
	analysis := &models.ScanAnalysis{
		Score:    64,
		JobTitle: "Data Engineer",
	}

	sys := BuildCoachSystem(analysis)
	assert.Contains(t, sys, "most recent resume scan")
	assert.Contains(t, sys, `"job_title":"Data Engineer"`)
}

func TestContextSnippet_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxContextChars+500)
	snippet := contextSnippet(long)

	require.Less(t, len(snippet), len(long))
	assert.True(t, strings.HasSuffix(snippet, "[truncated]"))
}

func TestContextSnippet_MultibyteSafe(t *testing.T) {
	long := strings.Repeat("日本語の履歴書", maxContextChars)
	snippet := contextSnippet(long)

	assert.True(t, utf8.ValidString(snippet))
	assert.True(t, strings.HasSuffix(snippet, "[truncated]"))
	assert.Equal(t, maxContextChars, utf8.RuneCountInString(strings.TrimSuffix(snippet, "\n[truncated]")))
}
