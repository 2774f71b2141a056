// Package prompts builds the instruction templates sent to the completion
// oracle. The JSON contracts described here are advisory: the oracle is
// prompted to follow them but parsing is the only enforcement.
package prompts

import (
	"fmt"
	"strings"
)

// ScanSystemMessage primes the oracle as an ATS-style resume reviewer.
const ScanSystemMessage = `You are an expert resume reviewer and applicant tracking system (ATS) analyst. You compare resumes against job descriptions and respond with structured JSON only.`

// scanResponseContract is the JSON shape the oracle is instructed to return.
// It must stay in sync with models.ScanAnalysis.
const scanResponseContract = `{
  "score": <integer 0-100, overall match score>,
  "job_title": "<the job title extracted from the job description>",
  "keywords": {
    "found": [{"word": "<keyword>", "category": "<skill|tool|qualification|other>"}],
    "missing": [{"word": "<keyword>", "category": "<skill|tool|qualification|other>"}]
  },
  "structure": {
    "strengths": ["<what the resume does well structurally>"],
    "improvements": ["<structural problems to fix>"]
  },
  "improvement_suggestions": ["<concrete, actionable suggestion>"],
  "interview_questions": [{"question": "<likely interview question>", "guidance": "<how to approach answering it>"}]
}`

// BuildScanPrompt creates the prompt for one resume/job-description analysis.
func BuildScanPrompt(resumeText, jobDescription string) string {
	var prompt strings.Builder

	prompt.WriteString("# Resume Match Analysis\n\n")
	prompt.WriteString("Compare the resume below against the job description. ")
	prompt.WriteString("Score the match, extract the keywords a recruiter or ATS would screen for, ")
	prompt.WriteString("assess the resume's structure, and suggest improvements.\n\n")

	prompt.WriteString("## Job Description\n\n")
	prompt.WriteString(jobDescription)
	prompt.WriteString("\n\n## Resume\n\n")
	prompt.WriteString(resumeText)

	prompt.WriteString("\n\n## Response Format\n\n")
	prompt.WriteString("Respond with ONLY a JSON object in exactly this shape, no other text:\n\n")
	prompt.WriteString(scanResponseContract)
	prompt.WriteString("\n\nEvery keyword in \"missing\" must genuinely appear in the job description and be absent from the resume. ")
	prompt.WriteString("Include 3-5 interview questions grounded in the gap between the two documents.")

	return prompt.String()
}

// BuildInterviewPrompt creates a prompt for regenerating a practice question
// set from an existing resume/job-description pair.
func BuildInterviewPrompt(resumeText, jobDescription string) string {
	var prompt strings.Builder

	prompt.WriteString("# Interview Preparation\n\n")
	prompt.WriteString("Generate 5 interview questions this candidate should prepare for, ")
	prompt.WriteString("based on the job description and the candidate's resume. ")
	prompt.WriteString("Focus on areas where the resume is weakest relative to the role.\n\n")

	prompt.WriteString("## Job Description\n\n")
	prompt.WriteString(jobDescription)
	prompt.WriteString("\n\n## Resume\n\n")
	prompt.WriteString(resumeText)

	prompt.WriteString("\n\n## Response Format\n\n")
	prompt.WriteString("Respond with ONLY a JSON array in exactly this shape, no other text:\n\n")
	prompt.WriteString(`[{"question": "<interview question>", "guidance": "<how to approach answering it>"}]`)

	return prompt.String()
}

// maxContextChars bounds embedded scan context inside coach prompts.
const maxContextChars = 4000

// contextSnippet truncates free text for embedding into another prompt.
// Cuts on runes so multibyte text is never split mid-character.
func contextSnippet(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxContextChars {
		return s
	}
	return fmt.Sprintf("%s\n[truncated]", string(runes[:maxContextChars]))
}
