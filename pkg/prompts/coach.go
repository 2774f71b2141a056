package prompts

import (
	"encoding/json"
	"strings"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// coachBaseSystem primes the oracle as a career coach.
const coachBaseSystem = `You are ScanMatch Coach, a supportive and practical career coach. You help users improve their resumes, prepare for interviews, and plan job applications. Keep answers concise and concrete. Never invent facts about the user's background; when you need information you don't have, ask for it.`

// BuildCoachSystem builds the coach system message, embedding the user's
// most recent scan analysis as conversational context when present.
func BuildCoachSystem(analysis *models.ScanAnalysis) string {
	if analysis == nil {
		return coachBaseSystem
	}

	var sys strings.Builder
	sys.WriteString(coachBaseSystem)
	sys.WriteString("\n\nThe user's most recent resume scan produced this analysis. Use it as context when relevant:\n\n")

	// The analysis is our own parsed struct, so marshaling cannot fail in
	// practice; fall back to the plain system message if it somehow does.
	data, err := json.Marshal(analysis)
	if err != nil {
		return coachBaseSystem
	}
	sys.WriteString(contextSnippet(string(data)))

	return sys.String()
}
