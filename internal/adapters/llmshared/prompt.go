// Package llmshared carries the classification prompt and the strict
// response parsing shared by every LLM provider adapter.
package llmshared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/utils"
)

// SystemPrompt frames every provider conversation.
const SystemPrompt = "You are a job-application email analyzer. Respond only with JSON."

const promptFormat = `Analyze the following email and determine whether it concerns a job application the recipient made.
Respond with a JSON object containing:
- is_job_related: boolean (true only if the email is about a job application of the recipient)
- company: string (the employer, or "Unknown Company")
- position: string (the job title, or "Unknown Position")
- status: one of "Applied", "In Progress", "Interview", "Offer", "Rejected"
- job_url: string (link to the posting if present, else empty)
- deadline: string (YYYY-MM-DD if a response deadline is stated, else empty)
- confidence: number between 0 and 1
- reasoning: string (brief explanation)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// BuildPrompt formats the user prompt with a size-bounded body.
func BuildPrompt(env *core.Envelope, processor *utils.TextProcessor, maxBodySize int) string {
	body := processor.ProcessText(env.Body, maxBodySize)
	return fmt.Sprintf(promptFormat, env.From, env.Subject, body)
}

// classificationResponse is the JSON schema the LLM must produce. It is
// untrusted input and only accepted after validation.
type classificationResponse struct {
	IsJobRelated bool    `json:"is_job_related"`
	Company      string  `json:"company"`
	Position     string  `json:"position"`
	Status       string  `json:"status"`
	JobURL       string  `json:"job_url"`
	Deadline     string  `json:"deadline"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// ParseResponse decodes a provider response into a ClassificationResult.
// Providers sometimes wrap the JSON in prose; the brace scan recovers the
// object before giving up.
func ParseResponse(responseText, modelName string) (*core.ClassificationResult, error) {
	var parsed classificationResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := -1
		jsonEnd := -1
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}
		if jsonStart < 0 || jsonStart >= jsonEnd {
			return nil, &core.ParseError{Err: fmt.Errorf("failed to extract JSON from LLM response: %w", err)}
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
			return nil, &core.ParseError{Err: fmt.Errorf("failed to parse LLM response as JSON: %w", err)}
		}
	}

	result := &core.ClassificationResult{
		IsJobRelated: parsed.IsJobRelated,
		Company:      parsed.Company,
		Position:     parsed.Position,
		Status:       core.Status(parsed.Status),
		JobURL:       parsed.JobURL,
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
		Tier:         core.TierLLM,
		AnalyzedAt:   time.Now(),
	}
	if parsed.Deadline != "" {
		if t, err := time.Parse("2006-01-02", parsed.Deadline); err == nil {
			result.Deadline = &t
		}
	}
	result.MatchedSignals = []string{"llm:" + modelName}
	return result, nil
}
