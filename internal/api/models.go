package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/applizz/jobmail/internal/core"
)

type scanSummaryJSON struct {
	ProcessedCount     int  `json:"processed_count"`
	JobRelatedCount    int  `json:"job_related_count"`
	SuggestionsCreated int  `json:"suggestions_created"`
	Partial            bool `json:"partial"`
}

type suggestionJSON struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	ApplicationID string  `json:"application_id,omitempty"`
	Company       string  `json:"company"`
	Position      string  `json:"position"`
	CurrentStatus string  `json:"current_status,omitempty"`
	NewStatus     string  `json:"new_status"`
	SourceSubject string  `json:"source_subject"`
	ObservedAt    string  `json:"observed_at"`
	JobURL        string  `json:"job_url,omitempty"`
	Deadline      string  `json:"deadline,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Confidence    float64 `json:"confidence"`
}

func toSuggestionJSON(s *core.Suggestion) suggestionJSON {
	out := suggestionJSON{
		ID:            s.ID,
		Kind:          string(s.Kind),
		ApplicationID: s.ApplicationID,
		Company:       s.Company,
		Position:      s.Position,
		CurrentStatus: string(s.CurrentStatus),
		NewStatus:     string(s.NewStatus),
		SourceSubject: s.SourceSubject,
		ObservedAt:    s.ObservedAt.Format(time.RFC3339),
		JobURL:        s.JobURL,
		Notes:         s.Notes,
		Confidence:    s.Confidence,
	}
	if s.Deadline != nil {
		out.Deadline = s.Deadline.Format("2006-01-02")
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
