package models

import "encoding/json"

type HistoryEntry struct {
	ID           string   `json:"id"`
	Topic        string   `json:"topic"`
	Timestamp    string   `json:"timestamp"`
	ProductCount int      `json:"product_count"`
	PersonaNames []string `json:"persona_names"`
}

// HistoryRecord is a saved run as returned by the backend. Raw keeps the full
// payload since the record carries fields the client does not model.
type HistoryRecord struct {
	HistoryEntry
	InterviewResults map[string][]InterviewResult `json:"interview_results,omitempty"`
	Analysis         string                       `json:"analysis,omitempty"`
	FinalAnalysis    string                       `json:"final_analysis,omitempty"`
	Raw              json.RawMessage              `json:"-"`
}
