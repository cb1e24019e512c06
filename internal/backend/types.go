package backend

import "github.com/BerylCAtieno/persona-interviewer/internal/models"

type generatePersonasRequest struct {
	ProjectInfo            models.ProjectInfo `json:"project_info"`
	PersonaCount           int                `json:"persona_count"`
	PersonaCharacteristics string             `json:"persona_characteristics,omitempty"`
}

type PersonasResponse struct {
	Personas []models.Persona `json:"personas"`
	RawText  string           `json:"raw_text"`
}

type selectPersonasRequest struct {
	SelectedIndices []int `json:"selected_indices"`
}

type questionsResponse struct {
	Questions []string `json:"questions"`
}

type interviewRequest struct {
	PersonaIndex      int      `json:"persona_index"`
	Questions         []string `json:"questions"`
	IsHypothesisPhase bool     `json:"is_hypothesis_phase"`
}

type InterviewResponse struct {
	PersonaName      string                   `json:"persona_name"`
	InterviewResults []models.InterviewResult `json:"interview_results"`
	Message          string                   `json:"message"`
}

type AnalysisResponse struct {
	Summaries map[string]string `json:"summaries"`
	Analysis  string            `json:"analysis"`
	Stats     models.Stats      `json:"stats"`
}

type HypothesisResponse struct {
	Summaries              map[string]string `json:"summaries"`
	InitialAnalysis        string            `json:"initial_analysis"`
	HypothesisAndQuestions string            `json:"hypothesis_and_questions"`
	AdditionalQuestions    []string          `json:"additional_questions"`
}

type FinalAnalysisResponse struct {
	FinalSummaries map[string]string `json:"final_summaries"`
	FinalAnalysis  string            `json:"final_analysis"`
	Stats          models.Stats      `json:"stats"`
}

type UploadResponse struct {
	Questions []string `json:"questions"`
	Count     int      `json:"count"`
	Message   string   `json:"message"`
}

type SaveHistoryResponse struct {
	Message   string `json:"message"`
	HistoryID string `json:"history_id"`
}

type historyListResponse struct {
	History []models.HistoryEntry `json:"history"`
}

type summaryResponse struct {
	Summaries []models.PersonaSummary `json:"summaries"`
}

type SessionPersona struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type SessionStatus struct {
	HasPersonas          bool             `json:"has_personas"`
	HasSelectedPersonas  bool             `json:"has_selected_personas"`
	SelectedPersonaCount int              `json:"selected_persona_count"`
	Personas             []SessionPersona `json:"personas"`
	SelectedPersonas     []SessionPersona `json:"selected_personas"`
}
