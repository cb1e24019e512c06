package wizard

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
)

// Step is a screen of the wizard. Steps only move forward, except Reset.
type Step int

const (
	StepProjectSetup Step = iota
	StepPersonaGeneration
	StepPersonaSelection
	StepQuestionEditing
	StepInterviewExecution
	StepAnalysisReview
	StepHypothesisReview
	StepHypothesisInterview
	StepFinalAnalysis
)

var stepNames = [...]string{
	"project_setup",
	"persona_generation",
	"persona_selection",
	"question_editing",
	"interview_execution",
	"analysis_review",
	"hypothesis_review",
	"hypothesis_interview",
	"final_analysis",
}

// StepCount is the number of wizard steps.
const StepCount = len(stepNames)

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	name := strings.TrimSpace(string(b))
	for i, n := range stepNames {
		if n == name {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", name)
}

// Number is the 1-based position shown to users.
func (s Step) Number() int { return int(s) + 1 }

// State is everything the wizard has accumulated in one run. It is treated
// as a value: the controller only replaces it through reduce.
type State struct {
	Step                   Step                               `json:"step"`
	Project                models.ProjectInfo                 `json:"project"`
	PersonaCount           int                                `json:"persona_count"`
	PersonaCharacteristics string                             `json:"persona_characteristics,omitempty"`
	Personas               []models.Persona                   `json:"personas"`
	PersonasRaw            string                             `json:"personas_raw,omitempty"`
	Selected               []int                              `json:"selected"`
	Questions              []string                           `json:"questions"`
	Results                map[models.Phase]models.Transcript `json:"results"`
	Analysis               string                             `json:"analysis"`
	Hypothesis             string                             `json:"hypothesis"`
	AdditionalQuestions    []string                           `json:"additional_questions"`
	FinalAnalysis          string                             `json:"final_analysis"`
	Summaries              []models.PersonaSummary            `json:"summaries,omitempty"`
	Stats                  *models.Stats                      `json:"stats,omitempty"`
	HistoryID              string                             `json:"history_id,omitempty"`
}

// Initial is the state of a fresh wizard. Collections are empty rather than
// nil so they serialise as [] and {}.
func Initial() State {
	return State{
		Step:                StepProjectSetup,
		Personas:            []models.Persona{},
		Selected:            []int{},
		Questions:           []string{},
		Results:             map[models.Phase]models.Transcript{},
		AdditionalQuestions: []string{},
	}
}

func (s State) Transcript(phase models.Phase) models.Transcript {
	return s.Results[phase]
}

func (s State) IsSelected(id int) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedPersonas returns the selected personas in selection order.
func (s State) SelectedPersonas() []models.Persona {
	out := make([]models.Persona, 0, len(s.Selected))
	for _, id := range s.Selected {
		if p, ok := s.persona(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s State) persona(id int) (models.Persona, bool) {
	for _, p := range s.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return models.Persona{}, false
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	out := s
	out.Project = s.Project.Clone()
	if s.Personas != nil {
		out.Personas = make([]models.Persona, len(s.Personas))
		for i, p := range s.Personas {
			out.Personas[i] = p.Clone()
		}
	}
	out.Selected = cloneInts(s.Selected)
	out.Questions = cloneStrings(s.Questions)
	out.AdditionalQuestions = cloneStrings(s.AdditionalQuestions)
	if s.Results != nil {
		out.Results = make(map[models.Phase]models.Transcript, len(s.Results))
		for phase, t := range s.Results {
			out.Results[phase] = t.Clone()
		}
	}
	if s.Summaries != nil {
		out.Summaries = append([]models.PersonaSummary(nil), s.Summaries...)
	}
	if s.Stats != nil {
		st := *s.Stats
		out.Stats = &st
	}
	return out
}

// cloneStrings keeps nil and empty apart.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
