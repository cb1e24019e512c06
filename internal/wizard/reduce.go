package wizard

import "github.com/BerylCAtieno/persona-interviewer/internal/models"

type action interface{ isAction() }

type (
	projectSet struct {
		project         models.ProjectInfo
		count           int
		characteristics string
	}
	personasGenerated struct {
		personas []models.Persona
		raw      string
	}
	personaToggled    struct{ id int }
	personasSelected  struct{ ids []int }
	interviewPrepared struct{ questions []string }
	questionsReplaced struct{ questions []string }
	questionAdded     struct{ text string }
	questionRemoved   struct{ index int }
	questionEdited    struct {
		index int
		text  string
	}
	interviewCompleted struct {
		phase      models.Phase
		transcript models.Transcript
	}
	analysisGenerated struct {
		analysis string
		stats    models.Stats
	}
	hypothesisGenerated struct {
		text      string
		questions []string
	}
	finalAnalysisGenerated struct {
		analysis string
		stats    models.Stats
	}
	summariesGenerated          struct{ summaries []models.PersonaSummary }
	historySaved                struct{ id string }
	resetAll                    struct{}
	additionalQuestionsReplaced struct{ questions []string }
)

func (projectSet) isAction()             {}
func (personasGenerated) isAction()      {}
func (personaToggled) isAction()         {}
func (personasSelected) isAction()       {}
func (interviewPrepared) isAction()      {}
func (questionsReplaced) isAction()      {}
func (questionAdded) isAction()          {}
func (questionRemoved) isAction()        {}
func (questionEdited) isAction()         {}
func (interviewCompleted) isAction()     {}
func (analysisGenerated) isAction()      {}
func (hypothesisGenerated) isAction()    {}
func (finalAnalysisGenerated) isAction() {}
func (summariesGenerated) isAction()     {}
func (historySaved) isAction()           {}
func (resetAll) isAction()               {}

func (additionalQuestionsReplaced) isAction() {}

// reduce returns the state that follows s after a. s is never modified.
// Guards live in the controller; reduce assumes a is legal in s.
func reduce(s State, a action) State {
	next := s.Clone()

	switch a := a.(type) {
	case projectSet:
		next.Project = a.project.Clone()
		next.PersonaCount = a.count
		next.PersonaCharacteristics = a.characteristics
		next.Personas = []models.Persona{}
		next.PersonasRaw = ""
		next.Selected = []int{}
		next.Step = StepPersonaGeneration

	case personasGenerated:
		next.Personas = make([]models.Persona, len(a.personas))
		for i, p := range a.personas {
			next.Personas[i] = p.Clone()
		}
		next.PersonasRaw = a.raw
		next.Selected = []int{}
		next.Step = StepPersonaSelection

	case personaToggled:
		next.Selected = toggle(next.Selected, a.id)

	case personasSelected:
		next.Selected = append([]int{}, a.ids...)

	case interviewPrepared:
		next.Questions = append([]string{}, a.questions...)
		next.Step = StepQuestionEditing

	case questionsReplaced:
		next.Questions = append([]string{}, a.questions...)

	case additionalQuestionsReplaced:
		next.AdditionalQuestions = append([]string{}, a.questions...)

	case questionAdded:
		next.Questions = append(next.Questions, a.text)

	case questionRemoved:
		next.Questions = append(next.Questions[:a.index], next.Questions[a.index+1:]...)

	case questionEdited:
		next.Questions[a.index] = a.text

	case interviewCompleted:
		if next.Results == nil {
			next.Results = make(map[models.Phase]models.Transcript)
		}
		switch a.phase {
		case models.PhaseInitial:
			next.Results[a.phase] = a.transcript.Clone()
			next.Step = StepInterviewExecution
		case models.PhaseHypothesis:
			next.Results[a.phase] = a.transcript.Clone()
			next.Step = StepHypothesisInterview
		case models.PhaseAdditional:
			merged := next.Results[a.phase]
			if merged == nil {
				merged = make(models.Transcript)
			}
			for name, results := range a.transcript.Clone() {
				merged[name] = append(merged[name], results...)
			}
			next.Results[a.phase] = merged
		}

	case analysisGenerated:
		next.Analysis = a.analysis
		st := a.stats
		next.Stats = &st
		next.Step = StepAnalysisReview

	case hypothesisGenerated:
		next.Hypothesis = a.text
		next.AdditionalQuestions = append([]string{}, a.questions...)
		next.Step = StepHypothesisReview

	case finalAnalysisGenerated:
		next.FinalAnalysis = a.analysis
		st := a.stats
		next.Stats = &st
		next.Step = StepFinalAnalysis

	case summariesGenerated:
		next.Summaries = append([]models.PersonaSummary(nil), a.summaries...)

	case historySaved:
		next.HistoryID = a.id

	case resetAll:
		return Initial()
	}

	return next
}

// toggle removes id if present, otherwise adds it unless the selection is
// already full. A full selection is left unchanged; nothing is evicted.
func toggle(selected []int, id int) []int {
	for i, sel := range selected {
		if sel == id {
			return append(selected[:i:i], selected[i+1:]...)
		}
	}
	if len(selected) >= RequiredSelection {
		return selected
	}
	return append(selected, id)
}
