package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

const (
	opSetProject          = "save project"
	opGeneratePersonas    = "generate personas"
	opTogglePersona       = "toggle persona"
	opSelectPersonas      = "select personas"
	opStartInterview      = "start interview"
	opConductInterview    = "conduct interview"
	opGenerateAnalysis    = "generate analysis"
	opGenerateHypothesis  = "generate hypothesis"
	opHypothesisInterview = "conduct hypothesis interview"
	opFinalAnalysis       = "generate final analysis"
	opAdditionalInterview = "conduct additional interview"
	opSummaries           = "generate summaries"
	opSaveHistory         = "save history"
	opReset               = "reset"
)

// ProjectInput is what the project setup screen collects.
type ProjectInput struct {
	Project                models.ProjectInfo `json:"project" yaml:"project"`
	PersonaCount           int                `json:"persona_count,omitempty" yaml:"persona_count,omitempty"`
	PersonaCharacteristics string             `json:"persona_characteristics,omitempty" yaml:"persona_characteristics,omitempty"`
}

// SetProject stores the project and moves to persona generation. It may be
// called again until interviews start; doing so drops generated personas.
func (c *Controller) SetProject(ctx context.Context, in ProjectInput) error {
	return c.apply(opSetProject, func(s State) (action, error) {
		return c.projectAction(s, in)
	})
}

func (c *Controller) projectAction(s State, in ProjectInput) (action, error) {
	if err := requireStep(opSetProject, s, StepProjectSetup, StepPersonaGeneration, StepPersonaSelection); err != nil {
		return nil, err
	}
	if missing := in.Project.MissingFields(); len(missing) > 0 {
		return nil, invalid(opSetProject, "missing required fields: %s", strings.Join(missing, ", "))
	}
	count := in.PersonaCount
	if count == 0 {
		count = c.personaCount
	}
	if count < MinPersonaCount || count > MaxPersonaCount {
		return nil, invalid(opSetProject, "persona count must be between %d and %d, got %d", MinPersonaCount, MaxPersonaCount, count)
	}

	project := in.Project.Clone()
	project.EnsureIDs()
	return projectSet{
		project:         project,
		count:           count,
		characteristics: strings.TrimSpace(in.PersonaCharacteristics),
	}, nil
}

// GeneratePersonas asks the backend for personas. Calling it again from the
// selection step regenerates them and clears the selection.
func (c *Controller) GeneratePersonas(ctx context.Context) error {
	return c.run(ctx, opGeneratePersonas, c.generatePersonas)
}

func (c *Controller) generatePersonas(ctx context.Context, rep *progress.Reporter) error {
	s := c.snapshot()
	if err := requireStep(opGeneratePersonas, s, StepPersonaGeneration, StepPersonaSelection); err != nil {
		return err
	}

	rep.Set(10, fmt.Sprintf("Generating %d personas", s.PersonaCount))
	resp, err := c.api.GeneratePersonas(ctx, s.Project, s.PersonaCount, s.PersonaCharacteristics)
	if err != nil {
		return err
	}
	if len(resp.Personas) < RequiredSelection {
		return fmt.Errorf("backend returned %d personas, at least %d are needed", len(resp.Personas), RequiredSelection)
	}
	c.commit(personasGenerated{personas: resp.Personas, raw: resp.RawText})
	rep.Set(100, fmt.Sprintf("Generated %d personas", len(resp.Personas)))
	return nil
}

// TogglePersona adds id to the selection or removes it. Adding a fourth
// persona is ignored.
func (c *Controller) TogglePersona(id int) error {
	return c.apply(opTogglePersona, func(s State) (action, error) {
		if err := requireStep(opTogglePersona, s, StepPersonaSelection); err != nil {
			return nil, err
		}
		if _, ok := s.persona(id); !ok {
			return nil, invalid(opTogglePersona, "unknown persona %d", id)
		}
		return personaToggled{id: id}, nil
	})
}

// SelectPersonas replaces the selection with exactly ids.
func (c *Controller) SelectPersonas(ids []int) error {
	return c.apply(opSelectPersonas, func(s State) (action, error) {
		return selectionAction(s, ids)
	})
}

func selectionAction(s State, ids []int) (action, error) {
	if err := requireStep(opSelectPersonas, s, StepPersonaSelection); err != nil {
		return nil, err
	}
	if len(ids) != RequiredSelection {
		return nil, invalid(opSelectPersonas, "exactly %d personas must be selected, got %d", RequiredSelection, len(ids))
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.persona(id); !ok {
			return nil, invalid(opSelectPersonas, "unknown persona %d", id)
		}
		if seen[id] {
			return nil, invalid(opSelectPersonas, "persona %d selected twice", id)
		}
		seen[id] = true
	}
	return personasSelected{ids: ids}, nil
}

// StartInterview tells the backend which personas were chosen and loads the
// default questions for the topic.
func (c *Controller) StartInterview(ctx context.Context) error {
	return c.run(ctx, opStartInterview, func(ctx context.Context, rep *progress.Reporter) error {
		return c.startInterview(ctx, rep, nil)
	})
}

// startInterview uses questions instead of the backend defaults when given.
func (c *Controller) startInterview(ctx context.Context, rep *progress.Reporter, questions []string) error {
	s := c.snapshot()
	if err := requireStep(opStartInterview, s, StepPersonaSelection); err != nil {
		return err
	}
	if err := requireSelection(opStartInterview, s); err != nil {
		return err
	}
	if questions != nil {
		cleaned, err := cleanQuestions(opStartInterview, questions)
		if err != nil {
			return err
		}
		questions = cleaned
	}

	rep.Set(10, "Registering selected personas")
	if err := c.api.SelectPersonas(ctx, s.Selected); err != nil {
		return err
	}
	if questions == nil {
		rep.Set(50, "Loading default questions")
		qs, err := c.api.DefaultQuestions(ctx, s.Project.Topic)
		if err != nil {
			return err
		}
		questions = qs
	}
	c.commit(interviewPrepared{questions: questions})
	rep.Set(100, fmt.Sprintf("%d questions ready", len(questions)))
	return nil
}

// ConductInterview interviews each selected persona in turn with the edited
// questions.
func (c *Controller) ConductInterview(ctx context.Context) error {
	return c.run(ctx, opConductInterview, func(ctx context.Context, rep *progress.Reporter) error {
		return c.interview(ctx, rep, models.PhaseInitial, nil)
	})
}

// ConductHypothesisInterview interviews the personas again with the questions
// derived from the hypothesis.
func (c *Controller) ConductHypothesisInterview(ctx context.Context) error {
	return c.run(ctx, opHypothesisInterview, func(ctx context.Context, rep *progress.Reporter) error {
		return c.interview(ctx, rep, models.PhaseHypothesis, nil)
	})
}

// ConductAdditionalInterview runs an extra round after the final analysis.
// Its results are appended to earlier additional rounds.
func (c *Controller) ConductAdditionalInterview(ctx context.Context, questions []string) error {
	return c.run(ctx, opAdditionalInterview, func(ctx context.Context, rep *progress.Reporter) error {
		return c.interview(ctx, rep, models.PhaseAdditional, questions)
	})
}

func (c *Controller) interview(ctx context.Context, rep *progress.Reporter, phase models.Phase, extra []string) error {
	s := c.snapshot()

	var (
		op        string
		questions []string
		call      func(ctx context.Context, idx int, qs []string) (string, []models.InterviewResult, error)
	)
	switch phase {
	case models.PhaseInitial:
		op = opConductInterview
		if err := requireStep(op, s, StepQuestionEditing); err != nil {
			return err
		}
		questions = s.Questions
		call = c.conduct(false)
	case models.PhaseHypothesis:
		op = opHypothesisInterview
		if err := requireStep(op, s, StepHypothesisReview); err != nil {
			return err
		}
		questions = s.AdditionalQuestions
		call = c.conductHypothesis
	case models.PhaseAdditional:
		op = opAdditionalInterview
		if err := requireStep(op, s, StepFinalAnalysis); err != nil {
			return err
		}
		questions = extra
		call = c.conduct(false)
	default:
		return fmt.Errorf("unknown interview phase %q", phase)
	}

	if err := requireSelection(op, s); err != nil {
		return err
	}
	questions, err := cleanQuestions(op, questions)
	if err != nil {
		return err
	}

	transcript, err := c.interviewLoop(ctx, rep, s.SelectedPersonas(), questions, call)
	if err != nil {
		return err
	}
	c.commit(interviewCompleted{phase: phase, transcript: transcript})
	return nil
}

func (c *Controller) conduct(hypothesis bool) func(context.Context, int, []string) (string, []models.InterviewResult, error) {
	return func(ctx context.Context, idx int, qs []string) (string, []models.InterviewResult, error) {
		resp, err := c.api.ConductInterview(ctx, idx, qs, hypothesis)
		if err != nil {
			return "", nil, err
		}
		return resp.PersonaName, resp.InterviewResults, nil
	}
}

func (c *Controller) conductHypothesis(ctx context.Context, idx int, qs []string) (string, []models.InterviewResult, error) {
	resp, err := c.api.ConductHypothesisInterview(ctx, idx, qs)
	if err != nil {
		return "", nil, err
	}
	return resp.PersonaName, resp.InterviewResults, nil
}

// interviewLoop calls the backend once per persona, strictly in order. The
// transcript is only returned when every persona answered.
func (c *Controller) interviewLoop(
	ctx context.Context,
	rep *progress.Reporter,
	personas []models.Persona,
	questions []string,
	call func(ctx context.Context, idx int, qs []string) (string, []models.InterviewResult, error),
) (models.Transcript, error) {
	transcript := make(models.Transcript, len(personas))
	for i, p := range personas {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("Persona %d", i+1)
		}
		err := rep.Track(ctx, progress.PersonaBand(i, len(personas)), label, len(questions), func(ctx context.Context) error {
			name, results, err := call(ctx, i, questions)
			if err != nil {
				return fmt.Errorf("interviewing %s: %w", label, err)
			}
			if name == "" {
				name = label
			}
			if _, dup := transcript[name]; dup {
				c.logger.Warn("persona name returned twice, later answers replace earlier ones")
			}
			transcript[name] = results
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return transcript, nil
}

func (c *Controller) GenerateAnalysis(ctx context.Context) error {
	return c.run(ctx, opGenerateAnalysis, c.generateAnalysis)
}

func (c *Controller) generateAnalysis(ctx context.Context, rep *progress.Reporter) error {
	if err := requireStep(opGenerateAnalysis, c.snapshot(), StepInterviewExecution); err != nil {
		return err
	}
	rep.Set(10, "Analyzing interview results")
	resp, err := c.api.GenerateAnalysis(ctx)
	if err != nil {
		return err
	}
	c.commit(analysisGenerated{analysis: resp.Analysis, stats: resp.Stats})
	rep.Set(100, "Analysis ready")
	return nil
}

func (c *Controller) GenerateHypothesis(ctx context.Context) error {
	return c.run(ctx, opGenerateHypothesis, c.generateHypothesis)
}

func (c *Controller) generateHypothesis(ctx context.Context, rep *progress.Reporter) error {
	if err := requireStep(opGenerateHypothesis, c.snapshot(), StepAnalysisReview); err != nil {
		return err
	}
	rep.Set(10, "Forming a hypothesis")
	resp, err := c.api.GenerateHypothesis(ctx)
	if err != nil {
		return err
	}
	c.commit(hypothesisGenerated{text: resp.HypothesisAndQuestions, questions: resp.AdditionalQuestions})
	rep.Set(100, fmt.Sprintf("Hypothesis ready with %d follow-up questions", len(resp.AdditionalQuestions)))
	return nil
}

func (c *Controller) GenerateFinalAnalysis(ctx context.Context) error {
	return c.run(ctx, opFinalAnalysis, c.generateFinalAnalysis)
}

func (c *Controller) generateFinalAnalysis(ctx context.Context, rep *progress.Reporter) error {
	if err := requireStep(opFinalAnalysis, c.snapshot(), StepHypothesisInterview); err != nil {
		return err
	}
	rep.Set(10, "Writing the final analysis")
	resp, err := c.api.GenerateFinalAnalysis(ctx)
	if err != nil {
		return err
	}
	c.commit(finalAnalysisGenerated{analysis: resp.FinalAnalysis, stats: resp.Stats})
	rep.Set(100, "Final analysis ready")
	return nil
}

// GenerateSummaries fetches per-persona findings. It is available once the
// first interview round has completed.
func (c *Controller) GenerateSummaries(ctx context.Context) error {
	return c.run(ctx, opSummaries, func(ctx context.Context, rep *progress.Reporter) error {
		if s := c.snapshot(); s.Step < StepInterviewExecution {
			return outOfOrder(opSummaries, s.Step)
		}
		rep.Set(10, "Summarizing each interview")
		summaries, err := c.api.GenerateInterviewSummary(ctx)
		if err != nil {
			return err
		}
		c.commit(summariesGenerated{summaries: summaries})
		rep.Set(100, fmt.Sprintf("%d summaries ready", len(summaries)))
		return nil
	})
}

// SaveHistory stores the finished run on the backend and returns its id.
func (c *Controller) SaveHistory(ctx context.Context) (string, error) {
	var id string
	err := c.run(ctx, opSaveHistory, func(ctx context.Context, rep *progress.Reporter) error {
		if err := requireStep(opSaveHistory, c.snapshot(), StepFinalAnalysis); err != nil {
			return err
		}
		rep.Set(10, "Saving interview history")
		resp, err := c.api.SaveHistory(ctx)
		if err != nil {
			return err
		}
		id = resp.HistoryID
		c.commit(historySaved{id: id})
		rep.Set(100, "History saved")
		return nil
	})
	return id, err
}

// Reset discards the whole session and returns to project setup.
func (c *Controller) Reset() error {
	return c.apply(opReset, func(State) (action, error) {
		return resetAll{}, nil
	})
}
