package wizard

import (
	"context"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

const opPipeline = "run interview pipeline"

// PipelineInput drives RunPipeline. Selection defaults to the first three
// generated personas and Questions to the backend defaults for the topic.
type PipelineInput struct {
	ProjectInput `yaml:",inline"`
	Selection    []int    `json:"selection,omitempty" yaml:"selection,omitempty"`
	Questions    []string `json:"questions,omitempty" yaml:"questions,omitempty"`
}

type pipelineStage struct {
	name   string
	lo, hi float64
	run    func(ctx context.Context, rep *progress.Reporter) error
}

// RunPipeline runs every step from project setup to the final analysis as
// one operation with cumulative progress. It stops at the first failure;
// the wizard then sits at the last completed step and the remaining steps
// can be run one by one.
func (c *Controller) RunPipeline(ctx context.Context, in PipelineInput) error {
	release, err := c.acquire(opPipeline)
	if err != nil {
		return err
	}
	defer release()

	if err := requireStep(opPipeline, c.snapshot(), StepProjectSetup); err != nil {
		return err
	}
	a, err := c.projectAction(c.snapshot(), in.ProjectInput)
	if err != nil {
		return err
	}
	if in.Questions != nil {
		if _, err := cleanQuestions(opPipeline, in.Questions); err != nil {
			return err
		}
	}
	c.commit(a)

	stages := []pipelineStage{
		{opGeneratePersonas, 0, 10, c.generatePersonas},
		{opStartInterview, 10, 15, func(ctx context.Context, rep *progress.Reporter) error {
			sel, err := selectionAction(c.snapshot(), pipelineSelection(c.snapshot(), in.Selection))
			if err != nil {
				return err
			}
			c.commit(sel)
			return c.startInterview(ctx, rep, in.Questions)
		}},
		{opConductInterview, 15, 55, func(ctx context.Context, rep *progress.Reporter) error {
			return c.interview(ctx, rep, models.PhaseInitial, nil)
		}},
		{opGenerateAnalysis, 55, 65, c.generateAnalysis},
		{opGenerateHypothesis, 65, 70, c.generateHypothesis},
		{opHypothesisInterview, 70, 92, func(ctx context.Context, rep *progress.Reporter) error {
			return c.interview(ctx, rep, models.PhaseHypothesis, nil)
		}},
		{opFinalAnalysis, 92, 100, c.generateFinalAnalysis},
	}

	c.progress.Begin("Starting interview pipeline")
	defer c.progress.End()
	for _, st := range stages {
		c.logger.Info("pipeline stage", zap.String("stage", st.name))
		if err := st.run(ctx, c.progress.Sub(st.lo, st.hi)); err != nil {
			werr := Classify(st.name, err)
			c.logger.Warn("pipeline stopped",
				zap.String("stage", st.name),
				zap.Stringer("kind", werr.Kind),
				zap.Stringer("step", c.snapshot().Step),
				zap.Error(werr.Err),
			)
			return werr
		}
	}
	c.progress.Set(100, "Interview pipeline complete")
	return nil
}

func pipelineSelection(s State, ids []int) []int {
	if len(ids) > 0 {
		return ids
	}
	var out []int
	for _, p := range s.Personas {
		if len(out) == RequiredSelection {
			break
		}
		out = append(out, p.ID)
	}
	return out
}
