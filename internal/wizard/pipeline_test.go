package wizard

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
)

func TestRunPipeline(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.RunPipeline(context.Background(), PipelineInput{
		ProjectInput: ProjectInput{Project: testProject(), PersonaCount: 4},
		Selection:    []int{3, 1, 0},
		Questions:    []string{"What do you pay today?", "What would you change?"},
	})
	require.NoError(t, err)

	s := h.ctrl.State()
	assert.Equal(t, StepFinalAnalysis, s.Step)
	assert.Len(t, s.Personas, 4)
	assert.Equal(t, []int{3, 1, 0}, s.Selected)
	assert.Equal(t, []string{"What do you pay today?", "What would you change?"}, s.Questions)
	assert.Len(t, s.Transcript(models.PhaseInitial), 3)
	assert.Len(t, s.Transcript(models.PhaseHypothesis), 3)
	assert.NotEmpty(t, s.FinalAnalysis)
	assert.Empty(t, h.fake.Violations())
	assert.NotContains(t, h.fake.Calls(), "/api/default-questions")

	updates := h.rec.all()
	require.NotEmpty(t, updates)
	for i := 1; i < len(updates)-1; i++ {
		assert.GreaterOrEqual(t, updates[i].Percent, updates[i-1].Percent, "cumulative progress never goes back (%d)", i)
	}
	assert.Equal(t, 100, updates[len(updates)-2].Percent)
}

func TestRunPipeline_Defaults(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.RunPipeline(context.Background(), PipelineInput{
		ProjectInput: ProjectInput{Project: testProject()},
	}))

	s := h.ctrl.State()
	assert.Equal(t, []int{0, 1, 2}, s.Selected)
	assert.Len(t, s.Questions, 5)
	assert.Contains(t, h.fake.Calls(), "/api/default-questions")
}

func TestRunPipeline_StopsAtFailedStage(t *testing.T) {
	h := newHarness(t)
	h.fake.FailNext("/api/generate-hypothesis", http.StatusServiceUnavailable, "model overloaded")

	err := h.ctrl.RunPipeline(context.Background(), PipelineInput{
		ProjectInput: ProjectInput{Project: testProject()},
	})
	require.Error(t, err)
	assert.Equal(t, KindOverload, KindOf(err))
	assert.Contains(t, err.Error(), "generate hypothesis failed")

	s := h.ctrl.State()
	assert.Equal(t, StepAnalysisReview, s.Step, "completed stages stay committed")
	assert.NotEmpty(t, s.Analysis)

	require.NoError(t, h.ctrl.GenerateHypothesis(context.Background()), "the failed stage can be run by hand")
}

func TestRunPipeline_Guards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.ctrl.RunPipeline(ctx, PipelineInput{ProjectInput: ProjectInput{Project: testProject()}, Questions: []string{" "}})
	assert.Equal(t, KindValidation, KindOf(err))

	err = h.ctrl.RunPipeline(ctx, PipelineInput{ProjectInput: ProjectInput{Project: testProject()}, Selection: []int{0, 1}})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, StepPersonaSelection, h.ctrl.State().Step)

	err = h.ctrl.RunPipeline(ctx, PipelineInput{ProjectInput: ProjectInput{Project: testProject()}})
	assert.Equal(t, KindOutOfOrder, KindOf(err))
}
