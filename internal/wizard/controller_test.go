package wizard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/backend/fakebackend"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

type recorder struct {
	mu      sync.Mutex
	updates []progress.Update
}

func (r *recorder) sink(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = nil
}

func (r *recorder) all() []progress.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Update(nil), r.updates...)
}

type harness struct {
	fake *fakebackend.Server
	ctrl *Controller
	rec  *recorder
}

func newHarness(t *testing.T, configure ...func(*fakebackend.Server)) *harness {
	t.Helper()
	fake := fakebackend.New()
	for _, fn := range configure {
		fn(fake)
	}
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	rec := &recorder{}
	ctrl := New(
		backend.NewClient(srv.URL, backend.WithHTTPClient(hc)),
		WithLogger(zaptest.NewLogger(t)),
		WithProgress(progress.New(rec.sink, progress.WithInterval(5*time.Millisecond))),
	)
	return &harness{fake: fake, ctrl: ctrl, rec: rec}
}

func testProject() models.ProjectInfo {
	return models.ProjectInfo{
		Topic: "online coaching service",
		ProductsServices: []models.ProductService{{
			Name:           "CoachNow",
			TargetAudience: "busy professionals",
			Benefits:       "personal coaching on demand",
			BenefitReason:  "certified coaches available 24/7",
			BasicInfo:      "$49/month",
		}},
	}
}

// toQuestionEditing runs the wizard up to the question editing step.
func (h *harness) toQuestionEditing(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	require.NoError(t, h.ctrl.GeneratePersonas(ctx))
	for _, id := range []int{0, 1, 2} {
		require.NoError(t, h.ctrl.TogglePersona(id))
	}
	require.NoError(t, h.ctrl.StartInterview(ctx))
}

func (h *harness) toFinalAnalysis(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	h.toQuestionEditing(t)
	require.NoError(t, h.ctrl.ConductInterview(ctx))
	require.NoError(t, h.ctrl.GenerateAnalysis(ctx))
	require.NoError(t, h.ctrl.GenerateHypothesis(ctx))
	require.NoError(t, h.ctrl.ConductHypothesisInterview(ctx))
	require.NoError(t, h.ctrl.GenerateFinalAnalysis(ctx))
}

func TestExampleScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	s := h.ctrl.State()
	assert.Equal(t, StepPersonaGeneration, s.Step)
	assert.Equal(t, DefaultPersonaCount, s.PersonaCount)
	assert.NotEmpty(t, s.Project.ProductsServices[0].ID, "product gets an id")

	require.NoError(t, h.ctrl.GeneratePersonas(ctx))
	s = h.ctrl.State()
	assert.Equal(t, StepPersonaSelection, s.Step)
	assert.Len(t, s.Personas, 5)

	for _, id := range []int{0, 1, 2, 3} {
		require.NoError(t, h.ctrl.TogglePersona(id))
	}
	assert.Equal(t, []int{0, 1, 2}, h.ctrl.State().Selected)

	require.NoError(t, h.ctrl.StartInterview(ctx))
	s = h.ctrl.State()
	assert.Equal(t, StepQuestionEditing, s.Step)
	require.Len(t, s.Questions, 5)
	for _, q := range s.Questions {
		assert.NotEmpty(t, strings.TrimSpace(q))
	}

	require.NoError(t, h.ctrl.ConductInterview(ctx))
	s = h.ctrl.State()
	assert.Equal(t, StepInterviewExecution, s.Step)
	assert.Len(t, s.Transcript(models.PhaseInitial), 3)

	require.NoError(t, h.ctrl.GenerateAnalysis(ctx))
	s = h.ctrl.State()
	assert.Equal(t, StepAnalysisReview, s.Step)
	assert.NotEmpty(t, s.Analysis)
	require.NotNil(t, s.Stats)
	assert.Equal(t, 1200, s.Stats.InputChars)

	require.NoError(t, h.ctrl.Reset())
	if diff := cmp.Diff(Initial(), h.ctrl.State()); diff != "" {
		t.Errorf("reset state (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.fake.Violations())
}

func TestFullRun_KeepsBackendOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toFinalAnalysis(t)

	s := h.ctrl.State()
	assert.Equal(t, StepFinalAnalysis, s.Step)
	assert.NotEmpty(t, s.Hypothesis)
	assert.Equal(t, []string{"Would a cheaper plan change your mind?", "What would you cut first?"}, s.AdditionalQuestions)
	for _, results := range s.Transcript(models.PhaseHypothesis) {
		assert.Len(t, results, 2)
	}
	assert.NotEmpty(t, s.FinalAnalysis)

	require.NoError(t, h.ctrl.GenerateSummaries(ctx))
	assert.Len(t, h.ctrl.State().Summaries, 3)

	require.NoError(t, h.ctrl.ConductAdditionalInterview(ctx, []string{"Anything else?"}))
	require.NoError(t, h.ctrl.ConductAdditionalInterview(ctx, []string{"Last one?"}))
	for _, results := range h.ctrl.State().Transcript(models.PhaseAdditional) {
		assert.Len(t, results, 2)
	}

	id, err := h.ctrl.SaveHistory(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, h.ctrl.State().HistoryID)

	assert.Empty(t, h.fake.Violations())
}

func TestHypothesisWithoutQuestions(t *testing.T) {
	h := newHarness(t, func(f *fakebackend.Server) { f.NoHypothesisQuestions = true })
	ctx := context.Background()
	h.toQuestionEditing(t)
	require.NoError(t, h.ctrl.ConductInterview(ctx))
	require.NoError(t, h.ctrl.GenerateAnalysis(ctx))
	require.NoError(t, h.ctrl.GenerateHypothesis(ctx))
	require.Empty(t, h.ctrl.State().AdditionalQuestions)

	assert.Equal(t, KindValidation, KindOf(h.ctrl.ConductHypothesisInterview(ctx)))
	assert.Equal(t, KindValidation, KindOf(h.ctrl.SetAdditionalQuestions([]string{" "})))

	require.NoError(t, h.ctrl.SetAdditionalQuestions([]string{" Is the price fair? "}))
	assert.Equal(t, []string{"Is the price fair?"}, h.ctrl.State().AdditionalQuestions)

	require.NoError(t, h.ctrl.ConductHypothesisInterview(ctx))
	for _, results := range h.ctrl.State().Transcript(models.PhaseHypothesis) {
		assert.Len(t, results, 1)
	}
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.SetAdditionalQuestions([]string{"Too late?"})))
	assert.Empty(t, h.fake.Violations())
}

func TestThreePersonasTwoQuestions(t *testing.T) {
	h := newHarness(t)
	h.toQuestionEditing(t)
	require.NoError(t, h.ctrl.SetQuestions([]string{"  Why?  ", "How much?"}))

	require.NoError(t, h.ctrl.ConductInterview(context.Background()))

	tr := h.ctrl.State().Transcript(models.PhaseInitial)
	require.Len(t, tr, 3)
	for name, results := range tr {
		require.Len(t, results, 2, name)
		assert.Equal(t, "Why?", results[0].Question)
	}
}

func TestInterviewRequiresThreeSelected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	require.NoError(t, h.ctrl.GeneratePersonas(ctx))
	require.NoError(t, h.ctrl.TogglePersona(0))
	require.NoError(t, h.ctrl.TogglePersona(1))
	calls := len(h.fake.Calls())

	err := h.ctrl.StartInterview(ctx)
	assert.Equal(t, KindValidation, KindOf(err))

	err = h.ctrl.ConductInterview(ctx)
	assert.Equal(t, KindOutOfOrder, KindOf(err))

	err = h.ctrl.GenerateAnalysis(ctx)
	assert.Equal(t, KindOutOfOrder, KindOf(err))

	assert.Equal(t, StepPersonaSelection, h.ctrl.State().Step)
	assert.Len(t, h.fake.Calls(), calls, "guards make no network call")
}

func TestSetProject_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := testProject()
	p.ProductsServices[0].BenefitReason = " "
	err := h.ctrl.SetProject(ctx, ProjectInput{Project: p})
	require.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "products_services[0].benefit_reason")

	err = h.ctrl.SetProject(ctx, ProjectInput{Project: testProject(), PersonaCount: 2})
	assert.Equal(t, KindValidation, KindOf(err))

	if diff := cmp.Diff(Initial(), h.ctrl.State()); diff != "" {
		t.Errorf("failed validation changed state:\n%s", diff)
	}
	assert.Empty(t, h.fake.Calls())
}

func TestSetProject_RefusedOnceInterviewing(t *testing.T) {
	h := newHarness(t)
	h.toQuestionEditing(t)

	err := h.ctrl.SetProject(context.Background(), ProjectInput{Project: testProject()})
	assert.Equal(t, KindOutOfOrder, KindOf(err))
}

func TestTogglePersona_UnknownID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	require.NoError(t, h.ctrl.GeneratePersonas(ctx))

	assert.Equal(t, KindValidation, KindOf(h.ctrl.TogglePersona(99)))
	assert.Empty(t, h.ctrl.State().Selected)
}

func TestSelectPersonas(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	require.NoError(t, h.ctrl.GeneratePersonas(ctx))

	for _, ids := range [][]int{{0, 1}, {0, 1, 1}, {0, 1, 99}, {0, 1, 2, 3}} {
		assert.Equal(t, KindValidation, KindOf(h.ctrl.SelectPersonas(ids)), "ids %v", ids)
	}
	assert.Empty(t, h.ctrl.State().Selected)

	require.NoError(t, h.ctrl.SelectPersonas([]int{4, 0, 2}))
	assert.ElementsMatch(t, []int{0, 2, 4}, h.ctrl.State().Selected)
	assert.Equal(t, []string{"/api/generate-personas"}, h.fake.Calls(), "selection is local until the interview starts")
}

func TestRegeneratePersonas_ClearsSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SetProject(ctx, ProjectInput{Project: testProject()}))
	require.NoError(t, h.ctrl.GeneratePersonas(ctx))
	require.NoError(t, h.ctrl.TogglePersona(2))

	require.NoError(t, h.ctrl.GeneratePersonas(ctx))
	assert.Empty(t, h.ctrl.State().Selected)
}

func TestInterviewFailure_DiscardsPartialResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toQuestionEditing(t)
	before := h.ctrl.State()

	h.fake.FailPersona("/api/conduct-interview", 1, http.StatusInternalServerError, "model crashed")
	err := h.ctrl.ConductInterview(ctx)
	require.Error(t, err)
	assert.Equal(t, KindBackend, KindOf(err))
	assert.Contains(t, err.Error(), "conduct interview failed:")
	assert.Contains(t, err.Error(), "model crashed")

	if diff := cmp.Diff(before, h.ctrl.State()); diff != "" {
		t.Errorf("failed interview committed state:\n%s", diff)
	}

	require.NoError(t, h.ctrl.ConductInterview(ctx), "the same handler can be retried")
	assert.Len(t, h.ctrl.State().Transcript(models.PhaseInitial), 3)
}

func TestAnalysisTimeout_OverloadMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toQuestionEditing(t)
	require.NoError(t, h.ctrl.ConductInterview(ctx))

	h.fake.FailNext("/api/generate-analysis", http.StatusGatewayTimeout, "upstream request timeout")
	err := h.ctrl.GenerateAnalysis(ctx)
	require.Error(t, err)
	assert.Equal(t, KindOverload, KindOf(err))
	assert.Equal(t,
		"generate analysis failed: the interview service is overloaded or timed out, wait a moment and retry",
		err.Error())
	assert.Equal(t, StepInterviewExecution, h.ctrl.State().Step)

	require.NoError(t, h.ctrl.GenerateAnalysis(ctx))
	assert.Equal(t, StepAnalysisReview, h.ctrl.State().Step)
}

func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctrl := New(backend.NewClient(url))
	require.NoError(t, ctrl.SetProject(context.Background(), ProjectInput{Project: testProject()}))
	err := ctrl.GeneratePersonas(context.Background())
	assert.Equal(t, KindConnectivity, KindOf(err))
	assert.Equal(t, StepPersonaGeneration, ctrl.State().Step)
}

func TestConcurrentCallIsBusy(t *testing.T) {
	h := newHarness(t, func(f *fakebackend.Server) { f.InterviewDelay = 100 * time.Millisecond })
	h.toQuestionEditing(t)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ConductInterview(context.Background()) }()

	require.Eventually(t, h.ctrl.Busy, time.Second, time.Millisecond)
	assert.Equal(t, KindBusy, KindOf(h.ctrl.AddQuestion("Another?")))
	assert.Equal(t, KindBusy, KindOf(h.ctrl.GenerateAnalysis(context.Background())))
	assert.Equal(t, KindBusy, KindOf(h.ctrl.Reset()))

	require.NoError(t, <-done)
	assert.False(t, h.ctrl.Busy())
	assert.Equal(t, StepInterviewExecution, h.ctrl.State().Step)
}

func TestInterviewProgress(t *testing.T) {
	h := newHarness(t, func(f *fakebackend.Server) { f.InterviewDelay = 30 * time.Millisecond })
	h.toQuestionEditing(t)
	h.rec.reset()

	require.NoError(t, h.ctrl.ConductInterview(context.Background()))

	updates := h.rec.all()
	require.GreaterOrEqual(t, len(updates), 5)
	assert.Equal(t, progress.Update{Percent: 0, Message: opConductInterview}, updates[0])
	assert.Equal(t, progress.Update{}, updates[len(updates)-1], "progress is cleared at the end")

	var done []int
	for i := 1; i < len(updates)-1; i++ {
		assert.GreaterOrEqual(t, updates[i].Percent, updates[i-1].Percent, "update %d", i)
		if strings.HasSuffix(updates[i].Message, ": done") {
			done = append(done, updates[i].Percent)
		}
	}
	assert.Equal(t, []int{33, 67, 100}, done, "one completion per persona")

	_, active := h.ctrl.Progress()
	assert.False(t, active)
}

func TestDuplicatePersonaNames_LaterWins(t *testing.T) {
	h := newHarness(t, func(f *fakebackend.Server) { f.DuplicateNames = true })
	h.toQuestionEditing(t)

	require.NoError(t, h.ctrl.ConductInterview(context.Background()))
	assert.Len(t, h.ctrl.State().Transcript(models.PhaseInitial), 1)
}

func TestQuestionEditing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toQuestionEditing(t)

	require.NoError(t, h.ctrl.ClearQuestions())
	assert.Empty(t, h.ctrl.State().Questions)
	assert.Equal(t, KindValidation, KindOf(h.ctrl.ConductInterview(ctx)))

	require.NoError(t, h.ctrl.AddQuestion("First?"))
	require.NoError(t, h.ctrl.AddQuestion(" Second? "))
	require.NoError(t, h.ctrl.EditQuestion(0, "Edited?"))
	assert.Equal(t, []string{"Edited?", "Second?"}, h.ctrl.State().Questions)

	assert.Equal(t, KindValidation, KindOf(h.ctrl.AddQuestion("   ")))
	assert.Equal(t, KindValidation, KindOf(h.ctrl.EditQuestion(5, "x")))
	assert.Equal(t, KindValidation, KindOf(h.ctrl.RemoveQuestion(-1)))
	assert.Equal(t, KindValidation, KindOf(h.ctrl.SetQuestions([]string{"ok?", ""})))

	require.NoError(t, h.ctrl.RemoveQuestion(0))
	assert.Equal(t, []string{"Second?"}, h.ctrl.State().Questions)

	require.NoError(t, h.ctrl.ReloadDefaultQuestions(ctx))
	assert.Len(t, h.ctrl.State().Questions, 5)

	require.NoError(t, h.ctrl.UploadQuestions(ctx, "questions.csv", strings.NewReader("Q one?\n\nQ two?\n")))
	assert.Equal(t, []string{"Q one?", "Q two?"}, h.ctrl.State().Questions)

	err := h.ctrl.UploadQuestions(ctx, "questions.pdf", strings.NewReader("Q?"))
	assert.Equal(t, KindBackend, KindOf(err))
	assert.Equal(t, []string{"Q one?", "Q two?"}, h.ctrl.State().Questions)
}

func TestQuestionEditing_OutsideStep(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.AddQuestion("Why?")))
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.ReloadDefaultQuestions(context.Background())))
}

func TestLaterSteps_OutOfOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toQuestionEditing(t)

	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.GenerateHypothesis(ctx)))
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.ConductHypothesisInterview(ctx)))
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.GenerateFinalAnalysis(ctx)))
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.GenerateSummaries(ctx)))
	assert.Equal(t, KindOutOfOrder, KindOf(h.ctrl.ConductAdditionalInterview(ctx, []string{"x?"})))
	_, err := h.ctrl.SaveHistory(ctx)
	assert.Equal(t, KindOutOfOrder, KindOf(err))
	assert.Empty(t, h.fake.Violations())
}

func TestStateIsACopy(t *testing.T) {
	h := newHarness(t)
	h.toQuestionEditing(t)

	s := h.ctrl.State()
	s.Questions[0] = "changed"
	s.Personas[0].Details["age"] = "1"

	fresh := h.ctrl.State()
	assert.NotEqual(t, "changed", fresh.Questions[0])
	assert.NotEqual(t, "1", fresh.Personas[0].Details["age"])
}
