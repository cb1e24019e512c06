package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend/fakebackend"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProject() models.ProjectInfo {
	return models.ProjectInfo{
		Topic: "online coaching service",
		ProductsServices: []models.ProductService{{
			ID:             "p1",
			Name:           "CoachNow",
			TargetAudience: "busy professionals",
			Benefits:       "personal coaching on demand",
			BenefitReason:  "certified coaches available 24/7",
			BasicInfo:      "$49/month",
		}},
	}
}

func newFake(t *testing.T) (*fakebackend.Server, *Client) {
	t.Helper()
	fake := fakebackend.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, NewClient(srv.URL)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").BaseURL())
	assert.Equal(t, "http://example.com:9000", NewClient(" http://example.com:9000/ ").BaseURL())
}

func TestProbe(t *testing.T) {
	_, client := newFake(t)
	require.NoError(t, client.Probe(context.Background()))
}

func TestProbe_Refused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url).Probe(context.Background())

	var connErr *ConnError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, ConnRefused, connErr.Kind)
	assert.Contains(t, DescribeProbeFailure(err), "cannot connect")
}

func TestProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	err := NewClient(srv.URL, WithProbeTimeout(50*time.Millisecond)).Probe(context.Background())

	var connErr *ConnError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, ConnTimeout, connErr.Kind)
	assert.Contains(t, DescribeProbeFailure(err), "timed out")
}

func TestProbe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Probe(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Detail)
}

func TestGeneratePersonas(t *testing.T) {
	_, client := newFake(t)

	resp, err := client.GeneratePersonas(context.Background(), testProject(), 5, "")
	require.NoError(t, err)
	assert.Len(t, resp.Personas, 5)
	assert.NotEmpty(t, resp.RawText)
	for i, p := range resp.Personas {
		assert.Equal(t, i, p.ID)
		assert.NotEmpty(t, p.Name)
	}
}

func TestGeneratePersonas_IncompleteProjectMakesNoCall(t *testing.T) {
	fake, client := newFake(t)

	project := testProject()
	project.ProductsServices[0].BasicInfo = " "

	_, err := client.GeneratePersonas(context.Background(), project, 5, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products_services[0].basic_info")
	assert.Empty(t, fake.Calls())
}

func TestSelectPersonas_RequiresThree(t *testing.T) {
	fake, client := newFake(t)

	err := client.SelectPersonas(context.Background(), []int{0, 1})
	require.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func TestDefaultQuestions_Topic(t *testing.T) {
	_, client := newFake(t)

	qs, err := client.DefaultQuestions(context.Background(), "online coaching service")
	require.NoError(t, err)
	require.Len(t, qs, 5)
	assert.Contains(t, qs[1], "online coaching service")

	generic, err := client.DefaultQuestions(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, generic[1], "this service")
}

func TestConductInterview_OutOfOrderSurfacesDetail(t *testing.T) {
	_, client := newFake(t)

	_, err := client.ConductInterview(context.Background(), 0, []string{"q"}, false)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "no personas selected", apiErr.Detail)
}

func TestFullSessionOrder(t *testing.T) {
	fake, client := newFake(t)
	ctx := context.Background()

	_, err := client.GeneratePersonas(ctx, testProject(), 5, "young parents")
	require.NoError(t, err)
	require.NoError(t, client.SelectPersonas(ctx, []int{0, 2, 4}))

	for i := 0; i < RequiredSelection; i++ {
		resp, err := client.ConductInterview(ctx, i, []string{"q1", "q2"}, false)
		require.NoError(t, err)
		assert.Len(t, resp.InterviewResults, 2)
		assert.Len(t, resp.InterviewResults[0].FollowUps, 2)
	}

	analysis, err := client.GenerateAnalysis(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Analysis)
	assert.Equal(t, 1200, analysis.Stats.InputChars)

	hyp, err := client.GenerateHypothesis(ctx)
	require.NoError(t, err)
	assert.Len(t, hyp.AdditionalQuestions, 2)

	for i := 0; i < RequiredSelection; i++ {
		_, err := client.ConductHypothesisInterview(ctx, i, hyp.AdditionalQuestions)
		require.NoError(t, err)
	}

	final, err := client.GenerateFinalAnalysis(ctx)
	require.NoError(t, err)
	assert.Contains(t, final.FinalAnalysis, "online coaching service")

	summaries, err := client.GenerateInterviewSummary(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)

	saved, err := client.SaveHistory(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, saved.HistoryID)

	list, err := client.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "online coaching service", list[0].Topic)
	assert.Len(t, list[0].PersonaNames, 3)

	rec, err := client.GetHistory(ctx, saved.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, saved.HistoryID, rec.ID)
	assert.NotEmpty(t, rec.Raw)

	status, err := client.SessionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.SelectedPersonaCount)

	assert.Empty(t, fake.Violations())
}

func TestGetHistory_NotFound(t *testing.T) {
	_, client := newFake(t)

	_, err := client.GetHistory(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrHistoryNotFound))

	_, err = client.GetHistory(context.Background(), "")
	assert.True(t, errors.Is(err, ErrHistoryNotFound))
}

func TestUploadQuestions(t *testing.T) {
	_, client := newFake(t)

	resp, err := client.UploadQuestions(context.Background(), "questions.csv", strings.NewReader("First?\n\nSecond?\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"First?", "Second?"}, resp.Questions)
	assert.Equal(t, 2, resp.Count)

	_, err = client.UploadQuestions(context.Background(), "questions.pdf", strings.NewReader("x"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Detail, "unsupported file format")
}

func TestScriptedFailureDetail(t *testing.T) {
	fake, client := newFake(t)
	fake.FailNext("/api/generate-personas", http.StatusServiceUnavailable, "model is overloaded")

	_, err := client.GeneratePersonas(context.Background(), testProject(), 5, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "model is overloaded", apiErr.Detail)

	_, err = client.GeneratePersonas(context.Background(), testProject(), 5, "")
	assert.NoError(t, err)
}

func TestDetailFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"fastapi string", `{"detail":"persona generation failed"}`, "persona generation failed"},
		{"fastapi validation", `{"detail":[{"msg":"field required"},{"msg":"bad value"}]}`, "field required; bad value"},
		{"error field", `{"error":"nope"}`, "nope"},
		{"plain text", "  Internal Server Error \n", "Internal Server Error"},
		{"empty", "", "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detailFromBody([]byte(tt.body)))
		})
	}
}

func TestExtractQuestions(t *testing.T) {
	text := `## Hypothesis
Customers care about price more than brand.

### Additional questions
1. Would a cheaper plan change your mind?
2. **What would you cut first?**
- Who decides on purchases in your household？
* Would a cheaper plan change your mind?
Not a question.`

	assert.Equal(t, []string{
		"Would a cheaper plan change your mind?",
		"What would you cut first?",
		"Who decides on purchases in your household？",
	}, ExtractQuestions(text))
	assert.Empty(t, ExtractQuestions(""))
}
