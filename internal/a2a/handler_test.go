package a2a

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/backend/fakebackend"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

const projectYAML = `topic: online coaching service
products_services:
  - name: CoachNow
    target_audience: busy professionals
    benefits: personal coaching on demand
    benefit_reason: certified coaches available 24/7
    basic_info: $49/month
`

type rpcResult struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  *Task     `json:"result"`
	Error   *RPCError `json:"error"`
}

func newRouter(t *testing.T) (*gin.Engine, *fakebackend.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := fakebackend.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	client := backend.NewClient(srv.URL, backend.WithLogger(logger))
	r := gin.New()
	NewHandler(wizard.New(client, wizard.WithLogger(logger)), "http://agent.test/", logger).Register(r)
	return r, fake
}

func send(t *testing.T, r http.Handler, body string) rpcResult {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var res rpcResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func messageRequest(t *testing.T, parts ...Part) string {
	t.Helper()
	params, err := json.Marshal(MessageParams{Message: Message{Kind: "message", Role: "user", Parts: parts}})
	require.NoError(t, err)
	data, err := json.Marshal(JSONRPCRequest{JSONRPC: "2.0", ID: json.RawMessage("7"), Method: "message/send", Params: params})
	require.NoError(t, err)
	return string(data)
}

func TestAgentCard(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var card AgentCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.Equal(t, "http://agent.test"+Path, card.URL)
	require.Len(t, card.Skills, 1)
}

func TestMessageSend_YAMLText(t *testing.T) {
	r, _ := newRouter(t)

	res := send(t, r, messageRequest(t, TextPart(projectYAML)))
	require.Nil(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, 7, res.ID)
	assert.Equal(t, StateCompleted, res.Result.Status.State)
	assert.NotEmpty(t, res.Result.ID)
	assert.Equal(t, "Final strategy for online coaching service.", res.Result.Status.Message.Parts[0].Text)
	require.Len(t, res.Result.Artifacts, 1)
	assert.Contains(t, res.Result.Artifacts[0].Parts[0].Text, "# Marketing Interview Report")
}

func TestMessageSend_DataPartTwice(t *testing.T) {
	r, _ := newRouter(t)
	data := json.RawMessage(`{"project":{"topic":"meal kits","products_services":[{"name":"Box","target_audience":"families","benefits":"saves time","benefit_reason":"pre-portioned","basic_info":"weekly"}]},"selection":[1,2,3]}`)

	first := send(t, r, messageRequest(t, Part{Kind: "data", Data: data}))
	require.NotNil(t, first.Result)
	assert.Equal(t, StateCompleted, first.Result.Status.State)

	// a finished wizard is reset before the next run
	second := send(t, r, messageRequest(t, Part{Kind: "data", Data: data}))
	require.NotNil(t, second.Result)
	assert.Equal(t, StateCompleted, second.Result.Status.State)
	assert.NotEqual(t, first.Result.ID, second.Result.ID)
}

func TestMessageSend_Failures(t *testing.T) {
	t.Run("missing project fields", func(t *testing.T) {
		r, fake := newRouter(t)
		res := send(t, r, messageRequest(t, TextPart("topic: only a topic")))
		require.NotNil(t, res.Result)
		assert.Equal(t, StateFailed, res.Result.Status.State)
		assert.Contains(t, res.Result.Status.Message.Parts[0].Text, "products_services")
		assert.Empty(t, fake.Calls())
	})

	t.Run("no parts", func(t *testing.T) {
		r, _ := newRouter(t)
		res := send(t, r, messageRequest(t))
		require.NotNil(t, res.Result)
		assert.Equal(t, StateFailed, res.Result.Status.State)
	})

	t.Run("backend overloaded", func(t *testing.T) {
		r, fake := newRouter(t)
		fake.FailAlways("/api/generate-final-analysis", http.StatusServiceUnavailable, "model overloaded")
		res := send(t, r, messageRequest(t, TextPart(projectYAML)))
		require.NotNil(t, res.Result)
		assert.Equal(t, StateFailed, res.Result.Status.State)
		assert.Contains(t, res.Result.Status.Message.Parts[0].Text, "overloaded or timed out")
	})
}

func TestMessageSend_RetryAfterFailedRun(t *testing.T) {
	for _, path := range []string{"/api/generate-personas", "/api/select-personas", "/api/generate-analysis"} {
		t.Run(path, func(t *testing.T) {
			r, fake := newRouter(t)
			fake.FailNext(path, http.StatusInternalServerError, "boom")
			body := messageRequest(t, TextPart(projectYAML))

			first := send(t, r, body)
			require.NotNil(t, first.Result)
			assert.Equal(t, StateFailed, first.Result.Status.State)

			retry := send(t, r, body)
			require.NotNil(t, retry.Result)
			assert.Equal(t, StateCompleted, retry.Result.Status.State, retry.Result.Status.Message.Parts[0].Text)
		})
	}
}

func TestRPCErrors(t *testing.T) {
	r, _ := newRouter(t)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"jsonrpc":`, CodeParseError},
		{"version", `{"jsonrpc":"1.0","id":1,"method":"message/send","params":{}}`, CodeInvalidRequest},
		{"method", `{"jsonrpc":"2.0","id":1,"method":"tasks/cancel","params":{}}`, CodeMethodNotFound},
		{"params", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":[1]}`, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := send(t, r, tt.body)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.code, res.Error.Code)
		})
	}
}

func TestExtractInput_BareJSONText(t *testing.T) {
	text := `{"topic":"t","products_services":[{"name":"n","target_audience":"a","benefits":"b","benefit_reason":"r","basic_info":"i"}]}`
	in, err := ExtractInput(Message{Parts: []Part{TextPart(text)}})
	require.NoError(t, err)
	assert.Equal(t, "t", in.Project.Topic)
}
