// Package a2a exposes the interview pipeline to other agents over A2A
// JSON-RPC. A "message/send" whose parts carry a project runs the whole
// pipeline and answers with the final analysis and a markdown report.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/persona-interviewer/internal/desktop"
	"github.com/BerylCAtieno/persona-interviewer/internal/render"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

const Path = "/a2a/interviewer"

type Handler struct {
	wizard  *wizard.Controller
	baseURL string
	logger  *zap.Logger
}

func NewHandler(w *wizard.Controller, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{wizard: w, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/.well-known/agent.json", h.ServeAgentCard)
	r.POST(Path, h.HandleMessage)
}

func (h *Handler) ServeAgentCard(c *gin.Context) {
	c.JSON(http.StatusOK, AgentCard{
		Name:               "Persona Interviewer",
		Description:        "Generates synthetic customer personas for a product, interviews them twice and returns a marketing analysis.",
		URL:                h.baseURL + Path,
		Version:            desktop.Version,
		DefaultInputModes:  []string{"text", "data"},
		DefaultOutputModes: []string{"text"},
		Skills: []Skill{{
			ID:          "persona-interview",
			Name:        "Persona interview",
			Description: "Send a project (topic, products and services, competitors) as a data part or as YAML text.",
			Examples:    []string{"topic: online coaching service\nproducts_services: [...]"},
		}},
	})
}

// HandleMessage answers JSON-RPC errors with 200, as JSON-RPC expects.
func (h *Handler) HandleMessage(c *gin.Context) {
	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, CodeParseError, "invalid JSON-RPC request")
		return
	}
	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, CodeInvalidRequest, "invalid JSON-RPC version")
		return
	}
	if req.Method != "message/send" && req.Method != "agent/task" {
		h.sendError(c, req.ID, CodeMethodNotFound, "method not found: "+req.Method)
		return
	}

	var params MessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.sendError(c, req.ID, CodeInvalidParams, "invalid parameters")
		return
	}

	taskID := params.Message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	logger := h.logger.With(zap.String("task_id", taskID))

	in, err := ExtractInput(params.Message)
	if err != nil {
		logger.Info("message without a usable project", zap.Error(err))
		h.sendResult(c, req.ID, failedTask(taskID, err.Error()))
		return
	}

	logger.Info("running interview pipeline", zap.String("topic", in.Project.Topic))
	if err := h.run(context.WithoutCancel(c.Request.Context()), in); err != nil {
		logger.Warn("interview pipeline failed", zap.Error(err))
		h.sendResult(c, req.ID, failedTask(taskID, err.Error()))
		return
	}
	h.sendResult(c, req.ID, completedTask(taskID, h.wizard.State()))
}

// run starts from a fresh wizard whenever an earlier run left it past
// project setup, finished or failed, so resending a request works.
func (h *Handler) run(ctx context.Context, in wizard.PipelineInput) error {
	if h.wizard.State().Step != wizard.StepProjectSetup {
		if err := h.wizard.Reset(); err != nil {
			return err
		}
	}
	return h.wizard.RunPipeline(ctx, in)
}

// ExtractInput reads the project from the first data part, or else from the
// text parts parsed as YAML (JSON is valid YAML).
func ExtractInput(msg Message) (wizard.PipelineInput, error) {
	var in wizard.PipelineInput
	var texts []string
	for _, part := range msg.Parts {
		switch part.Kind {
		case "data":
			if len(part.Data) == 0 {
				continue
			}
			if err := decodeProject(part.Data, json.Unmarshal, &in); err != nil {
				return in, err
			}
			return in, nil
		case "text":
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}
	if len(texts) == 0 {
		return in, errors.New("send the project as a data part or as YAML text")
	}
	if err := decodeProject([]byte(strings.Join(texts, "\n")), yaml.Unmarshal, &in); err != nil {
		return in, err
	}
	return in, nil
}

// decodeProject accepts either a full pipeline input or a bare project.
func decodeProject(data []byte, unmarshal func([]byte, any) error, in *wizard.PipelineInput) error {
	if err := unmarshal(data, in); err != nil {
		return fmt.Errorf("could not read project: %w", err)
	}
	if in.Project.Topic == "" {
		if err := unmarshal(data, &in.Project); err != nil {
			return fmt.Errorf("could not read project: %w", err)
		}
	}
	if missing := in.Project.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("project is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func completedTask(taskID string, s wizard.State) Task {
	return Task{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(),
			Message: &Message{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []Part{TextPart(s.FinalAnalysis)},
			},
		},
		Artifacts: []Artifact{{
			ArtifactID: uuid.NewString(),
			Name:       "Marketing Interview Report",
			Parts:      []Part{TextPart(render.Report(s))},
		}},
	}
}

func failedTask(taskID, errorMsg string) Task {
	return Task{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     StateFailed,
			Timestamp: Timestamp(),
			Message: &Message{
				Kind:   "message",
				Role:   RoleAgent,
				TaskID: taskID,
				Parts:  []Part{TextPart(errorMsg)},
			},
		},
	}
}

func (h *Handler) sendResult(c *gin.Context, id json.RawMessage, result any) {
	c.JSON(http.StatusOK, JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (h *Handler) sendError(c *gin.Context, id json.RawMessage, code int, message string) {
	h.logger.Debug("rpc error", zap.Int("code", code), zap.String("message", message))
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}
