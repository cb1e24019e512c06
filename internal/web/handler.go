// Package web serves the wizard as a local JSON API.
//
// Every wizard handler has one endpoint. Long running endpoints answer when
// the operation has finished; a client polls GET /api/wizard/progress from
// a second connection meanwhile. Operations are not tied to the request
// that started them, so a dropped connection does not abort a run.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/desktop"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
	"github.com/BerylCAtieno/persona-interviewer/internal/render"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

// Backend is what the service reads from the interview backend directly.
type Backend interface {
	Probe(ctx context.Context) error
	ListHistory(ctx context.Context) ([]models.HistoryEntry, error)
	GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error)
	SessionStatus(ctx context.Context) (*backend.SessionStatus, error)
}

type Handler struct {
	wizard     *wizard.Controller
	backend    Backend
	settings   *desktop.Store
	reportsDir string
	logger     *zap.Logger
	now        func() time.Time
}

func NewHandler(w *wizard.Controller, b Backend, settings *desktop.Store, reportsDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		wizard:     w,
		backend:    b,
		settings:   settings,
		reportsDir: reportsDir,
		logger:     logger,
		now:        time.Now,
	}
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogging(h.logger))
	h.Register(r)
	return r
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.GET("/backend", h.backendStatus)
	api.GET("/history", h.listHistory)
	api.GET("/history/:id", h.getHistory)

	w := api.Group("/wizard")
	w.GET("", h.state)
	w.GET("/progress", h.progress)
	w.POST("/project", h.setProject)
	w.POST("/personas/generate", h.longRunning(h.wizard.GeneratePersonas))
	w.POST("/personas/:id/toggle", h.togglePersona)
	w.PUT("/personas/selection", h.selectPersonas)
	w.POST("/interview/start", h.longRunning(h.wizard.StartInterview))
	w.PUT("/questions", h.setQuestions)
	w.POST("/questions", h.addQuestion)
	w.DELETE("/questions", h.clearQuestions)
	w.PATCH("/questions/:index", h.editQuestion)
	w.DELETE("/questions/:index", h.removeQuestion)
	w.POST("/questions/reload", h.longRunning(h.wizard.ReloadDefaultQuestions))
	w.POST("/questions/upload", h.uploadQuestions)
	w.POST("/interview", h.longRunning(h.wizard.ConductInterview))
	w.POST("/analysis", h.longRunning(h.wizard.GenerateAnalysis))
	w.POST("/hypothesis", h.longRunning(h.wizard.GenerateHypothesis))
	w.PUT("/hypothesis/questions", h.setAdditionalQuestions)
	w.POST("/hypothesis-interview", h.longRunning(h.wizard.ConductHypothesisInterview))
	w.POST("/final-analysis", h.longRunning(h.wizard.GenerateFinalAnalysis))
	w.POST("/additional-interview", h.additionalInterview)
	w.POST("/summaries", h.longRunning(h.wizard.GenerateSummaries))
	w.POST("/history", h.saveHistory)
	w.POST("/reset", h.reset)
	w.POST("/run", h.run)

	app := api.Group("/app")
	app.GET("/version", h.version)
	app.GET("/settings", h.getSettings)
	app.PUT("/settings", h.putSettings)
	app.POST("/report", h.saveReport)
}

type stateResponse struct {
	State    wizard.State    `json:"state"`
	Progress progress.Update `json:"progress"`
	Busy     bool            `json:"busy"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *Handler) stateResponse() stateResponse {
	update, _ := h.wizard.Progress()
	return stateResponse{State: h.wizard.State(), Progress: update, Busy: h.wizard.Busy()}
}

func (h *Handler) respond(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := wizard.KindOf(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, backend.ErrHistoryNotFound):
		status, kind = http.StatusNotFound, wizard.KindBackend
	case kind == wizard.KindValidation:
		status = http.StatusBadRequest
	case kind == wizard.KindOutOfOrder, kind == wizard.KindBusy:
		status = http.StatusConflict
	case kind == wizard.KindOverload:
		status = http.StatusServiceUnavailable
	case kind == wizard.KindConnectivity, kind == wizard.KindBackend:
		status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

func badRequest(op string, err error) error {
	return &wizard.Error{Kind: wizard.KindValidation, Op: op, Err: err}
}

// detached keeps the operation running if the client goes away.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) longRunning(fn func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.respond(c, fn(detached(c)))
	}
}

func (h *Handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *Handler) progress(c *gin.Context) {
	update, active := h.wizard.Progress()
	c.JSON(http.StatusOK, gin.H{"percent": update.Percent, "message": update.Message, "active": active})
}

func (h *Handler) backendStatus(c *gin.Context) {
	err := h.backend.Probe(c.Request.Context())
	resp := gin.H{"connected": err == nil, "message": backend.DescribeProbeFailure(err)}
	var connErr *backend.ConnError
	if errors.As(err, &connErr) {
		resp["kind"] = connErr.Kind
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) setProject(c *gin.Context) {
	var in wizard.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("save project", err))
		return
	}
	h.respond(c, h.wizard.SetProject(detached(c), in))
}

func (h *Handler) togglePersona(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.fail(c, badRequest("toggle persona", err))
		return
	}
	h.respond(c, h.wizard.TogglePersona(id))
}

func (h *Handler) selectPersonas(c *gin.Context) {
	var req struct {
		IDs []int `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("select personas", err))
		return
	}
	h.respond(c, h.wizard.SelectPersonas(req.IDs))
}

type questionsRequest struct {
	Questions []string `json:"questions" binding:"required"`
}

type questionRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) setQuestions(c *gin.Context) {
	var req questionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("edit questions", err))
		return
	}
	h.respond(c, h.wizard.SetQuestions(req.Questions))
}

func (h *Handler) setAdditionalQuestions(c *gin.Context) {
	var req questionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("edit hypothesis questions", err))
		return
	}
	h.respond(c, h.wizard.SetAdditionalQuestions(req.Questions))
}

func (h *Handler) addQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("edit questions", err))
		return
	}
	h.respond(c, h.wizard.AddQuestion(req.Text))
}

func (h *Handler) clearQuestions(c *gin.Context) {
	h.respond(c, h.wizard.ClearQuestions())
}

func (h *Handler) editQuestion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.fail(c, badRequest("edit questions", err))
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("edit questions", err))
		return
	}
	h.respond(c, h.wizard.EditQuestion(index, req.Text))
}

func (h *Handler) removeQuestion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.fail(c, badRequest("edit questions", err))
		return
	}
	h.respond(c, h.wizard.RemoveQuestion(index))
}

func (h *Handler) uploadQuestions(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, badRequest("upload questions", errors.New("multipart field \"file\" is required")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, badRequest("upload questions", err))
		return
	}
	defer f.Close()
	h.respond(c, h.wizard.UploadQuestions(detached(c), fh.Filename, f))
}

func (h *Handler) additionalInterview(c *gin.Context) {
	var req questionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("conduct additional interview", err))
		return
	}
	h.respond(c, h.wizard.ConductAdditionalInterview(detached(c), req.Questions))
}

func (h *Handler) saveHistory(c *gin.Context) {
	id, err := h.wizard.SaveHistory(detached(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history_id": id})
}

func (h *Handler) reset(c *gin.Context) {
	h.respond(c, h.wizard.Reset())
}

func (h *Handler) run(c *gin.Context) {
	var in wizard.PipelineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("run interview pipeline", err))
		return
	}
	h.respond(c, h.wizard.RunPipeline(detached(c), in))
}

func (h *Handler) listHistory(c *gin.Context) {
	entries, err := h.backend.ListHistory(c.Request.Context())
	if err != nil {
		h.fail(c, wizard.Classify("list history", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) getHistory(c *gin.Context) {
	rec, err := h.backend.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, wizard.Classify("load history", err))
		return
	}
	if len(rec.Raw) > 0 {
		c.Data(http.StatusOK, "application/json; charset=utf-8", rec.Raw)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) version(c *gin.Context) {
	c.JSON(http.StatusOK, desktop.Info())
}

func (h *Handler) getSettings(c *gin.Context) {
	s, err := h.settings.Load()
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "settings"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) putSettings(c *gin.Context) {
	var s desktop.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		h.fail(c, badRequest("save settings", err))
		return
	}
	if err := s.Validate(); err != nil {
		h.fail(c, badRequest("save settings", err))
		return
	}
	if err := h.settings.Save(s); err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "settings"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) saveReport(c *gin.Context) {
	s := h.wizard.State()
	if s.Step != wizard.StepFinalAnalysis {
		h.fail(c, &wizard.Error{Kind: wizard.KindOutOfOrder, Op: "save report", Err: errors.New("the final analysis is not ready")})
		return
	}
	path, err := desktop.SaveReport(h.reportsDir, s.Project.Topic, render.Report(s), h.now())
	if err != nil {
		h.logger.Error("failed to save report", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}
