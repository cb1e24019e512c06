// Package fakebackend is a scripted, in-memory stand-in for the persona
// interview service. It keeps the same per-session state the real service
// keeps and answers 400 when operations arrive out of order, so tests can
// assert the client never violates the protocol.
package fakebackend

import (
	"bufio"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var personaNames = []string{
	"Aiko Tanaka", "Ben Carter", "Chloe Martin", "Daniel Okafor",
	"Emma Schulz", "Farid Haddad", "Grace Liu", "Hiro Sato",
}

type failure struct {
	path    string
	persona int // -1 matches any persona
	status  int
	detail  string
	sticky  bool
}

type Server struct {
	// InterviewDelay is slept inside every interview call.
	InterviewDelay time.Duration
	// DuplicateNames makes every generated persona share one name.
	DuplicateNames bool

	// NoHypothesisQuestions makes the hypothesis come back without questions.
	NoHypothesisQuestions bool

	mu          sync.Mutex
	engine      *gin.Engine
	failures    []failure
	calls       []string
	violations  []string
	topic       string
	personas    []models.Persona
	selected    []int
	interviewed map[int]bool
	hypInterv   map[int]bool
	analysis    bool
	hypothesis  bool
	final       bool
	history     []models.HistoryRecord
}

func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		interviewed: make(map[int]bool),
		hypInterv:   make(map[int]bool),
	}

	r := gin.New()
	r.Use(s.record)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "persona interview API"})
	})
	r.POST("/api/generate-personas", s.generatePersonas)
	r.POST("/api/select-personas", s.selectPersonas)
	r.GET("/api/default-questions", s.defaultQuestions)
	r.POST("/api/conduct-interview", s.conductInterview(false))
	r.POST("/api/conduct-hypothesis-interview", s.conductInterview(true))
	r.POST("/api/generate-analysis", s.generateAnalysis)
	r.POST("/api/generate-hypothesis", s.generateHypothesis)
	r.POST("/api/generate-final-analysis", s.generateFinalAnalysis)
	r.POST("/api/generate-interview-summary", s.interviewSummary)
	r.POST("/api/upload-excel-questions", s.uploadQuestions)
	r.POST("/api/interview-history", s.saveHistory)
	r.GET("/api/interview-history", s.listHistory)
	r.GET("/api/interview-history/:id", s.getHistory)
	r.GET("/api/session-status", s.sessionStatus)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// FailNext makes the next call to path answer with status and detail.
func (s *Server) FailNext(path string, status int, detail string) {
	s.inject(failure{path: path, persona: -1, status: status, detail: detail})
}

// FailAlways makes every call to path fail until Heal.
func (s *Server) FailAlways(path string, status int, detail string) {
	s.inject(failure{path: path, persona: -1, status: status, detail: detail, sticky: true})
}

// FailPersona makes the next interview call for personaIndex fail.
func (s *Server) FailPersona(path string, personaIndex, status int, detail string) {
	s.inject(failure{path: path, persona: personaIndex, status: status, detail: detail})
}

func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Calls returns the request paths seen so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Violations returns the protocol errors the fake answered with.
func (s *Server) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.violations...)
}

func (s *Server) inject(f failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.calls = append(s.calls, c.Request.URL.Path)
	s.mu.Unlock()
	c.Next()
}

// takeFailure must be called with s.mu held.
func (s *Server) takeFailure(path string, persona int) (failure, bool) {
	for i, f := range s.failures {
		if f.path != path {
			continue
		}
		if f.persona >= 0 && f.persona != persona {
			continue
		}
		if !f.sticky {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
		}
		return f, true
	}
	return failure{}, false
}

// failIfScripted must be called with s.mu held.
func (s *Server) failIfScripted(c *gin.Context, persona int) bool {
	f, ok := s.takeFailure(c.FullPath(), persona)
	if !ok {
		return false
	}
	c.JSON(f.status, gin.H{"detail": f.detail})
	return true
}

// reject must be called with s.mu held.
func (s *Server) reject(c *gin.Context, detail string) {
	s.violations = append(s.violations, c.FullPath()+": "+detail)
	c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
}

func (s *Server) generatePersonas(c *gin.Context) {
	var req struct {
		ProjectInfo  models.ProjectInfo `json:"project_info"`
		PersonaCount int                `json:"persona_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if strings.TrimSpace(req.ProjectInfo.Topic) == "" {
		s.reject(c, "topic is required")
		return
	}

	count := req.PersonaCount
	if count <= 0 {
		count = 5
	}
	s.resetSession()
	s.topic = req.ProjectInfo.Topic
	var raw strings.Builder
	for i := 0; i < count; i++ {
		name := personaNames[i%len(personaNames)]
		if s.DuplicateNames {
			name = personaNames[0]
		}
		p := models.Persona{
			ID:   i,
			Name: name,
			Details: map[string]string{
				"age":        strconv.Itoa(25 + i*7),
				"occupation": fmt.Sprintf("occupation %d", i+1),
				"interest":   req.ProjectInfo.Topic,
			},
		}
		s.personas = append(s.personas, p)
		fmt.Fprintf(&raw, "Persona %d: %s\n", i+1, name)
	}

	c.JSON(http.StatusOK, gin.H{"personas": s.personas, "raw_text": raw.String()})
}

// resetSession must be called with s.mu held.
func (s *Server) resetSession() {
	s.personas = nil
	s.selected = nil
	s.interviewed = make(map[int]bool)
	s.hypInterv = make(map[int]bool)
	s.analysis = false
	s.hypothesis = false
	s.final = false
}

func (s *Server) selectPersonas(c *gin.Context) {
	var req struct {
		SelectedIndices []int `json:"selected_indices"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if len(s.personas) == 0 {
		s.reject(c, "personas have not been generated")
		return
	}
	if len(req.SelectedIndices) != 3 {
		s.reject(c, "select exactly 3 personas")
		return
	}
	for _, idx := range req.SelectedIndices {
		if idx < 0 || idx >= len(s.personas) {
			s.reject(c, fmt.Sprintf("persona %d does not exist", idx))
			return
		}
	}
	s.selected = append([]int(nil), req.SelectedIndices...)
	s.interviewed = make(map[int]bool)
	s.hypInterv = make(map[int]bool)
	s.analysis, s.hypothesis, s.final = false, false, false

	c.JSON(http.StatusOK, gin.H{"message": "personas selected"})
}

func (s *Server) defaultQuestions(c *gin.Context) {
	topic := strings.TrimSpace(c.Query("topic"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}

	subject := "this service"
	if topic != "" {
		subject = topic
	}
	questions := []string{
		"Please introduce yourself briefly.",
		fmt.Sprintf("How do you currently use %s?", subject),
		fmt.Sprintf("What frustrates you about %s?", subject),
		fmt.Sprintf("How much would you pay for %s?", subject),
		fmt.Sprintf("What would make you recommend %s to a friend?", subject),
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) conductInterview(hypothesisEndpoint bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PersonaIndex      int      `json:"persona_index"`
			Questions         []string `json:"questions"`
			IsHypothesisPhase bool     `json:"is_hypothesis_phase"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		if s.InterviewDelay > 0 {
			time.Sleep(s.InterviewDelay)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failIfScripted(c, req.PersonaIndex) {
			return
		}
		if len(s.selected) == 0 {
			s.reject(c, "no personas selected")
			return
		}
		if req.PersonaIndex < 0 || req.PersonaIndex >= len(s.selected) {
			s.reject(c, fmt.Sprintf("persona index %d out of range", req.PersonaIndex))
			return
		}
		if hypothesisEndpoint && !s.hypothesis {
			s.reject(c, "hypothesis has not been generated")
			return
		}
		if len(req.Questions) == 0 {
			s.reject(c, "no questions given")
			return
		}

		persona := s.personas[s.selected[req.PersonaIndex]]
		results := make([]models.InterviewResult, 0, len(req.Questions))
		for _, q := range req.Questions {
			results = append(results, models.InterviewResult{
				Question:   q,
				MainAnswer: fmt.Sprintf("%s answers: %s", persona.Name, q),
				FollowUps: []models.FollowUp{
					{Question: "Could you tell me more about that?", Answer: "Sure, " + persona.Name + " elaborates."},
					{Question: "How did that make you feel?", Answer: "It felt important."},
				},
			})
		}
		if hypothesisEndpoint {
			s.hypInterv[req.PersonaIndex] = true
		} else {
			s.interviewed[req.PersonaIndex] = true
		}

		c.JSON(http.StatusOK, gin.H{
			"persona_name":      persona.Name,
			"interview_results": results,
			"message":           "interview completed",
		})
	}
}

func (s *Server) stats() gin.H {
	return gin.H{"elapsed_time": 12.5, "input_chars": 1200, "output_chars": 3400, "estimated_cost": 0.0004}
}

func (s *Server) generateAnalysis(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if len(s.interviewed) < len(s.selected) || len(s.selected) == 0 {
		s.reject(c, "no interview data")
		return
	}
	s.analysis = true
	c.JSON(http.StatusOK, gin.H{
		"summaries": s.summaries(),
		"analysis":  fmt.Sprintf("Insight analysis for %s.", s.topic),
		"stats":     s.stats(),
	})
}

// summaries must be called with s.mu held.
func (s *Server) summaries() map[string]string {
	out := make(map[string]string, len(s.selected))
	for _, idx := range s.selected {
		name := s.personas[idx].Name
		out[name] = "Summary of " + name
	}
	return out
}

func (s *Server) generateHypothesis(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if !s.analysis {
		s.reject(c, "analysis has not been generated")
		return
	}
	s.hypothesis = true
	if s.NoHypothesisQuestions {
		c.JSON(http.StatusOK, gin.H{
			"summaries":                s.summaries(),
			"initial_analysis":         fmt.Sprintf("Insight analysis for %s.", s.topic),
			"hypothesis_and_questions": "Hypothesis: price matters most.",
			"additional_questions":     []string{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summaries":                s.summaries(),
		"initial_analysis":         fmt.Sprintf("Insight analysis for %s.", s.topic),
		"hypothesis_and_questions": "Hypothesis: price matters most.\n1. Would a cheaper plan change your mind?\n2. What would you cut first?",
		"additional_questions":     []string{"Would a cheaper plan change your mind?", "What would you cut first?"},
	})
}

func (s *Server) generateFinalAnalysis(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if len(s.hypInterv) < len(s.selected) || len(s.selected) == 0 {
		s.reject(c, "hypothesis interviews have not been conducted")
		return
	}
	s.final = true
	c.JSON(http.StatusOK, gin.H{
		"final_summaries": s.summaries(),
		"final_analysis":  fmt.Sprintf("Final strategy for %s.", s.topic),
		"stats":           s.stats(),
	})
}

func (s *Server) interviewSummary(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if len(s.interviewed) == 0 {
		s.reject(c, "no interview data")
		return
	}
	var out []models.PersonaSummary
	for _, idx := range s.selected {
		name := s.personas[idx].Name
		out = append(out, models.PersonaSummary{
			PersonaName:      name,
			MainFindings:     name + " values convenience.",
			MainImplications: "Lead with time savings.",
		})
	}
	c.JSON(http.StatusOK, gin.H{"summaries": out})
}

func (s *Server) uploadQuestions(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".xlsx", ".xls", ".csv":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unsupported file format: " + fh.Filename})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()

	var questions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "no questions found in file"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions, "count": len(questions), "message": "questions loaded"})
}

func (s *Server) saveHistory(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	if !s.final {
		s.reject(c, "nothing to save yet")
		return
	}
	rec := models.HistoryRecord{
		HistoryEntry: models.HistoryEntry{
			ID:           uuid.New().String(),
			Topic:        s.topic,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			ProductCount: 1,
		},
		FinalAnalysis: fmt.Sprintf("Final strategy for %s.", s.topic),
	}
	for _, idx := range s.selected {
		rec.PersonaNames = append(rec.PersonaNames, s.personas[idx].Name)
	}
	s.history = append(s.history, rec)
	c.JSON(http.StatusOK, gin.H{"message": "saved", "history_id": rec.ID})
}

func (s *Server) listHistory(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	entries := make([]models.HistoryEntry, 0, len(s.history))
	for _, h := range s.history {
		entries = append(entries, h.HistoryEntry)
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (s *Server) getHistory(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIfScripted(c, -1) {
		return
	}
	for _, h := range s.history {
		if h.ID == id {
			c.JSON(http.StatusOK, h)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "history not found"})
}

func (s *Server) sessionStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type ref struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	personas := make([]ref, 0, len(s.personas))
	for _, p := range s.personas {
		personas = append(personas, ref{ID: p.ID, Name: p.Name})
	}
	selected := make([]ref, 0, len(s.selected))
	for _, idx := range s.selected {
		selected = append(selected, ref{ID: idx, Name: s.personas[idx].Name})
	}
	c.JSON(http.StatusOK, gin.H{
		"has_personas":           len(s.personas) > 0,
		"has_selected_personas":  len(s.selected) > 0,
		"selected_persona_count": len(s.selected),
		"personas":               personas,
		"selected_personas":      selected,
	})
}
