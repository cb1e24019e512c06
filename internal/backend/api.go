package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
)

// RequiredSelection is the number of personas the backend interviews.
const RequiredSelection = 3

// Probe checks that the backend answers on its root path.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	return c.getJSON(ctx, "/", nil)
}

// DescribeProbeFailure turns a Probe error into the text shown on the
// blocking connection screen.
func DescribeProbeFailure(err error) string {
	var connErr *ConnError
	var apiErr *APIError
	switch {
	case err == nil:
		return "connected"
	case errors.As(err, &connErr):
		return connErr.Error()
	case errors.As(err, &apiErr):
		return fmt.Sprintf("backend answered with status %d: %s", apiErr.StatusCode, apiErr.Detail)
	default:
		return fmt.Sprintf("connection check failed: %v", err)
	}
}

func (c *Client) GeneratePersonas(ctx context.Context, project models.ProjectInfo, count int, characteristics string) (*PersonasResponse, error) {
	if missing := project.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("project info incomplete: missing %s", strings.Join(missing, ", "))
	}
	if count <= 0 {
		return nil, fmt.Errorf("persona count must be positive, got %d", count)
	}

	req := generatePersonasRequest{
		ProjectInfo:            project,
		PersonaCount:           count,
		PersonaCharacteristics: strings.TrimSpace(characteristics),
	}
	var resp PersonasResponse
	if err := c.postJSON(ctx, "/api/generate-personas", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SelectPersonas(ctx context.Context, ids []int) error {
	if len(ids) != RequiredSelection {
		return fmt.Errorf("exactly %d personas must be selected, got %d", RequiredSelection, len(ids))
	}
	return c.postJSON(ctx, "/api/select-personas", selectPersonasRequest{SelectedIndices: ids}, nil)
}

func (c *Client) DefaultQuestions(ctx context.Context, topic string) ([]string, error) {
	path := "/api/default-questions"
	if t := strings.TrimSpace(topic); t != "" {
		path += "?" + url.Values{"topic": {t}}.Encode()
	}
	var resp questionsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

func (c *Client) ConductInterview(ctx context.Context, personaIndex int, questions []string, hypothesisPhase bool) (*InterviewResponse, error) {
	req := interviewRequest{
		PersonaIndex:      personaIndex,
		Questions:         questions,
		IsHypothesisPhase: hypothesisPhase,
	}
	var resp InterviewResponse
	if err := c.postJSON(ctx, "/api/conduct-interview", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConductHypothesisInterview(ctx context.Context, personaIndex int, questions []string) (*InterviewResponse, error) {
	req := interviewRequest{
		PersonaIndex:      personaIndex,
		Questions:         questions,
		IsHypothesisPhase: true,
	}
	var resp InterviewResponse
	if err := c.postJSON(ctx, "/api/conduct-hypothesis-interview", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GenerateAnalysis(ctx context.Context) (*AnalysisResponse, error) {
	var resp AnalysisResponse
	if err := c.postJSON(ctx, "/api/generate-analysis", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateHypothesis fills AdditionalQuestions from the free text when the
// backend did not return them as a list.
func (c *Client) GenerateHypothesis(ctx context.Context) (*HypothesisResponse, error) {
	var resp HypothesisResponse
	if err := c.postJSON(ctx, "/api/generate-hypothesis", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.AdditionalQuestions) == 0 {
		resp.AdditionalQuestions = ExtractQuestions(resp.HypothesisAndQuestions)
	}
	return &resp, nil
}

func (c *Client) GenerateFinalAnalysis(ctx context.Context) (*FinalAnalysisResponse, error) {
	var resp FinalAnalysisResponse
	if err := c.postJSON(ctx, "/api/generate-final-analysis", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GenerateInterviewSummary(ctx context.Context) ([]models.PersonaSummary, error) {
	var resp summaryResponse
	if err := c.postJSON(ctx, "/api/generate-interview-summary", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summaries, nil
}

// UploadQuestions sends a spreadsheet for the backend to parse.
func (c *Client) UploadQuestions(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var resp UploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/upload-excel-questions", &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SaveHistory(ctx context.Context) (*SaveHistoryResponse, error) {
	var resp SaveHistoryResponse
	if err := c.postJSON(ctx, "/api/interview-history", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	var resp historyListResponse
	if err := c.getJSON(ctx, "/api/interview-history", &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

func (c *Client) GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrHistoryNotFound
	}

	var raw json.RawMessage
	err := c.getJSON(ctx, "/api/interview-history/"+url.PathEscape(id), &raw)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrHistoryNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var rec models.HistoryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse history record: %w", err)
	}
	rec.Raw = raw
	return &rec, nil
}

func (c *Client) SessionStatus(ctx context.Context) (*SessionStatus, error) {
	var resp SessionStatus
	if err := c.getJSON(ctx, "/api/session-status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
