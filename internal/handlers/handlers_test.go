package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/comparecv/internal/middleware"
	"alfredoptarigan/comparecv/internal/models"
	"alfredoptarigan/comparecv/internal/repositories"
	"alfredoptarigan/comparecv/internal/services"
)

const (
	testSecret         = "handler-test-secret"
	testJobDescription = "Desenvolvedor Backend Go sênior com experiência em PostgreSQL, Docker e Kubernetes."
)

type stubGemini struct {
	text string
	err  error
}

func (s *stubGemini) GenerateAnalysis(ctx context.Context, req *services.AnalysisRequest) (*services.LLMResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.LLMResponse{Text: s.text, Usage: &models.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func (s *stubGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type stubHistory struct {
	rows []models.AnalysisHistory
}

func (s *stubHistory) SaveAnalysisHistory(jobDescription string, result *models.AnalysisResult, user *models.User) {
	history, err := services.BuildHistory(jobDescription, result, user)
	if err == nil {
		s.rows = append(s.rows, *history)
	}
}

func (s *stubHistory) List(userID string, limit int) ([]models.AnalysisHistory, error) {
	out := []models.AnalysisHistory{}
	for _, r := range s.rows {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubHistory) Get(id uuid.UUID) (*models.AnalysisHistory, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, repositories.ErrHistoryNotFound
}

func (s *stubHistory) FindSimilar(ctx context.Context, query string, userID string, limit int) ([]models.SimilarAnalysis, error) {
	return nil, errors.New("similarity search is not configured")
}

func (s *stubHistory) Wait() {}

func candidate(id, name string, isResume bool, score float64) models.Candidate {
	c := models.Candidate{
		ID: id, Name: name, IsResume: isResume,
		MatchScore: score, TechnicalFit: score, PotentialFit: score,
		Summary: "Resumo.", Pros: []string{}, Cons: []string{},
		InferredInfo: models.InferredInfo{
			SalaryExpectation: models.InsufficientData, Availability: models.InsufficientData,
			WorkModel: models.InsufficientData, PerceivedSeniority: "Pleno",
			SelfReportedSeniority: models.InsufficientData, AverageTenure: models.InsufficientData,
			Languages: []models.LanguageSkill{}, KeyTools: []string{}, Certifications: []string{},
		},
		SoftSkills:  []models.SoftSkill{},
		CulturalFit: models.CulturalFit{Score: 50, Reasoning: "Equilíbrio.", Orientation: models.OrientationPeople},
		RedFlags:    []string{},
		GapAnalysis: []models.SkillGap{},
	}
	if !isResume {
		c.NotResumeReason = "Não é um currículo."
	}
	return c
}

func responseJSON(t *testing.T, result *models.AnalysisResult) string {
	t.Helper()
	b, err := json.Marshal(result)
	require.NoError(t, err)
	return string(b)
}

func setupApp(t *testing.T, gemini *stubGemini) (*fiber.App, *stubHistory) {
	t.Helper()
	return setupAppWithAuth(t, gemini, false)
}

func setupAppWithAuth(t *testing.T, gemini *stubGemini, authRequired bool) (*fiber.App, *stubHistory) {
	t.Helper()

	client, err := services.NewAnalysisClient(gemini, time.Second)
	require.NoError(t, err)

	history := &stubHistory{}
	store := services.NewSessionStore(services.NewIngestionService(10, 5*1024*1024, false), client, nil, history, 50, time.Hour)

	router := &Router{
		Auth:    middleware.NewAuth(testSecret, authRequired),
		Session: NewSessionHandler(store),
		Analyze: NewAnalyzeHandler(store),
		History: NewHistoryHandler(history, authRequired),
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	router.Register(app)
	return app, history
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Email:            userID + "@empresa.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func pdf(name string) upload {
	return upload{name: name, contentType: "application/pdf", data: []byte("%PDF-1.4\n" + name)}
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := do(t, app, httptest.NewRequest("POST", "/api/v1/sessions", nil))
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "idle", body["state"])
	return body["id"].(string)
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})

	status, body := do(t, app, httptest.NewRequest("GET", "/api/v1/health", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestSessionFlow_Displayed(t *testing.T) {
	result := &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates: []models.Candidate{
			candidate("c1", "Receita", false, 0),
			candidate("c2", "Ana", true, 90),
			candidate("c3", "Bruno", true, 40),
		},
		Recommendation:  "Entrevistar Ana.",
		BestCandidateID: "c2",
	}
	app, history := setupApp(t, &stubGemini{text: responseJSON(t, result)})
	id := createSession(t, app)

	status, _ := do(t, app, jsonRequest("PUT", "/api/v1/sessions/"+id+"/job-description", `{"job_description":"`+testJobDescription+`"}`))
	require.Equal(t, fiber.StatusOK, status)

	body, contentType := multipartBody(t, nil, pdf("receita.pdf"), pdf("ana.pdf"), pdf("bruno.pdf"), upload{name: "foto.png", contentType: "image/png", data: []byte("\x89PNG")})
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/files", body)
	req.Header.Set("Content-Type", contentType)
	status, resp := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, resp["notices"], 1)
	assert.Len(t, resp["session"].(map[string]any)["documents"], 3)

	req = httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/analyze", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	status, resp = do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "displayed", resp["state"])

	report := resp["report"].(map[string]any)
	assert.Len(t, report["invalid_files"], 1)
	assert.Len(t, report["high_match"], 1)
	assert.Len(t, report["low_match"], 1)
	best := report["best_candidate"].(map[string]any)["candidate"].(map[string]any)
	assert.Equal(t, 90.0, best["matchScore"])
	assert.Equal(t, 15.0, report["token_usage"].(map[string]any)["totalTokens"])

	require.Len(t, history.rows, 1)
	require.NotNil(t, history.rows[0].UserID)
	assert.Equal(t, "user-1", *history.rows[0].UserID)

	// Inputs are frozen once displayed.
	status, _ = do(t, app, jsonRequest("PUT", "/api/v1/sessions/"+id+"/job-description", `{"job_description":"outra"}`))
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp = do(t, app, httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/reset", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "idle", resp["state"])
	assert.Empty(t, resp["documents"])
}

func TestSessionFlow_ShortJobDescription(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})
	id := createSession(t, app)

	status, _ := do(t, app, jsonRequest("PUT", "/api/v1/sessions/"+id+"/job-description", `{"job_description":"Vaga curta"}`))
	require.Equal(t, fiber.StatusOK, status)

	status, resp := do(t, app, httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/analyze", nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Len(t, resp["problems"], 2)
}

func TestSessionFlow_FailureThenRetry(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{err: errors.New("network unreachable")})
	id := createSession(t, app)

	do(t, app, jsonRequest("PUT", "/api/v1/sessions/"+id+"/job-description", `{"job_description":"`+testJobDescription+`"}`))
	body, contentType := multipartBody(t, nil, pdf("ana.pdf"))
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/files", body)
	req.Header.Set("Content-Type", contentType)
	status, _ := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)

	status, resp := do(t, app, httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/analyze", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "failed", resp["state"])
	assert.Equal(t, services.MsgTechnicalFailure, resp["error_message"])
	assert.Equal(t, testJobDescription, resp["job_description"])
	assert.Len(t, resp["documents"], 1)

	status, resp = do(t, app, httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/retry", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "idle", resp["state"])
	assert.Len(t, resp["documents"], 1)

	status, resp = do(t, app, httptest.NewRequest("DELETE", "/api/v1/sessions/"+id+"/files/0", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, resp["documents"])

	status, _ = do(t, app, httptest.NewRequest("DELETE", "/api/v1/sessions/"+id+"/files/0", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSessionNotFound(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})

	status, _ := do(t, app, httptest.NewRequest("GET", "/api/v1/sessions/missing", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestOneShotAnalyze(t *testing.T) {
	result := &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates:            []models.Candidate{candidate("c1", "Ana", true, 90), candidate("c2", "Bruno", true, 40)},
		Recommendation:        "Entrevistar Ana.",
		BestCandidateID:       "c1",
	}
	app, _ := setupApp(t, &stubGemini{text: responseJSON(t, result)})

	body, contentType := multipartBody(t, map[string]string{"job_description": testJobDescription}, pdf("ana.pdf"), pdf("bruno.pdf"))
	req := httptest.NewRequest("POST", "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)

	status, resp := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	report := resp["report"].(map[string]any)
	assert.Len(t, report["ranked"], 2)
	assert.Len(t, report["high_match"], 1)
}

func TestOneShotAnalyze_NoValidResume(t *testing.T) {
	result := &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates:            []models.Candidate{candidate("c1", "Receita", false, 0)},
		Recommendation:        "Nenhum candidato.",
	}
	app, history := setupApp(t, &stubGemini{text: responseJSON(t, result)})

	body, contentType := multipartBody(t, map[string]string{"job_description": testJobDescription}, pdf("receita.pdf"))
	req := httptest.NewRequest("POST", "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)

	status, resp := do(t, app, req)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "no_valid_resume", resp["state"])
	assert.Equal(t, services.MsgNoValidResume, resp["error"])
	assert.Empty(t, history.rows)
}

func TestOneShotAnalyze_TooManyFiles(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})

	files := make([]upload, 11)
	for i := range files {
		files[i] = pdf("cv.pdf")
	}
	body, contentType := multipartBody(t, map[string]string{"job_description": testJobDescription}, files...)
	req := httptest.NewRequest("POST", "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)

	status, resp := do(t, app, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, 10.0, resp["limit"])
}

func TestHistoryRoutes(t *testing.T) {
	result := &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates:            []models.Candidate{candidate("c1", "Ana", true, 90)},
		Recommendation:        "Entrevistar Ana.",
		BestCandidateID:       "c1",
	}
	app, history := setupApp(t, &stubGemini{text: responseJSON(t, result)})

	body, contentType := multipartBody(t, map[string]string{"job_description": testJobDescription}, pdf("ana.pdf"))
	req := httptest.NewRequest("POST", "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	status, _ := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, history.rows, 1)

	status, _ = do(t, app, httptest.NewRequest("GET", "/api/v1/history", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req = httptest.NewRequest("GET", "/api/v1/history", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	status, resp := do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1.0, resp["count"])

	path := "/api/v1/history/" + history.rows[0].ID.String()
	req = httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	status, resp = do(t, app, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ana", resp["best_candidate_name"])

	req = httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", bearer(t, "user-2"))
	status, _ = do(t, app, req)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, httptest.NewRequest("GET", "/api/v1/history/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func withUser(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	req.Header.Set("Authorization", bearer(t, userID))
	return req
}

func TestSessionOwnership(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})

	status, body := do(t, app, withUser(t, httptest.NewRequest("POST", "/api/v1/sessions", nil), "user-1"))
	require.Equal(t, fiber.StatusCreated, status)
	id := body["id"].(string)
	path := "/api/v1/sessions/" + id

	status, _ = do(t, app, withUser(t, httptest.NewRequest("GET", path, nil), "user-1"))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, withUser(t, httptest.NewRequest("GET", path, nil), "user-2"))
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = do(t, app, httptest.NewRequest("GET", path, nil))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, withUser(t, jsonRequest("PUT", path+"/job-description", `{"job_description":"`+testJobDescription+`"}`), "user-2"))
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = do(t, app, withUser(t, httptest.NewRequest("POST", path+"/analyze", nil), "user-2"))
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = do(t, app, withUser(t, httptest.NewRequest("DELETE", path, nil), "user-2"))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, resp := do(t, app, withUser(t, httptest.NewRequest("GET", path, nil), "user-1"))
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, resp["job_description"])
}

func TestDeleteSession(t *testing.T) {
	app, _ := setupApp(t, &stubGemini{})
	id := createSession(t, app)
	path := "/api/v1/sessions/" + id

	status, _ := do(t, app, httptest.NewRequest("DELETE", path, nil))
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = do(t, app, httptest.NewRequest("GET", path, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = do(t, app, httptest.NewRequest("DELETE", path, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHistoryGet_AnonymousRows(t *testing.T) {
	result := &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates:            []models.Candidate{candidate("c1", "Ana", true, 90)},
		Recommendation:        "Entrevistar Ana.",
		BestCandidateID:       "c1",
	}

	tests := []struct {
		name         string
		authRequired bool
		want         int
	}{
		{"auth optional", false, fiber.StatusOK},
		{"auth required", true, fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, history := setupAppWithAuth(t, &stubGemini{}, tt.authRequired)
			history.SaveAnalysisHistory(testJobDescription, result, nil)
			require.Len(t, history.rows, 1)

			req := withUser(t, httptest.NewRequest("GET", "/api/v1/history/"+history.rows[0].ID.String(), nil), "user-1")
			status, _ := do(t, app, req)
			assert.Equal(t, tt.want, status)
		})
	}
}
