package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"alfredoptarigan/comparecv/internal/models"
)

const sampleJobDescription = "Desenvolvedor Backend Go sênior com experiência em PostgreSQL, Docker e Kubernetes."

type fakeGemini struct {
	mu        sync.Mutex
	text      string
	usage     *models.TokenUsage
	err       error
	calls     int
	lastReq   *AnalysisRequest
	block     chan struct{}
	embedding []float32
}

func (f *fakeGemini) GenerateAnalysis(ctx context.Context, req *AnalysisRequest) (*LLMResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return &LLMResponse{Text: f.text, Usage: f.usage}, nil
}

func (f *fakeGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.embedding, nil
}

func (f *fakeGemini) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newCandidate(id, name string, isResume bool, score float64) models.Candidate {
	c := models.Candidate{
		ID:                id,
		Name:              name,
		IsResume:          isResume,
		MatchScore:        score,
		TechnicalFit:      score,
		PotentialFit:      score,
		Summary:           "Resumo do candidato.",
		YearsOfExperience: 5,
		Pros:              []string{"Experiência com Go"},
		Cons:              []string{},
		InferredInfo: models.InferredInfo{
			SalaryExpectation:     models.InsufficientData,
			Availability:          models.InsufficientData,
			WorkModel:             "Remoto",
			PerceivedSeniority:    "Sênior",
			SelfReportedSeniority: "Sênior",
			AverageTenure:         "3 anos",
			Languages: []models.LanguageSkill{
				{Language: "Inglês", Proficiency: "Avançado", Justification: "Experiência internacional."},
			},
			KeyTools:       []string{"Go", "Docker"},
			Certifications: []string{},
		},
		SoftSkills: []models.SoftSkill{
			{Skill: "Comunicação", Score: 80, Reasoning: "Apresentações em eventos."},
			{Skill: "Clareza na Escrita", Score: 0, Reasoning: models.InsufficientData},
		},
		CulturalFit: models.CulturalFit{
			Score:       70,
			Reasoning:   "Foco em entregas.",
			Orientation: models.OrientationResults,
		},
		RedFlags: []string{},
		GapAnalysis: []models.SkillGap{
			{SkillName: "Kubernetes", Type: models.GapMedium, Impact: models.ImpactMedium},
		},
	}
	if !isResume {
		c.NotResumeReason = "O arquivo é uma receita de bolo."
		c.MatchScore, c.TechnicalFit, c.PotentialFit = 0, 0, 0
	}
	return c
}

func newResult(candidates ...models.Candidate) *models.AnalysisResult {
	best := ""
	if len(candidates) > 0 {
		best = candidates[0].ID
	}
	return &models.AnalysisResult{
		IsJobDescriptionValid: true,
		Candidates:            candidates,
		MarketSummary:         "Mercado aquecido para Go.",
		Recommendation:        "Entrevistar o primeiro candidato.",
		BestCandidateID:       best,
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func newDocs(names ...string) []models.CandidateDocument {
	docs := make([]models.CandidateDocument, 0, len(names))
	for _, n := range names {
		docs = append(docs, models.NewCandidateDocument(n, models.MIMETypePDF, []byte("%PDF-1.4 "+n)))
	}
	return docs
}

func incomingFromBytes(fileName, mimeType string, data []byte) IncomingFile {
	return IncomingFile{
		FileName:  fileName,
		MIMEType:  mimeType,
		SizeBytes: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
