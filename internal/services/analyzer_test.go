package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/comparecv/internal/models"
)

func newTestClient(t *testing.T, gemini *fakeGemini) AnalysisClient {
	t.Helper()
	client, err := NewAnalysisClient(gemini, time.Second)
	require.NoError(t, err)
	return client
}

func TestAnalyze_ParsesStrictJSON(t *testing.T) {
	result := newResult(newCandidate("c1", "Ana", true, 90))
	gemini := &fakeGemini{
		text:  mustJSON(t, result),
		usage: &models.TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))
	require.NoError(t, err)

	assert.Equal(t, 1, gemini.callCount())
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Ana", got.Candidates[0].Name)
	require.NotNil(t, got.TokenUsage)
	assert.Equal(t, 150, got.TokenUsage.TotalTokens)
}

func TestAnalyze_SendsDocumentsInOrder(t *testing.T) {
	gemini := &fakeGemini{text: mustJSON(t, newResult(newCandidate("c1", "Ana", true, 90), newCandidate("c2", "Bruno", true, 40)))}

	_, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("a.pdf", "b.pdf"))
	require.NoError(t, err)

	require.NotNil(t, gemini.lastReq)
	require.Len(t, gemini.lastReq.Documents, 2)
	assert.Equal(t, "a.pdf", gemini.lastReq.Documents[0].FileName)
	assert.Equal(t, "b.pdf", gemini.lastReq.Documents[1].FileName)
	assert.Contains(t, gemini.lastReq.InstructionText, sampleJobDescription)
}

func TestAnalyze_StripsMarkdownFences(t *testing.T) {
	body := mustJSON(t, newResult(newCandidate("c1", "Ana", true, 90)))
	gemini := &fakeGemini{text: "```json\n" + body + "\n```"}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "c1", got.Candidates[0].ID)
}

func TestAnalyze_DefaultsUsageToZero(t *testing.T) {
	gemini := &fakeGemini{text: mustJSON(t, newResult(newCandidate("c1", "Ana", true, 90)))}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))
	require.NoError(t, err)
	require.NotNil(t, got.TokenUsage)
	assert.Equal(t, models.TokenUsage{}, *got.TokenUsage)
}

func TestAnalyze_TransportError(t *testing.T) {
	gemini := &fakeGemini{err: errors.New("connection reset by peer")}

	_, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, MsgTechnicalFailure, UserMessage(err))
	assert.Equal(t, 1, gemini.callCount(), "no retry on transport failure")
}

func TestAnalyze_Timeout(t *testing.T) {
	gemini := &fakeGemini{block: make(chan struct{})}
	client, err := NewAnalysisClient(gemini, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze_MalformedResponses(t *testing.T) {
	valid := newResult(newCandidate("c1", "Ana", true, 90))

	withoutField := func(t *testing.T, field string) string {
		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(mustJSON(t, valid)), &raw))
		delete(raw, field)
		return mustJSON(t, raw)
	}

	withCandidate := func(t *testing.T, mutate func(c map[string]any)) string {
		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(mustJSON(t, valid)), &raw))
		c := raw["candidates"].([]any)[0].(map[string]any)
		mutate(c)
		return mustJSON(t, raw)
	}

	tests := []struct {
		name  string
		text  func(t *testing.T) string
		field string
	}{
		{"empty", func(t *testing.T) string { return "   " }, ""},
		{"not json", func(t *testing.T) string { return "Desculpe, não consigo ajudar." }, ""},
		{"truncated", func(t *testing.T) string { return "```json\n{\"candidates\": [" }, ""},
		{"missing recommendation", func(t *testing.T) string { return withoutField(t, "recommendation") }, "recommendation"},
		{"missing candidates", func(t *testing.T) string { return withoutField(t, "candidates") }, "candidates"},
		{"null recommendation", func(t *testing.T) string {
			var raw map[string]any
			require.NoError(t, json.Unmarshal([]byte(mustJSON(t, valid)), &raw))
			raw["recommendation"] = nil
			return mustJSON(t, raw)
		}, "recommendation"},
		{"missing candidate id", func(t *testing.T) string {
			return withCandidate(t, func(c map[string]any) { delete(c, "id") })
		}, "candidates.0.id"},
		{"score out of range", func(t *testing.T) string {
			return withCandidate(t, func(c map[string]any) { c["matchScore"] = 140 })
		}, "candidates.0.matchScore"},
		{"wrong type", func(t *testing.T) string {
			return withCandidate(t, func(c map[string]any) { c["isResume"] = "sim" })
		}, "candidates.0.isResume"},
		{"orientation outside enum", func(t *testing.T) string {
			return withCandidate(t, func(c map[string]any) {
				c["culturalFit"].(map[string]any)["orientation"] = "Dinheiro"
			})
		}, "candidates.0.culturalFit.orientation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gemini := &fakeGemini{text: tt.text(t)}

			_, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))

			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, MsgTechnicalFailure, UserMessage(err))

			if tt.field != "" {
				fields := make([]string, 0, len(malformed.Fields))
				for _, f := range malformed.Fields {
					fields = append(fields, f.Field)
				}
				assert.Contains(t, fields, tt.field)
			}
		})
	}
}

func TestAnalyze_AcceptsNullOptionalFields(t *testing.T) {
	gemini := &fakeGemini{text: `{"isJobDescriptionValid":false,"jobDescriptionFeedback":null,"candidates":[],"recommendation":"","bestCandidateId":null}`}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))
	require.NoError(t, err)
	assert.Empty(t, got.JobDescriptionFeedback)
	assert.Empty(t, got.BestCandidateID)

	var semantic *SemanticValidationError
	require.ErrorAs(t, EvaluateResult(got), &semantic)
	assert.Equal(t, OutcomeInvalidJobDescription, semantic.Outcome)
	assert.Equal(t, MsgInvalidJobDescription, semantic.Message)
}

func TestAnalyze_AcceptsNullOptionalCandidateFields(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustJSON(t, newResult(newCandidate("c1", "Ana", true, 90)))), &raw))
	candidate := raw["candidates"].([]any)[0].(map[string]any)
	candidate["yearsOfExperience"] = nil
	candidate["notResumeReason"] = nil
	raw["marketSummary"] = nil
	gemini := &fakeGemini{text: mustJSON(t, raw)}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("ana.pdf"))
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "c1", got.Candidates[0].ID)
}

func TestAnalyze_CountMismatchIsNotFabricated(t *testing.T) {
	gemini := &fakeGemini{text: mustJSON(t, newResult(newCandidate("c1", "Ana", true, 90)))}

	got, err := newTestClient(t, gemini).Analyze(context.Background(), sampleJobDescription, newDocs("a.pdf", "b.pdf"))
	require.NoError(t, err)
	assert.Len(t, got.Candidates, 1)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}
