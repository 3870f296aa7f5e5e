package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"alfredoptarigan/comparecv/internal/models"
)

// AnalysisClient turns a job description and documents into a typed result.
type AnalysisClient interface {
	Analyze(ctx context.Context, jobDescription string, documents []models.CandidateDocument) (*models.AnalysisResult, error)
}

type analysisClient struct {
	geminiService GeminiService
	promptBuilder *PromptBuilder
	schema        *gojsonschema.Schema
	timeout       time.Duration
}

func NewAnalysisClient(geminiService GeminiService, timeout time.Duration) (AnalysisClient, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(AnalysisSchema())))
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis schema: %w", err)
	}

	return &analysisClient{
		geminiService: geminiService,
		promptBuilder: NewPromptBuilder(),
		schema:        schema,
		timeout:       timeout,
	}, nil
}

// Analyze implements AnalysisClient. The model is called exactly once.
func (a *analysisClient) Analyze(ctx context.Context, jobDescription string, documents []models.CandidateDocument) (*models.AnalysisResult, error) {
	req := a.promptBuilder.BuildAnalysisRequest(jobDescription, documents)
	log.Printf("📝 Analysis prompt length: %d characters, %d documents", len(req.InstructionText), len(req.Documents))

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.geminiService.GenerateAnalysis(ctx, req)
	if err != nil {
		log.Printf("❌ Transport failure: %v", err)
		return nil, &TransportError{Err: err}
	}

	result, err := a.parseResponse(resp.Text)
	if err != nil {
		log.Printf("❌ Malformed response: %v", err)
		return nil, err
	}

	usage := models.TokenUsage{}
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	result.TokenUsage = &usage

	if len(result.Candidates) != len(documents) {
		log.Printf("⚠️  Model returned %d candidates for %d documents", len(result.Candidates), len(documents))
	}

	log.Printf("✅ Analysis parsed: %d candidates, %d tokens", len(result.Candidates), usage.TotalTokens)
	return result, nil
}

func (a *analysisClient) parseResponse(text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedResponseError{Raw: text, Err: errors.New("empty response")}
	}

	raw, value, err := decodeWithRepair(text)
	if err != nil {
		return nil, &MalformedResponseError{Raw: text, Err: err}
	}

	validation, err := a.schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return nil, &MalformedResponseError{Raw: text, Err: fmt.Errorf("failed to validate response: %w", err)}
	}
	if !validation.Valid() {
		fields := make([]FieldError, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			fields = append(fields, FieldError{Field: fieldPath(desc), Message: desc.Description()})
		}
		return nil, &MalformedResponseError{Raw: text, Fields: fields, Err: errors.New("response does not match schema")}
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedResponseError{Raw: text, Err: fmt.Errorf("failed to unmarshal JSON: %w", err)}
	}

	return &result, nil
}

// fieldPath names the offending field. Required errors are reported on the
// parent object, so the missing property is appended.
func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "" {
		field = "(root)"
	}

	prop, ok := desc.Details()["property"].(string)
	if desc.Type() != "required" || !ok {
		return field
	}
	if field == "(root)" {
		return prop
	}
	return field + "." + prop
}

// decodeWithRepair parses strictly first and, failing that, strips markdown
// code fences and tries exactly once more.
func decodeWithRepair(text string) ([]byte, any, error) {
	var value any
	raw := []byte(text)
	if err := json.Unmarshal(raw, &value); err == nil {
		return raw, value, nil
	}

	raw = []byte(stripFences(text))
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return raw, value, nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
