package services

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"google.golang.org/genai"

	"alfredoptarigan/comparecv/internal/models"
)

// LLMResponse is the raw model output plus usage accounting, when reported.
type LLMResponse struct {
	Text  string
	Usage *models.TokenUsage
}

type GeminiService interface {
	GenerateAnalysis(ctx context.Context, req *AnalysisRequest) (*LLMResponse, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	embedModel  string
	temperature float32
}

func NewGeminiService(apiKey, modelName, embedModel string, temperature float32) (GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:      client,
		modelName:   modelName,
		embedModel:  embedModel,
		temperature: temperature,
	}, nil
}

// GenerateAnalysis implements GeminiService.
func (g *geminiService) GenerateAnalysis(ctx context.Context, req *AnalysisRequest) (*LLMResponse, error) {
	parts := make([]*genai.Part, 0, len(req.Documents)+1)
	parts = append(parts, genai.NewPartFromText(req.InstructionText))
	for _, doc := range req.Documents {
		parts = append(parts, genai.NewPartFromBytes(doc.Data, doc.MIMEType))
	}

	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		log.Printf("❌ Gemini API error: %v", err)
		return nil, fmt.Errorf("failed to generate analysis: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("no response generated (nil response)")
	}

	log.Printf("📊 Gemini response received")

	out := &LLMResponse{Text: resp.Text()}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = &models.TokenUsage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}

	return out, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}
