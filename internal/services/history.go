package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/comparecv/internal/models"
	"alfredoptarigan/comparecv/internal/repositories"
)

const unknownCandidateName = "Unknown"

// HistoryService persists displayed analyses and reads them back.
type HistoryService interface {
	// SaveAnalysisHistory returns immediately; failures are only logged.
	SaveAnalysisHistory(jobDescription string, result *models.AnalysisResult, user *models.User)
	List(userID string, limit int) ([]models.AnalysisHistory, error)
	Get(id uuid.UUID) (*models.AnalysisHistory, error)
	FindSimilar(ctx context.Context, query string, userID string, limit int) ([]models.SimilarAnalysis, error)
	// Wait blocks until pending saves finish.
	Wait()
}

type historyService struct {
	repo          repositories.HistoryRepository
	index         HistoryIndex
	geminiService GeminiService
	wg            sync.WaitGroup
}

// NewHistoryService wires the repository and an optional similarity index.
// index and geminiService may be nil, which disables FindSimilar.
func NewHistoryService(repo repositories.HistoryRepository, index HistoryIndex, geminiService GeminiService) HistoryService {
	return &historyService{
		repo:          repo,
		index:         index,
		geminiService: geminiService,
	}
}

// BuildHistory maps a result to its stored row.
func BuildHistory(jobDescription string, result *models.AnalysisResult, user *models.User) (*models.AnalysisHistory, error) {
	fullJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	bestName := unknownCandidateName
	if best := result.CandidateByID(result.BestCandidateID); best != nil {
		bestName = best.Name
	}

	usage := result.Usage()
	history := &models.AnalysisHistory{
		ID:                uuid.New(),
		JobDescription:    jobDescription,
		Recommendation:    result.Recommendation,
		BestCandidateName: bestName,
		CandidatesCount:   len(result.Candidates),
		TokensInput:       usage.InputTokens,
		TokensOutput:      usage.OutputTokens,
		TokensTotal:       usage.TotalTokens,
		FullResultJSON:    fullJSON,
		CreatedAt:         time.Now(),
	}
	if user != nil && user.ID != "" {
		userID := user.ID
		history.UserID = &userID
	}

	return history, nil
}

// SaveAnalysisHistory implements HistoryService.
func (s *historyService) SaveAnalysisHistory(jobDescription string, result *models.AnalysisResult, user *models.User) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		history, err := BuildHistory(jobDescription, result, user)
		if err != nil {
			log.Printf("❌ Failed to build analysis history: %v", err)
			return
		}

		if err := s.repo.Create(history); err != nil {
			log.Printf("❌ Failed to save analysis history: %v", err)
			return
		}
		log.Printf("✅ Analysis history saved: %s", history.ID)

		if s.index == nil || s.geminiService == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		embedding, err := s.geminiService.GenerateEmbedding(ctx, jobDescription)
		if err != nil {
			log.Printf("⚠️  Failed to embed job description for %s: %v", history.ID, err)
			return
		}

		var userID string
		if history.UserID != nil {
			userID = *history.UserID
		}
		if err := s.index.IndexJobDescription(ctx, history.ID, userID, jobDescription, embedding); err != nil {
			log.Printf("⚠️  Failed to index job description for %s: %v", history.ID, err)
		}
	}()
}

// List implements HistoryService.
func (s *historyService) List(userID string, limit int) ([]models.AnalysisHistory, error) {
	return s.repo.ListByUser(userID, limit)
}

// Get implements HistoryService.
func (s *historyService) Get(id uuid.UUID) (*models.AnalysisHistory, error) {
	return s.repo.FindByID(id)
}

// FindSimilar implements HistoryService.
func (s *historyService) FindSimilar(ctx context.Context, query string, userID string, limit int) ([]models.SimilarAnalysis, error) {
	if s.index == nil || s.geminiService == nil {
		return nil, fmt.Errorf("similarity search is not configured")
	}

	embedding, err := s.geminiService.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.index.SearchSimilar(ctx, embedding, userID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.HistoryID)
	}

	histories, err := s.repo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.AnalysisHistory, len(histories))
	for i := range histories {
		byID[histories[i].ID] = &histories[i]
	}

	similar := make([]models.SimilarAnalysis, 0, len(hits))
	for _, h := range hits {
		history, ok := byID[h.HistoryID]
		if !ok {
			// Indexed but since removed from the database.
			if err := s.index.DeleteAnalysis(ctx, h.HistoryID); err != nil {
				log.Printf("⚠️  Failed to prune stale index entry %s: %v", h.HistoryID, err)
			}
			continue
		}
		similar = append(similar, models.SimilarAnalysis{Score: h.Score, History: history})
	}

	return similar, nil
}

// Wait implements HistoryService.
func (s *historyService) Wait() {
	s.wg.Wait()
}
