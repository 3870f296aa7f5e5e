package services

import "alfredoptarigan/comparecv/internal/models"

// BuildReport derives the presentation views of a displayed result.
func BuildReport(result *models.AnalysisResult, conformance []models.ConformanceFinding) *models.ReportResponse {
	if result == nil {
		return nil
	}

	p := Partition(result.Candidates)
	return &models.ReportResponse{
		Result:        result,
		Ranked:        p.Ranked,
		HighMatch:     p.HighMatch,
		LowMatch:      p.LowMatch,
		BestCandidate: p.BestCandidate,
		InvalidFiles:  p.InvalidFiles,
		TokenUsage:    result.Usage(),
		Conformance:   conformance,
	}
}
