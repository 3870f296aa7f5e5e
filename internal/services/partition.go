package services

import (
	"sort"

	"alfredoptarigan/comparecv/internal/models"
)

// HighMatchThreshold is inclusive: a score of exactly 50 is a high match.
const HighMatchThreshold = 50.0

type Outcome string

const (
	OutcomeAccepted              Outcome = "accepted"
	OutcomeInvalidJobDescription Outcome = "invalid_job_description"
	OutcomeNoValidResume         Outcome = "no_valid_resume"
)

// SemanticValidationError is a well-formed response that cannot be displayed.
type SemanticValidationError struct {
	Outcome Outcome
	Message string
}

func (e *SemanticValidationError) Error() string {
	return e.Message
}

// EvaluateResult applies the two gating checks in order. A nil error means
// the result can be displayed.
func EvaluateResult(result *models.AnalysisResult) error {
	if !result.IsJobDescriptionValid {
		msg := result.JobDescriptionFeedback
		if msg == "" {
			msg = MsgInvalidJobDescription
		}
		return &SemanticValidationError{Outcome: OutcomeInvalidJobDescription, Message: msg}
	}

	for _, c := range result.Candidates {
		if c.IsResume {
			return nil
		}
	}

	return &SemanticValidationError{Outcome: OutcomeNoValidResume, Message: MsgNoValidResume}
}

// Partitioned holds the derived views of one result. Every slice is fresh.
type Partitioned struct {
	Valid         []models.Candidate
	InvalidFiles  []models.InvalidFile
	Ranked        []models.RankedCandidate
	HighMatch     []models.RankedCandidate
	LowMatch      []models.RankedCandidate
	BestCandidate *models.RankedCandidate
}

// Partition computes the ranking and match split. The input is not modified.
func Partition(candidates []models.Candidate) Partitioned {
	p := Partitioned{
		Valid:        []models.Candidate{},
		InvalidFiles: []models.InvalidFile{},
		Ranked:       []models.RankedCandidate{},
		HighMatch:    []models.RankedCandidate{},
		LowMatch:     []models.RankedCandidate{},
	}

	for _, c := range candidates {
		if !c.IsResume {
			p.InvalidFiles = append(p.InvalidFiles, models.InvalidFile{
				ID:     c.ID,
				Name:   c.Name,
				Reason: c.NotResumeReason,
			})
			continue
		}
		p.Valid = append(p.Valid, c)
	}

	sorted := make([]models.Candidate, len(p.Valid))
	copy(sorted, p.Valid)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MatchScore > sorted[j].MatchScore
	})

	for i, c := range sorted {
		ranked := models.RankedCandidate{
			Rank:      i + 1,
			ScoreBand: ScoreBandFor(c.MatchScore),
			Cell:      NineBoxFor(c),
			Candidate: c,
		}
		p.Ranked = append(p.Ranked, ranked)
		if c.MatchScore >= HighMatchThreshold {
			p.HighMatch = append(p.HighMatch, ranked)
		} else {
			p.LowMatch = append(p.LowMatch, ranked)
		}
	}

	if len(p.HighMatch) > 0 {
		best := p.HighMatch[0]
		p.BestCandidate = &best
	}

	return p
}

func ScoreBandFor(score float64) models.ScoreBand {
	switch {
	case score >= 85:
		return models.BandTop
	case score >= 60:
		return models.BandMid
	default:
		return models.BandLow
	}
}

// NineBoxFor places technical fit on the column and potential fit on the row.
func NineBoxFor(c models.Candidate) models.NineBoxCell {
	return models.NineBoxCell{
		Technical: matrixLevel(c.TechnicalFit),
		Potential: matrixLevel(c.PotentialFit),
	}
}

func matrixLevel(score float64) models.MatrixLevel {
	switch {
	case score >= 66.6:
		return models.LevelHigh
	case score >= 33.3:
		return models.LevelMid
	default:
		return models.LevelLow
	}
}
