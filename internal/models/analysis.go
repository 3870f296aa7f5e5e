package models

// InsufficientData is the literal the model must use for any fact it cannot
// evidence from the document text.
const InsufficientData = "Sem dados suficientes"

type CulturalOrientation string

const (
	OrientationResults    CulturalOrientation = "Resultados"
	OrientationProcesses  CulturalOrientation = "Processos"
	OrientationPeople     CulturalOrientation = "Pessoas"
	OrientationInnovation CulturalOrientation = "Inovação"
)

type GapType string

const (
	GapStrong GapType = "Strong"
	GapMedium GapType = "Medium"
	GapWeak   GapType = "Weak"
)

type GapImpact string

const (
	ImpactLow    GapImpact = "Baixo"
	ImpactMedium GapImpact = "Médio"
	ImpactHigh   GapImpact = "Alto"
)

type LanguageSkill struct {
	Language      string `json:"language"`
	Proficiency   string `json:"proficiency"`
	Justification string `json:"justification"`
}

type InferredInfo struct {
	SalaryExpectation     string          `json:"salaryExpectation"`
	Availability          string          `json:"availability"`
	WorkModel             string          `json:"workModel"`
	PerceivedSeniority    string          `json:"perceivedSeniority"`
	SelfReportedSeniority string          `json:"selfReportedSeniority"`
	AverageTenure         string          `json:"averageTenure"`
	Languages             []LanguageSkill `json:"languages"`
	KeyTools              []string        `json:"keyTools"`
	Certifications        []string        `json:"certifications"`
}

type SoftSkill struct {
	Skill     string  `json:"skill"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

type CulturalFit struct {
	Score       float64             `json:"score"`
	Reasoning   string              `json:"reasoning"`
	Orientation CulturalOrientation `json:"orientation"`
}

type SkillGap struct {
	SkillName string    `json:"skillName"`
	Type      GapType   `json:"type"`
	Impact    GapImpact `json:"impact"`
}

// Candidate is produced by the model, one per submitted document.
type Candidate struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	IsResume          bool         `json:"isResume"`
	NotResumeReason   string       `json:"notResumeReason,omitempty"`
	MatchScore        float64      `json:"matchScore"`
	TechnicalFit      float64      `json:"technicalFit"`
	PotentialFit      float64      `json:"potentialFit"`
	Summary           string       `json:"summary"`
	YearsOfExperience float64      `json:"yearsOfExperience"`
	Pros              []string     `json:"pros"`
	Cons              []string     `json:"cons"`
	InferredInfo      InferredInfo `json:"inferredInfo"`
	SoftSkills        []SoftSkill  `json:"softSkills"`
	CulturalFit       CulturalFit  `json:"culturalFit"`
	RedFlags          []string     `json:"redFlags"`
	GapAnalysis       []SkillGap   `json:"gapAnalysis"`
}

type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// AnalysisResult is the typed model response for one run. It is treated as
// immutable once received.
type AnalysisResult struct {
	IsJobDescriptionValid  bool        `json:"isJobDescriptionValid"`
	JobDescriptionFeedback string      `json:"jobDescriptionFeedback,omitempty"`
	Candidates             []Candidate `json:"candidates"`
	MarketSummary          string      `json:"marketSummary,omitempty"`
	Recommendation         string      `json:"recommendation"`
	BestCandidateID        string      `json:"bestCandidateId"`
	TokenUsage             *TokenUsage `json:"tokenUsage,omitempty"`
}

// CandidateByID returns the candidate with the given id, or nil.
func (r *AnalysisResult) CandidateByID(id string) *Candidate {
	for i := range r.Candidates {
		if r.Candidates[i].ID == id {
			return &r.Candidates[i]
		}
	}
	return nil
}

// Usage returns the token usage, zeroed when the model did not report any.
func (r *AnalysisResult) Usage() TokenUsage {
	if r.TokenUsage == nil {
		return TokenUsage{}
	}
	return *r.TokenUsage
}
