package models

type DocumentInfo struct {
	Index     int    `json:"index"`
	FileName  string `json:"file_name"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type IngestResponse struct {
	Accepted   []DocumentInfo `json:"accepted"`
	Notices    []string       `json:"notices,omitempty"`
	TotalFiles int            `json:"total_files"`
}

type JobDescriptionRequest struct {
	JobDescription string `json:"job_description" validate:"required"`
}

type ScoreBand string

const (
	BandTop ScoreBand = "top"
	BandMid ScoreBand = "mid"
	BandLow ScoreBand = "low"
)

type MatrixLevel string

const (
	LevelLow  MatrixLevel = "low"
	LevelMid  MatrixLevel = "mid"
	LevelHigh MatrixLevel = "high"
)

// NineBoxCell places a candidate on the technical (column) by potential (row) grid.
type NineBoxCell struct {
	Technical MatrixLevel `json:"technical"`
	Potential MatrixLevel `json:"potential"`
}

type RankedCandidate struct {
	Rank      int         `json:"rank"`
	ScoreBand ScoreBand   `json:"score_band"`
	Cell      NineBoxCell `json:"nine_box"`
	Candidate Candidate   `json:"candidate"`
}

type InvalidFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ConformanceFinding struct {
	CandidateID string `json:"candidate_id"`
	Field       string `json:"field"`
	Value       string `json:"value"`
	Message     string `json:"message"`
}

type ReportResponse struct {
	Result        *AnalysisResult      `json:"result"`
	Ranked        []RankedCandidate    `json:"ranked"`
	HighMatch     []RankedCandidate    `json:"high_match"`
	LowMatch      []RankedCandidate    `json:"low_match"`
	BestCandidate *RankedCandidate     `json:"best_candidate"`
	InvalidFiles  []InvalidFile        `json:"invalid_files"`
	TokenUsage    TokenUsage           `json:"token_usage"`
	Conformance   []ConformanceFinding `json:"conformance,omitempty"`
}

type SessionResponse struct {
	ID             string          `json:"id"`
	State          string          `json:"state"`
	Generation     uint64          `json:"generation"`
	JobDescription string          `json:"job_description"`
	Documents      []DocumentInfo  `json:"documents"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	Report         *ReportResponse `json:"report,omitempty"`
}

type SimilarAnalysis struct {
	Score   float32          `json:"score"`
	History *AnalysisHistory `json:"history"`
}
