package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AnalysisHistory struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID            *string         `gorm:"type:text;index" json:"user_id,omitempty"`
	JobDescription    string          `gorm:"type:text" json:"job_description"`
	Recommendation    string          `gorm:"type:text" json:"recommendation"`
	BestCandidateName string          `gorm:"type:text" json:"best_candidate_name"`
	CandidatesCount   int             `gorm:"not null;default:0" json:"candidates_count"`
	TokensInput       int             `gorm:"not null;default:0" json:"tokens_input"`
	TokensOutput      int             `gorm:"not null;default:0" json:"tokens_output"`
	TokensTotal       int             `gorm:"not null;default:0" json:"tokens_total"`
	FullResultJSON    json.RawMessage `gorm:"type:jsonb" json:"full_result_json"`
	CreatedAt         time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AnalysisHistory) TableName() string {
	return "analysis_history"
}
