package models

const (
	MIMETypePDF       = "application/pdf"
	MIMETypePlainText = "text/plain"
)

// CandidateDocument is an uploaded résumé held in memory for one analysis run.
type CandidateDocument struct {
	FileName  string `json:"file_name"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Data      []byte `json:"-"`
}

func NewCandidateDocument(fileName, mimeType string, data []byte) CandidateDocument {
	return CandidateDocument{
		FileName:  fileName,
		MIMEType:  mimeType,
		SizeBytes: int64(len(data)),
		Data:      data,
	}
}
