package services

import (
	"log"
	"strings"

	"alfredoptarigan/comparecv/internal/models"
)

// ConformanceChecker flags inferred facts that have no visible grounding in
// the document text. Findings are advisory and never alter the result.
type ConformanceChecker interface {
	Check(result *models.AnalysisResult, documents []models.CandidateDocument) []models.ConformanceFinding
}

type conformanceChecker struct {
	extractor TextExtractor
}

func NewConformanceChecker(extractor TextExtractor) ConformanceChecker {
	return &conformanceChecker{extractor: extractor}
}

// Check implements ConformanceChecker. Candidates are paired with documents
// by position, so a count mismatch skips the check entirely.
func (c *conformanceChecker) Check(result *models.AnalysisResult, documents []models.CandidateDocument) []models.ConformanceFinding {
	findings := []models.ConformanceFinding{}
	if result == nil {
		return findings
	}
	if len(result.Candidates) != len(documents) {
		log.Printf("⚠️  Skipping conformance check: %d candidates for %d documents", len(result.Candidates), len(documents))
		return findings
	}

	for i, candidate := range result.Candidates {
		if !candidate.IsResume {
			continue
		}

		findings = append(findings, checkSoftSkills(candidate)...)

		text, err := c.extractor.ExtractText(documents[i])
		if err != nil {
			// Image-only PDFs have no extractable text to compare against.
			log.Printf("⚠️  No text for conformance check of %s: %v", documents[i].FileName, err)
			continue
		}
		findings = append(findings, checkGrounding(candidate, normalizeForMatch(text))...)
	}

	if len(findings) > 0 {
		log.Printf("📊 Conformance check produced %d findings", len(findings))
	}
	return findings
}

func checkSoftSkills(candidate models.Candidate) []models.ConformanceFinding {
	var findings []models.ConformanceFinding
	for _, s := range candidate.SoftSkills {
		if strings.TrimSpace(s.Reasoning) == models.InsufficientData && s.Score != 0 {
			findings = append(findings, models.ConformanceFinding{
				CandidateID: candidate.ID,
				Field:       "softSkills." + s.Skill,
				Value:       s.Reasoning,
				Message:     "Nota diferente de zero sem evidência no currículo.",
			})
		}
	}
	return findings
}

func checkGrounding(candidate models.Candidate, text string) []models.ConformanceFinding {
	var findings []models.ConformanceFinding

	check := func(field string, values []string) {
		for _, v := range values {
			if isSentinel(v) || strings.Contains(text, normalizeForMatch(v)) {
				continue
			}
			findings = append(findings, models.ConformanceFinding{
				CandidateID: candidate.ID,
				Field:       field,
				Value:       v,
				Message:     "Valor não encontrado no texto do currículo.",
			})
		}
	}

	check("inferredInfo.keyTools", candidate.InferredInfo.KeyTools)
	check("inferredInfo.certifications", candidate.InferredInfo.Certifications)

	languages := make([]string, 0, len(candidate.InferredInfo.Languages))
	for _, l := range candidate.InferredInfo.Languages {
		languages = append(languages, l.Language)
	}
	check("inferredInfo.languages", languages)

	return findings
}

func isSentinel(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == models.InsufficientData
}

func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
