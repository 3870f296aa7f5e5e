package services

import (
	"slices"
	"strings"

	"google.golang.org/genai"

	"alfredoptarigan/comparecv/internal/models"
)

// AnalysisSchema is the response contract handed to the model. JSONSchema
// derives the local validation schema from it.
func AnalysisSchema() *genai.Schema {
	sentinel := "Use \"" + models.InsufficientData + "\" se não houver evidência."

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isJobDescriptionValid":  {Type: genai.TypeBoolean, Description: "True se a JD for válida."},
			"jobDescriptionFeedback": {Type: genai.TypeString, Description: "Motivo em PT-BR se a JD for inválida."},
			"candidates": {
				Type:  genai.TypeArray,
				Items: candidateSchema(sentinel),
			},
			"marketSummary":   {Type: genai.TypeString, Description: "Resumo de mercado comparando os candidatos VÁLIDOS em PT-BR."},
			"recommendation":  {Type: genai.TypeString, Description: "Recomendação final sobre quem entrevistar em PT-BR."},
			"bestCandidateId": {Type: genai.TypeString},
		},
		Required: []string{"candidates", "recommendation", "isJobDescriptionValid"},
	}
}

func candidateSchema(sentinel string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":                {Type: genai.TypeString},
			"name":              {Type: genai.TypeString},
			"isResume":          {Type: genai.TypeBoolean, Description: "True se o arquivo for um currículo."},
			"notResumeReason":   {Type: genai.TypeString, Description: "Motivo em PT-BR se o arquivo não for currículo."},
			"matchScore":        score("Nota geral 0-100"),
			"technicalFit":      score("Eixo X nota 0-100"),
			"potentialFit":      score("Eixo Y nota 0-100"),
			"summary":           {Type: genai.TypeString, Description: "Resumo em PT-BR"},
			"yearsOfExperience": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0)},
			"pros":              stringList(""),
			"cons":              stringList(""),
			"inferredInfo": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"salaryExpectation":     {Type: genai.TypeString, Description: sentinel},
					"availability":          {Type: genai.TypeString, Description: sentinel},
					"workModel":             {Type: genai.TypeString, Description: sentinel},
					"perceivedSeniority":    {Type: genai.TypeString, Description: sentinel},
					"selfReportedSeniority": {Type: genai.TypeString, Description: sentinel},
					"averageTenure":         {Type: genai.TypeString, Description: sentinel},
					"languages": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"language":      {Type: genai.TypeString},
								"proficiency":   {Type: genai.TypeString},
								"justification": {Type: genai.TypeString},
							},
							Required: []string{"language", "proficiency", "justification"},
						},
					},
					"keyTools":       stringList("Apenas ferramentas citadas no currículo."),
					"certifications": stringList("Apenas certificações citadas no currículo."),
				},
				Required: []string{
					"salaryExpectation", "availability", "workModel", "perceivedSeniority",
					"selfReportedSeniority", "averageTenure", "languages", "keyTools", "certifications",
				},
			},
			"softSkills": {
				Type:        genai.TypeArray,
				Description: "Avalie: " + strings.Join(SoftSkillBattery, ", "),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill":     {Type: genai.TypeString, Enum: SoftSkillBattery},
						"score":     score("0-100; 0 se não houver evidência"),
						"reasoning": {Type: genai.TypeString, Description: sentinel},
					},
					Required: []string{"skill", "score", "reasoning"},
				},
			},
			"culturalFit": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"score":       score("0-100"),
					"reasoning":   {Type: genai.TypeString},
					"orientation": {Type: genai.TypeString, Enum: orientationValues()},
				},
				Required: []string{"score", "reasoning", "orientation"},
			},
			"redFlags": stringList("Job-hopping, lacunas, estagnação, regressão de cargo, falta de resultados quantificados."),
			"gapAnalysis": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skillName": {Type: genai.TypeString},
						"type": {Type: genai.TypeString, Enum: []string{
							string(models.GapStrong), string(models.GapMedium), string(models.GapWeak),
						}},
						"impact": {Type: genai.TypeString, Enum: []string{
							string(models.ImpactLow), string(models.ImpactMedium), string(models.ImpactHigh),
						}},
					},
					Required: []string{"skillName", "type", "impact"},
				},
			},
		},
		Required: []string{
			"id", "name", "isResume", "matchScore", "technicalFit", "potentialFit", "summary",
			"pros", "cons", "inferredInfo", "softSkills", "culturalFit", "redFlags", "gapAnalysis",
		},
	}
}

func score(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeNumber,
		Description: description,
		Minimum:     genai.Ptr(0.0),
		Maximum:     genai.Ptr(100.0),
	}
}

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

// JSONSchema converts a genai schema into a JSON Schema document so the same
// contract can be enforced locally.
func JSONSchema(s *genai.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}

	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.Items != nil {
		out["items"] = JSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			compiled := JSONSchema(prop)
			if !slices.Contains(s.Required, name) {
				allowNull(compiled)
			}
			props[name] = compiled
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for i, v := range s.Required {
			required[i] = v
		}
		out["required"] = required
	}
	return out
}

// allowNull lets an optional property arrive as JSON null; decoding maps it to
// the zero value.
func allowNull(schema map[string]any) {
	if t, ok := schema["type"].(string); ok {
		schema["type"] = []any{t, "null"}
	}
	if enum, ok := schema["enum"].([]any); ok {
		schema["enum"] = append(enum, nil)
	}
}
