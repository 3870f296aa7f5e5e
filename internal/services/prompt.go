package services

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"alfredoptarigan/comparecv/internal/models"
)

// SoftSkillBattery is the fixed set of behavioural dimensions scored per résumé.
var SoftSkillBattery = []string{
	"Comunicação",
	"Organização",
	"Autonomia",
	"Capacidade Analítica",
	"Colaboração",
	"Agilidade de Aprendizado",
	"Resolução de Problemas",
	"Clareza na Escrita",
}

// AnalysisRequest is everything sent to the model for one run: one
// instruction part followed by one inline part per document, in upload order.
type AnalysisRequest struct {
	InstructionText    string
	Schema             *genai.Schema
	JobDescriptionText string
	Documents          []models.CandidateDocument
}

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAnalysisRequest assembles the instruction and the output schema.
func (pb *PromptBuilder) BuildAnalysisRequest(jobDescription string, documents []models.CandidateDocument) *AnalysisRequest {
	docs := make([]models.CandidateDocument, len(documents))
	copy(docs, documents)

	return &AnalysisRequest{
		InstructionText:    pb.BuildInstruction(jobDescription, len(documents)),
		Schema:             AnalysisSchema(),
		JobDescriptionText: jobDescription,
		Documents:          docs,
	}
}

// BuildInstruction renders the screening instruction for the given job
// description and number of attached documents.
func (pb *PromptBuilder) BuildInstruction(jobDescription string, documentCount int) string {
	return fmt.Sprintf(`Você é um Recrutador Sênior Especialista e um Assistente de RH Brasileiro.

IDIOMA DE SAÍDA: PORTUGUÊS (PT-BR).
Todas as strings, feedbacks, motivos de erro, resumos, prós, contras e justificativas DEVEM ser escritos em Português do Brasil.

REGRA ANTI-ALUCINAÇÃO (OBRIGATÓRIA):
Nunca invente informações. Qualquer campo que não possa ser comprovado pelo texto do documento DEVE conter exatamente o valor "%[1]s".
Para soft skills sem evidência, use nota 0 e a justificativa "%[1]s".

CONTEXTO:
Estou fornecendo um texto que DEVE SER uma Descrição de Vaga (Job Description) e %[2]d arquivos que DEVEM SER currículos, na mesma ordem em que foram enviados.
Retorne exatamente um candidato por arquivo, na mesma ordem dos arquivos.

TAREFA DE VALIDAÇÃO (CRÍTICA):
1. Verifique se o texto da "JOB DESCRIPTION" abaixo é realmente uma descrição de vaga válida e compreensível. Se for apenas caracteres aleatórios, muito curto, fora de contexto ou algo sem sentido (ex: receita de bolo, lorem ipsum, "teste"), marque "isJobDescriptionValid": false.
   No campo "jobDescriptionFeedback", escreva em PORTUGUÊS por que é inválido.
2. Para CADA arquivo, verifique se é um currículo profissional legível (CV/Resume). Se for um documento não relacionado (ex: fatura, boleto, receita, texto aleatório, digitalização sem relação) ou um PDF apenas com imagem e sem texto extraível, marque "isResume": false.
   No campo "notResumeReason", escreva em PORTUGUÊS o motivo.

TAREFA DE ANÁLISE (para itens válidos):
Se a JD for válida e o arquivo for um currículo:
1. Extraia o nome do candidato e atribua um "id" único e estável.
2. Avalie a nota geral de aderência "matchScore" (0 a 100).
3. Avalie a "Adequação Técnica" em "technicalFit" (0 a 100): hard skills, ferramentas e experiência.
4. Avalie a "Adequação de Potencial/Cultural" em "potentialFit" (0 a 100): soft skills, adaptabilidade e potencial.
5. Informe anos de experiência, resumo, prós e contras.
6. Em "inferredInfo", infira pretensão salarial, disponibilidade, modelo de trabalho, senioridade percebida, senioridade declarada, tempo médio de permanência, idiomas (com proficiência e justificativa), ferramentas-chave e certificações.
7. Em "softSkills", avalie exatamente estas dimensões (0 a 100, com justificativa): %[3]s.
8. Em "culturalFit", classifique a orientação predominante em uma de: %[4]s, com nota (0 a 100) e justificativa.
9. Em "redFlags", aponte sinais de alerta: job-hopping (trocas frequentes de emprego), lacunas não explicadas, estagnação de carreira, regressão de cargo e falta de resultados quantificados.
10. Em "gapAnalysis", para cada competência relevante da vaga, classifique a força do candidato (Strong, Medium, Weak) e o impacto na decisão de contratação (Baixo, Médio, Alto).
11. Preencha "marketSummary" comparando os candidatos VÁLIDOS, "recommendation" com quem entrevistar e "bestCandidateId" com o id do melhor candidato.

JOB DESCRIPTION ENVIADA:
"%[5]s"

INSTRUÇÕES DE SAÍDA:
Retorne APENAS um objeto JSON válido seguindo estritamente o schema.`,
		models.InsufficientData,
		documentCount,
		strings.Join(SoftSkillBattery, ", "),
		strings.Join(orientationValues(), ", "),
		jobDescription,
	)
}

func orientationValues() []string {
	return []string{
		string(models.OrientationResults),
		string(models.OrientationProcesses),
		string(models.OrientationPeople),
		string(models.OrientationInnovation),
	}
}
