package services

import (
	"errors"
	"fmt"
	"strings"
)

// Messages shown to the user. Technical failures share one message on purpose
// and are told apart only in the logs.
const (
	MsgTechnicalFailure       = "Ocorreu um erro técnico ao comunicar com a IA."
	MsgInvalidJobDescription  = "A descrição da vaga fornecida não parece válida ou está ininteligível."
	MsgNoValidResume          = "Nenhum dos arquivos enviados foi identificado como um currículo válido."
	MsgJobDescriptionEmpty    = "Adicione a descrição da vaga."
	MsgJobDescriptionTooShort = "A descrição está muito curta. Detalhe mais os requisitos (%d/%d)."
	MsgNoFiles                = "Anexe pelo menos um currículo (PDF)."
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrFileNotFound      = errors.New("file not found")
)

// IngestionNotice is a per-file rejection that does not stop the batch.
type IngestionNotice struct {
	FileName string
	Message  string
}

// IngestionError rejects a whole incoming batch.
type IngestionError struct {
	Limit   int
	Message string
}

func (e *IngestionError) Error() string {
	return e.Message
}

// TransportError means the LLM call itself could not complete.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type FieldError struct {
	Field   string
	Message string
}

// MalformedResponseError means the response text could not be coerced to the
// declared schema, even after fence stripping.
type MalformedResponseError struct {
	Raw    string
	Fields []FieldError
	Err    error
}

func (e *MalformedResponseError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed llm response")
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	for i, f := range e.Fields {
		sb.WriteString(fmt.Sprintf("\n  %d. %s: %s", i+1, f.Field, f.Message))
	}
	return sb.String()
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// PreSubmissionError lists the input problems that block an analysis locally.
type PreSubmissionError struct {
	Problems []string
}

func (e *PreSubmissionError) Error() string {
	return strings.Join(e.Problems, " ")
}

// UserMessage maps any analysis failure to the text shown to the user.
func UserMessage(err error) string {
	var pre *PreSubmissionError
	if errors.As(err, &pre) {
		return pre.Error()
	}
	return MsgTechnicalFailure
}
