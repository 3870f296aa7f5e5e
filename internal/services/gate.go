package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"alfredoptarigan/comparecv/internal/models"
)

var validate = validator.New()

// CheckSubmission is the local gate run before any model call. It never
// decides validity on its own, it only blocks obviously incomplete input.
func CheckSubmission(jobDescription string, documents []models.CandidateDocument, minLength int) error {
	var problems []string

	trimmed := strings.TrimSpace(jobDescription)
	if err := validate.Var(trimmed, fmt.Sprintf("required,min=%d", minLength)); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "min" {
			problems = append(problems, fmt.Sprintf(MsgJobDescriptionTooShort, utf8.RuneCountInString(trimmed), minLength))
		} else {
			problems = append(problems, MsgJobDescriptionEmpty)
		}
	}

	if len(documents) == 0 {
		problems = append(problems, MsgNoFiles)
	}

	if len(problems) > 0 {
		return &PreSubmissionError{Problems: problems}
	}
	return nil
}
