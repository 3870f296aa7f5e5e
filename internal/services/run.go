package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"alfredoptarigan/comparecv/internal/models"
)

type RunState string

const (
	StateIdle                  RunState = "idle"
	StateSubmitted             RunState = "submitted"
	StateDisplayed             RunState = "displayed"
	StateInvalidJobDescription RunState = "invalid_job_description"
	StateNoValidResume         RunState = "no_valid_resume"
	StateFailed                RunState = "failed"
)

// IsFailure reports whether the state is one of the terminal failure states.
func (s RunState) IsFailure() bool {
	switch s {
	case StateInvalidJobDescription, StateNoValidResume, StateFailed:
		return true
	}
	return false
}

// Editable reports whether inputs may change in this state.
func (s RunState) Editable() bool {
	return s == StateIdle || s.IsFailure()
}

// Run is the lifecycle of one analysis: inputs, state and the last result.
// It is not safe for concurrent use; SessionStore serializes access.
// OwnerID is empty for anonymous runs.
type Run struct {
	ID             string
	OwnerID        string
	State          RunState
	Generation     uint64
	JobDescription string
	Documents      []models.CandidateDocument
	Result         *models.AnalysisResult
	Conformance    []models.ConformanceFinding
	ErrorMessage   string
	LastTouched    time.Time
}

func NewRun(id, ownerID string) *Run {
	return &Run{ID: id, OwnerID: ownerID, State: StateIdle, LastTouched: time.Now()}
}

// AccessibleBy reports whether userID may use the run. Anonymous runs are
// open to anyone holding the id.
func (r *Run) AccessibleBy(userID string) bool {
	return r.OwnerID == "" || r.OwnerID == userID
}

func (r *Run) SetJobDescription(text string) error {
	if !r.State.Editable() {
		return fmt.Errorf("cannot edit job description in state %s: %w", r.State, ErrInvalidTransition)
	}
	r.JobDescription = text
	return nil
}

func (r *Run) AddDocuments(docs []models.CandidateDocument) error {
	if !r.State.Editable() {
		return fmt.Errorf("cannot add files in state %s: %w", r.State, ErrInvalidTransition)
	}
	r.Documents = append(r.Documents, docs...)
	return nil
}

func (r *Run) RemoveDocument(index int) error {
	if !r.State.Editable() {
		return fmt.Errorf("cannot remove files in state %s: %w", r.State, ErrInvalidTransition)
	}
	if index < 0 || index >= len(r.Documents) {
		return fmt.Errorf("file index %d: %w", index, ErrFileNotFound)
	}
	r.Documents = append(r.Documents[:index:index], r.Documents[index+1:]...)
	return nil
}

// Submit moves to submitted and returns the generation the eventual
// Complete or Fail must carry.
func (r *Run) Submit() (uint64, error) {
	if r.State == StateSubmitted || r.State == StateDisplayed {
		return 0, fmt.Errorf("cannot submit in state %s: %w", r.State, ErrInvalidTransition)
	}
	r.Generation++
	r.State = StateSubmitted
	r.Result = nil
	r.Conformance = nil
	r.ErrorMessage = ""
	return r.Generation, nil
}

// Complete applies a parsed result. It returns false when gen is stale.
func (r *Run) Complete(gen uint64, result *models.AnalysisResult) bool {
	if !r.current(gen) {
		return false
	}

	err := EvaluateResult(result)
	if err == nil {
		r.State = StateDisplayed
		r.Result = result
		return true
	}

	var semantic *SemanticValidationError
	if !errors.As(err, &semantic) {
		r.State = StateFailed
		r.ErrorMessage = UserMessage(err)
		return true
	}
	switch semantic.Outcome {
	case OutcomeInvalidJobDescription:
		r.State = StateInvalidJobDescription
	default:
		r.State = StateNoValidResume
	}
	r.ErrorMessage = semantic.Message
	return true
}

// Fail records a transport, malformed response or other technical error.
// It returns false when gen is stale.
func (r *Run) Fail(gen uint64, err error) bool {
	if !r.current(gen) {
		return false
	}
	r.State = StateFailed
	r.ErrorMessage = UserMessage(err)
	return true
}

// Retry returns a failed run to idle with its inputs intact.
func (r *Run) Retry() error {
	if !r.State.IsFailure() {
		return fmt.Errorf("cannot retry in state %s: %w", r.State, ErrInvalidTransition)
	}
	r.State = StateIdle
	r.ErrorMessage = ""
	return nil
}

// Reset clears everything and invalidates any in-flight submission.
func (r *Run) Reset() {
	r.Generation++
	r.State = StateIdle
	r.JobDescription = ""
	r.Documents = nil
	r.Result = nil
	r.Conformance = nil
	r.ErrorMessage = ""
}

func (r *Run) current(gen uint64) bool {
	if r.State != StateSubmitted || gen != r.Generation {
		log.Printf("⚠️  Discarding stale response for run %s (generation %d, current %d)", r.ID, gen, r.Generation)
		return false
	}
	return true
}

// snapshot copies the run so callers can read it without the store lock.
// The result is shared since it is never mutated after receipt.
func (r *Run) snapshot() *Run {
	cp := *r
	cp.Documents = append([]models.CandidateDocument(nil), r.Documents...)
	cp.Conformance = append([]models.ConformanceFinding(nil), r.Conformance...)
	return &cp
}
