package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/comparecv/internal/models"
)

// SessionStore keeps analysis runs in memory and drives their state machine.
type SessionStore interface {
	Create(ownerID string) *Run
	Get(id string) (*Run, error)
	SetJobDescription(id string, text string) (*Run, error)
	AddFiles(ctx context.Context, id string, files []IncomingFile) (*Run, []IngestionNotice, error)
	RemoveFile(id string, index int) (*Run, error)
	Analyze(ctx context.Context, id string, user *models.User) (*Run, error)
	Retry(id string) (*Run, error)
	Reset(id string) (*Run, error)
	Delete(id string)
	// ExpireIdle drops runs untouched for longer than the idle TTL and
	// returns how many were dropped.
	ExpireIdle() int
	// StartJanitor calls ExpireIdle every interval until ctx is done.
	StartJanitor(ctx context.Context, interval time.Duration)
}

type sessionStore struct {
	mu         sync.Mutex
	runs       map[string]*Run
	ingestion  IngestionService
	analyzer   AnalysisClient
	checker    ConformanceChecker
	history    HistoryService
	minJDRunes int
	idleTTL    time.Duration
	now        func() time.Time
}

// NewSessionStore builds a store. checker and history may be nil. An idleTTL
// of zero keeps runs until they are deleted.
func NewSessionStore(ingestion IngestionService, analyzer AnalysisClient, checker ConformanceChecker, history HistoryService, minJobDescriptionLength int, idleTTL time.Duration) SessionStore {
	return &sessionStore{
		runs:       make(map[string]*Run),
		ingestion:  ingestion,
		analyzer:   analyzer,
		checker:    checker,
		history:    history,
		minJDRunes: minJobDescriptionLength,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

// Create implements SessionStore.
func (s *sessionStore) Create(ownerID string) *Run {
	run := NewRun(uuid.New().String(), ownerID)

	s.mu.Lock()
	run.LastTouched = s.now()
	s.runs[run.ID] = run
	s.mu.Unlock()

	log.Printf("📄 Session created: %s", run.ID)
	return run.snapshot()
}

// Get implements SessionStore.
func (s *sessionStore) Get(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	run.LastTouched = s.now()
	return run.snapshot(), nil
}

// SetJobDescription implements SessionStore.
func (s *sessionStore) SetJobDescription(id string, text string) (*Run, error) {
	return s.mutate(id, func(run *Run) error {
		return run.SetJobDescription(text)
	})
}

// AddFiles implements SessionStore. Files are read without holding the lock.
func (s *sessionStore) AddFiles(ctx context.Context, id string, files []IncomingFile) (*Run, []IngestionNotice, error) {
	current, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !current.State.Editable() {
		return nil, nil, fmt.Errorf("cannot add files in state %s: %w", current.State, ErrInvalidTransition)
	}

	result, err := s.ingestion.Ingest(ctx, len(current.Documents), files)
	if err != nil {
		return nil, nil, err
	}

	run, err := s.mutate(id, func(run *Run) error {
		// Another request may have added files while these were being read.
		if len(run.Documents)+len(result.Accepted) > s.ingestion.MaxFiles() {
			return &IngestionError{
				Limit:   s.ingestion.MaxFiles(),
				Message: fmt.Sprintf("Você só pode adicionar no máximo %d currículos por vez.", s.ingestion.MaxFiles()),
			}
		}
		return run.AddDocuments(result.Accepted)
	})
	if err != nil {
		return nil, nil, err
	}

	return run, result.Notices, nil
}

// RemoveFile implements SessionStore.
func (s *sessionStore) RemoveFile(id string, index int) (*Run, error) {
	return s.mutate(id, func(run *Run) error {
		return run.RemoveDocument(index)
	})
}

// Analyze implements SessionStore. The returned error is set only when the
// run could not be submitted; analysis failures are recorded on the run.
func (s *sessionStore) Analyze(ctx context.Context, id string, user *models.User) (*Run, error) {
	s.mu.Lock()
	run, ok := s.runs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if err := CheckSubmission(run.JobDescription, run.Documents, s.minJDRunes); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gen, err := run.Submit()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	run.LastTouched = s.now()
	jobDescription := run.JobDescription
	documents := append([]models.CandidateDocument(nil), run.Documents...)
	s.mu.Unlock()

	log.Printf("🚀 Analysis started for session %s (generation %d, %d files)", id, gen, len(documents))

	result, err := s.analyzer.Analyze(ctx, jobDescription, documents)
	if err != nil {
		log.Printf("❌ Analysis failed for session %s: %v", id, err)
		s.mu.Lock()
		run.Fail(gen, err)
		run.LastTouched = s.now()
		snapshot := run.snapshot()
		s.mu.Unlock()
		return snapshot, nil
	}

	var findings []models.ConformanceFinding
	if s.checker != nil && EvaluateResult(result) == nil {
		findings = s.checker.Check(result, documents)
	}

	s.mu.Lock()
	applied := run.Complete(gen, result)
	run.LastTouched = s.now()
	displayed := applied && run.State == StateDisplayed
	if displayed {
		run.Conformance = findings
	}
	snapshot := run.snapshot()
	s.mu.Unlock()

	if displayed {
		log.Printf("✅ Analysis displayed for session %s", id)
		if s.history != nil {
			s.history.SaveAnalysisHistory(jobDescription, result, user)
		}
	}

	return snapshot, nil
}

// Retry implements SessionStore.
func (s *sessionStore) Retry(id string) (*Run, error) {
	return s.mutate(id, func(run *Run) error {
		return run.Retry()
	})
}

// Reset implements SessionStore.
func (s *sessionStore) Reset(id string) (*Run, error) {
	return s.mutate(id, func(run *Run) error {
		run.Reset()
		return nil
	})
}

// Delete implements SessionStore.
func (s *sessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

// ExpireIdle implements SessionStore. Submitted runs are kept while the
// model call is in flight.
func (s *sessionStore) ExpireIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	expired := 0
	for id, run := range s.runs {
		if run.State == StateSubmitted || run.LastTouched.After(cutoff) {
			continue
		}
		delete(s.runs, id)
		expired++
	}

	if expired > 0 {
		log.Printf("🧹 Expired %d idle sessions (%d remaining)", expired, len(s.runs))
	}
	return expired
}

// StartJanitor implements SessionStore.
func (s *sessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ExpireIdle()
			}
		}
	}()
}

func (s *sessionStore) mutate(id string, fn func(run *Run) error) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	run.LastTouched = s.now()
	if err := fn(run); err != nil {
		return nil, err
	}
	return run.snapshot(), nil
}
