package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clima/internal/domain/catalog"
)

// CatalogAPI is the slice of the question catalog the survey service needs.
type CatalogAPI interface {
	ActivePeriod(ctx context.Context) (catalog.Period, error)
	GetPeriod(ctx context.Context, periodID string) (catalog.Period, error)
	ListQuestions(ctx context.Context, section string, activeOnly bool) ([]catalog.Question, error)
	ListCategories(ctx context.Context, section string) ([]catalog.Category, error)
}

type Service struct {
	store   StoreAPI
	catalog CatalogAPI
	locks   keyedLocks
}

func NewService(store StoreAPI, cat CatalogAPI) *Service {
	return &Service{store: store, catalog: cat}
}

// Submit validates and normalizes one partial submission, then merges it
// into the evaluator's record for the period. Saves for the same record key
// are serialized so concurrent partial saves cannot interleave.
func (s *Service) Submit(ctx context.Context, sub Submission) (Response, error) {
	if !catalog.ValidSection(sub.Section) {
		return Response{}, fmt.Errorf("%w: unknown section %q", ErrInvalidSubmission, sub.Section)
	}
	if sub.EvaluatorID == "" {
		return Response{}, fmt.Errorf("%w: evaluator id is required", ErrInvalidSubmission)
	}
	if sub.Section == catalog.SectionInternal {
		// Institutional answers are always about the evaluator's own workplace.
		sub.SubjectID = sub.EvaluatorID
	} else {
		if sub.SubjectID == "" {
			return Response{}, fmt.Errorf("%w: subject id is required for peer evaluations", ErrInvalidSubmission)
		}
		if sub.SubjectID == sub.EvaluatorID {
			return Response{}, ErrSelfEvaluation
		}
	}

	period, err := s.resolvePeriod(ctx, sub.PeriodID)
	if err != nil {
		return Response{}, err
	}
	sub.PeriodID = period.ID

	questions, err := s.catalog.ListQuestions(ctx, sub.Section, true)
	if err != nil {
		return Response{}, fmt.Errorf("load questions: %w", err)
	}
	idx := BuildIndex(questions)

	sub.Category = strings.TrimSpace(sub.Category)
	if sub.Category != "" {
		if err := s.checkCategory(ctx, sub.Section, sub.Category); err != nil {
			return Response{}, err
		}
	}

	normalized, err := NormalizeAnswers(sub.Answers, idx)
	if err != nil {
		return Response{}, err
	}
	sub.Answers = normalized

	unlock := s.locks.lock(sub.EvaluatorID + "|" + sub.SubjectID + "|" + sub.PeriodID)
	defer unlock()

	var existingPtr *Response
	existing, err := s.store.GetResponse(ctx, sub.EvaluatorID, sub.SubjectID, sub.PeriodID)
	if err == nil {
		existingPtr = &existing
	} else if !errors.Is(err, ErrResponseNotFound) {
		return Response{}, fmt.Errorf("load response: %w", err)
	}

	merged, err := Merge(existingPtr, sub, idx, time.Now().UTC())
	if err != nil {
		return Response{}, err
	}

	if err := s.store.UpsertResponse(ctx, merged); err != nil {
		return Response{}, fmt.Errorf("save response: %w", err)
	}
	return merged, nil
}

// MyResponse returns the evaluator's stored record so a screen can resume a
// half-finished survey. Empty subject means the evaluator's own internal
// record; empty period means the active one.
func (s *Service) MyResponse(ctx context.Context, evaluatorID, subjectID, periodID string) (Response, error) {
	if evaluatorID == "" {
		return Response{}, fmt.Errorf("%w: evaluator id is required", ErrInvalidSubmission)
	}
	if periodID == "" {
		active, err := s.catalog.ActivePeriod(ctx)
		if err != nil {
			return Response{}, err
		}
		periodID = active.ID
	}
	if subjectID == "" {
		subjectID = evaluatorID
	}
	return s.store.GetResponse(ctx, evaluatorID, subjectID, periodID)
}

func (s *Service) resolvePeriod(ctx context.Context, periodID string) (catalog.Period, error) {
	if periodID == "" {
		return s.catalog.ActivePeriod(ctx)
	}
	period, err := s.catalog.GetPeriod(ctx, periodID)
	if err != nil {
		return catalog.Period{}, err
	}
	if period.Status != catalog.PeriodStatusActive {
		return catalog.Period{}, catalog.ErrPeriodNotActive
	}
	return period, nil
}

func (s *Service) checkCategory(ctx context.Context, section, name string) error {
	categories, err := s.catalog.ListCategories(ctx, section)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for _, cat := range categories {
		if cat.Name == name {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category %q", ErrInvalidSubmission, name)
}

// keyedLocks hands out one mutex per record key. Entries are never evicted;
// the key space is bounded by evaluators times subjects per period.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
