package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListCategories(ctx context.Context, section string) ([]Category, error) {
	return s.store.ListCategories(ctx, section)
}

func (s *Service) CreateCategory(ctx context.Context, cat Category) (string, error) {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return "", fmt.Errorf("category name is required")
	}
	if !ValidSection(cat.Section) {
		return "", fmt.Errorf("invalid section %q", cat.Section)
	}
	if strings.ContainsAny(cat.Name, "]|") {
		return "", fmt.Errorf("category name must not contain ']' or '|'")
	}
	exists, err := s.store.CategoryExists(ctx, cat.Name, cat.Section)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrCategoryExists
	}
	return s.store.CreateCategory(ctx, cat)
}

func (s *Service) ListQuestions(ctx context.Context, section string, activeOnly bool) ([]Question, error) {
	return s.store.ListQuestions(ctx, section, activeOnly)
}

func (s *Service) GetQuestion(ctx context.Context, questionID string) (Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

func (s *Service) CreateQuestion(ctx context.Context, q Question) (string, error) {
	if err := s.validateQuestion(ctx, &q); err != nil {
		return "", err
	}
	return s.store.CreateQuestion(ctx, q)
}

func (s *Service) UpdateQuestion(ctx context.Context, q Question) error {
	if q.ID == "" {
		return ErrQuestionNotFound
	}
	current, err := s.store.GetQuestion(ctx, q.ID)
	if err != nil {
		return err
	}
	// The section of a question is fixed at creation; moving scale answers
	// between sections would detach them from their recorded responses.
	q.Section = current.Section
	if err := s.validateQuestion(ctx, &q); err != nil {
		return err
	}
	return s.store.UpdateQuestion(ctx, q)
}

func (s *Service) validateQuestion(ctx context.Context, q *Question) error {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if !ValidSection(q.Section) {
		return fmt.Errorf("invalid section %q", q.Section)
	}
	if !ValidKind(q.Kind) {
		return fmt.Errorf("invalid kind %q", q.Kind)
	}
	if q.Kind == KindScale && len(q.Options) < 2 {
		return fmt.Errorf("scale question needs at least 2 options")
	}
	if q.Kind == KindText {
		q.Options = nil
	}
	if q.Category != "" {
		exists, err := s.store.CategoryExists(ctx, q.Category, q.Section)
		if err != nil {
			return err
		}
		if !exists {
			return ErrCategoryNotFound
		}
	}
	return nil
}

func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.store.ListPeriods(ctx)
}

func (s *Service) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	return s.store.GetPeriod(ctx, periodID)
}

func (s *Service) ActivePeriod(ctx context.Context) (Period, error) {
	return s.store.ActivePeriod(ctx)
}

func (s *Service) CreatePeriod(ctx context.Context, name string, startDate, endDate time.Time) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("period name is required")
	}
	if endDate.Before(startDate) {
		return "", fmt.Errorf("period end date must not precede start date")
	}
	return s.store.CreatePeriod(ctx, Period{
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    PeriodStatusDraft,
	})
}

// OpenPeriod activates a draft period. Only one period may be active at a
// time; responses bind to the active period when submitted without one.
func (s *Service) OpenPeriod(ctx context.Context, periodID string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != PeriodStatusDraft {
		return ErrInvalidTransition
	}
	if _, err := s.store.ActivePeriod(ctx); err == nil {
		return ErrPeriodConflict
	} else if !errors.Is(err, ErrNoActivePeriod) {
		return err
	}
	return s.store.UpdatePeriodStatus(ctx, periodID, PeriodStatusActive)
}

func (s *Service) ClosePeriod(ctx context.Context, periodID string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != PeriodStatusActive {
		return ErrInvalidTransition
	}
	return s.store.UpdatePeriodStatus(ctx, periodID, PeriodStatusClosed)
}

func (s *Service) CloseExpiredPeriods(ctx context.Context, now time.Time) (int, error) {
	return s.store.CloseExpiredPeriods(ctx, now)
}
