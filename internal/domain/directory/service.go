package directory

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListEmployees(ctx context.Context, activeOnly bool, search string, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, activeOnly, strings.TrimSpace(search), limit, offset)
}

func (s *Service) CountEmployees(ctx context.Context, activeOnly bool, search string) (int, error) {
	return s.store.CountEmployees(ctx, activeOnly, strings.TrimSpace(search))
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	if err := normalize(&emp); err != nil {
		return "", err
	}
	emp.Active = true
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) error {
	if err := normalize(&emp); err != nil {
		return err
	}
	return s.store.UpdateEmployee(ctx, emp)
}

// Deactivate hides an employee from pickers without touching the responses
// that already reference them.
func (s *Service) Deactivate(ctx context.Context, employeeID string) error {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	emp.Active = false
	return s.store.UpdateEmployee(ctx, emp)
}

func normalize(emp *Employee) error {
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	if emp.FullName == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidEmployee)
	}
	if emp.Email == "" || !strings.Contains(emp.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidEmployee)
	}
	return nil
}
