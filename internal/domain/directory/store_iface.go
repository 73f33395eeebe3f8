package directory

import "context"

type StoreAPI interface {
	ListEmployees(ctx context.Context, activeOnly bool, search string, limit, offset int) ([]Employee, error)
	CountEmployees(ctx context.Context, activeOnly bool, search string) (int, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (string, error)
	UpdateEmployee(ctx context.Context, emp Employee) error
}
