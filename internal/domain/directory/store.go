package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListEmployees(ctx context.Context, activeOnly bool, search string, limit, offset int) ([]Employee, error) {
	where, args := employeeFilter(activeOnly, search)
	args = append(args, limit, offset)
	query := `
    SELECT id, full_name, email, active, created_at
    FROM employees
  ` + where + fmt.Sprintf(" ORDER BY full_name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.FullName, &emp.Email, &emp.Active, &emp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CountEmployees(ctx context.Context, activeOnly bool, search string) (int, error) {
	where, args := employeeFilter(activeOnly, search)
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees"+where, args...).Scan(&count)
	return count, err
}

// employeeFilter builds the WHERE clause the list and count queries share.
func employeeFilter(activeOnly bool, search string) (string, []any) {
	var conds []string
	args := []any{}
	if activeOnly {
		conds = append(conds, "active")
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		conds = append(conds, fmt.Sprintf("full_name ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, full_name, email, active, created_at
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&emp.ID, &emp.FullName, &emp.Email, &emp.Active, &emp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (full_name, email, active)
    VALUES ($1,$2,$3)
    RETURNING id
  `, emp.FullName, emp.Email, emp.Active).Scan(&id)
	if isUniqueViolation(err) {
		return "", ErrDuplicateEmail
	}
	return id, err
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET full_name = $1, email = $2, active = $3
    WHERE id = $4
  `, emp.FullName, emp.Email, emp.Active, emp.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
