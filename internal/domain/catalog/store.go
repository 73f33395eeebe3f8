package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListCategories(ctx context.Context, section string) ([]Category, error) {
	query := `
    SELECT id, name, section, description, display_order
    FROM categories
  `
	args := []any{}
	if section != "" {
		query += " WHERE section = $1"
		args = append(args, section)
	}
	query += " ORDER BY display_order, name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Section, &cat.Description, &cat.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, cat Category) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO categories (name, section, description, display_order)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, cat.Name, cat.Section, cat.Description, cat.DisplayOrder).Scan(&id)
	return id, err
}

func (s *Store) CategoryExists(ctx context.Context, name, section string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM categories WHERE name = $1 AND section = $2
  `, name, section).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListQuestions(ctx context.Context, section string, activeOnly bool) ([]Question, error) {
	query := `
    SELECT id, text, category, section, kind, options, required, display_order, active
    FROM questions
  `
	var conds []string
	args := []any{}
	if section != "" {
		args = append(args, section)
		conds = append(conds, "section = $1")
	}
	if activeOnly {
		conds = append(conds, "active")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY display_order, id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (Question, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, text, category, section, kind, options, required, display_order, active
    FROM questions
    WHERE id = $1
  `, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	return q, err
}

func (s *Store) CreateQuestion(ctx context.Context, q Question) (string, error) {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO questions (text, category, section, kind, options, required, display_order, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, q.Text, q.Category, q.Section, q.Kind, optionsJSON, q.Required, q.DisplayOrder, q.Active).Scan(&id)
	return id, err
}

func (s *Store) UpdateQuestion(ctx context.Context, q Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE questions
    SET text = $1, category = $2, kind = $3, options = $4, required = $5, display_order = $6, active = $7
    WHERE id = $8
  `, q.Text, q.Category, q.Kind, optionsJSON, q.Required, q.DisplayOrder, q.Active, q.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *Store) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, start_date, end_date, status, created_at
    FROM periods
    ORDER BY start_date DESC, created_at DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPeriod(ctx context.Context, periodID string) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status, created_at
    FROM periods
    WHERE id = $1
  `, periodID).Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	return p, err
}

func (s *Store) ActivePeriod(ctx context.Context) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status, created_at
    FROM periods
    WHERE status = $1
    ORDER BY start_date DESC
    LIMIT 1
  `, PeriodStatusActive).Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrNoActivePeriod
	}
	return p, err
}

func (s *Store) CreatePeriod(ctx context.Context, p Period) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO periods (name, start_date, end_date, status)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, p.Name, p.StartDate, p.EndDate, p.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdatePeriodStatus(ctx context.Context, periodID, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE periods SET status = $1 WHERE id = $2", status, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (s *Store) CloseExpiredPeriods(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE periods
    SET status = $1
    WHERE status = $2 AND end_date < $3
  `, PeriodStatusClosed, PeriodStatusActive, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var optionsJSON []byte
	if err := row.Scan(&q.ID, &q.Text, &q.Category, &q.Section, &q.Kind, &optionsJSON, &q.Required, &q.DisplayOrder, &q.Active); err != nil {
		return Question{}, err
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return Question{}, err
		}
	}
	return q, nil
}
