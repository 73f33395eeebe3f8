package catalog

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListCategories(ctx context.Context, section string) ([]Category, error)
	CreateCategory(ctx context.Context, cat Category) (string, error)
	CategoryExists(ctx context.Context, name, section string) (bool, error)

	ListQuestions(ctx context.Context, section string, activeOnly bool) ([]Question, error)
	GetQuestion(ctx context.Context, questionID string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) (string, error)
	UpdateQuestion(ctx context.Context, q Question) error

	ListPeriods(ctx context.Context) ([]Period, error)
	GetPeriod(ctx context.Context, periodID string) (Period, error)
	ActivePeriod(ctx context.Context) (Period, error)
	CreatePeriod(ctx context.Context, p Period) (string, error)
	UpdatePeriodStatus(ctx context.Context, periodID, status string) error
	CloseExpiredPeriods(ctx context.Context, now time.Time) (int, error)
}
