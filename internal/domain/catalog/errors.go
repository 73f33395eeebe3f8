package catalog

import "errors"

var (
	ErrPeriodNotFound    = errors.New("evaluation period not found")
	ErrNoActivePeriod    = errors.New("no active evaluation period")
	ErrPeriodNotActive   = errors.New("evaluation period is not active")
	ErrPeriodConflict    = errors.New("another evaluation period is already active")
	ErrInvalidTransition = errors.New("invalid period status transition")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryExists    = errors.New("category already exists for section")
	ErrInvalidSection    = errors.New("invalid section")
)
