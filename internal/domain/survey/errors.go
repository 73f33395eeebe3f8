package survey

import "errors"

var (
	ErrMissingAnonymityChoice = errors.New("anonymity choice is required on the first submission")
	ErrPeriodMismatch         = errors.New("existing response belongs to a different period")
	ErrResponseNotFound       = errors.New("response not found")
	ErrSelfEvaluation         = errors.New("peer evaluation cannot target the evaluator")
	ErrInvalidSubmission      = errors.New("invalid submission")
)
