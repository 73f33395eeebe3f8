package survey

import (
	"fmt"
	"strings"
	"time"

	"clima/internal/domain/catalog"
)

// Response is the single record an evaluator holds per subject and period.
// Internal (institutional) responses use the evaluator as their own subject.
// Answer values are already normalized: float64 scores for scale questions
// and strings for free-text ones.
type Response struct {
	EvaluatorID string         `json:"evaluatorId"`
	SubjectID   string         `json:"subjectId"`
	PeriodID    string         `json:"periodId"`
	Section     string         `json:"section"`
	Answers     map[string]any `json:"answers"`
	Comments    string         `json:"comments"`
	IsAnonymous bool           `json:"isAnonymous"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Submission is one partial save coming from a survey screen. Answers carry
// raw values (zero-based option index for scale questions, text otherwise).
// Anonymous is tri-state: nil keeps whatever the existing record says.
type Submission struct {
	EvaluatorID string
	SubjectID   string
	PeriodID    string
	Section     string
	Category    string
	Answers     map[string]any
	Comment     string
	Anonymous   *bool
}

type QuestionIndex map[string]catalog.Question

func BuildIndex(questions []catalog.Question) QuestionIndex {
	idx := make(QuestionIndex, len(questions))
	for _, q := range questions {
		idx[q.ID] = q
	}
	return idx
}

// singleCategory reports the category shared by every answered question, if
// there is exactly one. It drives the upgrade of legacy untagged comments.
func (idx QuestionIndex) singleCategory(answers map[string]any) (string, bool) {
	found := ""
	for questionID := range answers {
		q, ok := idx[questionID]
		if !ok || q.Category == "" {
			continue
		}
		if found == "" {
			found = q.Category
			continue
		}
		if found != q.Category {
			return "", false
		}
	}
	return found, found != ""
}

// NormalizeAnswers validates raw answers against the question index and
// converts scale option indexes into scores. Empty text answers are dropped.
func NormalizeAnswers(raw map[string]any, idx QuestionIndex) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	normalized := make(map[string]any, len(raw))
	for questionID, value := range raw {
		q, ok := idx[questionID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown question %q", ErrInvalidSubmission, questionID)
		}
		switch q.Kind {
		case catalog.KindScale:
			optionIndex, ok := optionIndexValue(value)
			if !ok {
				return nil, fmt.Errorf("%w: question %q expects an option index", ErrInvalidSubmission, questionID)
			}
			normalized[questionID] = ScoreOf(optionIndex, len(q.Options))
		case catalog.KindText:
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: question %q expects text", ErrInvalidSubmission, questionID)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			normalized[questionID] = text
		default:
			return nil, fmt.Errorf("%w: question %q has unsupported kind %q", ErrInvalidSubmission, questionID, q.Kind)
		}
	}
	return normalized, nil
}

// optionIndexValue accepts the numeric types a JSON decode or caller may
// hand us. Fractional values are not valid option indexes.
func optionIndexValue(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case float32:
		if v != float32(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func scoreValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
