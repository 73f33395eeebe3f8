package reporting

import (
	"clima/internal/domain/catalog"
	"clima/internal/domain/directory"
	"clima/internal/domain/survey"
)

// CategoryLine is one aggregated row of a report: the average score of a
// category plus the same value rescaled to 0..100 so mixed scales stay
// comparable on screen.
type CategoryLine struct {
	Name       string  `json:"name"`
	Average    float64 `json:"average"`
	Percentage int     `json:"percentage"`
}

// Overview aggregates the internal section of one period across the whole
// institution.
type Overview struct {
	Period         catalog.Period           `json:"period"`
	Categories     []CategoryLine           `json:"categories"`
	TotalResponses int                      `json:"totalResponses"`
	Comments       []survey.CategoryComment `json:"comments"`
}

// SubjectComment is a peer comment as a report shows it: the evaluator name
// is present only when the evaluator chose to be named.
type SubjectComment struct {
	Evaluator string `json:"evaluator,omitempty"`
	Text      string `json:"text"`
}

// SubjectReport aggregates the peer evaluations one employee received in a
// period.
type SubjectReport struct {
	Period          catalog.Period     `json:"period"`
	Subject         directory.Employee `json:"subject"`
	Categories      []CategoryLine     `json:"categories"`
	TotalEvaluators int                `json:"totalEvaluators"`
	Comments        []SubjectComment   `json:"comments"`
}

// QuestionLine is the per-question breakdown inside a category detail.
type QuestionLine struct {
	QuestionID string  `json:"questionId"`
	Text       string  `json:"text"`
	Average    float64 `json:"average"`
	Percentage int     `json:"percentage"`
	Answers    int     `json:"answers"`
}

type CategoryDetail struct {
	Period    catalog.Period `json:"period"`
	Section   string         `json:"section"`
	Category  string         `json:"category"`
	Questions []QuestionLine `json:"questions"`
	Comments  []string       `json:"comments"`
}

// SubjectSummary is one row of the admin index: how many peers evaluated
// each employee in a period.
type SubjectSummary struct {
	Subject     directory.Employee `json:"subject"`
	Evaluations int                `json:"evaluations"`
}
