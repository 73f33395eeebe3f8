package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"clima/internal/domain/catalog"
	"clima/internal/domain/directory"
	"clima/internal/domain/survey"
	"clima/internal/platform/metrics"
)

// ResponseSource is the slice of the response store reports read from.
type ResponseSource interface {
	ListResponses(ctx context.Context, periodID, section string) ([]survey.Response, error)
}

type CatalogAPI interface {
	ActivePeriod(ctx context.Context) (catalog.Period, error)
	GetPeriod(ctx context.Context, periodID string) (catalog.Period, error)
	ListQuestions(ctx context.Context, section string, activeOnly bool) ([]catalog.Question, error)
}

type DirectoryAPI interface {
	GetEmployee(ctx context.Context, employeeID string) (directory.Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool, search string, limit, offset int) ([]directory.Employee, error)
}

// Service composes responses, catalog and roster into read-only reports.
// Closed periods stay reportable; only submissions require an active one.
type Service struct {
	responses ResponseSource
	catalog   CatalogAPI
	directory DirectoryAPI
	metrics   *metrics.Collector
}

func NewService(responses ResponseSource, cat CatalogAPI, dir DirectoryAPI, collector *metrics.Collector) *Service {
	return &Service{responses: responses, catalog: cat, directory: dir, metrics: collector}
}

// Overview reports the internal section of a period for the whole
// institution. Empty periodID means the active period.
func (s *Service) Overview(ctx context.Context, periodID string) (Overview, error) {
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return Overview{}, err
	}

	questions, err := s.catalog.ListQuestions(ctx, catalog.SectionInternal, false)
	if err != nil {
		return Overview{}, fmt.Errorf("load questions: %w", err)
	}
	responses, err := s.responses.ListResponses(ctx, period.ID, catalog.SectionInternal)
	if err != nil {
		return Overview{}, fmt.Errorf("load responses: %w", err)
	}

	agg := survey.Aggregate(responses, questions, survey.AggregateFilter{Section: catalog.SectionInternal})
	idx := survey.BuildIndex(questions)

	report := Overview{
		Period:         period,
		Categories:     categoryLines(agg.Categories, questions),
		TotalResponses: agg.TotalResponses,
		Comments:       survey.InternalComments(responses, "", idx),
	}
	s.record("overview")
	return report, nil
}

// SubjectReport reports the peer evaluations one employee received.
func (s *Service) SubjectReport(ctx context.Context, subjectID, periodID string) (SubjectReport, error) {
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return SubjectReport{}, err
	}
	subject, err := s.directory.GetEmployee(ctx, subjectID)
	if err != nil {
		return SubjectReport{}, err
	}

	questions, err := s.catalog.ListQuestions(ctx, catalog.SectionPeer, false)
	if err != nil {
		return SubjectReport{}, fmt.Errorf("load questions: %w", err)
	}
	responses, err := s.responses.ListResponses(ctx, period.ID, catalog.SectionPeer)
	if err != nil {
		return SubjectReport{}, fmt.Errorf("load responses: %w", err)
	}

	agg := survey.Aggregate(responses, questions, survey.AggregateFilter{
		Section:   catalog.SectionPeer,
		SubjectID: subject.ID,
	})

	comments, err := s.attributeComments(ctx, survey.PeerComments(responses, subject.ID))
	if err != nil {
		return SubjectReport{}, err
	}

	report := SubjectReport{
		Period:          period,
		Subject:         subject,
		Categories:      categoryLines(agg.Categories, questions),
		TotalEvaluators: agg.TotalResponses,
		Comments:        comments,
	}
	s.record("subject")
	return report, nil
}

// CategoryDetail breaks one category down per question. Internal categories
// also carry the comments tagged with them; peer comments are untagged and
// belong to subject reports instead.
func (s *Service) CategoryDetail(ctx context.Context, periodID, section, category string) (CategoryDetail, error) {
	if !catalog.ValidSection(section) {
		return CategoryDetail{}, fmt.Errorf("%w: unknown section %q", catalog.ErrInvalidSection, section)
	}
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return CategoryDetail{}, err
	}

	questions, err := s.catalog.ListQuestions(ctx, section, false)
	if err != nil {
		return CategoryDetail{}, fmt.Errorf("load questions: %w", err)
	}
	responses, err := s.responses.ListResponses(ctx, period.ID, section)
	if err != nil {
		return CategoryDetail{}, fmt.Errorf("load responses: %w", err)
	}

	detail := CategoryDetail{
		Period:    period,
		Section:   section,
		Category:  category,
		Questions: questionLines(responses, questions, category),
	}
	if section == catalog.SectionInternal {
		idx := survey.BuildIndex(questions)
		for _, comment := range survey.InternalComments(responses, "", idx) {
			if comment.Category == category {
				detail.Comments = append(detail.Comments, comment.Text)
			}
		}
	}
	s.record("category")
	return detail, nil
}

// SubjectsSummary lists the active roster with the number of peer
// evaluations each employee received in the period.
func (s *Service) SubjectsSummary(ctx context.Context, periodID string) ([]SubjectSummary, error) {
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListResponses(ctx, period.ID, catalog.SectionPeer)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	counts := map[string]int{}
	for _, resp := range responses {
		counts[resp.SubjectID]++
	}

	employees, err := s.directory.ListEmployees(ctx, true, "", maxRosterPage, 0)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	out := make([]SubjectSummary, 0, len(employees))
	for _, emp := range employees {
		out = append(out, SubjectSummary{Subject: emp, Evaluations: counts[emp.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Evaluations != out[j].Evaluations {
			return out[i].Evaluations > out[j].Evaluations
		}
		return out[i].Subject.FullName < out[j].Subject.FullName
	})
	return out, nil
}

// maxRosterPage bounds the roster fetch for summaries; an institution large
// enough to exceed it should page through the directory endpoints instead.
const maxRosterPage = 1000

func (s *Service) resolvePeriod(ctx context.Context, periodID string) (catalog.Period, error) {
	if periodID == "" {
		return s.catalog.ActivePeriod(ctx)
	}
	return s.catalog.GetPeriod(ctx, periodID)
}

// attributeComments resolves evaluator names for non-anonymous comments. A
// missing roster entry degrades to an unnamed comment instead of failing the
// whole report.
func (s *Service) attributeComments(ctx context.Context, comments []survey.PeerComment) ([]SubjectComment, error) {
	out := make([]SubjectComment, 0, len(comments))
	for _, comment := range comments {
		line := SubjectComment{Text: comment.Text}
		if !comment.Anonymous {
			evaluator, err := s.directory.GetEmployee(ctx, comment.EvaluatorID)
			switch {
			case err == nil:
				line.Evaluator = evaluator.FullName
			case !errors.Is(err, directory.ErrEmployeeNotFound):
				return nil, err
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func (s *Service) record(kind string) {
	if s.metrics != nil {
		s.metrics.RecordReport(kind)
	}
}

// categoryLines attaches percentages to aggregated averages. The percentage
// rescales the average within the score envelope of the category's scale
// questions, so a 4-option agreement category maps [-1,1] onto 0..100.
func categoryLines(scores []survey.CategoryScore, questions []catalog.Question) []CategoryLine {
	ranges := map[string]survey.ScoreRange{}
	for _, q := range questions {
		if q.Kind != catalog.KindScale || q.Category == "" {
			continue
		}
		r := survey.RangeOf(len(q.Options))
		existing, ok := ranges[q.Category]
		if !ok {
			ranges[q.Category] = r
			continue
		}
		if r.Min < existing.Min {
			existing.Min = r.Min
		}
		if r.Max > existing.Max {
			existing.Max = r.Max
		}
		ranges[q.Category] = existing
	}

	out := make([]CategoryLine, 0, len(scores))
	for _, score := range scores {
		line := CategoryLine{Name: score.Name, Average: score.Average}
		if r, ok := ranges[score.Name]; ok {
			line.Percentage = survey.PercentageOf(score.Average, r.Min, r.Max)
		}
		out = append(out, line)
	}
	return out
}

// questionLines averages each scale question of a category on its own,
// keeping the catalog's display order.
func questionLines(responses []survey.Response, questions []catalog.Question, category string) []QuestionLine {
	type acc struct {
		sum   float64
		count int
	}
	sums := map[string]*acc{}
	for _, resp := range responses {
		for questionID, value := range resp.Answers {
			score, ok := value.(float64)
			if !ok {
				continue
			}
			a, ok := sums[questionID]
			if !ok {
				a = &acc{}
				sums[questionID] = a
			}
			a.sum += score
			a.count++
		}
	}

	var out []QuestionLine
	for _, q := range questions {
		if q.Category != category || q.Kind != catalog.KindScale {
			continue
		}
		a, ok := sums[q.ID]
		if !ok || a.count == 0 {
			continue
		}
		average := math.Round(a.sum/float64(a.count)*100) / 100
		r := survey.RangeOf(len(q.Options))
		out = append(out, QuestionLine{
			QuestionID: q.ID,
			Text:       q.Text,
			Average:    average,
			Percentage: survey.PercentageOf(average, r.Min, r.Max),
			Answers:    a.count,
		})
	}
	return out
}
