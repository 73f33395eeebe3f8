package survey

import (
	"sort"
	"strings"

	"clima/internal/domain/catalog"
)

type AggregateFilter struct {
	Section   string
	SubjectID string
}

type CategoryScore struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

type AggregateResult struct {
	Categories     []CategoryScore `json:"categories"`
	TotalResponses int             `json:"totalResponses"`
}

type CategoryComment struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Aggregate averages scale scores per category over the given question set.
// A response counts toward TotalResponses when it answers at least one
// question of the set; text answers keep a response counted but contribute
// no numbers. Categories come out sorted by name, averages rounded to two
// decimals.
func Aggregate(responses []Response, questions []catalog.Question, filter AggregateFilter) AggregateResult {
	idx := BuildIndex(questions)
	sums := map[string]float64{}
	counts := map[string]int{}
	total := 0

	for _, resp := range responses {
		if filter.Section != "" && resp.Section != filter.Section {
			continue
		}
		if filter.SubjectID != "" && resp.SubjectID != filter.SubjectID {
			continue
		}
		matched := false
		for questionID, value := range resp.Answers {
			q, ok := idx[questionID]
			if !ok {
				continue
			}
			matched = true
			if q.Kind != catalog.KindScale || q.Category == "" {
				continue
			}
			score, ok := scoreValue(value)
			if !ok {
				continue
			}
			sums[q.Category] += score
			counts[q.Category]++
		}
		if matched {
			total++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	categories := make([]CategoryScore, 0, len(names))
	for _, name := range names {
		categories = append(categories, CategoryScore{
			Name:    name,
			Average: round2(sums[name] / float64(counts[name])),
		})
	}
	return AggregateResult{Categories: categories, TotalResponses: total}
}

// PeerComment is one peer comment with enough attribution for a report to
// either name the evaluator or honor their anonymity.
type PeerComment struct {
	EvaluatorID string `json:"evaluatorId"`
	SubjectID   string `json:"subjectId"`
	Anonymous   bool   `json:"anonymous"`
	Text        string `json:"text"`
}

// PeerComments collects the comments written about a subject. The whole
// comment is one opaque text; tags play no role in the peer section.
func PeerComments(responses []Response, subjectID string) []PeerComment {
	var out []PeerComment
	for _, resp := range responses {
		if resp.Section != catalog.SectionPeer {
			continue
		}
		if subjectID != "" && resp.SubjectID != subjectID {
			continue
		}
		text := strings.TrimSpace(resp.Comments)
		if text == "" {
			continue
		}
		out = append(out, PeerComment{
			EvaluatorID: resp.EvaluatorID,
			SubjectID:   resp.SubjectID,
			Anonymous:   resp.IsAnonymous,
			Text:        text,
		})
	}
	return out
}

// CategoryComments decodes one response's comment into ordered category and
// text pairs. A fully untagged legacy comment inherits the single category
// its answers point at; when that is ambiguous the texts surface with an
// empty category rather than being dropped.
func CategoryComments(resp Response, idx QuestionIndex) []CategoryComment {
	blocks := parseBlocks(resp.Comments)
	if len(blocks) == 0 {
		return nil
	}

	if allUntagged(blocks) {
		category, _ := idx.singleCategory(resp.Answers)
		out := make([]CategoryComment, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, CategoryComment{Category: category, Text: b.text})
		}
		return out
	}

	var out []CategoryComment
	for _, b := range blocks {
		if strings.TrimSpace(b.text) == "" {
			continue
		}
		out = append(out, CategoryComment{Category: b.category, Text: b.text})
	}
	return out
}

// InternalComments flattens the tagged comments of internal responses,
// optionally narrowed to one evaluator.
func InternalComments(responses []Response, evaluatorID string, idx QuestionIndex) []CategoryComment {
	var out []CategoryComment
	for _, resp := range responses {
		if resp.Section != catalog.SectionInternal {
			continue
		}
		if evaluatorID != "" && resp.EvaluatorID != evaluatorID {
			continue
		}
		out = append(out, CategoryComments(resp, idx)...)
	}
	return out
}
