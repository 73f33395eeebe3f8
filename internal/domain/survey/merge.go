package survey

import (
	"strings"
	"time"

	"clima/internal/domain/catalog"
)

// Merge folds a submission into the evaluator's existing record. Internal
// submissions accumulate: answers union (incoming wins on collision) and the
// incoming category's comment block replaces any earlier block for the same
// category, so re-submitting a category is idempotent. Peer submissions
// always replace the record wholesale.
func Merge(existing *Response, sub Submission, idx QuestionIndex, now time.Time) (Response, error) {
	if existing != nil && existing.PeriodID != sub.PeriodID {
		return Response{}, ErrPeriodMismatch
	}

	anonymous, err := resolveAnonymity(existing, sub)
	if err != nil {
		return Response{}, err
	}

	merged := Response{
		EvaluatorID: sub.EvaluatorID,
		SubjectID:   sub.SubjectID,
		PeriodID:    sub.PeriodID,
		Section:     sub.Section,
		IsAnonymous: anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if shouldMerge(existing, sub) {
		merged.CreatedAt = existing.CreatedAt
		merged.Answers = unionAnswers(existing.Answers, sub.Answers)
		merged.Comments = mergeComments(existing, sub, idx)
		return merged, nil
	}

	merged.Answers = copyAnswers(sub.Answers)
	if sub.Section == catalog.SectionInternal {
		merged.Comments = EncodeBlock(sub.Category, sub.Comment)
	} else {
		merged.Comments = strings.TrimSpace(sub.Comment)
	}
	return merged, nil
}

// shouldMerge: only internal submissions on top of an existing record merge;
// everything else replaces.
func shouldMerge(existing *Response, sub Submission) bool {
	return existing != nil && sub.Section == catalog.SectionInternal
}

// resolveAnonymity applies incoming over existing. The very first internal
// submission must make the choice explicitly; afterwards nil means keep.
func resolveAnonymity(existing *Response, sub Submission) (bool, error) {
	if sub.Anonymous != nil {
		return *sub.Anonymous, nil
	}
	if existing != nil {
		return existing.IsAnonymous, nil
	}
	if sub.Section == catalog.SectionInternal {
		return false, ErrMissingAnonymityChoice
	}
	return false, nil
}

func unionAnswers(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for questionID, value := range existing {
		merged[questionID] = value
	}
	for questionID, value := range incoming {
		merged[questionID] = value
	}
	return merged
}

func copyAnswers(answers map[string]any) map[string]any {
	out := make(map[string]any, len(answers))
	for questionID, value := range answers {
		out[questionID] = value
	}
	return out
}

// mergeComments rewrites the stored comment with the incoming category block.
// A fully untagged comment left behind by the pre-tag format is first
// upgraded to a tagged block when the already answered questions pin it to
// exactly one category; otherwise it stays untagged and keeps its place.
// An empty incoming comment leaves the stored blocks untouched.
func mergeComments(existing *Response, sub Submission, idx QuestionIndex) string {
	blocks := parseBlocks(existing.Comments)

	if len(blocks) > 0 && allUntagged(blocks) {
		if category, ok := idx.singleCategory(existing.Answers); ok {
			blocks = []block{{category: category, text: joinTexts(blocks), tagged: true}}
		}
	}

	text := strings.TrimSpace(sub.Comment)
	if text != "" {
		blocks = replaceCategoryBlock(blocks, sub.Category, text)
	}
	return renderBlocks(blocks)
}

// replaceCategoryBlock swaps the text of the first block tagged with the
// category, drops any later duplicates, and appends a new block when none
// existed.
func replaceCategoryBlock(blocks []block, category, text string) []block {
	out := make([]block, 0, len(blocks)+1)
	replaced := false
	for _, b := range blocks {
		if b.tagged && b.category == category {
			if replaced {
				continue
			}
			b.text = text
			replaced = true
		}
		out = append(out, b)
	}
	if !replaced {
		out = append(out, block{category: category, text: text, tagged: true})
	}
	return out
}

func allUntagged(blocks []block) bool {
	for _, b := range blocks {
		if b.tagged {
			return false
		}
	}
	return true
}

func joinTexts(blocks []block) string {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.text)
	}
	return strings.Join(texts, blockSeparator)
}
