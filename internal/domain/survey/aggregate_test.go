package survey

import (
	"reflect"
	"testing"

	"clima/internal/domain/catalog"
)

func textQuestion(id, category string) catalog.Question {
	return catalog.Question{ID: id, Category: category, Section: catalog.SectionInternal, Kind: catalog.KindText, Active: true}
}

func internalResponse(evaluatorID string, answers map[string]any, comments string) Response {
	return Response{
		EvaluatorID: evaluatorID,
		SubjectID:   evaluatorID,
		PeriodID:    "p1",
		Section:     catalog.SectionInternal,
		Answers:     answers,
		Comments:    comments,
	}
}

func TestAggregateOppositeExtremesAverageZero(t *testing.T) {
	questions := []catalog.Question{internalQuestion("q1", "Alimentación")}
	responses := []Response{
		internalResponse("e1", map[string]any{"q1": ScoreOf(3, 4)}, ""),
		internalResponse("e2", map[string]any{"q1": ScoreOf(0, 4)}, ""),
	}

	result := Aggregate(responses, questions, AggregateFilter{Section: catalog.SectionInternal})
	if result.TotalResponses != 2 {
		t.Fatalf("expected 2 responses, got %d", result.TotalResponses)
	}
	want := []CategoryScore{{Name: "Alimentación", Average: 0}}
	if !reflect.DeepEqual(result.Categories, want) {
		t.Fatalf("categories = %+v, want %+v", result.Categories, want)
	}
}

func TestAggregateRoundsToTwoDecimals(t *testing.T) {
	questions := []catalog.Question{internalQuestion("q1", "Alimentación")}
	responses := []Response{
		internalResponse("e1", map[string]any{"q1": 1.0}, ""),
		internalResponse("e2", map[string]any{"q1": 0.75}, ""),
	}

	result := Aggregate(responses, questions, AggregateFilter{})
	if len(result.Categories) != 1 || result.Categories[0].Average != 0.88 {
		t.Fatalf("expected average 0.88, got %+v", result.Categories)
	}
}

func TestAggregateCountsDistinctResponses(t *testing.T) {
	questions := []catalog.Question{
		internalQuestion("q1", "Alimentación"),
		internalQuestion("q2", "Limpieza"),
		textQuestion("qt", ""),
	}
	responses := []Response{
		// Answers two scale questions but is still one response.
		internalResponse("e1", map[string]any{"q1": 1.0, "q2": -0.75}, ""),
		// Text-only responses count toward the total without adding numbers.
		internalResponse("e2", map[string]any{"qt": "sin comentarios"}, ""),
		// Unknown questions do not make a response count.
		internalResponse("e3", map[string]any{"zz": 1.0}, ""),
	}

	result := Aggregate(responses, questions, AggregateFilter{})
	if result.TotalResponses != 2 {
		t.Fatalf("expected 2 counted responses, got %d", result.TotalResponses)
	}

	want := []CategoryScore{
		{Name: "Alimentación", Average: 1},
		{Name: "Limpieza", Average: -0.75},
	}
	if !reflect.DeepEqual(result.Categories, want) {
		t.Fatalf("categories = %+v, want %+v", result.Categories, want)
	}
}

func TestAggregateFiltersBySubject(t *testing.T) {
	questions := []catalog.Question{
		{ID: "pq1", Category: "Colaboración", Section: catalog.SectionPeer, Kind: catalog.KindScale, Options: agreementOptions, Active: true},
	}
	responses := []Response{
		{EvaluatorID: "e1", SubjectID: "s1", PeriodID: "p1", Section: catalog.SectionPeer, Answers: map[string]any{"pq1": 1.0}},
		{EvaluatorID: "e2", SubjectID: "s1", PeriodID: "p1", Section: catalog.SectionPeer, Answers: map[string]any{"pq1": 0.75}},
		{EvaluatorID: "e3", SubjectID: "s2", PeriodID: "p1", Section: catalog.SectionPeer, Answers: map[string]any{"pq1": -1.0}},
	}

	result := Aggregate(responses, questions, AggregateFilter{Section: catalog.SectionPeer, SubjectID: "s1"})
	if result.TotalResponses != 2 {
		t.Fatalf("expected 2 responses for s1, got %d", result.TotalResponses)
	}
	if result.Categories[0].Average != 0.88 {
		t.Fatalf("expected average 0.88, got %+v", result.Categories)
	}
}

func TestCategoryCommentsTagged(t *testing.T) {
	idx := testIndex()
	resp := internalResponse("e1", map[string]any{"q1": 1.0},
		"[[internal|Alimentación]] buena comida\n\n[[internal|Limpieza]] mejorar baños")

	got := CategoryComments(resp, idx)
	want := []CategoryComment{
		{Category: "Alimentación", Text: "buena comida"},
		{Category: "Limpieza", Text: "mejorar baños"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("comments = %+v, want %+v", got, want)
	}
}

func TestCategoryCommentsLegacyInheritsSingleCategory(t *testing.T) {
	idx := testIndex()

	resp := internalResponse("e1", map[string]any{"q1": 1.0}, "todo bien")
	got := CategoryComments(resp, idx)
	if len(got) != 1 || got[0].Category != "Alimentación" || got[0].Text != "todo bien" {
		t.Fatalf("expected inherited category, got %+v", got)
	}

	// Answers spanning two categories leave the text uncategorized.
	ambiguous := internalResponse("e1", map[string]any{"q1": 1.0, "q2": -1.0}, "todo bien")
	got = CategoryComments(ambiguous, idx)
	if len(got) != 1 || got[0].Category != "" || got[0].Text != "todo bien" {
		t.Fatalf("expected uncategorized comment, got %+v", got)
	}
}

func TestInternalCommentsFiltersByEvaluator(t *testing.T) {
	idx := testIndex()
	responses := []Response{
		internalResponse("e1", map[string]any{"q1": 1.0}, "[[internal|Alimentación]] bien"),
		internalResponse("e2", map[string]any{"q2": -1.0}, "[[internal|Limpieza]] mal"),
		{EvaluatorID: "e3", SubjectID: "s9", PeriodID: "p1", Section: catalog.SectionPeer, Comments: "no cuenta"},
	}

	all := InternalComments(responses, "", idx)
	if len(all) != 2 {
		t.Fatalf("expected 2 internal comments, got %+v", all)
	}

	only := InternalComments(responses, "e2", idx)
	if len(only) != 1 || only[0].Category != "Limpieza" {
		t.Fatalf("expected e2's comment, got %+v", only)
	}
}

func TestPeerCommentsAttribution(t *testing.T) {
	responses := []Response{
		{EvaluatorID: "e1", SubjectID: "s1", Section: catalog.SectionPeer, Comments: "  excelente  ", IsAnonymous: true},
		{EvaluatorID: "e2", SubjectID: "s1", Section: catalog.SectionPeer, Comments: ""},
		{EvaluatorID: "e3", SubjectID: "s2", Section: catalog.SectionPeer, Comments: "otro sujeto"},
		{EvaluatorID: "e4", SubjectID: "s1", Section: catalog.SectionInternal, Comments: "interno"},
	}

	got := PeerComments(responses, "s1")
	if len(got) != 1 {
		t.Fatalf("expected 1 comment, got %+v", got)
	}
	if got[0].EvaluatorID != "e1" || !got[0].Anonymous || got[0].Text != "excelente" {
		t.Fatalf("unexpected comment %+v", got[0])
	}
}
