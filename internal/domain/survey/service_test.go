package survey

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clima/internal/domain/catalog"
)

type fakeStore struct {
	mu        sync.Mutex
	responses map[string]Response
}

func storeKey(evaluatorID, subjectID, periodID string) string {
	return evaluatorID + "|" + subjectID + "|" + periodID
}

func (f *fakeStore) GetResponse(_ context.Context, evaluatorID, subjectID, periodID string) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.responses[storeKey(evaluatorID, subjectID, periodID)]
	if !ok {
		return Response{}, ErrResponseNotFound
	}
	return resp, nil
}

func (f *fakeStore) UpsertResponse(_ context.Context, resp Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses == nil {
		f.responses = map[string]Response{}
	}
	f.responses[storeKey(resp.EvaluatorID, resp.SubjectID, resp.PeriodID)] = resp
	return nil
}

func (f *fakeStore) ListResponses(_ context.Context, periodID, section string) ([]Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Response
	for _, resp := range f.responses {
		if resp.PeriodID != periodID {
			continue
		}
		if section != "" && resp.Section != section {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

type fakeCatalog struct {
	periods    []catalog.Period
	questions  []catalog.Question
	categories []catalog.Category
}

func (f *fakeCatalog) ActivePeriod(context.Context) (catalog.Period, error) {
	for _, p := range f.periods {
		if p.Status == catalog.PeriodStatusActive {
			return p, nil
		}
	}
	return catalog.Period{}, catalog.ErrNoActivePeriod
}

func (f *fakeCatalog) GetPeriod(_ context.Context, periodID string) (catalog.Period, error) {
	for _, p := range f.periods {
		if p.ID == periodID {
			return p, nil
		}
	}
	return catalog.Period{}, catalog.ErrPeriodNotFound
}

func (f *fakeCatalog) ListQuestions(_ context.Context, section string, activeOnly bool) ([]catalog.Question, error) {
	var out []catalog.Question
	for _, q := range f.questions {
		if section != "" && q.Section != section {
			continue
		}
		if activeOnly && !q.Active {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeCatalog) ListCategories(_ context.Context, section string) ([]catalog.Category, error) {
	var out []catalog.Category
	for _, cat := range f.categories {
		if section == "" || cat.Section == section {
			out = append(out, cat)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{}
	cat := &fakeCatalog{
		periods: []catalog.Period{
			{ID: "p1", Name: "Clima 2026", Status: catalog.PeriodStatusActive},
			{ID: "p0", Name: "Clima 2025", Status: catalog.PeriodStatusClosed},
		},
		questions: []catalog.Question{
			internalQuestion("q1", "Alimentación"),
			internalQuestion("q2", "Limpieza"),
			textQuestion("qt", ""),
			{ID: "pq1", Category: "Colaboración", Section: catalog.SectionPeer, Kind: catalog.KindScale, Options: agreementOptions, Active: true},
		},
		categories: []catalog.Category{
			{ID: "c1", Name: "Alimentación", Section: catalog.SectionInternal},
			{ID: "c2", Name: "Limpieza", Section: catalog.SectionInternal},
			{ID: "c3", Name: "Colaboración", Section: catalog.SectionPeer},
		},
	}
	return NewService(store, cat), store
}

func TestSubmitFirstInternalRequiresAnonymity(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"q1": 3},
	})
	if !errors.Is(err, ErrMissingAnonymityChoice) {
		t.Fatalf("expected ErrMissingAnonymityChoice, got %v", err)
	}
}

func TestSubmitNormalizesScaleAnswers(t *testing.T) {
	svc, _ := newTestService()
	resp, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"q1": 3, "q2": 0},
		Anonymous:   boolPtr(false),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Answers["q1"] != 1.0 || resp.Answers["q2"] != -1.0 {
		t.Fatalf("expected normalized scores, got %v", resp.Answers)
	}
}

func TestSubmitInternalBindsToOwnSubjectAndActivePeriod(t *testing.T) {
	svc, store := newTestService()
	resp, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		SubjectID:   "someone-else",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"q1": 2},
		Anonymous:   boolPtr(true),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.SubjectID != "e1" {
		t.Fatalf("internal submissions are about the evaluator, got subject %q", resp.SubjectID)
	}
	if resp.PeriodID != "p1" {
		t.Fatalf("expected active period p1, got %q", resp.PeriodID)
	}
	if _, err := store.GetResponse(context.Background(), "e1", "e1", "p1"); err != nil {
		t.Fatalf("expected stored record, got %v", err)
	}
}

func TestSubmitRejectsSelfPeerEvaluation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		SubjectID:   "e1",
		Section:     catalog.SectionPeer,
		Answers:     map[string]any{"pq1": 2},
	})
	if !errors.Is(err, ErrSelfEvaluation) {
		t.Fatalf("expected ErrSelfEvaluation, got %v", err)
	}
}

func TestSubmitRejectsUnknownQuestion(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"zz": 1},
		Anonymous:   boolPtr(false),
	})
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Category:    "Nutrición",
		Comment:     "no existe",
		Anonymous:   boolPtr(false),
	})
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
}

func TestSubmitRejectsInactivePeriod(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		PeriodID:    "p0",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"q1": 1},
		Anonymous:   boolPtr(false),
	})
	if !errors.Is(err, catalog.ErrPeriodNotActive) {
		t.Fatalf("expected ErrPeriodNotActive, got %v", err)
	}
}

func TestSubmitDropsBlankTextAnswers(t *testing.T) {
	svc, _ := newTestService()
	resp, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"qt": "   "},
		Anonymous:   boolPtr(false),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, ok := resp.Answers["qt"]; ok {
		t.Fatalf("blank text answers must be dropped, got %v", resp.Answers)
	}
}

func TestSubmitMergesCategoriesAcrossSaves(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Category:    "Alimentación",
		Answers:     map[string]any{"q1": 3},
		Comment:     "bien",
		Anonymous:   boolPtr(true),
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	merged, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Category:    "Limpieza",
		Answers:     map[string]any{"q2": 1},
		Comment:     "mejorar",
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if merged.Answers["q1"] != 1.0 || merged.Answers["q2"] != -0.75 {
		t.Fatalf("expected merged answers, got %v", merged.Answers)
	}
	want := "[[internal|Alimentación]] bien\n\n[[internal|Limpieza]] mejorar"
	if merged.Comments != want {
		t.Fatalf("comments = %q, want %q", merged.Comments, want)
	}
	if !merged.IsAnonymous {
		t.Fatal("anonymity choice must survive later saves")
	}
}

func TestSubmitPeerReplacesPreviousSave(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		SubjectID:   "s1",
		Section:     catalog.SectionPeer,
		Answers:     map[string]any{"pq1": 0},
		Comment:     "primer borrador",
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	final, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		SubjectID:   "s1",
		Section:     catalog.SectionPeer,
		Answers:     map[string]any{"pq1": 3},
		Comment:     "versión final",
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if final.Answers["pq1"] != 1.0 {
		t.Fatalf("expected replaced answer, got %v", final.Answers)
	}
	if final.Comments != "versión final" {
		t.Fatalf("expected replaced comment, got %q", final.Comments)
	}
}

func TestConcurrentSavesDoNotLoseAnswers(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{},
		Anonymous:   boolPtr(false),
	}); err != nil {
		t.Fatalf("seed submit: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		questionID := "q1"
		if i == 1 {
			questionID = "q2"
		}
		wg.Add(1)
		go func(questionID string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := svc.Submit(ctx, Submission{
					EvaluatorID: "e1",
					Section:     catalog.SectionInternal,
					Answers:     map[string]any{questionID: 3},
				}); err != nil {
					t.Errorf("submit %s: %v", questionID, err)
					return
				}
			}
		}(questionID)
	}
	wg.Wait()

	resp, err := store.GetResponse(ctx, "e1", "e1", "p1")
	if err != nil {
		t.Fatalf("get response: %v", err)
	}
	if resp.Answers["q1"] != 1.0 || resp.Answers["q2"] != 1.0 {
		t.Fatalf("lost an answer under concurrency: %v", resp.Answers)
	}
}

func TestMyResponseDefaultsToOwnRecordInActivePeriod(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Submission{
		EvaluatorID: "e1",
		Section:     catalog.SectionInternal,
		Answers:     map[string]any{"q1": 2},
		Anonymous:   boolPtr(false),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	resp, err := svc.MyResponse(ctx, "e1", "", "")
	if err != nil {
		t.Fatalf("my response: %v", err)
	}
	if resp.SubjectID != "e1" || resp.PeriodID != "p1" {
		t.Fatalf("unexpected record %+v", resp)
	}

	if _, err := svc.MyResponse(ctx, "e9", "", ""); !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("expected ErrResponseNotFound, got %v", err)
	}
}

func TestSubmitRejectsUnknownSection(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), Submission{
		EvaluatorID: "e1",
		Section:     "externo",
	})
	if !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
}
