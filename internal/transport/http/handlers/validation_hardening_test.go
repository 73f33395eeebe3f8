package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"clima/internal/app/server"
	"clima/internal/domain/auth"
)

func TestSubmissionRejectsBadInput(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := mintToken(t, cfg.JWTSecret, "comite-clima", "Gabriela Soto", auth.RoleAdmin)
	evaluatorID := createEmployee(t, client, ts.URL, adminToken, "Nora Salinas", fmt.Sprintf("nora-%d@example.com", time.Now().UnixNano()))
	evaluatorToken := mintToken(t, cfg.JWTSecret, evaluatorID, "Nora Salinas", auth.RoleEmployee)

	// With no active period every save is refused before touching storage.
	closeActivePeriodIfAny(t, client, ts.URL, adminToken)
	noPeriodEnv := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section":   "internal",
		"answers":   map[string]any{},
		"anonymous": true,
	}, http.StatusConflict)
	if code := envelopeErrorCode(noPeriodEnv); code != "no_active_period" {
		t.Fatalf("expected no_active_period, got %+v", noPeriodEnv.Error)
	}

	ensureActivePeriod(t, client, ts.URL, adminToken)
	questions := listQuestions(t, client, ts.URL, evaluatorToken, "internal")
	alimentacion := scaleQuestionIDs(questions, "Alimentación")
	if len(alimentacion) == 0 {
		t.Fatal("expected seeded internal questions")
	}

	badSection := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section":   "management",
		"answers":   map[string]any{},
		"anonymous": true,
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(badSection); code != "invalid_submission" {
		t.Fatalf("expected invalid_submission for unknown section, got %+v", badSection.Error)
	}

	unknownQuestion := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section":   "internal",
		"answers":   map[string]any{"11111111-1111-1111-1111-111111111111": 1},
		"anonymous": true,
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(unknownQuestion); code != "invalid_submission" {
		t.Fatalf("expected invalid_submission for unknown question, got %+v", unknownQuestion.Error)
	}

	unknownCategory := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section":   "internal",
		"category":  "Jardinería",
		"answers":   map[string]any{alimentacion[0]: 1},
		"anonymous": true,
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(unknownCategory); code != "invalid_submission" {
		t.Fatalf("expected invalid_submission for unknown category, got %+v", unknownCategory.Error)
	}

	missingAnonymity := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section": "internal",
		"answers": map[string]any{alimentacion[0]: 1},
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(missingAnonymity); code != "anonymity_required" {
		t.Fatalf("expected anonymity_required on first save, got %+v", missingAnonymity.Error)
	}

	missingSubject := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section": "peer",
		"answers": map[string]any{},
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(missingSubject); code != "invalid_submission" {
		t.Fatalf("expected invalid_submission for peer save without subject, got %+v", missingSubject.Error)
	}
}

func TestCatalogPayloadValidation(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := mintToken(t, cfg.JWTSecret, "comite-clima", "Gabriela Soto", auth.RoleAdmin)

	questionEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/questions", adminToken, map[string]any{
		"section": "internal",
	}, http.StatusBadRequest)
	assertValidationIssue(t, questionEnv, "text")
	assertValidationIssue(t, questionEnv, "kind")

	scaleEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/questions", adminToken, map[string]any{
		"text":    "¿Única opción?",
		"section": "internal",
		"kind":    "scale",
		"options": []string{"Sí"},
	}, http.StatusBadRequest)
	assertValidationIssue(t, scaleEnv, "options")

	periodEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/periods", adminToken, map[string]any{
		"name":      fmt.Sprintf("Orden invertido %d", time.Now().UnixNano()),
		"startDate": "2026-04-10",
		"endDate":   "2026-04-01",
	}, http.StatusBadRequest)
	assertValidationIssue(t, periodEnv, "startDate")
	assertValidationIssue(t, periodEnv, "endDate")

	categoryEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/categories", adminToken, map[string]any{
		"section": "internal",
	}, http.StatusBadRequest)
	assertValidationIssue(t, categoryEnv, "name")
}

func TestSubmissionBodyLimit(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	cfg.MaxBodyBytes = 2048
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	evaluatorToken := mintToken(t, cfg.JWTSecret, "emp-limite", "Nora Salinas", auth.RoleEmployee)
	oversized := postJSONStatus(t, client, ts.URL+"/api/v1/survey/submissions", evaluatorToken, map[string]any{
		"section":   "internal",
		"comment":   strings.Repeat("a", 4096),
		"anonymous": true,
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(oversized); code != "invalid_payload" {
		t.Fatalf("expected invalid_payload for oversized body, got %+v", oversized.Error)
	}
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func envelopeErrorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	if m, ok := env.Error.(map[string]any); ok {
		if code, ok := m["code"].(string); ok {
			return code
		}
	}
	return ""
}

func assertValidationIssue(t *testing.T, env envelope, field string) {
	t.Helper()
	if code := envelopeErrorCode(env); code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	errMap, ok := env.Error.(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %T", env.Error)
	}
	details, ok := errMap["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %+v", errMap["details"])
	}
	fieldsRaw, ok := details["fields"].([]any)
	if !ok {
		t.Fatalf("expected details.fields array, got %+v", details["fields"])
	}
	for _, item := range fieldsRaw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, _ := entry["field"].(string); value == field {
			return
		}
	}
	t.Fatalf("expected validation issue for field %q in %+v", field, fieldsRaw)
}
