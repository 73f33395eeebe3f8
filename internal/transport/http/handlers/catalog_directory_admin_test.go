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

func TestPeriodLifecycleTransitions(t *testing.T) {
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
	closeActivePeriodIfAny(t, client, ts.URL, adminToken)

	nano := time.Now().UnixNano()
	first := createPeriod(t, client, ts.URL, adminToken, fmt.Sprintf("Ciclo A %d", nano), "2026-01-01", "2026-12-31")
	second := createPeriod(t, client, ts.URL, adminToken, fmt.Sprintf("Ciclo B %d", nano), "2026-01-01", "2026-12-31")

	openPeriod(t, client, ts.URL, adminToken, first)

	conflictEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/periods/"+second+"/open", adminToken, map[string]any{}, http.StatusConflict)
	if code := envelopeErrorCode(conflictEnv); code != "period_conflict" {
		t.Fatalf("expected period_conflict opening a second period, got %+v", conflictEnv.Error)
	}

	draftCloseEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/periods/"+second+"/close", adminToken, map[string]any{}, http.StatusConflict)
	if code := envelopeErrorCode(draftCloseEnv); code != "invalid_transition" {
		t.Fatalf("expected invalid_transition closing a draft, got %+v", draftCloseEnv.Error)
	}

	postJSON(t, client, ts.URL+"/api/v1/catalog/periods/"+first+"/close", adminToken, map[string]any{})

	reopenEnv := postJSONStatus(t, client, ts.URL+"/api/v1/catalog/periods/"+first+"/open", adminToken, map[string]any{}, http.StatusConflict)
	if code := envelopeErrorCode(reopenEnv); code != "invalid_transition" {
		t.Fatalf("expected invalid_transition reopening a closed period, got %+v", reopenEnv.Error)
	}

	employeeToken := mintToken(t, cfg.JWTSecret, "emp-regular", "Tomás Ibarra", auth.RoleEmployee)
	postJSONStatus(t, client, ts.URL+"/api/v1/catalog/periods", employeeToken, map[string]any{
		"name":      "No autorizado",
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
	}, http.StatusForbidden)
}

func TestDirectoryRosterManagement(t *testing.T) {
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

	nano := time.Now().UnixNano()
	fullName := fmt.Sprintf("Rosa Vidal %d", nano)
	email := fmt.Sprintf("rosa-%d@example.com", nano)
	employeeID := createEmployee(t, client, ts.URL, adminToken, fullName, email)

	duplicateEnv := postJSONStatus(t, client, ts.URL+"/api/v1/directory/employees", adminToken, map[string]any{
		"fullName": "Otra Persona",
		"email":    email,
	}, http.StatusConflict)
	if code := envelopeErrorCode(duplicateEnv); code != "duplicate_email" {
		t.Fatalf("expected duplicate_email, got %+v", duplicateEnv.Error)
	}

	renamed := fullName + " Soto"
	updateEnv := putJSONStatus(t, client, ts.URL+"/api/v1/directory/employees/"+employeeID, adminToken, map[string]any{
		"fullName": renamed,
	}, http.StatusOK)
	updated := envelopeDataMap(t, updateEnv)
	if got, _ := updated["fullName"].(string); got != renamed {
		t.Fatalf("expected renamed employee, got %v", updated["fullName"])
	}
	if got, _ := updated["email"].(string); got != email {
		t.Fatalf("expected email untouched by partial update, got %v", updated["email"])
	}

	// Evaluators can read the roster; they pick their peers from it.
	employeeToken := mintToken(t, cfg.JWTSecret, employeeID, renamed, auth.RoleEmployee)
	rosterEnv := getJSON(t, client, ts.URL+"/api/v1/directory/employees/"+employeeID, employeeToken)
	roster := envelopeDataMap(t, rosterEnv)
	if got, _ := roster["fullName"].(string); got != renamed {
		t.Fatalf("expected roster lookup to see the employee, got %v", roster["fullName"])
	}

	postJSON(t, client, ts.URL+"/api/v1/directory/employees/"+employeeID+"/deactivate", adminToken, map[string]any{})

	activeList, _ := getJSONWithMetaStatus(t, client, ts.URL+"/api/v1/directory/employees?search="+searchParam(renamed), adminToken, http.StatusOK)
	if rows := envelopeDataSlice(t, activeList); len(rows) != 0 {
		t.Fatalf("expected deactivated employee hidden from the default roster, got %d rows", len(rows))
	}

	fullList, _ := getJSONWithMetaStatus(t, client, ts.URL+"/api/v1/directory/employees?search="+searchParam(renamed)+"&includeInactive=true", adminToken, http.StatusOK)
	rows := envelopeDataSlice(t, fullList)
	if len(rows) != 1 {
		t.Fatalf("expected deactivated employee under includeInactive, got %d rows", len(rows))
	}
	if active, _ := rows[0]["active"].(bool); active {
		t.Fatal("expected employee flagged inactive")
	}
}

func TestAuditTrailListsAndExports(t *testing.T) {
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
	createEmployee(t, client, ts.URL, adminToken, "Julia Navarro", fmt.Sprintf("julia-%d@example.com", time.Now().UnixNano()))

	env, total := getJSONWithMetaStatus(t, client, ts.URL+"/api/v1/audit/events?action=directory.employee.create&limit=5", adminToken, http.StatusOK)
	if total < 1 {
		t.Fatalf("expected audit events, got total %d", total)
	}
	events := envelopeDataSlice(t, env)
	if len(events) == 0 {
		t.Fatal("expected audit events in list")
	}
	if action, _ := events[0]["action"].(string); action != "directory.employee.create" {
		t.Fatalf("expected directory.employee.create event, got %v", events[0]["action"])
	}
	if actor, _ := events[0]["actorId"].(string); actor == "" {
		t.Fatal("expected audit event to name the actor")
	}

	status, contentType, body := fetchRaw(t, client, ts.URL+"/api/v1/audit/events/export", adminToken)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for audit export, got %d", status)
	}
	if contentType != "text/csv" {
		t.Fatalf("expected text/csv export, got %s", contentType)
	}
	if !strings.HasPrefix(string(body), "id,actor_id,action") {
		t.Fatalf("expected csv header row, got %q", firstLine(string(body)))
	}

	employeeToken := mintToken(t, cfg.JWTSecret, "emp-regular", "Tomás Ibarra", auth.RoleEmployee)
	getJSONStatus(t, client, ts.URL+"/api/v1/audit/events", employeeToken, http.StatusForbidden)
}

func putJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPut, url, reader)
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

func searchParam(value string) string {
	return strings.ReplaceAll(value, " ", "%20")
}

func firstLine(value string) string {
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return value[:idx]
	}
	return value
}
