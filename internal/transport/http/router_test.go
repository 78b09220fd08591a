package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"takedown/internal/auth"
	authhandler "takedown/internal/auth/handler"
	"takedown/internal/cases"
	caseshandler "takedown/internal/cases/handler"
	"takedown/internal/directory"
	"takedown/internal/reporting"
	reportinghandler "takedown/internal/reporting/handler"
	"takedown/internal/transparency"
	transparencyhandler "takedown/internal/transparency/handler"
	"takedown/internal/workflow"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := directory.NewMemoryStore()
	for _, u := range []struct {
		id, username, password string
		role                   workflow.Role
	}{
		{"victim-1", "victim", "victim-pass", workflow.RoleVictim},
		{"officer-1", "officer", "officer-pass", workflow.RoleOfficer},
		{"admin-1", "admin", "admin-pass", workflow.RoleAdmin},
	} {
		hash, err := directory.HashPassword(u.password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		dir.Add(&directory.User{ID: u.id, Username: u.username, PasswordHash: hash, Role: u.role, Active: true})
	}

	transparencyLog := transparency.NewLog(transparency.NewMemoryStore(), logger)
	caseService := cases.NewService(
		cases.NewMemoryStore(),
		cases.NewMemoryTxRunner(),
		workflow.NewEngine(nil),
		transparencyLog,
		logger,
	)
	issuer := auth.NewIssuer([]byte("router-test-signing-key-32-bytes"), time.Hour)

	return New(Deps{
		Logger:       logger,
		Verifier:     issuer,
		Auth:         authhandler.New(auth.NewService(dir, issuer, logger), logger),
		Cases:        caseshandler.New(caseService, logger),
		Transparency: transparencyhandler.New(transparencyLog, logger),
		Reports:      reportinghandler.New(reporting.NewService(transparencyLog, logger), logger),
	})
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 logging in as %s, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		Purpose     string `json:"purpose"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	return resp.AccessToken
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := get(router, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t)
	rec := get(router, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router := newTestRouter(t)
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
}

func TestVerifyRequiresAdminPurpose(t *testing.T) {
	router := newTestRouter(t)
	officerToken := login(t, router, "officer", "officer-pass")
	adminToken := login(t, router, "admin", "admin-pass")

	req := httptest.NewRequest(http.MethodPost, "/v1/transparency/verify", nil)
	req.Header.Set("Authorization", "Bearer "+officerToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for review-purpose token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/transparency/verify", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying as admin, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		PercentIntact float64 `json:"percent_intact"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode verify report: %v", err)
	}
	if report.PercentIntact != 100 {
		t.Fatalf("expected 100%% intact on empty log, got %v", report.PercentIntact)
	}
}

func TestEndToEndLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	victimToken := login(t, router, "victim", "victim-pass")
	officerToken := login(t, router, "officer", "officer-pass")
	adminToken := login(t, router, "admin", "admin-pass")

	// Victim submits.
	body, _ := json.Marshal(map[string]string{"priority": "urgent", "jurisdiction": "IN"})
	req := httptest.NewRequest(http.MethodPost, "/v1/cases", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+victimToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created case: %v", err)
	}

	// Officer reviews and approves.
	for _, action := range []string{"start_review", "approve", "close"} {
		actionBody, _ := json.Marshal(map[string]string{"action": action})
		req = httptest.NewRequest(http.MethodPost, "/v1/cases/"+created.ID+"/actions", bytes.NewReader(actionBody))
		req.Header.Set("Authorization", "Bearer "+officerToken)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 executing %s, got %d: %s", action, rec.Code, rec.Body.String())
		}
	}

	// Admin pulls the compliance report.
	rec = get(router, "/v1/reports/compliance", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from compliance report, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		TotalCases     int     `json:"total_cases"`
		ResolvedCases  int     `json:"resolved_cases"`
		ComplianceRate float64 `json:"compliance_rate"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalCases != 1 || report.ResolvedCases != 1 || report.ComplianceRate != 100 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// Officer can query the transparency log.
	rec = get(router, "/v1/transparency?case_id="+created.ID, officerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 querying transparency log, got %d", rec.Code)
	}
	var entries []struct {
		Action   string `json:"action"`
		Checksum string `json:"checksum"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 transparency entries, got %d", len(entries))
	}
}
