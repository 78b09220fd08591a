package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"takedown/internal/auth"
	"takedown/internal/cases"
	"takedown/internal/platform/middleware"
	"takedown/internal/transparency"
	"takedown/internal/workflow"
)

var signingKey = []byte("test-signing-key-32-bytes-long!!")

type testEnv struct {
	router http.Handler
	issuer *auth.Issuer
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := cases.NewService(
		cases.NewMemoryStore(),
		cases.NewMemoryTxRunner(),
		workflow.NewEngine(nil),
		transparency.NewLog(transparency.NewMemoryStore(), discardLogger()),
		discardLogger(),
	)
	issuer := auth.NewIssuer(signingKey, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequireAuth(issuer, discardLogger()))
	New(svc, discardLogger()).Register(r)
	return &testEnv{router: r, issuer: issuer}
}

func (e *testEnv) token(t *testing.T, userID string, role workflow.Role) string {
	t.Helper()
	signed, _, err := e.issuer.Issue(userID, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) submitCase(t *testing.T, victimToken string) CaseResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/cases", victimToken,
		SubmitCaseRequest{Priority: "high", Jurisdiction: "IN"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting case, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CaseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode case response: %v", err)
	}
	return resp
}

func TestSubmitRequiresToken(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/cases", "",
		SubmitCaseRequest{Priority: "high", Jurisdiction: "IN"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSubmitRejectsReviewToken(t *testing.T) {
	env := newEnv(t)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	rec := env.do(t, http.MethodPost, "/v1/cases", officerToken,
		SubmitCaseRequest{Priority: "high", Jurisdiction: "IN"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for review-purpose token, got %d", rec.Code)
	}
}

func TestSubmitAndReviewFlow(t *testing.T) {
	env := newEnv(t)
	victimToken := env.token(t, "victim-1", workflow.RoleVictim)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)

	created := env.submitCase(t, victimToken)
	if created.State != "submitted" {
		t.Fatalf("expected submitted state, got %q", created.State)
	}
	if created.Reference == "" {
		t.Fatalf("expected a case reference")
	}
	if created.SLAStatus != "no_sla" {
		t.Fatalf("expected no_sla before review, got %q", created.SLAStatus)
	}

	rec := env.do(t, http.MethodPost, "/v1/cases/"+created.ID+"/actions", officerToken,
		CaseActionRequest{Action: "start_review"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting review, got %d: %s", rec.Code, rec.Body.String())
	}
	var result ActionResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode action response: %v", err)
	}
	if result.To != "in_review" || result.Reason != "officer_assignment" {
		t.Fatalf("unexpected transition result: %+v", result)
	}
	if result.Case.AssignedOfficerID != "officer-1" {
		t.Fatalf("expected acting officer assigned, got %q", result.Case.AssignedOfficerID)
	}
	if result.Case.SLADueAt == nil || result.Case.SLAStatus != "on_time" {
		t.Fatalf("expected active SLA clock, got %+v", result.Case)
	}
}

func TestInvalidTransitionReturnsConflict(t *testing.T) {
	env := newEnv(t)
	victimToken := env.token(t, "victim-1", workflow.RoleVictim)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	created := env.submitCase(t, victimToken)

	rec := env.do(t, http.MethodPost, "/v1/cases/"+created.ID+"/actions", officerToken,
		CaseActionRequest{Action: "approve"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for invalid transition, got %d", rec.Code)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error != "invalid_transition" {
		t.Fatalf("expected invalid_transition error, got %q", errResp.Error)
	}
}

func TestSubmitterSeesOnlyOwnCases(t *testing.T) {
	env := newEnv(t)
	victimToken := env.token(t, "victim-1", workflow.RoleVictim)
	otherToken := env.token(t, "victim-2", workflow.RoleVictim)
	created := env.submitCase(t, victimToken)

	rec := env.do(t, http.MethodGet, "/v1/cases/"+created.ID, victimToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for own case, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/cases/"+created.ID, otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another submitter's case, got %d", rec.Code)
	}
}

func TestTimelineListsTransitions(t *testing.T) {
	env := newEnv(t)
	victimToken := env.token(t, "victim-1", workflow.RoleVictim)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	created := env.submitCase(t, victimToken)

	rec := env.do(t, http.MethodPost, "/v1/cases/"+created.ID+"/actions", officerToken,
		CaseActionRequest{Action: "start_review"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting review, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/cases/"+created.ID+"/timeline", victimToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching timeline, got %d", rec.Code)
	}
	var entries []transparency.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 timeline entries, got %d", len(entries))
	}
	if entries[0].Action != "submit" || entries[1].Action != "start_review" {
		t.Fatalf("unexpected timeline order: %q then %q", entries[0].Action, entries[1].Action)
	}
	for _, e := range entries {
		if e.Checksum == "" {
			t.Fatalf("expected checksum on entry %s", e.ID)
		}
	}
}

func TestAvailableActions(t *testing.T) {
	env := newEnv(t)
	victimToken := env.token(t, "victim-1", workflow.RoleVictim)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	created := env.submitCase(t, victimToken)

	rec := env.do(t, http.MethodGet, "/v1/cases/"+created.ID+"/actions", officerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp AvailableActionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if len(resp.Actions) != 1 || resp.Actions[0] != "start_review" {
		t.Fatalf("expected [start_review], got %v", resp.Actions)
	}
}

func TestBadCaseID(t *testing.T) {
	env := newEnv(t)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	rec := env.do(t, http.MethodGet, "/v1/cases/not-a-uuid", officerToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestUnknownCaseID(t *testing.T) {
	env := newEnv(t)
	officerToken := env.token(t, "officer-1", workflow.RoleOfficer)
	rec := env.do(t, http.MethodGet, "/v1/cases/"+uuid.NewString(), officerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown case, got %d", rec.Code)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
