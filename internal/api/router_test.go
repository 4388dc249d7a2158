package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dynaforms/dynaforms/internal/middleware"
	"github.com/dynaforms/dynaforms/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewRouter(nil).Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func registerUser(t *testing.T, base, email string) string {
	t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "Secret123!",
	}, http.StatusOK, &res)
	if res.Token == "" {
		t.Fatalf("register did not return a token")
	}
	return res.Token
}

func TestFormLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "admin@example.com")

	var form services.Form
	doJSON(t, http.MethodPost, srv.URL+"/api/forms", token, map[string]string{"name": "Weekly check-in"}, http.StatusOK, &form)
	if form.ID == 0 {
		t.Fatalf("expected form id")
	}

	var qText, qRating services.ResolvedQuestion
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/forms/%d/questions", srv.URL, form.ID), token, map[string]any{
		"kind":   "text",
		"prompt": "What is on your mind?",
	}, http.StatusOK, &qText)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/forms/%d/questions", srv.URL, form.ID), token, map[string]any{
		"kind":    "rating",
		"prompt":  "How was your week?",
		"options": []string{"Bad", "Okay", "Good"},
	}, http.StatusOK, &qRating)
	if len(qRating.Options) != 3 {
		t.Fatalf("rating options = %d, want 3", len(qRating.Options))
	}

	var fields struct {
		Fields []services.FieldSpec `json:"fields"`
	}
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/forms/%d/fields", srv.URL, form.ID), "", nil, http.StatusOK, &fields)
	if len(fields.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fields.Fields))
	}
	wantText := fmt.Sprintf("text-%d", qText.ID)
	if fields.Fields[0].Name != wantText {
		t.Fatalf("first field = %q, want %q", fields.Fields[0].Name, wantText)
	}

	reorderURL := fmt.Sprintf("%s/api/forms/%d/reorder?contentorder[]=%d&contentorder[]=%d", srv.URL, form.ID, qRating.ID, qText.ID)
	doJSON(t, http.MethodPost, reorderURL, token, nil, http.StatusOK, nil)
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/forms/%d/fields", srv.URL, form.ID), "", nil, http.StatusOK, &fields)
	wantRating := fmt.Sprintf("rating-%d", qRating.ID)
	if fields.Fields[0].Name != wantRating {
		t.Fatalf("first field after reorder = %q, want %q", fields.Fields[0].Name, wantRating)
	}

	badReorder := fmt.Sprintf("%s/api/forms/%d/reorder?contentorder[]=%d", srv.URL, form.ID, qText.ID)
	doJSON(t, http.MethodPost, badReorder, token, nil, http.StatusBadRequest, nil)
}

func TestSubmitOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "interviewer@example.com")

	var form services.Form
	doJSON(t, http.MethodPost, srv.URL+"/api/forms", token, map[string]string{"name": "Survey"}, http.StatusOK, &form)
	var qText, qYesNo services.ResolvedQuestion
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/forms/%d/questions", srv.URL, form.ID), token, map[string]any{
		"kind":   "text",
		"prompt": "Name?",
	}, http.StatusOK, &qText)
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/forms/%d/questions", srv.URL, form.ID), token, map[string]any{
		"kind":   "yes-no",
		"prompt": "Did you sleep well?",
	}, http.StatusOK, &qYesNo)

	submitURL := fmt.Sprintf("%s/api/forms/%d/submit", srv.URL, form.ID)
	payload := map[string]any{
		fmt.Sprintf("text-%d", qText.ID):    "hello",
		fmt.Sprintf("yes-no-%d", qYesNo.ID): "yes",
	}

	var result services.SubmissionResult
	doJSON(t, http.MethodPost, submitURL, token, payload, http.StatusOK, &result)
	if result.State != services.SubmissionPersisted || result.Saved != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	setID := result.ResponseSet.ID

	// Same interviewer and respondent: the shared set is reused.
	doJSON(t, http.MethodPost, submitURL, token, payload, http.StatusOK, &result)
	if result.ResponseSet.ID != setID {
		t.Fatalf("expected reuse of set %d, got %d", setID, result.ResponseSet.ID)
	}

	doJSON(t, http.MethodPost, submitURL+"?force_new=1", token, payload, http.StatusOK, &result)
	if result.ResponseSet.ID == setID {
		t.Fatalf("force_new must open a fresh set")
	}

	var rejected services.SubmissionResult
	doJSON(t, http.MethodPost, submitURL, token, map[string]any{
		fmt.Sprintf("yes-no-%d", qYesNo.ID): "maybe",
	}, http.StatusUnprocessableEntity, &rejected)
	if rejected.State != services.SubmissionRejected {
		t.Fatalf("state = %s, want rejected", rejected.State)
	}

	var set services.SetResponses
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/response-sets/%d", srv.URL, setID), token, nil, http.StatusOK, &set)
	if len(set.Text) != 2 || len(set.YesNo) != 2 {
		t.Fatalf("set rows = (%d text, %d yes/no), want (2, 2)", len(set.Text), len(set.YesNo))
	}

	var sets struct {
		ResponseSets []*services.ResponseSet `json:"response_sets"`
	}
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/forms/%d/response-sets", srv.URL, form.ID), token, nil, http.StatusOK, &sets)
	if len(sets.ResponseSets) != 2 {
		t.Fatalf("response sets = %d, want 2", len(sets.ResponseSets))
	}
}

func TestSubmitAcceptsFormEncoding(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "formpost@example.com")

	var form services.Form
	doJSON(t, http.MethodPost, srv.URL+"/api/forms", token, map[string]string{"name": "Survey"}, http.StatusOK, &form)
	var q services.ResolvedQuestion
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/forms/%d/questions", srv.URL, form.ID), token, map[string]any{
		"kind":   "text",
		"prompt": "Name?",
	}, http.StatusOK, &q)

	body := strings.NewReader(fmt.Sprintf("text-%d=hello", q.ID))
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/forms/%d/submit", srv.URL, form.ID), body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result services.SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.State != services.SubmissionPersisted || result.Saved != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAuthRequiredForAdminRoutes(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/forms", "", map[string]string{"name": "Survey"}, http.StatusUnauthorized, nil)
	doJSON(t, http.MethodGet, srv.URL+"/api/response-sets/1", "", nil, http.StatusUnauthorized, nil)
}

func TestQuestionKindsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	var out struct {
		Kinds []struct {
			Kind       string `json:"kind"`
			PrettyName string `json:"pretty_name"`
		} `json:"kinds"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/question-kinds", "", nil, http.StatusOK, &out)
	if len(out.Kinds) != 4 {
		t.Fatalf("kinds = %d, want 4", len(out.Kinds))
	}
	if out.Kinds[0].Kind != "multiple-choice" || out.Kinds[0].PrettyName != "Multiple choice question" {
		t.Fatalf("unexpected first kind: %+v", out.Kinds[0])
	}
}
