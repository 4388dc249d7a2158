//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("DYNAFORMS_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestFormFlowIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	userEmail := fmt.Sprintf("integration_%d@example.com", time.Now().UnixNano())
	password := "Secret123!"

	var registerResp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	doPost(t, client, base+"/api/auth/register", "", map[string]string{
		"email":    userEmail,
		"password": password,
	}, &registerResp)
	if registerResp.Token == "" || registerResp.UserID == "" {
		t.Fatalf("unexpected register response: %+v", registerResp)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	doPost(t, client, base+"/api/auth/login", "", map[string]string{
		"email":    userEmail,
		"password": password,
	}, &loginResp)
	token := loginResp.Token
	if token == "" {
		t.Fatalf("login did not return token")
	}

	var form struct {
		ID int64 `json:"id"`
	}
	doPost(t, client, base+"/api/forms", token, map[string]string{
		"name": fmt.Sprintf("Integration survey %d", time.Now().UnixNano()),
	}, &form)
	if form.ID == 0 {
		t.Fatalf("expected form id in response")
	}

	var qText struct {
		ID int64 `json:"id"`
	}
	doPost(t, client, fmt.Sprintf("%s/api/forms/%d/questions", base, form.ID), token, map[string]any{
		"kind":   "text",
		"prompt": "What is on your mind?",
	}, &qText)
	var qRating struct {
		ID      int64 `json:"id"`
		Options []struct {
			ID int64 `json:"id"`
		} `json:"options"`
	}
	doPost(t, client, fmt.Sprintf("%s/api/forms/%d/questions", base, form.ID), token, map[string]any{
		"kind":    "rating",
		"prompt":  "How was your week?",
		"options": []string{"Bad", "Okay", "Good"},
	}, &qRating)
	if qText.ID == 0 || qRating.ID == 0 || len(qRating.Options) != 3 {
		t.Fatalf("unexpected questions: text=%+v rating=%+v", qText, qRating)
	}

	var fieldsResp struct {
		Fields []struct {
			Name    string `json:"name"`
			Input   string `json:"input"`
			Options []struct {
				Value string `json:"value"`
			} `json:"options"`
		} `json:"fields"`
	}
	doGet(t, client, fmt.Sprintf("%s/api/forms/%d/fields", base, form.ID), "", &fieldsResp)
	if len(fieldsResp.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fieldsResp.Fields))
	}

	var submitResp struct {
		State       string `json:"state"`
		Saved       int    `json:"saved"`
		ResponseSet struct {
			ID int64 `json:"id"`
		} `json:"response_set"`
	}
	doPost(t, client, fmt.Sprintf("%s/api/forms/%d/submit", base, form.ID), token, map[string]any{
		fmt.Sprintf("text-%d", qText.ID):     "feeling good",
		fmt.Sprintf("rating-%d", qRating.ID): fmt.Sprintf("rating-answer-%d", qRating.Options[2].ID),
	}, &submitResp)
	if submitResp.State != "persisted" || submitResp.Saved != 2 {
		t.Fatalf("unexpected submit response: %+v", submitResp)
	}

	var setResp struct {
		Text []struct {
			Body string `json:"body"`
		} `json:"text"`
		Rating []struct {
			OptionID int64 `json:"option_id"`
		} `json:"rating"`
	}
	doGet(t, client, fmt.Sprintf("%s/api/response-sets/%d", base, submitResp.ResponseSet.ID), token, &setResp)
	if len(setResp.Text) != 1 || setResp.Text[0].Body != "feeling good" {
		t.Fatalf("unexpected text responses: %+v", setResp.Text)
	}
	if len(setResp.Rating) != 1 || setResp.Rating[0].OptionID != qRating.Options[2].ID {
		t.Fatalf("unexpected rating responses: %+v", setResp.Rating)
	}
}

func doPost(t *testing.T, client *http.Client, url, token string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}

func doGet(t *testing.T, client *http.Client, url, token string, out any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http get %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
