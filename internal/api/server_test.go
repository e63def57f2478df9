package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"groupledger/internal/auth"
	"groupledger/internal/models"
	"groupledger/internal/service"
	"groupledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	srv := New(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), tokens),
		service.NewGroupService(store),
		service.NewGroupLedgerService(store),
		tokens,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// call sends a JSON request and decodes the response body into out
// (when out is non-nil). It returns the response status code.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// register creates an account and returns the user ID and token.
func register(t *testing.T, ts *httptest.Server, email, name string) (string, string) {
	t.Helper()
	var resp authResponse
	status := call(t, ts, http.MethodPost, "/api/auth/register", "", registerRequest{
		Email:       email,
		DisplayName: name,
		Password:    "correct-horse",
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	return resp.User.ID, resp.Token
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	_, token := register(t, ts, "alice@example.com", "Alice")
	if token == "" {
		t.Fatal("register returned no token")
	}

	// Duplicate email conflicts.
	status := call(t, ts, http.MethodPost, "/api/auth/register", "", registerRequest{
		Email: "alice@example.com", Password: "correct-horse",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate register: status %d, want 409", status)
	}

	// Wrong password is unauthorized.
	status = call(t, ts, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email: "alice@example.com", Password: "wrong",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad login: status %d, want 401", status)
	}

	var resp authResponse
	status = call(t, ts, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email: "alice@example.com", Password: "correct-horse",
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		t.Errorf("login: status %d, token %q", status, resp.Token)
	}

	// Protected routes reject missing and garbage tokens.
	if status := call(t, ts, http.MethodGet, "/api/groups", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", status)
	}
	if status := call(t, ts, http.MethodGet, "/api/groups", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", status)
	}
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := register(t, ts, "alice@example.com", "Alice")
	bobID, bobToken := register(t, ts, "bob@example.com", "Bob")

	// Alice creates a group and adds bob.
	var group models.Group
	status := call(t, ts, http.MethodPost, "/api/groups", aliceToken, groupRequest{Name: "trip"}, &group)
	if status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}
	status = call(t, ts, http.MethodPost, "/api/groups/"+group.ID+"/members", aliceToken,
		addMemberRequest{Email: "bob@example.com"}, nil)
	if status != http.StatusOK {
		t.Fatalf("add member: status %d", status)
	}

	// Alice records a $100 expense split equally.
	var expense models.Expense
	status = call(t, ts, http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"description": "hotel",
		"amount":      "100.00",
		"split": map[string]any{
			"splitType":    "equal",
			"participants": []string{aliceID, bobID},
		},
	}, &expense)
	if status != http.StatusCreated {
		t.Fatalf("create expense: status %d", status)
	}
	if len(expense.Allocations) != 2 {
		t.Fatalf("got %d allocations, want 2", len(expense.Allocations))
	}

	// Amounts arrive as decimal-safe JSON strings, not floats.
	var raw struct {
		Amount json.RawMessage `json:"amount"`
	}
	status = call(t, ts, http.MethodGet, "/api/expenses/"+expense.ID, bobToken, nil, &raw)
	if status != http.StatusOK {
		t.Fatalf("get expense: status %d", status)
	}
	if string(raw.Amount) != `"100"` && string(raw.Amount) != `"100.00"` {
		t.Errorf("amount serialized as %s, want a quoted decimal string", raw.Amount)
	}

	// Bob checks what he owes.
	var owes struct {
		Owes json.RawMessage `json:"owes"`
	}
	path := fmt.Sprintf("/api/groups/%s/members/%s/owes", group.ID, bobID)
	if status := call(t, ts, http.MethodGet, path, bobToken, nil, &owes); status != http.StatusOK {
		t.Fatalf("owes: status %d", status)
	}
	if string(owes.Owes) != `"50"` {
		t.Errorf("bob owes = %s, want \"50\"", owes.Owes)
	}

	// Bob settles, then alice settles her own share; the expense
	// finalizes.
	status = call(t, ts, http.MethodPost, "/api/expenses/"+expense.ID+"/settle", bobToken, map[string]any{}, &expense)
	if status != http.StatusOK {
		t.Fatalf("bob settle: status %d", status)
	}
	if expense.Settled {
		t.Error("expense settled with alice's allocation unpaid")
	}
	status = call(t, ts, http.MethodPost, "/api/expenses/"+expense.ID+"/settle", aliceToken, map[string]any{}, &expense)
	if status != http.StatusOK {
		t.Fatalf("alice settle: status %d", status)
	}
	if !expense.Settled {
		t.Error("expense not settled after both allocations paid")
	}

	// Only bob's payment is a transfer; alice closing her own share
	// leaves no audit row.
	var history struct {
		Settlements []models.Settlement `json:"settlements"`
	}
	if status := call(t, ts, http.MethodGet, "/api/groups/"+group.ID+"/settlements", aliceToken, nil, &history); status != http.StatusOK {
		t.Fatalf("settlements: status %d", status)
	}
	if len(history.Settlements) != 1 {
		t.Errorf("got %d settlements, want 1", len(history.Settlements))
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	aliceID, aliceToken := register(t, ts, "alice@example.com", "Alice")
	_, bobToken := register(t, ts, "bob@example.com", "Bob")

	var group models.Group
	if status := call(t, ts, http.MethodPost, "/api/groups", aliceToken, groupRequest{Name: "trip"}, &group); status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}

	// Bad split -> 400 with the validation code.
	var body errorBody
	status := call(t, ts, http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"amount": "10.00",
		"split":  map[string]any{"splitType": "equal"},
	}, &body)
	if status != http.StatusBadRequest {
		t.Errorf("empty split: status %d, want 400", status)
	}
	if body.Code != "EMPTY_PARTICIPANT_SET" {
		t.Errorf("empty split: code %q, want EMPTY_PARTICIPANT_SET", body.Code)
	}

	// Non-member access -> 403.
	if status := call(t, ts, http.MethodGet, "/api/groups/"+group.ID, bobToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("non-member get group: status %d, want 403", status)
	}

	// Unknown expense -> 404.
	if status := call(t, ts, http.MethodGet, "/api/expenses/nope", aliceToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown expense: status %d, want 404", status)
	}

	// Settling with no allocation -> 404.
	var expense models.Expense
	status = call(t, ts, http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"amount": "10.00",
		"split":  map[string]any{"splitType": "equal", "participants": []string{aliceID}},
	}, &expense)
	if status != http.StatusCreated {
		t.Fatalf("create expense: status %d", status)
	}
	status = call(t, ts, http.MethodPost, "/api/expenses/"+expense.ID+"/settle", bobToken, map[string]any{}, nil)
	if status != http.StatusForbidden {
		// bob is not a member of the group at all
		t.Errorf("outsider settle: status %d, want 403", status)
	}
}
