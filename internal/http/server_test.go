package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/assistant"
	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/llm"
	applog "spendwise/internal/log"
	"spendwise/internal/repository/memory"
	"spendwise/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubRelay struct {
	reply   string
	err     error
	history []llm.Turn
	prompt  string
}

func (s *stubRelay) Converse(_ context.Context, systemPrompt string, history []llm.Turn, _ string) (string, error) {
	s.prompt = systemPrompt
	s.history = history
	return s.reply, s.err
}

type testServer struct {
	srv   *Server
	relay *stubRelay
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := memory.New()
	logger := applog.Discard()
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	relay := &stubRelay{reply: "Spend less on food."}

	svc := Services{
		Accounts:  services.NewAccountService(store, tokens, logger),
		Expenses:  services.NewExpenseService(store, nil, logger),
		Budgets:   services.NewBudgetService(store, nil, logger),
		Assistant: assistant.NewService(assistant.NewAggregator(store, store), relay, logger),
	}
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(":0", svc, tokens, store, logger, opts)
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{srv: srv, relay: relay}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "name": "Tester",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func userFixture() core.User {
	return core.User{ID: 1, Email: "stale@example.com", Name: "Stale"}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "Ann@Example.com", "password": "secret1", "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.NotContains(t, user, "createdAt")

	w = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "ann@example.com", "password": "secret1", "name": "Ann",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["error"])

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Login successful", body["message"])
	token := body["token"].(string)

	w = ts.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "Ann", profile["name"])
	assert.Contains(t, profile, "createdAt")
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name string
		body any
	}{
		{"missing fields", map[string]string{"email": "a@b.co"}},
		{"invalid email", map[string]string{"email": "not-an-email", "password": "secret1", "name": "A"}},
		{"short password", map[string]string{"email": "a@b.co", "password": "12345", "name": "A"}},
		{"malformed json", `{"email":`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, Options{})

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/user/profile"},
		{http.MethodGet, "/api/expenses"},
		{http.MethodPost, "/api/expenses"},
		{http.MethodGet, "/api/budgets"},
		{http.MethodDelete, "/api/budgets/1"},
		{http.MethodPost, "/api/ai"},
	}
	for _, rt := range routes {
		w := ts.do(t, rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}

	w := ts.do(t, http.MethodGet, "/api/expenses", "not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := auth.NewTokenIssuer(testSecret, -time.Minute)
	stale, err := expired.Issue(userFixture())
	require.NoError(t, err)
	w = ts.do(t, http.MethodGet, "/api/expenses", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserProfileMaintenance(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "bob@example.com")

	w := ts.do(t, http.MethodPatch, "/api/user/profile", token, map[string]string{"name": "  Robert "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Robert", decode(t, w)["user"].(map[string]any)["name"])

	w = ts.do(t, http.MethodPatch, "/api/user/password", token, map[string]string{"currentPassword": "nope12", "newPassword": "another1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/user/password", token, map[string]string{"currentPassword": "secret1", "newPassword": "another1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "another1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/user/delete", token, map[string]string{"password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/user/delete", token, map[string]string{"password": "another1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpenseCRUD(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "carol@example.com")

	w := ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"title": "Groceries", "amount": "42.10", "category": "food", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"amount":42.10`)
	created := decode(t, w)
	assert.Equal(t, "Food", created["category"])
	assert.Nil(t, created["description"])
	id := int64(created["id"].(float64))

	w = ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"title": "Bus", "amount": 2.5, "category": "Transport", "date": "2024-03-07T08:00:00Z", "description": "ticket",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/expenses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "2024-03-07", list[0]["date"])

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", id), token, map[string]any{
		"title": "", "amount": 40, "category": "Food", "date": "2024-03-06",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)["expense"].(map[string]any)
	assert.Equal(t, "Groceries", updated["title"])
	assert.Equal(t, 40.0, updated["amount"])

	other := ts.signup(t, "dave@example.com")
	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Expense deleted successfully", decode(t, w)["message"])

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/expenses/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpenseValidation(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "erin@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"title": "x", "amount": 0, "category": "Food", "date": "2024-03-01"}},
		{"negative amount", map[string]any{"title": "x", "amount": "-3", "category": "Food", "date": "2024-03-01"}},
		{"unknown category", map[string]any{"title": "x", "amount": 3, "category": "Pets", "date": "2024-03-01"}},
		{"bad date", map[string]any{"title": "x", "amount": 3, "category": "Food", "date": "yesterday"}},
		{"missing title", map[string]any{"amount": 3, "category": "Food", "date": "2024-03-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/expenses", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestExpenseAmountNotation(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "sci@example.com")

	w := ts.do(t, http.MethodPost, "/api/expenses", token,
		`{"title":"Rent share","amount":1e2,"category":"Utilities","date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"amount":100.00`)

	w = ts.do(t, http.MethodPost, "/api/expenses", token,
		`{"title":"Typo","amount":"12x","category":"Food","date":"2024-03-01"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "amount must be a decimal number", decode(t, w)["error"])
}

func TestBudgetCRUD(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "frank@example.com")

	w := ts.do(t, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Food", "amount": 300, "month": 3, "year": 2024,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	budget := decode(t, w)
	id := int64(budget["id"].(float64))
	assert.Contains(t, w.Body.String(), `"amount":300.00`)

	w = ts.do(t, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Food", "amount": 100, "month": "3", "year": "2024",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Food", "amount": 100, "month": 13, "year": 2024,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Food", "amount": 0, "month": 4, "year": 2024,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "Transport", "amount": 50, "month": 4, "year": 2024,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var list []map[string]any
	w = ts.do(t, http.MethodGet, "/api/budgets?month=3&year=2024", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = ts.do(t, http.MethodGet, "/api/budgets?month=3", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = ts.do(t, http.MethodGet, "/api/budgets?month=0&year=2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/budgets/%d", id), token, map[string]any{"amount": "350.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"amount":350.50`)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/budgets/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Budget deleted successfully", decode(t, w)["message"])

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/budgets/%d", id), token, map[string]any{"amount": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssistantEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "gina@example.com")

	w := ts.do(t, http.MethodPost, "/api/ai", token, map[string]any{
		"message": "How am I doing?",
		"history": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Spend less on food.", decode(t, w)["response"])
	require.Len(t, ts.relay.history, 2)
	assert.Equal(t, llm.RoleAssistant, ts.relay.history[1].Role)
	assert.Contains(t, ts.relay.prompt, "No expenses this month")

	w = ts.do(t, http.MethodPost, "/api/ai", token, map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/ai", token, map[string]any{
		"message": "hi",
		"history": []map[string]string{{"role": "system", "content": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantErrorMapping(t *testing.T) {
	tests := []struct {
		kind llm.Kind
		want int
	}{
		{llm.KindRateLimited, http.StatusTooManyRequests},
		{llm.KindPermissionDenied, http.StatusForbidden},
		{llm.KindModelUnavailable, http.StatusServiceUnavailable},
		{llm.KindInvalidCredential, http.StatusInternalServerError},
		{llm.KindFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ts := newTestServer(t, Options{})
			token := ts.signup(t, "henry@example.com")
			ts.relay.err = &llm.Error{Kind: tt.kind, Message: "boom"}

			w := ts.do(t, http.MethodPost, "/api/ai", token, map[string]any{"message": "hi"})
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@y.zz", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@y.zz", "password": "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = ts.do(t, http.MethodGet, "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "http_requests_total "))

	w = ts.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decode(t, w)["error"])

	w = ts.do(t, http.MethodPatch, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSecurityMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "sec@example.com")

	w := ts.do(t, http.MethodGet, "/api/expenses?note=.git", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/v2/admin", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/expenses?note=.git", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "security_unknown_api_routes_total 1\n")
	assert.Contains(t, w.Body.String(), "security_suspicious_requests_total 2\n")
	assert.Contains(t, w.Body.String(), "http_client_errors_total 2\n")
}
