package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atelier/backend/internal/domain"
	"atelier/backend/internal/service"
	"atelier/backend/internal/store/memory"
)

type testClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
	csrf   string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()

	repo := memory.New()
	svc := service.New(repo, nil, nil, time.Second)
	auth := NewAuthManager("test-secret-for-httpapi-tests-0123456789", time.Hour, repo)
	api := New(svc, auth, "http://localhost:5173")

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	return &testClient{t: t, server: server}
}

func (c *testClient) do(method string, path string, payload any) (*http.Response, map[string]any) {
	c.t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.server.URL+path, body)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (c *testClient) signUp(email string) {
	c.t.Helper()

	resp, body := c.do(http.MethodPost, "/api/v1/auth/register", domain.RegisterRequest{
		Email:    email,
		Password: "super-secret-1",
		Name:     "Tester",
	})
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register status = %d body = %v", resp.StatusCode, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		c.t.Fatalf("register returned no access token: %v", body)
	}
	c.token = token

	resp, body = c.do(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("csrf-token status = %d", resp.StatusCode)
	}
	c.csrf, _ = body["csrf_token"].(string)
	if c.csrf == "" {
		c.t.Fatalf("empty csrf token: %v", body)
	}
}

func TestHealthz(t *testing.T) {
	c := newTestClient(t)

	resp, body := c.do(http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ok, _ := body["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %v", body)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	c := newTestClient(t)

	resp, _ := c.do(http.MethodGet, "/api/v1/materials", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMutationWithoutCSRFTokenIsRejected(t *testing.T) {
	c := newTestClient(t)
	c.signUp("owner@example.com")
	c.csrf = ""

	resp, _ := c.do(http.MethodPost, "/api/v1/clients", domain.ClientCreateRequest{Name: "Ana"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRegisterLoginAndMaterialCRUD(t *testing.T) {
	c := newTestClient(t)
	c.signUp("studio@example.com")

	resp, body := c.do(http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{
		Email:    "studio@example.com",
		Password: "super-secret-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d body = %v", resp.StatusCode, body)
	}

	resp, body = c.do(http.MethodPost, "/api/v1/materials", domain.MaterialCreateRequest{
		Name:               "Papel fotográfico A4",
		Category:           domain.MaterialCategoryPaper,
		Unit:               domain.UnitTypeUnit,
		QuantityPerPackage: 50,
		TotalValue:         25,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create material status = %d body = %v", resp.StatusCode, body)
	}
	material, _ := body["material"].(map[string]any)
	if material == nil {
		t.Fatalf("missing material in response: %v", body)
	}
	if got := material["cost_per_unit"].(float64); got != 0.5 {
		t.Fatalf("cost_per_unit = %v, want 0.5", got)
	}

	id, _ := material["id"].(string)
	newValue := 30.0
	resp, body = c.do(http.MethodPatch, "/api/v1/materials/"+id, domain.MaterialUpdateRequest{
		TotalValue: &newValue,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update material status = %d body = %v", resp.StatusCode, body)
	}
	material, _ = body["material"].(map[string]any)
	if got := material["cost_per_unit"].(float64); got != 0.6 {
		t.Fatalf("cost_per_unit after update = %v, want 0.6", got)
	}

	resp, _ = c.do(http.MethodDelete, "/api/v1/materials/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete material status = %d", resp.StatusCode)
	}

	resp, body = c.do(http.MethodGet, "/api/v1/materials", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list materials status = %d", resp.StatusCode)
	}
	if materials, _ := body["materials"].([]any); len(materials) != 0 {
		t.Fatalf("expected no materials, got %v", materials)
	}
}

func TestBudgetLifecycleOverHTTP(t *testing.T) {
	c := newTestClient(t)
	c.signUp("budgets@example.com")

	_, body := c.do(http.MethodPost, "/api/v1/clients", domain.ClientCreateRequest{Name: "Maria"})
	client, _ := body["client"].(map[string]any)
	clientID, _ := client["id"].(string)

	resp, body := c.do(http.MethodPost, "/api/v1/budgets", domain.BudgetSaveRequest{
		ClientID: clientID,
		Items: []domain.BudgetItem{
			{ProductID: "ad-hoc", Name: "Convite", Quantity: 10, UnitPrice: 3},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create budget status = %d body = %v", resp.StatusCode, body)
	}
	budget, _ := body["budget"].(map[string]any)
	if got := budget["number"].(string); got != "ORC-001" {
		t.Fatalf("budget number = %q, want ORC-001", got)
	}
	if got := budget["total_value"].(float64); got != 30 {
		t.Fatalf("total_value = %v, want 30", got)
	}
	budgetID, _ := budget["id"].(string)

	resp, body = c.do(http.MethodPost, "/api/v1/budgets/"+budgetID+"/convert", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("convert status = %d body = %v", resp.StatusCode, body)
	}
	sale, _ := body["sale"].(map[string]any)
	if got := sale["number"].(string); got != "VEN-001" {
		t.Fatalf("sale number = %q, want VEN-001", got)
	}
	if got := sale["status"].(string); got != string(domain.SaleStatusPaid) {
		t.Fatalf("sale status = %q, want PAID", got)
	}

	resp, body = c.do(http.MethodGet, "/api/v1/budgets", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list budgets status = %d", resp.StatusCode)
	}
	budgets, _ := body["budgets"].([]any)
	if len(budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(budgets))
	}
	if got := budgets[0].(map[string]any)["status"].(string); got != string(domain.BudgetStatusApproved) {
		t.Fatalf("budget status after convert = %q, want APPROVED", got)
	}
}

func TestCreateBudgetWithoutClientIsSilentNoOp(t *testing.T) {
	c := newTestClient(t)
	c.signUp("noop@example.com")

	resp, body := c.do(http.MethodPost, "/api/v1/budgets", domain.BudgetSaveRequest{
		Items: []domain.BudgetItem{{ProductID: "x", Name: "Tag", Quantity: 1, UnitPrice: 2}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if saved, _ := body["saved"].(bool); saved {
		t.Fatalf("expected saved=false, got %v", body)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	first := newTestClient(t)
	first.signUp("first@example.com")

	_, _ = first.do(http.MethodPost, "/api/v1/clients", domain.ClientCreateRequest{Name: "Cliente A"})

	second := &testClient{t: t, server: first.server}
	second.signUp("second@example.com")

	resp, body := second.do(http.MethodGet, "/api/v1/clients", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if clients, _ := body["clients"].([]any); len(clients) != 0 {
		t.Fatalf("second account sees %d clients, want 0", len(clients))
	}
}

func TestLoginRateLimit(t *testing.T) {
	c := newTestClient(t)

	var last int
	for i := 0; i < 8; i++ {
		resp, _ := c.do(http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{
			Email:    "nobody@example.com",
			Password: "wrong-password",
		})
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after repeated attempts = %d, want 429", last)
	}
}
