//go:build !integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"remo-checkout/internal/config"
	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/infra/notify"
	"remo-checkout/internal/infra/payment"
	"remo-checkout/internal/usecase"
)

type memPurchaseRepo struct {
	mu  sync.RWMutex
	rec *model.PurchaseRecord
}

func (m *memPurchaseRepo) Save(ctx context.Context, rec *model.PurchaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rec = &cp
	return nil
}

func (m *memPurchaseRepo) Find(ctx context.Context) (*model.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rec == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.rec
	return &cp, nil
}

func (m *memPurchaseRepo) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

type memFeedRepo struct{}

func (memFeedRepo) Load(ctx context.Context) ([]string, error)     { return nil, domain.ErrNotFound }
func (memFeedRepo) Store(ctx context.Context, feed []string) error { return nil }

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.LedgerEntry
}

func (m *memLedgerRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLedgerRepo) ListRecent(ctx context.Context, limit int) ([]*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

type testEnv struct {
	srv       *httptest.Server
	purchases *memPurchaseRepo
	gateway   *payment.NoopGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	purchases := &memPurchaseRepo{}
	ledger := &memLedgerRepo{}
	gateway := payment.NewNoopGateway()
	gateway.SettleAfter = 2

	conv, err := model.NewCurrencyConverter(model.DefaultUSDToKES)
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	pricing := usecase.NewPricingUseCase(memFeedRepo{}, &log)
	recorder := notify.NewRecorder()

	cfg := config.CheckoutConfig{
		Strategy:        config.StrategyPoll,
		PollInterval:    5 * time.Millisecond,
		PollAttempts:    6,
		ReferencePrefix: "REMO",
	}
	checkout := usecase.NewCheckoutUseCase(pricing, conv, gateway, purchases, ledger, notify.MultiNotifier{recorder}, cfg, &log)

	auth := NewAuthManager("test-secret", false, time.Hour)
	server := NewServer(checkout, pricing, purchases, ledger, recorder, auth, "hunter2", &log)

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, purchases: purchases, gateway: gateway}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any, headers ...string) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

// waitForState polls the state endpoint until the flow reaches want.
func (e *testEnv) waitForState(t *testing.T, want model.CheckoutState) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var state map[string]any
		if code := e.do(t, http.MethodGet, "/api/v1/checkout/state", nil, &state); code != http.StatusOK {
			t.Fatalf("state endpoint returned %d", code)
		}
		if state["state"] == string(want) {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s", want)
	return nil
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)
	if code := env.do(t, http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
}

func TestServer_CheckoutFlow(t *testing.T) {
	env := newTestEnv(t)

	var state map[string]any
	if code := env.do(t, http.MethodPost, "/api/v1/checkout/plan", map[string]string{"tier": "expert"}, &state); code != http.StatusOK {
		t.Fatalf("select plan: expected 200, got %d", code)
	}
	if state["state"] != string(model.StatePlanSelected) || state["price_usd"] != "6.50" {
		t.Fatalf("unexpected plan response: %+v", state)
	}

	if code := env.do(t, http.MethodPost, "/api/v1/checkout/proceed", nil, &state); code != http.StatusOK {
		t.Fatalf("proceed: expected 200, got %d", code)
	}
	if state["kes_amount"] != "841.10" {
		t.Fatalf("expected kes_amount 841.10, got %v", state["kes_amount"])
	}

	if code := env.do(t, http.MethodPost, "/api/v1/checkout/pay", map[string]string{"phone": "0722000111"}, &state); code != http.StatusAccepted {
		t.Fatalf("pay: expected 202, got %d", code)
	}
	env.waitForState(t, model.StateSucceeded)

	var purchase struct {
		Purchased bool                  `json:"purchased"`
		Record    *model.PurchaseRecord `json:"record"`
	}
	if code := env.do(t, http.MethodGet, "/api/v1/purchase", nil, &purchase); code != http.StatusOK {
		t.Fatalf("purchase: expected 200, got %d", code)
	}
	if !purchase.Purchased {
		t.Fatal("expected purchased=true after a settled payment")
	}
	if purchase.Record.KESAmount != "841.10" || purchase.Record.Plan != model.TierExpert {
		t.Errorf("unexpected record %+v", purchase.Record)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	if code := env.do(t, http.MethodPost, "/api/v1/checkout/plan", map[string]string{"tier": "platinum"}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown tier: expected 400, got %d", code)
	}
	if code := env.do(t, http.MethodPost, "/api/v1/checkout/proceed", nil, nil); code != http.StatusNotFound {
		t.Errorf("proceed without session: expected 404, got %d", code)
	}
	if code := env.do(t, http.MethodPost, "/api/v1/checkout/pay", map[string]string{"phone": "0722000111"}, nil); code != http.StatusNotFound {
		t.Errorf("pay without session: expected 404, got %d", code)
	}

	env.do(t, http.MethodPost, "/api/v1/checkout/plan", map[string]string{"tier": "beginner"}, nil)
	env.do(t, http.MethodPost, "/api/v1/checkout/proceed", nil, nil)
	if code := env.do(t, http.MethodPost, "/api/v1/checkout/pay", map[string]string{"phone": "123"}, nil); code != http.StatusBadRequest {
		t.Errorf("invalid phone: expected 400, got %d", code)
	}
}

func TestServer_StateReportsIdleWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	var state map[string]any
	if code := env.do(t, http.MethodGet, "/api/v1/checkout/state", nil, &state); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if state["state"] != string(model.StateIdle) {
		t.Errorf("expected idle state, got %v", state["state"])
	}
}

func TestServer_Prices(t *testing.T) {
	env := newTestEnv(t)

	var prices map[string]string
	if code := env.do(t, http.MethodGet, "/api/v1/prices", nil, &prices); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	want := map[string]string{"beginner": "2.40", "average": "4.50", "expert": "6.50"}
	for tier, price := range want {
		if prices[tier] != price {
			t.Errorf("%s: expected %s, got %s", tier, price, prices[tier])
		}
	}
}

func TestServer_AdminAuth(t *testing.T) {
	env := newTestEnv(t)

	if code := env.do(t, http.MethodDelete, "/api/v1/purchase", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("unauthenticated reset: expected 401, got %d", code)
	}
	if code := env.do(t, http.MethodPost, "/admin/login", map[string]string{"password": "wrong"}, nil); code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", code)
	}

	var login map[string]string
	if code := env.do(t, http.MethodPost, "/admin/login", map[string]string{"password": "hunter2"}, &login); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	token := login["token"]
	if token == "" {
		t.Fatal("expected a session token")
	}

	// Seed a record, then reset it through the admin route.
	_ = env.purchases.Save(context.Background(), &model.PurchaseRecord{
		Plan:          model.TierExpert,
		PaymentStatus: model.PaymentStatusSuccess,
	})
	if code := env.do(t, http.MethodDelete, "/api/v1/purchase", nil, nil, "Authorization", "Bearer "+token); code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d", code)
	}

	var purchase map[string]any
	env.do(t, http.MethodGet, "/api/v1/purchase", nil, &purchase)
	if purchase["purchased"] != false {
		t.Errorf("expected purchased=false after reset, got %v", purchase["purchased"])
	}

	if code := env.do(t, http.MethodGet, "/api/v1/ledger", nil, nil, "Authorization", "Bearer "+token); code != http.StatusOK {
		t.Errorf("ledger: expected 200, got %d", code)
	}
}
