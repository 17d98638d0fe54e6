package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/repository"
	"remo-checkout/internal/infra/notify"
	"remo-checkout/internal/usecase"
)

// requestTimeout bounds every handler. Confirmation runs on its own
// detached context, so a slow gateway never holds a request open.
const requestTimeout = 30 * time.Second

// Server exposes the checkout flow over HTTP. It is the UIAdapter surface:
// a browser client drives the lifecycle through these routes and polls
// /checkout/state for the latest notification.
type Server struct {
	checkout  usecase.CheckoutUseCase
	pricing   usecase.PricingUseCase
	purchases repository.PurchaseRepository
	ledger    repository.LedgerRepository // nil when the ledger is disabled
	recorder  *notify.Recorder
	auth      *AuthManager
	adminPass string
	log       *zerolog.Logger
}

func NewServer(
	checkout usecase.CheckoutUseCase,
	pricing usecase.PricingUseCase,
	purchases repository.PurchaseRepository,
	ledger repository.LedgerRepository,
	recorder *notify.Recorder,
	auth *AuthManager,
	adminPass string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		checkout:  checkout,
		pricing:   pricing,
		purchases: purchases,
		ledger:    ledger,
		recorder:  recorder,
		auth:      auth,
		adminPass: adminPass,
		log:       logger,
	}
}

// Router builds the chi route tree with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/plan", s.handleSelectPlan)
			r.Post("/proceed", s.handleProceed)
			r.Post("/pay", s.handlePay)
			r.Post("/retry", s.handleRetry)
			r.Post("/cancel", s.handleCancel)
			r.Get("/state", s.handleState)
		})
		r.Get("/prices", s.handlePrices)
		r.Get("/purchase", s.handlePurchase)

		// Administrative/test operations
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Delete("/purchase", s.handleResetPurchase)
			r.Post("/prices/refresh", s.handleRefreshPrices)
			r.Get("/ledger", s.handleLedger)
		})
	})

	r.Post("/admin/login", s.handleAdminLogin)
	r.Post("/admin/logout", s.handleAdminLogout)

	return r
}

// ---- checkout flow ----

type selectPlanRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	var req selectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := s.checkout.SelectPlan(r.Context(), req.Tier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleProceed(w http.ResponseWriter, r *http.Request) {
	sess, err := s.checkout.ProceedToPayment(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

type payRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := s.checkout.SubmitPayment(r.Context(), req.Phone)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusAccepted, sess)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, err := s.checkout.Retry(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.checkout.Cancel(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stateResponse struct {
	State     model.CheckoutState `json:"state"`
	SessionID string              `json:"session_id,omitempty"`
	Plan      model.PlanTier      `json:"plan,omitempty"`
	PriceUSD  string              `json:"price_usd,omitempty"`
	KESAmount string              `json:"kes_amount,omitempty"`
	Reference string              `json:"reference,omitempty"`
	Message   string              `json:"message,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{State: model.StateIdle}
	if sess := s.checkout.Session(); sess != nil {
		resp.State = sess.State
		resp.SessionID = sess.ID
		resp.Reference = sess.Reference
		if sess.Plan != nil {
			resp.Plan = sess.Plan.Tier
			resp.PriceUSD = sess.Plan.PriceUSD.StringFixed(2)
		}
		if !sess.KESAmount.IsZero() {
			resp.KESAmount = model.FormatKES(sess.KESAmount)
		}
	}
	if last := s.recorder.Last(); last != nil && last.State == resp.State {
		resp.Message = last.Message
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ---- prices & purchase ----

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices := s.pricing.Prices()
	out := make(map[string]string, len(prices))
	for tier, p := range prices {
		out[string(tier)] = p.StringFixed(2)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	rec, err := s.purchases.Find(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeJSON(w, http.StatusOK, map[string]any{"purchased": false})
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"purchased": rec.Unlocks(),
		"record":    rec,
	})
}

func (s *Server) handleResetPurchase(w http.ResponseWriter, r *http.Request) {
	if err := s.purchases.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info().Msg("purchase record reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	s.pricing.Refresh(r.Context())
	s.handlePrices(w, r)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "Ledger disabled", http.StatusNotImplemented)
		return
	}
	entries, err := s.ledger.ListRecent(r.Context(), 50)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// ---- admin session ----

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminPass == "" || req.Password != s.adminPass {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

func (s *Server) writeSession(w http.ResponseWriter, code int, sess *model.CheckoutSession) {
	resp := stateResponse{
		State:     sess.State,
		SessionID: sess.ID,
		Reference: sess.Reference,
	}
	if sess.Plan != nil {
		resp.Plan = sess.Plan.Tier
		resp.PriceUSD = sess.Plan.PriceUSD.StringFixed(2)
	}
	if !sess.KESAmount.IsZero() {
		resp.KESAmount = model.FormatKES(sess.KESAmount)
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPlan),
		errors.Is(err, domain.ErrInvalidPhoneNumber),
		errors.Is(err, domain.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCheckoutInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, domain.ErrGatewayRejected):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
