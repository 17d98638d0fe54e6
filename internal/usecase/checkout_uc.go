// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"remo-checkout/internal/config"
	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/adapter"
	"remo-checkout/internal/domain/ports/repository"
	"remo-checkout/internal/infra/logging"
	"remo-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase drives one purchase attempt through its lifecycle:
// plan selection, phone collection, STK-push initiation, confirmation
// waiting, and terminal resolution with a persisted purchase record.
type CheckoutUseCase interface {
	// SelectPlan starts a session (from idle or a terminal state).
	SelectPlan(ctx context.Context, tier string) (*model.CheckoutSession, error)
	// ProceedToPayment moves to phone input and computes the KES amounts.
	ProceedToPayment(ctx context.Context) (*model.CheckoutSession, error)
	// SubmitPayment normalizes the phone, initiates the STK push, and on
	// acceptance starts confirmation in the background.
	SubmitPayment(ctx context.Context, rawPhone string) (*model.CheckoutSession, error)
	// Retry returns a terminal session to phone input, keeping its plan.
	Retry(ctx context.Context) (*model.CheckoutSession, error)
	// Cancel clears the session. From a non-terminal state nothing is
	// persisted; any scheduled confirmation stops.
	Cancel(ctx context.Context) error
	// Session returns a snapshot of the active session, or nil.
	Session() *model.CheckoutSession
}

type checkoutUC struct {
	catalog   PricingUseCase
	converter *model.CurrencyConverter
	gateway   adapter.PaymentGateway
	purchases repository.PurchaseRepository
	ledger    repository.LedgerRepository // optional, best-effort
	notifier  adapter.UINotifier
	cfg       config.CheckoutConfig
	log       *zerolog.Logger

	// wait suspends between confirmation attempts; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	session       *model.CheckoutSession
	confirmCancel context.CancelFunc
}

func NewCheckoutUseCase(
	catalog PricingUseCase,
	converter *model.CurrencyConverter,
	gateway adapter.PaymentGateway,
	purchases repository.PurchaseRepository,
	ledger repository.LedgerRepository,
	notifier adapter.UINotifier,
	cfg config.CheckoutConfig,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		catalog:   catalog,
		converter: converter,
		gateway:   gateway,
		purchases: purchases,
		ledger:    ledger,
		notifier:  notifier,
		cfg:       cfg,
		log:       logger,
		wait:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (u *checkoutUC) SelectPlan(ctx context.Context, tier string) (*model.CheckoutSession, error) {
	parsed, err := model.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	plan, err := u.catalog.Resolve(parsed)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	if u.session != nil && !u.session.State.Terminal() {
		u.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	u.stopConfirmLocked()
	u.session = &model.CheckoutSession{
		ID:    ulid.Make().String(),
		State: model.StatePlanSelected,
		Plan:  plan,
	}
	snap := *u.session
	u.mu.Unlock()

	u.notify(ctx, &snap, fmt.Sprintf("Account: %s • $%s", strings.ToUpper(string(plan.Tier)), plan.PriceUSD.StringFixed(2)))
	return &snap, nil
}

func (u *checkoutUC) ProceedToPayment(ctx context.Context) (*model.CheckoutSession, error) {
	u.mu.Lock()
	if u.session == nil {
		u.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	if !u.session.CanTransition(model.StateAwaitingPhoneInput) || u.session.State != model.StatePlanSelected {
		u.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	u.session.KESAmount = u.converter.ToKES(u.session.Plan.PriceUSD)
	u.session.KESUnits = u.converter.ToKESUnits(u.session.Plan.PriceUSD)
	u.session.State = model.StateAwaitingPhoneInput
	snap := *u.session
	u.mu.Unlock()

	u.notify(ctx, &snap, fmt.Sprintf("Pay KES %s via M-Pesa", model.FormatKES(snap.KESAmount)))
	return &snap, nil
}

func (u *checkoutUC) SubmitPayment(ctx context.Context, rawPhone string) (*model.CheckoutSession, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.SubmitPayment")()

	u.mu.Lock()
	if u.session == nil {
		u.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	switch u.session.State {
	case model.StateSubmitting, model.StateWaitingConfirmation:
		u.mu.Unlock()
		return nil, domain.ErrCheckoutInFlight
	case model.StateAwaitingPhoneInput:
	default:
		u.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}

	phone, err := model.NewMSISDN(rawPhone)
	if err != nil {
		// Local validation failure: the session stays in AwaitingPhoneInput.
		u.mu.Unlock()
		return nil, err
	}

	u.session.Phone = phone
	u.session.Reference = u.newReference()
	u.session.RequestID = ""
	u.session.State = model.StateSubmitting

	confirmCtx, cancel := context.WithCancel(context.Background())
	u.stopConfirmLocked()
	u.confirmCancel = cancel
	ref := u.session.Reference
	amount := u.session.KESUnits
	snap := *u.session
	u.mu.Unlock()

	u.notify(ctx, &snap, "Sending payment prompt to your phone...")
	u.log.Info().
		Str("reference", ref).
		Str("phone", logging.Redact(phone.String(), false)).
		Int64("amount_kes", amount).
		Msg("initiating stk push")

	res, err := u.gateway.Initiate(confirmCtx, phone.String(), amount, ref)
	if err != nil {
		// Strict policy: an initiation failure is terminal, never an
		// optimistic continuation.
		switch {
		case errors.Is(err, domain.ErrGatewayUnavailable):
			metrics.IncInitiation("unavailable")
		default:
			metrics.IncInitiation("rejected")
		}
		reason := "initiation failed"
		if res.Message != "" {
			reason = res.Message
		}
		u.resolveFailed(ref, reason)
		return u.Session(), err
	}
	metrics.IncInitiation("accepted")

	u.mu.Lock()
	if u.session == nil || u.session.Reference != ref || u.session.State != model.StateSubmitting {
		// Cancelled while the initiation round-trip was in flight; the
		// prompt may still reach the phone but no transition applies.
		u.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	u.session.RequestID = res.RequestID
	u.session.State = model.StateWaitingConfirmation
	requestID := res.RequestID
	snap = *u.session
	u.mu.Unlock()

	u.notify(ctx, &snap, "Enter your M-Pesa PIN on your phone to complete the payment")

	go u.confirm(confirmCtx, ref, requestID)
	return &snap, nil
}

func (u *checkoutUC) Retry(ctx context.Context) (*model.CheckoutSession, error) {
	u.mu.Lock()
	if u.session == nil {
		u.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	if !u.session.State.Terminal() {
		u.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	u.session.Phone = model.MSISDN{}
	u.session.Reference = ""
	u.session.RequestID = ""
	u.session.State = model.StateAwaitingPhoneInput
	snap := *u.session
	u.mu.Unlock()

	u.notify(ctx, &snap, "Enter your M-Pesa number to try again")
	return &snap, nil
}

func (u *checkoutUC) Cancel(ctx context.Context) error {
	u.mu.Lock()
	if u.session == nil {
		u.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	u.stopConfirmLocked()
	id := u.session.ID
	u.session = nil
	u.mu.Unlock()

	u.notifier.Notify(ctx, adapter.StateChange{SessionID: id, State: model.StateIdle, Message: "Checkout cancelled"})
	return nil
}

func (u *checkoutUC) Session() *model.CheckoutSession {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session == nil {
		return nil
	}
	snap := *u.session
	return &snap
}

// stopConfirmLocked stops any scheduled confirmation resumption. Callers
// must hold u.mu.
func (u *checkoutUC) stopConfirmLocked() {
	if u.confirmCancel != nil {
		u.confirmCancel()
		u.confirmCancel = nil
	}
}

func (u *checkoutUC) newReference() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", u.cfg.ReferencePrefix, time.Now().UnixMilli(), suffix)
}

// confirm waits for settlement using the configured strategy. It runs on
// its own goroutine with a context that Cancel aborts; a result arriving
// for a superseded session is discarded by the reference checks inside the
// resolve helpers.
func (u *checkoutUC) confirm(ctx context.Context, reference, requestID string) {
	strategy := u.cfg.Strategy
	if strategy == config.StrategyPoll && requestID == "" {
		// The gateway acknowledged without a checkout request id; the
		// reference is the only handle we have left.
		u.log.Warn().Str("reference", reference).Msg("no checkout request id in ack; falling back to verify-by-reference")
		strategy = config.StrategyVerify
	}

	switch strategy {
	case config.StrategyFixedDelay:
		u.confirmFixedDelay(ctx, reference)
	case config.StrategyVerify:
		u.confirmLoop(ctx, reference, config.StrategyVerify, func(c context.Context) (adapter.StatusResult, error) {
			return u.gateway.VerifyByReference(c, reference)
		})
	default:
		u.confirmLoop(ctx, reference, config.StrategyPoll, func(c context.Context) (adapter.StatusResult, error) {
			return u.gateway.PollStatus(c, requestID)
		})
	}
}

// confirmFixedDelay assumes success after a fixed wait without consulting
// the gateway. Demo mode only: it will happily report success for a payment
// that never completed, which is why config gates it behind allow_unsafe.
func (u *checkoutUC) confirmFixedDelay(ctx context.Context, reference string) {
	if err := u.wait(ctx, u.cfg.FixedDelay); err != nil {
		return // cancelled
	}
	u.log.Warn().Str("reference", reference).Msg("fixed-delay strategy: recording success WITHOUT gateway confirmation")
	u.resolveSuccess(ctx, reference)
}

// confirmLoop checks settlement on a fixed cadence within the attempt
// budget. Transport errors consume an attempt and are retried; exhausting
// the budget resolves to TimedOut, never to success.
func (u *checkoutUC) confirmLoop(ctx context.Context, reference, strategy string, check func(context.Context) (adapter.StatusResult, error)) {
	for attempt := 1; attempt <= u.cfg.PollAttempts; attempt++ {
		if err := u.wait(ctx, u.cfg.PollInterval); err != nil {
			return // cancelled
		}
		res, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.IncConfirmAttempt(strategy, "error")
			u.log.Warn().Err(err).Str("reference", reference).Int("attempt", attempt).Msg("status check failed; retrying")
			continue
		}
		metrics.IncConfirmAttempt(strategy, string(res.Status))
		switch res.Status {
		case adapter.SettlementSuccess:
			u.resolveSuccess(ctx, reference)
			return
		case adapter.SettlementFailed:
			u.resolveFailed(reference, res.Reason)
			return
		case adapter.SettlementPending:
			// keep waiting
		}
	}
	u.resolveTimeout(reference)
}

// takeTerminal moves the session into a terminal state if it still belongs
// to this confirmation attempt. Returns a snapshot, or nil when the result
// arrived for a superseded or already-resolved session.
func (u *checkoutUC) takeTerminal(reference string, to model.CheckoutState) *model.CheckoutSession {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session == nil || u.session.Reference != reference {
		return nil
	}
	if !u.session.CanTransition(to) {
		return nil
	}
	u.session.State = to
	snap := *u.session
	return &snap
}

func (u *checkoutUC) resolveSuccess(ctx context.Context, reference string) {
	snap := u.takeTerminal(reference, model.StateSucceeded)
	if snap == nil {
		return
	}
	metrics.IncOutcome(string(model.StateSucceeded))
	metrics.AddRevenueKES(snap.KESUnits)
	u.persist(snap, model.PaymentStatusSuccess, "")
	u.notify(context.Background(), snap, fmt.Sprintf("Payment received. Welcome to your %s account!", strings.ToUpper(string(snap.Plan.Tier))))
}

func (u *checkoutUC) resolveFailed(reference, reason string) {
	snap := u.takeTerminal(reference, model.StateFailed)
	if snap == nil {
		return
	}
	if reason == "" {
		reason = "payment failed"
	}
	metrics.IncOutcome(string(model.StateFailed))
	u.persist(snap, model.PaymentStatusFailed, reason)
	u.notify(context.Background(), snap, reason)
}

func (u *checkoutUC) resolveTimeout(reference string) {
	snap := u.takeTerminal(reference, model.StateTimedOut)
	if snap == nil {
		return
	}
	metrics.IncOutcome(string(model.StateTimedOut))
	// The true outcome is unknown: the payment may still settle. Persist a
	// pending record (never success) so the reconciler can finish the job.
	u.persist(snap, model.PaymentStatusPending, "confirmation timed out")
	u.notify(context.Background(), snap, "We could not confirm the payment in time. Your account may still be activated once the payment settles.")
}

// persist writes the gating purchase record and appends the ledger trail.
// A persistence failure is logged and absorbed: the in-memory terminal
// state stands either way.
func (u *checkoutUC) persist(s *model.CheckoutSession, status model.PaymentStatus, reason string) {
	now := time.Now().UTC()
	rec := &model.PurchaseRecord{
		Plan:          s.Plan.Tier,
		PriceUSD:      s.Plan.PriceUSD.StringFixed(2),
		KESAmount:     model.FormatKES(s.KESAmount),
		PaymentStatus: status,
		Reference:     s.Reference,
		PurchaseDate:  now,
		Timestamp:     now.UnixMilli(),
		Reason:        reason,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.purchases.Save(ctx, rec); err != nil {
		// Access gating that reads only persisted state will now deny a
		// paid user; surfaced loudly because there is no retry path here.
		u.log.Error().Err(err).Str("reference", s.Reference).Msg("purchase record write failed; terminal state kept in memory only")
	}

	if u.ledger != nil {
		entry := &model.LedgerEntry{
			ID:        uuid.NewString(),
			SessionID: s.ID,
			Plan:      s.Plan.Tier,
			PriceUSD:  rec.PriceUSD,
			KESAmount: rec.KESAmount,
			Status:    status,
			Reference: s.Reference,
			Reason:    reason,
			CreatedAt: now,
		}
		if err := u.ledger.Append(ctx, entry); err != nil {
			u.log.Warn().Err(err).Str("reference", s.Reference).Msg("ledger append failed")
		}
	}
}

func (u *checkoutUC) notify(ctx context.Context, s *model.CheckoutSession, message string) {
	change := adapter.StateChange{
		SessionID: s.ID,
		State:     s.State,
		Reference: s.Reference,
		Message:   message,
	}
	if s.Plan != nil {
		change.Plan = s.Plan.Tier
		change.PriceUSD = s.Plan.PriceUSD.StringFixed(2)
	}
	if !s.KESAmount.IsZero() {
		change.KESAmount = model.FormatKES(s.KESAmount)
	}
	u.notifier.Notify(ctx, change)
}
