package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/ports/adapter"
)

// PayHeroGateway implements the PaymentGateway port against the PayHero
// STK-push API using direct HTTP calls.
type PayHeroGateway struct {
	baseURL   string
	platform  string
	accountID string
	client    *http.Client
}

var _ adapter.PaymentGateway = (*PayHeroGateway)(nil)

// NewPayHeroGateway creates a gateway client. platform and accountID are
// fixed deployment constants sent with every initiation.
func NewPayHeroGateway(baseURL, platform, accountID string) (*PayHeroGateway, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("payhero: base URL is required")
	}
	return &PayHeroGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		platform:  platform,
		accountID: accountID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (g *PayHeroGateway) Name() string { return "payhero" }

// payHeroInitiateRequest is the wire shape of the STK-push request.
type payHeroInitiateRequest struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Platform    string `json:"platform"`
	AccountID   string `json:"account_id"`
}

// payHeroInitiateResponse covers the field variants the API has been seen
// returning on initiation.
type payHeroInitiateResponse struct {
	Success           *bool  `json:"success"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	Error             string `json:"error"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// payHeroStatusResponse covers the field variants of the status and verify
// endpoints. Exactly which fields are present differs per deployment.
type payHeroStatusResponse struct {
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	ResultCode        *int   `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	Message           string `json:"message"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// Initiate issues the STK-push request. Transport failures wrap
// domain.ErrGatewayUnavailable; a gateway-level refusal wraps
// domain.ErrGatewayRejected.
func (g *PayHeroGateway) Initiate(ctx context.Context, phone string, amountKES int64, reference string) (adapter.InitiationResult, error) {
	body, err := json.Marshal(payHeroInitiateRequest{
		PhoneNumber: phone,
		Amount:      amountKES,
		Reference:   reference,
		Platform:    g.platform,
		AccountID:   g.accountID,
	})
	if err != nil {
		return adapter.InitiationResult{}, fmt.Errorf("marshal initiate request: %w", err)
	}

	endpoint := g.baseURL + "/payments/stk-push/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return adapter.InitiationResult{}, fmt.Errorf("create initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.InitiationResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.InitiationResult{}, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return adapter.InitiationResult{}, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var parsed payHeroInitiateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return adapter.InitiationResult{}, fmt.Errorf("%w: unmarshal response: %v, body: %s", domain.ErrGatewayUnavailable, err, string(raw))
	}

	rejected := resp.StatusCode >= http.StatusBadRequest ||
		(parsed.Success != nil && !*parsed.Success) ||
		normalizeStatusWord(parsed.Status) == adapter.SettlementFailed
	if rejected {
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return adapter.InitiationResult{Accepted: false, Message: msg},
			fmt.Errorf("%w: %s", domain.ErrGatewayRejected, msg)
	}

	return adapter.InitiationResult{
		Accepted:  true,
		RequestID: parsed.CheckoutRequestID,
		Message:   parsed.Message,
	}, nil
}

// PollStatus checks settlement by the gateway-issued checkout request id.
// Safe to call repeatedly.
func (g *PayHeroGateway) PollStatus(ctx context.Context, requestID string) (adapter.StatusResult, error) {
	endpoint := fmt.Sprintf("%s/payments/status/?checkout_request_id=%s", g.baseURL, url.QueryEscape(requestID))
	return g.fetchStatus(ctx, endpoint)
}

// VerifyByReference checks settlement by the locally generated reference.
// Safe to call repeatedly.
func (g *PayHeroGateway) VerifyByReference(ctx context.Context, reference string) (adapter.StatusResult, error) {
	endpoint := fmt.Sprintf("%s/payments/verify-payment/%s/", g.baseURL, url.PathEscape(reference))
	return g.fetchStatus(ctx, endpoint)
}

func (g *PayHeroGateway) fetchStatus(ctx context.Context, endpoint string) (adapter.StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return adapter.StatusResult{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.StatusResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.StatusResult{}, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return adapter.StatusResult{}, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		// The gateway has not recorded the transaction yet.
		return adapter.StatusResult{Status: adapter.SettlementPending}, nil
	}

	var parsed payHeroStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return adapter.StatusResult{}, fmt.Errorf("%w: unmarshal response: %v, body: %s", domain.ErrGatewayUnavailable, err, string(raw))
	}
	return normalizeStatus(parsed), nil
}

// normalizeStatus folds the gateway's status vocabularies (status,
// payment_status, ResultCode) into the three-way settlement result so the
// lifecycle never sees raw gateway fields.
func normalizeStatus(r payHeroStatusResponse) adapter.StatusResult {
	for _, word := range []string{r.PaymentStatus, r.Status} {
		switch normalizeStatusWord(word) {
		case adapter.SettlementSuccess:
			return adapter.StatusResult{Status: adapter.SettlementSuccess}
		case adapter.SettlementFailed:
			return adapter.StatusResult{Status: adapter.SettlementFailed, Reason: failureReason(r)}
		case adapter.SettlementPending:
			return adapter.StatusResult{Status: adapter.SettlementPending}
		}
	}
	if r.ResultCode != nil {
		if *r.ResultCode == 0 {
			return adapter.StatusResult{Status: adapter.SettlementSuccess}
		}
		return adapter.StatusResult{Status: adapter.SettlementFailed, Reason: failureReason(r)}
	}
	// Unknown vocabulary: treat as still pending rather than guessing an outcome.
	return adapter.StatusResult{Status: adapter.SettlementPending}
}

func normalizeStatusWord(s string) adapter.SettlementStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED", "PAID":
		return adapter.SettlementSuccess
	case "FAILED", "FAILURE", "CANCELLED", "CANCELED", "REJECTED":
		return adapter.SettlementFailed
	case "PENDING", "QUEUED", "PROCESSING", "INITIATED":
		return adapter.SettlementPending
	}
	return ""
}

func failureReason(r payHeroStatusResponse) string {
	if r.ResultDesc != "" {
		return r.ResultDesc
	}
	if r.Message != "" {
		return r.Message
	}
	return "payment failed"
}
