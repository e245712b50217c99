package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
)

const (
	createCheckoutSession = "v1/checkout/sessions"

	// допустимый возраст подписи webhook
	signatureTolerance = 5 * time.Minute
)

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Provider реализует IPaymentProvider для Stripe Checkout
type Provider struct {
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time
}

// NewProvider создаёт новый провайдер Stripe
func NewProvider(cfg *Config, log *slog.Logger) *Provider {
	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// checkoutSessionResponse нужные нам поля ответа Stripe
type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckout создаёт Checkout Session.
// Наш payment_id уезжает в client_reference_id и возвращается в webhook
func (p *Provider) CreateCheckout(ctx context.Context, req paymentPort.CreateCheckoutRequest) (*paymentPort.CheckoutResult, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.PaymentID)
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.ProductTitle)
	form.Set("metadata[identity]", req.Identity)
	form.Set("metadata[product_id]", req.ProductID)

	endpoint := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/" + createCheckoutSession
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.log.Debug("stripe API returned non-200 status",
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return nil, fmt.Errorf("stripe API error [status=%d]: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	var session checkoutSessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("stripe API unmarshal failed: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("stripe API returned incomplete session")
	}

	return &paymentPort.CheckoutResult{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// webhookEnvelope нужные нам поля события Stripe
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook проверяет подпись Stripe-Signature и разбирает событие.
// Подпись: HMAC-SHA256(webhook_secret, "{t}.{payload}"), заголовок вида "t=...,v1=..."
func (p *Provider) VerifyWebhook(payload []byte, signatureHeader string) (*paymentPort.WebhookEvent, error) {
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	eventTime := time.Unix(timestamp, 0)
	if p.now().Sub(eventTime) > signatureTolerance {
		return nil, fmt.Errorf("webhook signature timestamp too old")
	}

	mac := hmac.New(sha256.New, []byte(p.cfg.WebhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	verified := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}

	return &paymentPort.WebhookEvent{
		Type:      envelope.Type,
		SessionID: envelope.Data.Object.ID,
		PaymentID: envelope.Data.Object.ClientReferenceID,
	}, nil
}

// parseSignatureHeader разбирает заголовок "t=1700000000,v1=abcdef,v1=..."
func parseSignatureHeader(header string) (timestamp int64, signatures []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("missing signature header")
	}

	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			timestamp, err = strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid signature timestamp: %w", err)
			}
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("malformed signature header")
	}
	return timestamp, signatures, nil
}
