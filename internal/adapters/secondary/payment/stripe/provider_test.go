package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func checkoutRequestFixture() paymentPort.CreateCheckoutRequest {
	return paymentPort.CreateCheckoutRequest{
		PaymentID:    "pay-42",
		Identity:     "user-1",
		ProductID:    "pack_starter",
		ProductTitle: "Starter Pack",
		AmountCents:  499,
		Currency:     "gbp",
		SuccessURL:   "https://app.test/success",
		CancelURL:    "https://app.test/cancel",
	}
}

func testProvider(baseURL string) *Provider {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvider(&Config{
		BaseURL:       baseURL,
		SecretKey:     "sk_test_key",
		WebhookSecret: testWebhookSecret,
	}, log)
}

func signPayload(t *testing.T, payload []byte, at time.Time) string {
	t.Helper()
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseSignatureHeader(t *testing.T) {
	t.Run("parses timestamp and multiple v1 signatures", func(t *testing.T) {
		ts, sigs, err := parseSignatureHeader("t=1700000000,v1=aaa,v1=bbb")
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), ts)
		assert.Equal(t, []string{"aaa", "bbb"}, sigs)
	})

	t.Run("rejects empty header", func(t *testing.T) {
		_, _, err := parseSignatureHeader("")
		assert.Error(t, err)
	})

	t.Run("rejects header without signature", func(t *testing.T) {
		_, _, err := parseSignatureHeader("t=1700000000")
		assert.Error(t, err)
	})

	t.Run("rejects header without timestamp", func(t *testing.T) {
		_, _, err := parseSignatureHeader("v1=aaa")
		assert.Error(t, err)
	})
}

func TestVerifyWebhook(t *testing.T) {
	now := time.Unix(1700000000, 0)
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_test_123","client_reference_id":"pay-42"}}}`)

	t.Run("accepts a fresh valid signature", func(t *testing.T) {
		p := testProvider("")
		p.now = func() time.Time { return now }

		event, err := p.VerifyWebhook(payload, signPayload(t, payload, now))
		require.NoError(t, err)
		assert.Equal(t, "checkout.session.completed", event.Type)
		assert.Equal(t, "cs_test_123", event.SessionID)
		assert.Equal(t, "pay-42", event.PaymentID)
	})

	t.Run("rejects a stale signature", func(t *testing.T) {
		p := testProvider("")
		p.now = func() time.Time { return now.Add(signatureTolerance + time.Minute) }

		_, err := p.VerifyWebhook(payload, signPayload(t, payload, now))
		assert.Error(t, err)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		p := testProvider("")
		p.now = func() time.Time { return now }

		header := signPayload(t, payload, now)
		tampered := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_evil","client_reference_id":"pay-42"}}}`)
		_, err := p.VerifyWebhook(tampered, header)
		assert.Error(t, err)
	})

	t.Run("rejects a signature made with another secret", func(t *testing.T) {
		p := testProvider("")
		p.now = func() time.Time { return now }

		mac := hmac.New(sha256.New, []byte("whsec_other"))
		fmt.Fprintf(mac, "%d.", now.Unix())
		mac.Write(payload)
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))

		_, err := p.VerifyWebhook(payload, header)
		assert.Error(t, err)
	})
}

func TestCreateCheckout(t *testing.T) {
	t.Run("sends the form and returns the session", func(t *testing.T) {
		var gotForm map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)

			gotForm = map[string]string{
				"mode":                r.PostForm.Get("mode"),
				"client_reference_id": r.PostForm.Get("client_reference_id"),
				"currency":            r.PostForm.Get("line_items[0][price_data][currency]"),
				"unit_amount":         r.PostForm.Get("line_items[0][price_data][unit_amount]"),
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"cs_test_123","url":"https://checkout.stripe.test/pay/cs_test_123"}`)
		}))
		defer server.Close()

		p := testProvider(server.URL)
		result, err := p.CreateCheckout(context.Background(), checkoutRequestFixture())
		require.NoError(t, err)

		assert.Equal(t, "cs_test_123", result.SessionID)
		assert.Equal(t, "https://checkout.stripe.test/pay/cs_test_123", result.CheckoutURL)
		assert.Equal(t, "payment", gotForm["mode"])
		assert.Equal(t, "pay-42", gotForm["client_reference_id"])
		assert.Equal(t, "gbp", gotForm["currency"])
		assert.Equal(t, "499", gotForm["unit_amount"])
	})

	t.Run("propagates API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			fmt.Fprint(w, `{"error":{"message":"card declined"}}`)
		}))
		defer server.Close()

		p := testProvider(server.URL)
		_, err := p.CreateCheckout(context.Background(), checkoutRequestFixture())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=402")
	})

	t.Run("rejects an incomplete session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"id":"cs_test_123"}`)
		}))
		defer server.Close()

		p := testProvider(server.URL)
		_, err := p.CreateCheckout(context.Background(), checkoutRequestFixture())
		assert.Error(t, err)
	})
}
