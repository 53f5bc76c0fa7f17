package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/payment"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"499", "INR", 49900},
		{"29.99", "usd", 2999},
		{"10.005", "INR", 1001},
		{"1500", "JPY", 1500},
		{"1.2345", "KWD", 1235},
	}
	for _, tc := range cases {
		got, err := payment.ToMinorUnits(decimal.RequireFromString(tc.amount), tc.currency)
		require.NoError(t, err, tc.amount)
		require.Equal(t, tc.want, got, tc.amount)
	}
	_, err := payment.ToMinorUnits(decimal.NewFromInt(-1), "INR")
	require.Error(t, err)
	require.True(t, payment.FromMinorUnits(2999, "USD").Equal(decimal.RequireFromString("29.99")))
}

func TestRazorpayCreateOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "secret", pass)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":53892,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rp, err := payment.NewRazorpay(payment.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL, OrderTTL: time.Hour})
	require.NoError(t, err)
	rp.Now = func() time.Time { return now }

	order, err := rp.CreateOrder(context.Background(), payment.OrderRequest{
		Receipt:  "sub_1",
		Amount:   decimal.RequireFromString("538.92"),
		Currency: "inr",
	})
	require.NoError(t, err)
	require.Equal(t, "order_abc", order.ID)
	require.Equal(t, "rzp_test_key", order.KeyID)
	require.Equal(t, int64(53892), order.Amount)
	require.Equal(t, now.Add(time.Hour), order.ExpiresAt)
	require.EqualValues(t, 53892, got["amount"])
	require.Equal(t, "INR", got["currency"])
	require.Equal(t, "sub_1", got["receipt"])
}

func TestRazorpayCreateOrderSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	rp, err := payment.NewRazorpay(payment.RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL, MaxAttempts: 1})
	require.NoError(t, err)
	_, err = rp.CreateOrder(context.Background(), payment.OrderRequest{Receipt: "r", Amount: decimal.NewFromInt(1), Currency: "INR"})
	require.ErrorContains(t, err, "amount too small")

	_, err = payment.NewRazorpay(payment.RazorpayConfig{KeyID: "k"})
	require.Error(t, err)
}

func TestRazorpayVerifyPayment(t *testing.T) {
	rp, err := payment.NewRazorpay(payment.RazorpayConfig{KeyID: "k", KeySecret: "secret"})
	require.NoError(t, err)

	sig := payment.PaymentSignature("secret", "order_1", "pay_1")
	require.NoError(t, rp.VerifyPayment(payment.Confirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: sig}))
	require.ErrorIs(t, rp.VerifyPayment(payment.Confirmation{OrderID: "order_1", PaymentID: "pay_2", Signature: sig}), payment.ErrInvalidSignature)
	require.ErrorIs(t, rp.VerifyPayment(payment.Confirmation{OrderID: "order_1", PaymentID: "pay_1"}), payment.ErrInvalidSignature)
}

func TestRazorpayVerifyWebhook(t *testing.T) {
	rp, err := payment.NewRazorpay(payment.RazorpayConfig{KeyID: "k", KeySecret: "s", WebhookSecret: "whsec"})
	require.NoError(t, err)
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","status":"failed","error_description":"card declined"}}}}`)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Razorpay-Signature", payment.Sign("whsec", body))
	res, err := rp.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.Equal(t, payment.WebhookFailed, res.Status)
	require.Equal(t, "order_9", res.OrderID)
	require.Equal(t, "pay_9", res.PaymentID)
	require.Equal(t, "card declined", res.Reason)

	req.Header.Set("X-Razorpay-Signature", payment.Sign("other", body))
	_, err = rp.VerifyWebhook(req, body)
	require.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestMockOrderIsDeterministic(t *testing.T) {
	m := payment.Mock{Secret: "dev"}
	a, err := m.CreateOrder(context.Background(), payment.OrderRequest{Receipt: "sub_1", Amount: decimal.NewFromInt(10), Currency: "INR"})
	require.NoError(t, err)
	b, err := m.CreateOrder(context.Background(), payment.OrderRequest{Receipt: "sub_1", Amount: decimal.NewFromInt(10), Currency: "INR"})
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, int64(1000), a.Amount)

	_, err = m.CreateOrder(context.Background(), payment.OrderRequest{Amount: decimal.NewFromInt(10), Currency: "INR"})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := payment.NewRegistry(payment.Mock{Secret: "dev"})
	p, err := reg.Default()
	require.NoError(t, err)
	require.Equal(t, "mock", p.Name())
	_, err = reg.Get("stripe")
	require.ErrorIs(t, err, payment.ErrUnknownProvider)
	require.Equal(t, []string{"mock"}, reg.Names())
}

type recordingSettler struct {
	calls []payment.WebhookResult
	err   error
}

func (s *recordingSettler) ApplyWebhook(_ context.Context, _ string, res payment.WebhookResult) error {
	s.calls = append(s.calls, res)
	return s.err
}

func TestWebhookHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	settler := &recordingSettler{}
	h := payment.Webhook{
		Providers: payment.NewRegistry(payment.Mock{Secret: "dev"}),
		Settler:   settler,
		Replay:    client,
		ReplayTTL: time.Minute,
	}
	r := chi.NewRouter()
	r.Post("/webhooks/payment/{provider}", h.Handle)

	send := func(provider string, body []byte, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/"+provider, bytes.NewReader(body))
		req.Header.Set("X-Mock-Signature", sig)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	body := []byte(`{"orderId":"order_1","paymentId":"pay_1","status":"failed","reason":"declined"}`)
	require.Equal(t, http.StatusUnauthorized, send("mock", body, "bad"))
	require.Equal(t, http.StatusNotFound, send("paypal", body, payment.Sign("dev", body)))
	require.Equal(t, http.StatusNoContent, send("mock", body, payment.Sign("dev", body)))
	require.Equal(t, http.StatusOK, send("mock", body, payment.Sign("dev", body)), "duplicates are acknowledged")
	require.Len(t, settler.calls, 1)
	require.Equal(t, payment.WebhookFailed, settler.calls[0].Status)
	require.Equal(t, "declined", settler.calls[0].Reason)

	ignored := []byte(`{"orderId":"order_2","status":"authorized"}`)
	require.Equal(t, http.StatusNoContent, send("mock", ignored, payment.Sign("dev", ignored)))
	require.Len(t, settler.calls, 1)
}

func TestWebhookHandlerReleasesReplayKeyOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	settler := &recordingSettler{err: errors.New("db down")}
	h := payment.Webhook{
		Providers: payment.NewRegistry(payment.Mock{Secret: "dev"}),
		Settler:   settler,
		Replay:    client,
		ReplayTTL: time.Minute,
	}
	r := chi.NewRouter()
	r.Post("/webhooks/payment/{provider}", h.Handle)

	body := []byte(`{"orderId":"order_9","paymentId":"pay_9","status":"captured"}`)
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment/mock", bytes.NewReader(body))
		req.Header.Set("X-Mock-Signature", payment.Sign("dev", body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusInternalServerError, send())
	settler.err = nil
	require.Equal(t, http.StatusNoContent, send(), "gateway retry is applied after a failure")
	require.Len(t, settler.calls, 2)
}
