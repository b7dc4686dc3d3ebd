package payments_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"payment-relay/internal/payments"
	"payment-relay/internal/transport"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func succeededEventBody(amountReceived int64, currency, description string) []byte {
	event := map[string]interface{}{
		"id":          "evt_test_1",
		"api_version": stripe.APIVersion,
		"type":        "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":              "pi_test_1",
				"receipt_email":   "a@b.com",
				"amount_received": amountReceived,
				"currency":        currency,
				"description":     description,
				"created":         1700000000,
				"charges": map[string]interface{}{
					"data": []map[string]interface{}{
						{"receipt_url": "https://pay.stripe.com/receipts/rcpt_1"},
					},
				},
			},
		},
	}
	body, err := json.Marshal(event)
	Expect(err).ToNot(HaveOccurred())
	return body
}

var _ = Describe("WebhookHandler", func() {
	var (
		handler      *payments.WebhookHandler
		confirmSrv   *httptest.Server
		pushCount    atomic.Int64
		pushStatus   atomic.Int64
		lastPushBody atomic.Value
		logger       *slog.Logger
		repo         *mockRepository
	)

	doWebhook := func(body []byte, signature string) payments.PaymentResponse {
		req := httptest.NewRequest(http.MethodPost, "/stripe_webhook", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		rec := httptest.NewRecorder()

		handler.HandleStripeWebhook(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp payments.PaymentResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	BeforeEach(func() {
		pushCount.Store(0)
		pushStatus.Store(http.StatusOK)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = &mockRepository{}

		confirmSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pushCount.Add(1)
			var pushed payments.PaymentResponse
			if err := json.NewDecoder(r.Body).Decode(&pushed); err == nil {
				lastPushBody.Store(pushed)
			}
			w.WriteHeader(int(pushStatus.Load()))
			fmt.Fprintln(w, `{"status":"success","details":"acknowledged"}`)
		}))

		notifier := payments.NewConfirmationNotifier(confirmSrv.URL, 5*time.Second, logger)
		handler = payments.NewWebhookHandler(transport.NewBaseHandler(logger), testWebhookSecret, notifier, repo, nil, logger)
	})

	AfterEach(func() {
		confirmSrv.Close()
	})

	Context("when the event is a signed payment_intent.succeeded", func() {
		It("should confirm the payment with normalized amount", func() {
			body := succeededEventBody(500, "usd", "Widget")

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusSuccess))
			Expect(resp.PaymentStatus).To(Equal(payments.PaymentStatusSucceeded))
			Expect(resp.Amount).To(Equal(5.00))
			Expect(resp.Details).To(Equal("Payment of 500 usd for Widget confirmed."))
			Expect(resp.ConfirmationTime).To(BeNumerically(">", 0))
		})

		It("should push exactly one confirmation downstream", func() {
			body := succeededEventBody(500, "usd", "Widget")

			doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(pushCount.Load()).To(Equal(int64(1)))
			pushed, ok := lastPushBody.Load().(payments.PaymentResponse)
			Expect(ok).To(BeTrue())
			Expect(pushed.PaymentStatus).To(Equal(payments.PaymentStatusSucceeded))
			Expect(pushed.Amount).To(Equal(5.00))
		})

		It("should carry the receipt URL from the first charge", func() {
			body := succeededEventBody(2599, "usd", "Gadget")

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.PaymentLink).To(Equal("https://pay.stripe.com/receipts/rcpt_1"))
			Expect(resp.Amount).To(Equal(25.99))
		})

		It("should record the confirmation", func() {
			body := succeededEventBody(500, "usd", "Widget")

			doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(repo.confirmed).To(HaveLen(1))
			Expect(repo.confirmed[0].EventID).To(Equal("evt_test_1"))
			Expect(repo.confirmed[0].AmountMinor).To(Equal(int64(500)))
		})

		It("should still answer success when the downstream push fails", func() {
			pushStatus.Store(http.StatusInternalServerError)
			body := succeededEventBody(500, "usd", "Widget")

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusSuccess))
			Expect(pushCount.Load()).To(Equal(int64(1)))
		})

		It("should tolerate a payload without charges", func() {
			event := map[string]interface{}{
				"id":          "evt_test_2",
				"api_version": stripe.APIVersion,
				"type":        "payment_intent.succeeded",
				"data": map[string]interface{}{
					"object": map[string]interface{}{
						"id":              "pi_test_2",
						"amount_received": 500,
						"currency":        "usd",
						"description":     "Widget",
					},
				},
			}
			body, err := json.Marshal(event)
			Expect(err).ToNot(HaveOccurred())

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusSuccess))
			Expect(resp.PaymentLink).To(BeEmpty())
		})
	})

	Context("when the signature does not match the body", func() {
		It("should reject a mutated body without pushing", func() {
			body := succeededEventBody(500, "usd", "Widget")
			header := signedHeader(body, testWebhookSecret, time.Now())
			body[len(body)-2] ^= 0x01

			resp := doWebhook(body, header)

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Invalid signature"))
			Expect(pushCount.Load()).To(BeZero())
		})

		It("should reject a signature made with the wrong secret", func() {
			body := succeededEventBody(500, "usd", "Widget")

			resp := doWebhook(body, signedHeader(body, "whsec_wrong_secret", time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Invalid signature"))
			Expect(pushCount.Load()).To(BeZero())
		})

		It("should reject a missing signature header", func() {
			body := succeededEventBody(500, "usd", "Widget")

			resp := doWebhook(body, "")

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Invalid signature"))
		})

		It("should reject a stale timestamp", func() {
			body := succeededEventBody(500, "usd", "Widget")

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now().Add(-time.Hour)))

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Invalid signature"))
		})
	})

	Context("when the event type is not handled", func() {
		It("should answer unhandled event and never push", func() {
			event := map[string]interface{}{
				"id":          "evt_test_3",
				"api_version": stripe.APIVersion,
				"type":        "payment_intent.payment_failed",
				"data": map[string]interface{}{
					"object": map[string]interface{}{"id": "pi_test_3"},
				},
			}
			body, err := json.Marshal(event)
			Expect(err).ToNot(HaveOccurred())

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Unhandled event type"))
			Expect(pushCount.Load()).To(BeZero())
			Expect(repo.confirmed).To(BeEmpty())
		})
	})

	Context("when the payload is not valid JSON", func() {
		It("should answer invalid payload even with a valid signature", func() {
			body := []byte("{not json")

			resp := doWebhook(body, signedHeader(body, testWebhookSecret, time.Now()))

			Expect(resp.Status).To(Equal(payments.StatusError))
			Expect(resp.Details).To(Equal("Invalid payload"))
			Expect(pushCount.Load()).To(BeZero())
		})
	})
})
