package ingress_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"payment-relay/internal/ingress"
	"payment-relay/internal/transport"
)

func TestIngress(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingress Suite")
}

var _ = Describe("Handler", func() {
	var (
		handler      *ingress.Handler
		processorSrv *httptest.Server
		lastRequest  map[string]interface{}
		lastPath     string
		processorOut map[string]interface{}
		logger       *slog.Logger
	)

	do := func(path string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
		body, err := json.Marshal(payload)
		Expect(err).ToNot(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		rec := httptest.NewRecorder()

		switch path {
		case "/create_payment":
			handler.CreatePayment(rec, req)
		case "/generate_invoice":
			handler.GenerateInvoice(rec, req)
		case "/payment_confirmation":
			handler.PaymentConfirmation(rec, req)
		}

		Expect(rec.Code).To(Equal(http.StatusOK))
		var out map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return rec, out
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		lastRequest = nil
		lastPath = ""
		processorOut = map[string]interface{}{
			"status":       "success",
			"details":      "Payment link generated successfully",
			"payment_link": "https://buy.stripe.com/test_abc123",
		}

		processorSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.URL.Path
			var decoded map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&decoded); err == nil {
				lastRequest = decoded
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(processorOut)
		}))

		client := ingress.NewProcessorClient(processorSrv.URL, 5*time.Second, logger)
		handler = ingress.NewHandler(transport.NewBaseHandler(logger), client, logger)
	})

	AfterEach(func() {
		processorSrv.Close()
	})

	Describe("CreatePayment", func() {
		Context("when the processor returns a payment link", func() {
			It("should relay the link to the customer", func() {
				_, out := do("/create_payment", ingress.UserRequest{
					Amount:      10.00,
					ProductName: "Widget",
					Quantity:    2,
					Email:       "a@b.com",
				})

				Expect(out["status"]).To(Equal("success"))
				Expect(out["payment_link"]).To(Equal("https://buy.stripe.com/test_abc123"))
			})

			It("should forward the request with the fixed currency", func() {
				do("/create_payment", ingress.UserRequest{
					Amount:      10.00,
					ProductName: "Widget",
					Quantity:    2,
					Email:       "a@b.com",
				})

				Expect(lastPath).To(Equal("/generate_payment_link"))
				Expect(lastRequest["currency"]).To(Equal("USD"))
				Expect(lastRequest["amount"]).To(Equal(10.00))
				Expect(lastRequest["customer_email"]).To(Equal("a@b.com"))
			})
		})

		Context("when the request is invalid", func() {
			It("should answer an error without contacting the processor", func() {
				_, out := do("/create_payment", ingress.UserRequest{
					Amount:      -1,
					ProductName: "Widget",
					Quantity:    1,
					Email:       "a@b.com",
				})

				Expect(out["status"]).To(Equal("error"))
				Expect(out["details"]).ToNot(BeEmpty())
				Expect(lastPath).To(BeEmpty())
			})
		})

		Context("when the processor is unreachable", func() {
			It("should answer a structured error instead of a transport failure", func() {
				processorSrv.Close()

				_, out := do("/create_payment", ingress.UserRequest{
					Amount:      10.00,
					ProductName: "Widget",
					Quantity:    2,
					Email:       "a@b.com",
				})

				Expect(out["status"]).To(Equal("error"))
				Expect(out["details"]).ToNot(BeEmpty())
			})
		})
	})

	Describe("GenerateInvoice", func() {
		Context("when the payment id is unknown upstream", func() {
			It("should pass the processor's error through", func() {
				processorOut = map[string]interface{}{
					"status":  "error",
					"details": "no payment intent pi_missing",
				}

				_, out := do("/generate_invoice", ingress.InvoiceRequest{PaymentID: "pi_missing"})

				Expect(out["status"]).To(Equal("error"))
				Expect(out["details"]).To(Equal("no payment intent pi_missing"))
			})
		})

		Context("when the processor confirms the invoice", func() {
			It("should relay status and details", func() {
				processorOut = map[string]interface{}{
					"status":  "success",
					"details": "Invoice in_123 generated for payment pi_123",
				}

				_, out := do("/generate_invoice", ingress.InvoiceRequest{PaymentID: "pi_123"})

				Expect(lastPath).To(Equal("/generate_invoice"))
				Expect(lastRequest["payment_id"]).To(Equal("pi_123"))
				Expect(out["status"]).To(Equal("success"))
				Expect(out["details"]).To(Equal("Invoice in_123 generated for payment pi_123"))
			})
		})

		Context("when the payment id is missing", func() {
			It("should answer a validation error", func() {
				_, out := do("/generate_invoice", ingress.InvoiceRequest{})

				Expect(out["status"]).To(Equal("error"))
				Expect(lastPath).To(BeEmpty())
			})
		})
	})

	Describe("PaymentConfirmation", func() {
		It("should acknowledge with the confirmation's own status and details", func() {
			_, out := do("/payment_confirmation", map[string]interface{}{
				"status":            "success",
				"details":           "Payment of 500 usd for Widget confirmed.",
				"payment_status":    "succeeded",
				"confirmation_time": 1700000000,
				"amount":            5.00,
			})

			Expect(out["status"]).To(Equal("success"))
			Expect(out["details"]).To(Equal("Payment of 500 usd for Widget confirmed."))
		})

		It("should answer an error for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/payment_confirmation", bytes.NewReader([]byte("{not json")))
			rec := httptest.NewRecorder()

			handler.PaymentConfirmation(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var out map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
			Expect(out["status"]).To(Equal("error"))
		})
	})
})
