package payments_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	stripe "github.com/stripe/stripe-go/v79"

	"payment-relay/internal/payments"
)

var _ = Describe("StripeGateway", func() {
	var (
		gateway      *payments.StripeGateway
		stripeSrv    *httptest.Server
		calledPaths  []string
		invoiceItems []map[string]string
	)

	newGateway := func(srv *httptest.Server) *payments.StripeGateway {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(srv.URL),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		return payments.NewStripeGatewayWithBackends("sk_test_key", &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		})
	}

	BeforeEach(func() {
		calledPaths = nil
		invoiceItems = nil

		stripeSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledPaths = append(calledPaths, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")

			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_test_1":
				fmt.Fprint(w, `{
					"id": "pi_test_1",
					"object": "payment_intent",
					"amount": 500,
					"amount_received": 500,
					"currency": "usd",
					"description": "Widget",
					"customer": "cus_test_1"
				}`)
			case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_missing":
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "code": "resource_missing", "message": "No such payment_intent: pi_missing"}}`)
			case r.Method == http.MethodPost && r.URL.Path == "/v1/invoiceitems":
				Expect(r.ParseForm()).To(Succeed())
				item := map[string]string{
					"customer":    r.PostForm.Get("customer"),
					"amount":      r.PostForm.Get("amount"),
					"currency":    r.PostForm.Get("currency"),
					"description": r.PostForm.Get("description"),
				}
				invoiceItems = append(invoiceItems, item)
				fmt.Fprint(w, `{"id": "ii_test_1", "object": "invoiceitem"}`)
			case r.Method == http.MethodPost && r.URL.Path == "/v1/invoices":
				fmt.Fprint(w, `{"id": "in_test_1", "object": "invoice", "status": "draft"}`)
			case r.Method == http.MethodPost && r.URL.Path == "/v1/invoices/in_test_1/finalize":
				fmt.Fprint(w, `{"id": "in_test_1", "object": "invoice", "status": "open"}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "unexpected call"}}`)
			}
		}))

		gateway = newGateway(stripeSrv)
	})

	AfterEach(func() {
		stripeSrv.Close()
	})

	Describe("GenerateInvoice", func() {
		Context("when the payment intent has a customer", func() {
			It("should attach an invoice item with the intent's amount before invoicing", func() {
				result, err := gateway.GenerateInvoice(context.Background(), "pi_test_1")

				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(Equal("Invoice in_test_1 generated for payment pi_test_1"))

				Expect(invoiceItems).To(HaveLen(1))
				Expect(invoiceItems[0]["customer"]).To(Equal("cus_test_1"))
				Expect(invoiceItems[0]["amount"]).To(Equal("500"))
				Expect(invoiceItems[0]["currency"]).To(Equal("usd"))
				Expect(invoiceItems[0]["description"]).To(Equal("Widget"))
			})

			It("should create the item, the invoice and the finalize call in order", func() {
				_, err := gateway.GenerateInvoice(context.Background(), "pi_test_1")

				Expect(err).ToNot(HaveOccurred())
				Expect(calledPaths).To(Equal([]string{
					"/v1/payment_intents/pi_test_1",
					"/v1/invoiceitems",
					"/v1/invoices",
					"/v1/invoices/in_test_1/finalize",
				}))
			})
		})

		Context("when the payment intent does not exist", func() {
			It("should surface a not-found error without touching invoices", func() {
				_, err := gateway.GenerateInvoice(context.Background(), "pi_missing")

				Expect(err).To(HaveOccurred())
				Expect(invoiceItems).To(BeEmpty())
				Expect(calledPaths).To(Equal([]string{"/v1/payment_intents/pi_missing"}))
			})
		})
	})
})
