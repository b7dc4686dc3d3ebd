package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	apperrors "payment-relay/internal"
)

// Gateway abstracts the payment provider calls the processor needs. The
// Stripe implementation is the only production one; tests substitute fakes.
type Gateway interface {
	// CreatePaymentLink provisions a product, a price and a payment link for
	// it, returning the provider's link text.
	CreatePaymentLink(ctx context.Context, req *PaymentRequest) (string, error)
	// GenerateInvoice creates an invoice for the customer behind an existing
	// payment and returns a human-readable result string.
	GenerateInvoice(ctx context.Context, paymentID string) (string, error)
}

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	client *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return NewStripeGatewayWithBackends(secretKey, nil)
}

// NewStripeGatewayWithBackends allows pointing the client at a non-default
// backend, e.g. a local stripe-mock in tests.
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeGateway{client: sc}
}

// CreatePaymentLink runs the three provider calls behind one payment link:
// product, price scoped to it, then the link itself. Amount arrives in major
// units and Stripe wants minor units.
func (sg *StripeGateway) CreatePaymentLink(ctx context.Context, req *PaymentRequest) (string, error) {
	productParams := &stripe.ProductParams{
		Name: stripe.String(req.ProductName),
	}
	productParams.Context = ctx

	product, err := sg.client.Products.New(productParams)
	if err != nil {
		return "", sg.mapStripeError("create product", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(product.ID),
		Currency:   stripe.String(strings.ToLower(req.Currency)),
		UnitAmount: stripe.Int64(MajorToMinor(req.Amount)),
	}
	priceParams.Context = ctx

	price, err := sg.client.Prices.New(priceParams)
	if err != nil {
		return "", sg.mapStripeError("create price", err)
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{
				Price:    stripe.String(price.ID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
	}
	linkParams.Context = ctx

	link, err := sg.client.PaymentLinks.New(linkParams)
	if err != nil {
		return "", sg.mapStripeError("create payment link", err)
	}

	return link.URL, nil
}

// GenerateInvoice looks up the payment intent, attaches an invoice item
// carrying its amount to the intent's customer, raises the invoice and
// finalizes it. An unknown payment id surfaces as a provider error with the
// provider's own message.
func (sg *StripeGateway) GenerateInvoice(ctx context.Context, paymentID string) (string, error) {
	intentParams := &stripe.PaymentIntentParams{}
	intentParams.Context = ctx

	intent, err := sg.client.PaymentIntents.Get(paymentID, intentParams)
	if err != nil {
		return "", sg.mapStripeError("retrieve payment", err)
	}

	if intent.Customer == nil || intent.Customer.ID == "" {
		return "", apperrors.NewProviderError(
			fmt.Sprintf("payment %s has no customer to invoice", paymentID), nil)
	}

	description := intent.Description
	if description == "" {
		description = fmt.Sprintf("Payment %s", paymentID)
	}

	// The pending item must exist before the invoice is created so the
	// invoice picks it up as a line item.
	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(intent.Customer.ID),
		Amount:      stripe.Int64(intent.Amount),
		Currency:    stripe.String(string(intent.Currency)),
		Description: stripe.String(description),
	}
	itemParams.Context = ctx

	if _, err := sg.client.InvoiceItems.New(itemParams); err != nil {
		return "", sg.mapStripeError("create invoice item", err)
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:    stripe.String(intent.Customer.ID),
		Description: stripe.String(fmt.Sprintf("Invoice for payment %s", paymentID)),
	}
	invoiceParams.Context = ctx

	invoice, err := sg.client.Invoices.New(invoiceParams)
	if err != nil {
		return "", sg.mapStripeError("create invoice", err)
	}

	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
	finalizeParams.Context = ctx

	finalized, err := sg.client.Invoices.FinalizeInvoice(invoice.ID, finalizeParams)
	if err != nil {
		return "", sg.mapStripeError("finalize invoice", err)
	}

	return fmt.Sprintf("Invoice %s generated for payment %s", finalized.ID, paymentID), nil
}

// mapStripeError converts stripe-go errors into domain errors so the SDK
// types do not leak upward.
func (sg *StripeGateway) mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return apperrors.NewNotFoundError(
				fmt.Sprintf("%s: %s", op, stripeErr.Msg), apperrors.ErrCodePaymentNotFound).WithCause(err)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return apperrors.NewUpstreamError(fmt.Sprintf("%s: provider unavailable", op), err)
		}
		return apperrors.NewProviderError(fmt.Sprintf("%s: %s", op, stripeErr.Msg), err)
	}
	return apperrors.NewUpstreamError(fmt.Sprintf("%s failed", op), err)
}

// MajorToMinor converts a major-unit amount to the minor units the provider
// expects, rounding to the nearest cent.
func MajorToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// MinorToMajor converts the provider's minor-unit amounts back to the major
// units every response carries.
func MinorToMajor(amount int64) float64 {
	return float64(amount) / 100.0
}
