package payments

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	apperrors "payment-relay/internal"
	datamodel "payment-relay/internal/core/datamodel/payments"
	"payment-relay/internal/core/events"
)

// linkPattern is anchored on purpose: the whole provider result must be one
// URL, a substring hit inside arbitrary text is not accepted.
var linkPattern = regexp.MustCompile(`^https?://\S+$`)

// Repository persists link records and verified webhook confirmations.
type Repository interface {
	Create(p *datamodel.Payment) error
	RecordConfirmation(e *datamodel.PaymentEvent) error
}

// ServiceAPI is the surface the HTTP handler consumes.
type ServiceAPI interface {
	CreatePaymentLink(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error)
	GenerateInvoice(ctx context.Context, paymentID string) (*PaymentResponse, error)
}

// PaymentService orchestrates provider calls for the processor endpoints.
// The repository and bus are optional; without them the service still serves
// requests and only loses audit records.
type PaymentService struct {
	gateway    Gateway
	repository Repository
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewPaymentService(gateway Gateway, repository Repository, bus *events.EventBus, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		gateway:    gateway,
		repository: repository,
		bus:        bus,
		logger:     logger,
	}
}

// CreatePaymentLink validates the request, asks the provider for a link and
// shapes the pending response. The provider result passes through strict URL
// extraction before anybody trusts it.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		s.logger.Error("payment request validation failed", "error", err)
		return nil, err
	}

	s.logger.Info("creating payment link",
		"product_name", req.ProductName,
		"amount", req.Amount,
		"currency", req.Currency,
		"quantity", req.Quantity)

	raw, err := s.gateway.CreatePaymentLink(ctx, req)
	if err != nil {
		s.logger.Error("provider link creation failed", "error", err, "product_name", req.ProductName)
		return nil, err
	}

	link, err := ExtractPaymentLink(raw)
	if err != nil {
		s.logger.Error("link extraction failed", "error", err, "raw_length", len(raw))
		return nil, err
	}

	if s.repository != nil {
		record := &datamodel.Payment{
			LinkID:        linkIDFromURL(link),
			ProductName:   req.ProductName,
			CustomerEmail: req.CustomerEmail,
			AmountMinor:   MajorToMinor(req.Amount),
			Currency:      strings.ToLower(req.Currency),
			PaymentLink:   link,
			Status:        datamodel.StatusPending,
		}
		if err := s.repository.Create(record); err != nil {
			s.logger.Error("failed to persist payment record", "error", err, "link_id", record.LinkID)
		}
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPaymentLinkCreatedEvent(
			linkIDFromURL(link), req.ProductName, req.Amount, req.Currency, req.CustomerEmail, link))
	}

	return &PaymentResponse{
		Status:           StatusSuccess,
		Details:          "Payment link generated successfully",
		PaymentLink:      link,
		GenerateTime:     time.Now().Unix(),
		PaymentStatus:    PaymentStatusPending,
		ConfirmationTime: 0,
		Amount:           req.Amount,
	}, nil
}

// GenerateInvoice forwards to the provider and passes its result string
// through. Unknown payment ids surface as provider errors.
func (s *PaymentService) GenerateInvoice(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	req := InvoiceRequest{PaymentID: paymentID}
	if err := req.Validate(); err != nil {
		s.logger.Error("invoice request validation failed", "error", err)
		return nil, err
	}

	s.logger.Info("generating invoice", "payment_id", paymentID)

	result, err := s.gateway.GenerateInvoice(ctx, paymentID)
	if err != nil {
		s.logger.Error("invoice generation failed", "error", err, "payment_id", paymentID)
		return nil, err
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewInvoiceGeneratedEvent(paymentID, result))
	}

	return &PaymentResponse{
		Status:           StatusSuccess,
		Details:          result,
		PaymentStatus:    PaymentStatusInvoiced,
		ConfirmationTime: time.Now().Unix(),
	}, nil
}

// ExtractPaymentLink accepts only a response that is exactly one absolute
// URL. Provider response drift that wraps the link in prose must fail here
// rather than leak malformed text to clients.
func ExtractPaymentLink(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || !linkPattern.MatchString(candidate) {
		return "", apperrors.ErrNoPaymentLink
	}
	if u, err := url.Parse(candidate); err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.ErrNoPaymentLink
	}
	return candidate, nil
}

// linkIDFromURL keys the stored record by the link's last path segment,
// which for Stripe payment links is the link id.
func linkIDFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return link
	}
	return parts[len(parts)-1]
}
