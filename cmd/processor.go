package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"payment-relay/internal"
	"payment-relay/internal/core/events"
	"payment-relay/internal/ingress"
	"payment-relay/internal/payments"
	paymentspg "payment-relay/internal/payments/postgres"
	"payment-relay/internal/transport"
	"payment-relay/internal/transport/rest"
	"payment-relay/pkg/logger"
)

var processorCmd = &cobra.Command{
	Use:   "processor",
	Short: "Start the payment processing service",
	Long:  `Serves payment link creation, the provider webhook and invoice generation.`,
	Run: func(cmd *cobra.Command, args []string) {
		startProcessor()
	},
}

var ingressCmd = &cobra.Command{
	Use:   "ingress",
	Short: "Start the customer-facing ingress service",
	Long:  `Serves customer payment requests and receives payment confirmations.`,
	Run: func(cmd *cobra.Command, args []string) {
		startIngress()
	},
}

func startProcessor() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateProcessor(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid processor config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	var repository payments.Repository
	var gormDB *gorm.DB
	if cfg.Database.Source != "" {
		gormDB, err = initGormDB(cfg.Database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		repository = paymentspg.NewPaymentRepository(gormDB)
		log.Info("payment audit store enabled")
	} else {
		log.Info("no database configured, payment audit store disabled")
	}

	bus := events.NewEventBus(log)
	registerAuditSubscribers(bus, log)

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey)
	service := payments.NewPaymentService(gateway, repository, bus, log)
	notifier := payments.NewConfirmationNotifier(cfg.Relay.ConfirmationURL, cfg.Relay.Timeout, log)

	baseHandler := transport.NewBaseHandler(log)
	paymentHandler := payments.NewHandler(baseHandler, service, log)
	webhookHandler := payments.NewWebhookHandler(baseHandler, cfg.Stripe.WebhookSecret, notifier, repository, bus, log)

	var sqlDB *sql.DB
	if gormDB != nil {
		sqlDB, err = gormDB.DB()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to access connection pool: %v\n", err)
			os.Exit(1)
		}
	}

	router := chi.NewRouter()
	rest.RegisterProcessorRoutes(router, sqlDB, paymentHandler, webhookHandler, log)

	runServer("processor", cfg.Processor, router, log)
}

func startIngress() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateIngress(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid ingress config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	processorClient := ingress.NewProcessorClient(cfg.Relay.ProcessorURL, cfg.Relay.Timeout, log)

	baseHandler := transport.NewBaseHandler(log)
	ingressHandler := ingress.NewHandler(baseHandler, processorClient, log)

	router := chi.NewRouter()
	rest.RegisterIngressRoutes(router, ingressHandler, log)

	runServer("ingress", cfg.Ingress, router, log)
}

// registerAuditSubscribers attaches log-only subscribers so every payment
// lifecycle event leaves an audit trail even without a database.
func registerAuditSubscribers(bus *events.EventBus, log *slog.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		log.Info("payment event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt())
		return nil
	}
	bus.Subscribe(events.EventTypePaymentLinkCreated, audit)
	bus.Subscribe(events.EventTypePaymentConfirmed, audit)
	bus.Subscribe(events.EventTypeInvoiceGenerated, audit)
}

func runServer(name string, serverCfg internal.ServerConfig, router *chi.Mux, log *slog.Logger) {
	addr := fmt.Sprintf(":%d", serverCfg.Port)
	log.Info("starting HTTP server", "service", name, "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
		ReadTimeout:       serverCfg.ReadTimeout,
		WriteTimeout:      serverCfg.WriteTimeout,
		IdleTimeout:       serverCfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "service", name, "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	log.Info("server stopped", "service", name)
}

// initGormDB opens the postgres connection and applies pool limits.
func initGormDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
