package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/application"
	"github.com/fletes-app/service-quote/internal/common/database"
	"github.com/fletes-app/service-quote/internal/common/health"
	"github.com/fletes-app/service-quote/internal/common/kafka"
	"github.com/fletes-app/service-quote/internal/common/logger"
	"github.com/fletes-app/service-quote/internal/common/middleware"
	"github.com/fletes-app/service-quote/internal/config"
	"github.com/fletes-app/service-quote/internal/document"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/events"
	"github.com/fletes-app/service-quote/internal/handler"
	"github.com/fletes-app/service-quote/internal/jobs"
	"github.com/fletes-app/service-quote/internal/notify"
	"github.com/fletes-app/service-quote/internal/repository"
	"github.com/fletes-app/service-quote/internal/repository/dynamo"
	"github.com/fletes-app/service-quote/internal/repository/memory"
	"github.com/fletes-app/service-quote/internal/routing"
	"github.com/fletes-app/service-quote/internal/routing/google"
	"github.com/fletes-app/service-quote/internal/routing/mapbox"
	"github.com/fletes-app/service-quote/internal/routing/ors"
	"github.com/fletes-app/service-quote/internal/routing/osrm"
	"github.com/fletes-app/service-quote/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+cfg.ServiceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	quoteRepo, agendaRepo, pinger := openStore(ctx, cfg, log)

	// Initialize routing and pricing
	estimator := newEstimator(cfg.Routing, log)
	prices := config.NewPricingStore(cfg.Pricing)
	cfg.WatchPricing(prices, log)

	calendar := agenda.NewCalendar(cfg.Agenda.Timezone)

	// Initialize notifications
	notifier := notify.New(notify.Config{
		Provider:  cfg.Notify.Provider,
		Recipient: cfg.Notify.Recipient,
		Timeout:   cfg.Notify.Timeout,
		UltraMsg: notify.UltraMsgConfig{
			InstanceID: cfg.Notify.UltraMsgInstance,
			Token:      cfg.Notify.UltraMsgToken,
			BaseURL:    cfg.Notify.UltraMsgBaseURL,
		},
		Twilio: notify.TwilioConfig{
			AccountSID: cfg.Notify.TwilioAccountSID,
			AuthToken:  cfg.Notify.TwilioAuthToken,
			From:       cfg.Notify.TwilioFrom,
			BaseURL:    cfg.Notify.TwilioBaseURL,
		},
	}, log)
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Recipient, cfg.Notify.Timeout, log)
	notificationHandler := events.NewNotificationHandler(quoteRepo, dispatcher, cfg.Routing.DefaultLocality, log)

	// Initialize event publishing. Without brokers notifications are dispatched in-process.
	var publisher application.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = events.NewKafkaPublisher(kafkaProducer, cfg.Kafka.Topic, log)

		notificationConsumer := events.NewNotificationConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupID,
			cfg.Kafka.Topic,
			notificationHandler,
			log,
		)
		defer func() { _ = notificationConsumer.Close() }()

		go func() {
			log.Info("starting notification consumer", zap.String("topic", cfg.Kafka.Topic))
			if err := notificationConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("notification consumer error", zap.Error(err))
			}
		}()
	} else {
		publisher = events.NewDirectPublisher(notificationHandler, log)
	}
	emitter := application.NewEventEmitter(publisher, cfg.Notify.Timeout+5*time.Second, log)

	// Initialize application services
	ledger := application.NewSlotLedger(quoteRepo, agendaRepo, calendar, emitter, log)
	quoteService := application.NewQuoteService(
		estimator,
		prices,
		ledger,
		quoteRepo,
		document.NewQuotePDF(cfg.Contact.Name, cfg.Contact.Phone, calendar.Location()),
		application.QuoteConfig{
			BaseAddress:         cfg.Routing.BaseAddress,
			ReturnToBaseDefault: cfg.Routing.ReturnToBaseDefault,
			Buffer:              cfg.Buffer,
			ContactName:         cfg.Contact.Name,
			ContactPhone:        cfg.Contact.Phone,
		},
		log,
	)
	availabilityService := application.NewAvailabilityService(agendaRepo, log)

	// Start the periodic sweep
	sweeper := jobs.NewSweeper(ledger, cfg.Agenda.SweepInterval, log)
	sweeper.Start(ctx)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(pinger, cfg.ServiceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewQuoteHandler(quoteService).RegisterRoutes(&router.RouterGroup)
	handler.NewAvailabilityHandler(availabilityService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminRequestHandler(ledger).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + cfg.ServiceName + "...")

	// Cancel the consumer and sweeper context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	sweeper.Wait()
	emitter.Wait()

	log.Info(cfg.ServiceName + " stopped")
}

// openStore connects the configured backend. Any connection failure is fatal.
func openStore(ctx context.Context, cfg *config.ServiceConfig, log *zap.Logger) (quote.Repository, agenda.Repository, health.Pinger) {
	switch cfg.Store.Driver {
	case "dynamodb":
		client, err := database.ConnectDynamoDB(ctx, cfg.Store.Dynamo)
		if err != nil {
			log.Fatal("failed to connect to dynamodb", zap.Error(err))
		}
		store := dynamo.NewStore(client, dynamo.Tables{
			Days:     cfg.Store.DaysTable,
			Quotes:   cfg.Store.QuotesTable,
			Bookings: cfg.Store.BookingsTable,
		})
		if err := store.EnsureTables(ctx); err != nil {
			log.Fatal("failed to prepare dynamodb tables", zap.Error(err))
		}
		return store, store, store

	case "memory":
		log.Warn("using the in-memory store, data is lost on restart")
		store := memory.NewStore()
		return store, store, store

	default:
		db, err := database.Connect(cfg.Store.Postgres, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := database.RunMigrations(cfg.Store.Postgres.DatabaseURL(), migrations.FS, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		agendaRepo := repository.NewGormAgendaRepository(db)
		return repository.NewGormQuoteRepository(db), agendaRepo, agendaRepo
	}
}

// newEstimator registers the configured geocoders and route providers in priority order.
// Entries without credentials are skipped.
func newEstimator(cfg config.RoutingConfig, log *zap.Logger) *routing.Estimator {
	googleClient := google.NewClient(google.Config{
		APIKey:   cfg.GoogleAPIKey,
		BaseURL:  cfg.GoogleBaseURL,
		Region:   cfg.Region,
		Language: cfg.Language,
	}, nil)
	orsClient := ors.NewClient(ors.Config{
		APIKey:  cfg.ORSAPIKey,
		BaseURL: cfg.ORSBaseURL,
		Country: cfg.ORSCountry,
	}, nil)

	var geocoders []routing.Geocoder
	for _, name := range cfg.Geocoders {
		switch name {
		case "google":
			if cfg.GoogleAPIKey != "" {
				geocoders = append(geocoders, googleClient)
			}
		case "ors":
			if cfg.ORSAPIKey != "" {
				geocoders = append(geocoders, orsClient)
			}
		case "mapbox":
			if cfg.MapboxToken != "" {
				geocoders = append(geocoders, mapbox.NewGeocoder(mapbox.Config{
					Token:    cfg.MapboxToken,
					BaseURL:  cfg.MapboxBaseURL,
					Country:  cfg.MapboxCountry,
					Language: cfg.Language,
				}, nil))
			}
		default:
			log.Warn("unknown geocoder ignored", zap.String("geocoder", name))
		}
	}

	var providers []routing.RouteProvider
	for _, name := range cfg.Providers {
		switch name {
		case "google":
			if cfg.GoogleAPIKey != "" {
				providers = append(providers, googleClient)
			}
		case "ors":
			if cfg.ORSAPIKey != "" {
				providers = append(providers, orsClient)
			}
		case "osrm":
			providers = append(providers, osrm.NewClient(cfg.OSRMBaseURL, nil))
		default:
			log.Warn("unknown route provider ignored", zap.String("provider", name))
		}
	}

	log.Info("routing configured",
		zap.Int("geocoders", len(geocoders)),
		zap.Int("providers", len(providers)),
	)

	resolver := routing.NewResolver(routing.ResolverConfig{
		DefaultLocality: cfg.DefaultLocality,
		LocalityMarkers: cfg.LocalityMarkers,
		Timeout:         cfg.GeocodeTimeout,
		CacheSize:       cfg.CacheSize,
	}, geocoders, log)

	return routing.NewEstimator(resolver, providers, routing.Heuristic{
		TraceFactor: cfg.TraceFactor,
		AvgSpeedKmh: cfg.AvgSpeedKmh,
		FallbackKm:  cfg.FallbackKm,
	}, cfg.ProviderTimeout, log)
}
