package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"coa-registry/internal/analytics"
	analytics_api "coa-registry/internal/analytics/api"
	"coa-registry/internal/auth"
	certificate_api "coa-registry/internal/certificates/certificate_api"
	certificate_db "coa-registry/internal/certificates/db"
	certificates "coa-registry/internal/certificates/service"
	"coa-registry/internal/certificates/template"
	"coa-registry/internal/coa/coa_api"
	coa_db "coa-registry/internal/coa/db"
	coa "coa-registry/internal/coa/service"
	"coa-registry/internal/config"
	"coa-registry/internal/database"
	event_db "coa-registry/internal/events/db"
	"coa-registry/internal/events/event_api"
	events "coa-registry/internal/events/service"
	"coa-registry/internal/kafka"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	onboarding_db "coa-registry/internal/onboarding/db"
	"coa-registry/internal/onboarding/onboarding_api"
	onboarding "coa-registry/internal/onboarding/service"
	profile_db "coa-registry/internal/profiles/db"
	"coa-registry/internal/profiles/profile_api"
	profiles "coa-registry/internal/profiles/service"
	"coa-registry/internal/qr"
	"coa-registry/internal/review"
	"coa-registry/internal/sse"
	"coa-registry/internal/storage"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

const qrSize = 256

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.TokenVerifier {
	switch cfg.Mode {
	case "hs256":
		v, err := auth.NewHS256Verifier(cfg.JWTSecret)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("HS256 verifier: %v", err))
		}
		log.Warn("AUTH", "Using HS256 development tokens")
		return v
	default:
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("OIDC verifier for %s: %v", cfg.OIDCIssuer, err))
		}
		log.Info("AUTH", fmt.Sprintf("OIDC verifier ready for issuer %s", cfg.OIDCIssuer))
		return v
	}
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting COA registry initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, err := database.ConnectPostgres(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, bunDB, cfg.Database, logger); err != nil {
		logger.Fatal("MIGRATE", err.Error())
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	// Workflow events go to Kafka when it is enabled; the consumer feeds the
	// reviewer stream. Without Kafka the stream is the publisher.
	feed := sse.NewReviewFeed()
	var publisher coa.Publisher = feed
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), cfg.Kafka.GroupID, logger)
		defer consumer.Close()
		go consumer.Start(ctx, feed.Emit)
		logger.Info("KAFKA", "Producer and review feed consumer started")
	}

	store, err := storage.New(ctx, cfg.Storage, cfg.Public.BaseURL, logger)
	if err != nil {
		logger.Fatal("STORAGE", err.Error())
	}
	uploader := storage.NewUploader(store, cfg.Storage, logger)

	verifier := newVerifier(ctx, cfg.Auth, logger)
	identityAdmin := auth.NewKeycloakAdmin(models.KeycloakConfig{
		KeycloakURL:   cfg.Auth.KeycloakURL,
		KeycloakRealm: cfg.Auth.KeycloakRealm,
		ClientID:      cfg.Auth.ClientID,
		ClientSecret:  cfg.Auth.ClientSecret,
	}, &http.Client{Timeout: 10 * time.Second}, auth.NewRedisTokenCache(redisClient), logger)

	qrGen := qr.NewGenerator(cfg.Public.BaseURL, qrSize)
	verifyCache := certificates.NewRedisVerifyCache(redisClient, cfg.Sweep.CacheTTL, logger)

	profileService := profiles.NewProfileService(&profile_db.DB{Bun: bunDB}, identityAdmin, logger)
	eventService := events.NewEventService(&event_db.DB{Bun: bunDB}, qrGen, logger)

	workflow := coa.NewWorkflow(&coa_db.DB{Bun: bunDB}, review.NewLocker(redisClient, cfg.Review.LockTTL, logger), publisher, uploader, logger)
	workflow.Cache = verifyCache

	certificateService := certificates.NewCertificateService(&certificate_db.DB{Bun: bunDB}, verifyCache, qrGen,
		template.NewCertificatePDFGenerator(cfg.PDF.FontPath), uploader, logger)
	certificateService.Publisher = publisher

	onboardingService := onboarding.NewOnboardingService(&onboarding_db.DB{Bun: bunDB}, publisher, logger)
	analyticsService := analytics.NewService(analytics.NewDB(bunDB), logger)

	profileHandler := profile_api.NewHandler(profileService, logger)
	eventHandler := event_api.NewHandler(eventService, logger)
	requestHandler := coa_api.NewHandler(workflow, logger)
	certificateHandler := certificate_api.NewHandler(certificateService, logger)
	onboardingHandler := onboarding_api.NewHandler(onboardingService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)
	feedHandler := sse.NewHandler(logger, feed)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})
	if local, ok := store.(*storage.Local); ok {
		r.Get("/files/{bucket}/*", local.ServeFiles)
		logger.Info("ROUTER", "Local file serving registered at /files/{bucket}/*")
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Get("/events/{slug}", eventHandler.PublicEvent)
			r.Get("/events/{slug}/qr.png", eventHandler.EventQR)
			r.Get("/certificates/{qrId}", certificateHandler.Verify)
			r.Get("/certificates/{qrId}/qr.png", certificateHandler.QRCode)
			r.Get("/certificates/{qrId}/pdf", certificateHandler.PDF)
		})
		logger.Info("ROUTER", "Public routes registered under /api/public")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, profileService, logger))
			logger.Info("AUTH", "Token middleware applied to protected API routes")

			r.Get("/me", profileHandler.Me)
			r.Post("/uploads", uploader.HandleUpload)
			r.Post("/events/{eventId}/requests", requestHandler.SubmitRequest)
			r.Get("/requests/mine", requestHandler.ListMyRequests)
			r.Post("/artist-requests", onboardingHandler.Submit)
			r.Get("/artist-requests/mine", onboardingHandler.ListMine)
			logger.Info("ROUTER", "Collector routes registered")

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireArtistOrStaff)
				r.Get("/artist/events", eventHandler.ListEvents)
				r.Post("/artist/events", eventHandler.CreateEvent)
				r.Put("/events/{eventId}", eventHandler.UpdateEvent)
				r.Get("/artist/requests", requestHandler.ListArtistRequests)
				analyticsHandler.RegisterRoutes(r)
			})
			logger.Info("ROUTER", "Artist and analytics routes registered")

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireStaff)

				r.Route("/events", func(r chi.Router) {
					r.Get("/", eventHandler.ListEvents)
					r.Post("/", eventHandler.CreateEvent)
					r.Get("/{eventId}", eventHandler.GetEvent)
					r.Delete("/{eventId}", eventHandler.DeleteEvent)
					r.Post("/{eventId}/active", eventHandler.SetActive)
				})

				r.Route("/requests", func(r chi.Router) {
					r.Get("/", requestHandler.ListRequests)
					r.Get("/{requestId}", requestHandler.GetRequest)
					r.Post("/{requestId}/approve", requestHandler.ApproveRequest)
					r.Post("/{requestId}/reject", requestHandler.RejectRequest)
				})

				r.Route("/certificates", func(r chi.Router) {
					r.Get("/", certificateHandler.ListCertificates)
					r.Post("/", certificateHandler.CreateCertificate)
					r.Get("/{certificateId}", certificateHandler.GetCertificate)
					r.Put("/{certificateId}", certificateHandler.UpdateCertificate)
					r.Post("/{certificateId}/image", certificateHandler.ReplaceImage)
					r.Post("/{certificateId}/revoke", certificateHandler.RevokeCertificate)
				})

				r.Get("/artist-requests", onboardingHandler.List)
				r.Post("/artist-requests/{id}/review", onboardingHandler.Review)

				r.Get("/profiles", profileHandler.ListProfiles)
				r.Put("/profiles/{userId}/role", profileHandler.SetRole)
				r.Delete("/profiles/{userId}", profileHandler.DeleteAccount)

				r.Get("/feed", feedHandler.HandleFeed)
			})
			logger.Info("ROUTER", "Staff routes registered under /api/admin")
		})
	})

	if cfg.Sweep.RunInServer {
		go workflow.RunSweeper(ctx, cfg.Sweep.Interval, cfg.Sweep.IntentAge)
		logger.Info("SWEEP", fmt.Sprintf("In-process sweeper every %s for intents older than %s", cfg.Sweep.Interval, cfg.Sweep.IntentAge))
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("COA registry running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "COA registry shutdown complete")
	}
}
