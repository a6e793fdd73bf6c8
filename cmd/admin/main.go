package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"botadmin/internal/fileupload"
	"botadmin/internal/handler"
	"botadmin/internal/ledger"
	"botadmin/internal/middleware"
	"botadmin/internal/repository/postgres"
	"botadmin/internal/settings"
	"botadmin/internal/telegram"
	"botadmin/internal/webhook"
	"botadmin/pkg/cache"
	"botadmin/pkg/config"
	"botadmin/pkg/logger"
	"botadmin/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("bot-admin")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Bot Admin Service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer redisCache.Close()
	redisClient := redisCache.Client()

	log.Info("Redis connected", nil)

	// Telegram platform client
	tgClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APITimeout, log)
	if err != nil {
		log.Fatal("Failed to initialize Telegram client", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Stores
	ledgerStore := postgres.NewLedgerStore(db)
	settingsStore := postgres.NewSettingsStore(db)
	countryStore := postgres.NewCountryStore(db)
	depositStore := postgres.NewDepositStore(db)

	// Services
	val := validator.New()
	ledgerService := ledger.NewService(ledgerStore, tgClient, cfg.Ledger.AllowNegative, log)
	settingsService := settings.NewService(settingsStore, val, log)
	reconciler := webhook.NewReconciler(tgClient, cfg.Telegram.WebhookURL(), log)

	uploads, err := fileupload.NewService(cfg.Upload.Dir, cfg.Upload.MaxSizeBytes, log)
	if err != nil {
		log.Fatal("Failed to initialize upload storage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Handlers
	authHandler := handler.NewAuthHandler(cfg.Admin.PasswordHash, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	usersHandler := handler.NewUsersHandler(ledgerService, val, log)
	settingsHandler := handler.NewSettingsHandler(settingsService, uploads, log)
	webhookHandler := handler.NewWebhookHandler(reconciler, log)
	countriesHandler := handler.NewCountriesHandler(countryStore, val, log)
	depositsHandler := handler.NewDepositsHandler(depositStore, ledgerService, tgClient, log)
	statsHandler := handler.NewStatsHandler(ledgerService, depositStore, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(10 << 20))
	r.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, cfg.Ledger.IdempotencyTTL)

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.HandleFunc("/ready", handler.ReadyCheck(db, reconciler)).Methods("GET")
	r.HandleFunc("/admin/login", authHandler.Login).Methods("POST")

	// Uploaded QR images
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	// Protected admin API
	api := r.PathPrefix("/api/v1/admin").Subrouter()
	api.Use(authMW.Authenticate)

	api.HandleFunc("/users", usersHandler.List).Methods("GET")
	api.HandleFunc("/users/{id}", usersHandler.Get).Methods("GET")
	api.Handle("/users/{id}/adjust-balance",
		idemMW.Require(http.HandlerFunc(usersHandler.AdjustBalance))).Methods("POST")

	api.HandleFunc("/settings/payment", settingsHandler.Get).Methods("GET")
	api.HandleFunc("/settings/payment", settingsHandler.Update).Methods("POST")
	api.HandleFunc("/fix-webhook", webhookHandler.Fix).Methods("POST")

	api.HandleFunc("/countries", countriesHandler.List).Methods("GET")
	api.HandleFunc("/countries", countriesHandler.Create).Methods("POST")
	api.HandleFunc("/countries/{id}", countriesHandler.Delete).Methods("DELETE")

	api.HandleFunc("/deposits", depositsHandler.List).Methods("GET")
	api.Handle("/deposits/{id}",
		idemMW.Require(http.HandlerFunc(depositsHandler.Review))).Methods("PATCH")

	api.HandleFunc("/stats", statsHandler.Get).Methods("GET")

	// Converge the webhook registration on boot; drift here is reported,
	// not fatal, and the operator can re-trigger from the panel.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.Telegram.APITimeout)
	if result, err := reconciler.FixWebhook(startupCtx); err != nil {
		log.Warn("Webhook check failed on startup", map[string]interface{}{"error": err.Error()})
	} else if !result.Success {
		log.Warn("Webhook repair failed on startup", map[string]interface{}{"message": result.Message})
	}
	cancelStartup()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("Bot admin service started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bot admin service...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Bot admin service forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Bot admin service stopped gracefully", nil)
}
