package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/config"
	"github.com/noaigpt/noaigpt-api/internal/domain/auth"
	"github.com/noaigpt/noaigpt-api/internal/domain/catalog"
	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/domain/gateway"
	"github.com/noaigpt/noaigpt-api/internal/domain/humanize"
	"github.com/noaigpt/noaigpt-api/internal/domain/order"
	"github.com/noaigpt/noaigpt-api/internal/domain/user"
	"github.com/noaigpt/noaigpt-api/internal/middleware"
	"github.com/noaigpt/noaigpt-api/internal/pkg/database"
	"github.com/noaigpt/noaigpt-api/internal/pkg/email"
	"github.com/noaigpt/noaigpt-api/internal/pkg/humanizer"
	"github.com/noaigpt/noaigpt-api/internal/pkg/imepay"
	"github.com/noaigpt/noaigpt-api/internal/pkg/jwt"
	"github.com/noaigpt/noaigpt-api/internal/pkg/logger"
	"github.com/noaigpt/noaigpt-api/internal/pkg/ratelimit"
	"github.com/noaigpt/noaigpt-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting NoaiGPT API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	emailService := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})
	defer emailService.Close()

	imepayClient := imepay.NewClient(imepay.Config{
		BaseURL:      cfg.IMEPayBaseURL,
		MerchantCode: cfg.IMEPayMerchantCode,
		APIUser:      cfg.IMEPayAPIUser,
		APIPassword:  cfg.IMEPayAPIPassword,
		Module:       cfg.IMEPayModule,
	})

	humanizerClient := humanizer.NewClient(humanizer.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.HumanizerModel,
		Timeout: time.Duration(cfg.HumanizerTimeoutSeconds) * time.Second,
	})

	rewriteLimiter := ratelimit.New(redisClient, "humanize", cfg.HumanizeRateLimit, cfg.HumanizeRateWindow)

	// ---------- Repositories and services ----------
	userRepo := user.NewRepository(db)
	creditService := credit.NewService(db, cfg.FreeCredits, cfg.CreditValidityDays)
	catalogService := catalog.NewService(db)

	authService := auth.NewService(userRepo, creditService, jwtService, redisClient, emailService,
		auth.Bonuses{Referrer: cfg.ReferrerBonus, Referee: cfg.RefereeBonus})

	orderService := order.NewService(db, catalogService, creditService, userRepo, emailService,
		order.ManualPayee{ID: cfg.ManualPayeeID, Name: cfg.ManualPayeeName},
		cfg.OperatorEmail, cfg.FrontendURL)

	gatewayService := gateway.NewService(db, imepayClient, catalogService, creditService,
		orderService.Repo(), userRepo, emailService, cfg.BackendURL, cfg.FrontendURL)

	humanizeService := humanize.NewService(humanizerClient, creditService, rewriteLimiter)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	creditHandler := credit.NewHandler(creditService)
	catalogHandler := catalog.NewHandler(catalogService)
	orderHandler := order.NewHandler(orderService)
	gatewayHandler := gateway.NewHandler(gatewayService)
	humanizeHandler := humanize.NewHandler(humanizeService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/items", catalogHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		r.Mount("/payments", gatewayHandler.Routes(authMiddleware))
		r.Mount("/humanize", humanizeHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
