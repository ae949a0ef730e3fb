package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nilsrambow/amrum-be/config"
	"github.com/nilsrambow/amrum-be/controllers"
	"github.com/nilsrambow/amrum-be/middleware"
	"github.com/nilsrambow/amrum-be/repository"
	"github.com/nilsrambow/amrum-be/routes"
	"github.com/nilsrambow/amrum-be/services"
)

func openStore(s config.Settings) (repository.Store, error) {
	if s.DBDriver == "memory" {
		log.Println("⚠️  DB_DRIVER=memory: data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	if err := config.ConnectDatabase(); err != nil {
		return nil, err
	}
	log.Println("✅ Database connection established and migrations applied.")
	return repository.NewGormStore(config.DB), nil
}

func newMailer(ctx context.Context, s config.Settings) services.Mailer {
	switch s.MailDriver {
	case "ses":
		m, err := services.NewSESMailer(ctx, s.SESFrom)
		if err == nil {
			return m
		}
		log.Printf("⚠️  SES unavailable (%v); emails are only logged", err)
	case "smtp":
		if s.SMTP.Host != "" {
			return services.NewSMTPMailer(s.SMTP)
		}
		log.Println("⚠️  SMTP_HOST not set; emails are only logged")
	}
	return services.LogMailer{}
}

func newRateCounter(s config.Settings) middleware.Counter {
	if s.RedisURL != "" {
		c, err := middleware.NewRedisCounter(s.RedisURL)
		if err == nil {
			return c
		}
		log.Printf("⚠️  REDIS_URL invalid (%v); using in-memory rate limiting", err)
	}
	return middleware.NewMemoryCounter(10000, nil)
}

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found or couldn't load it; continuing with environment variables")
	}
	settings := config.LoadSettings()
	if settings.JWTSecret == "" {
		log.Fatal("❌ ERROR: JWT_SECRET environment variable is not set. Cannot protect the admin API.")
	}

	ctx := context.Background()
	store, err := openStore(settings)
	if err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}
	if err := config.SeedStore(ctx, store, settings, time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	// Initialize services
	policy := settings.Policy()
	comms, err := services.NewCommunicationService(store, newMailer(ctx, settings), settings.PropertyName)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	pricingService := services.NewPricingService(store)
	tokenService := services.NewTokenService(store, settings.FrontendURL, nil)
	invoiceCalculator := services.NewInvoiceCalculator(store, pricingService, nil)
	kurkarten := services.NewKurkartenClient(settings.KurkartenAPIURL, settings.KurkartenTimeout)
	bookingService := services.NewBookingService(store, tokenService, comms, kurkarten, invoiceCalculator, policy, nil)
	guestService := services.NewGuestService(store, nil)
	alertService := services.NewAlertService(store, policy, nil)
	dashboardService := services.NewDashboardService(store, nil)

	// Build router
	router := routes.SetupRouter(routes.Controllers{
		Bookings:    controllers.NewBookingController(bookingService, comms),
		Guests:      controllers.NewGuestController(guestService, bookingService),
		Pricing:     controllers.NewPricingController(pricingService),
		GuestAccess: controllers.NewGuestAccessController(bookingService),
		Auth:        controllers.NewAuthController(guestService, settings.JWTSecret, settings.JWTTTL),
		Admin:       controllers.NewAdminController(alertService, dashboardService, bookingService),
	}, routes.Options{
		CorsOrigins: settings.CorsOrigins,
		JWTSecret:   settings.JWTSecret,
		RateCounter: newRateCounter(settings),
		RateLimit:   settings.RateLimitPerMinute,
	})

	var scheduler *services.Scheduler
	if settings.SchedulerEnabled {
		scheduler, err = services.NewScheduler(bookingService, policy, settings.Location())
		if err != nil {
			log.Fatalf("❌ scheduler: %v", err)
		}
		if err := scheduler.Register(); err != nil {
			log.Fatalf("❌ scheduler: %v", err)
		}
		scheduler.Start()
	}

	addr := ":" + settings.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe(): %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⚠️  Shutdown signal received, shutting down server...")

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Printf("⚠️  scheduler shutdown: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
