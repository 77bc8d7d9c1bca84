// Command stubapi serves the in-memory booking backend for local development
// and integration testing of the cleanbook client.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/config"
	"github.com/jmaccleaning/cleanbook/internal/stubapi"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cleanbook stub backend",
		"env", cfg.Env,
		"port", cfg.StubPort,
	)

	metrics := stubapi.NewMetrics(nil)
	server := stubapi.NewServer(cfg.StubJWTSecret,
		stubapi.WithLogger(logger),
		stubapi.WithMetrics(metrics),
		stubapi.WithZIPPrefixes(cfg.StubZIPPrefixes),
	)
	seed(server, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.StubPort,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("stub backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down stub backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("stub backend stopped")
}

// seed provisions an admin login and a week of availability so a freshly
// started stub is immediately usable.
func seed(server *stubapi.Server, logger *logging.Logger) {
	admin, ok := server.SeedUser(api.SignupRequest{
		FirstName:      "Admin",
		LastName:       "User",
		Email:          "admin@jmaccleaning.com",
		Phone:          "555-0100",
		Password:       "admin",
		ServiceAddress: "1 Office Park",
		City:           "Atlanta",
		State:          "GA",
		ZipCode:        "30301",
		HomeType:       "apartment",
		HomeSize:       api.HomeSize{Bedrooms: 1, Bathrooms: 1},
	}, "admin")
	if !ok {
		logger.Error("failed to seed admin user")
		return
	}
	logger.Info("seeded admin account", "email", admin.Email)

	times := []string{"8:00 AM", "10:30 AM", "1:00 PM", "3:30 PM"}
	for day := 1; day <= 7; day++ {
		date := time.Now().AddDate(0, 0, day).Format("2006-01-02")
		server.SeedAvailability(date, times)
	}
	logger.Info("seeded availability", "days", 7, "slots_per_day", len(times))
}
