package main

import (
	"net/http"
	"os"
	"time"

	"breeder-exchange/internal/adapters/auth/idp"
	"breeder-exchange/internal/platform/logger"
	"breeder-exchange/internal/ports/auth"
	"breeder-exchange/internal/router"

	"github.com/joho/godotenv"
)

// @title Breeder Exchange API
// @version 1.0
// @description Identidades globales de animales, pedidos de pedigrí cross-tenant y accesos compartidos entre criaderos.
// @BasePath /
func main() {
	// .env opcional, para dev local.
	_ = godotenv.Load()

	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	// Sin IDP_BASE_URL el servicio corre en modo dev (headers X-Debug-*).
	var verifier auth.AuthVerifier
	if baseURL := os.Getenv("IDP_BASE_URL"); baseURL != "" {
		client, err := idp.NewClient(idp.Config{
			BaseURL: baseURL,
			APIKey:  os.Getenv("IDP_API_KEY"),
		})
		if err != nil {
			log.Error("idp client init failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		verifier = idp.NewVerifier(client)
	} else {
		log.Warn("no IDP_BASE_URL set, running in dev auth mode", nil)
	}

	r := router.NewRouter(router.Options{AuthVerifier: verifier})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
