package main

import (
	"context"
	"fmt"
	"kindred-backend/cmd"
	"kindred-backend/internal/api"
	"kindred-backend/internal/core"
	"kindred-backend/internal/imagegen"
	"kindred-backend/internal/imagegen/gemini"
	"kindred-backend/internal/imagegen/openai"
	"kindred-backend/internal/inputs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	ImageProvider string `env:"IMAGE_PROVIDER" envDefault:"gemini"`
	ImageModel    string `env:"IMAGE_MODEL"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	APIPort       string `env:"API_PORT" envDefault:"8000"`
}

func createEngine(cfg APIConfig) (imagegen.Engine, error) {
	switch cfg.ImageProvider {
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey, cfg.ImageModel)
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.ImageModel)
	default:
		return nil, fmt.Errorf("unknown image provider '%s'", cfg.ImageProvider)
	}
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	// Engine construction validates the provider credential, so a missing
	// key fails here, before any task state exists.
	engine, err := createEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create image generation engine: %v", err)
	}

	holder := inputs.NewHolder()
	orchestrator := core.NewOrchestrator(core.NewRegistry(), holder, engine)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// The expected client is a browser frontend served from elsewhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins (TODO: make this an env var)
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	apiHandler := api.NewPredictionService(orchestrator, holder)

	r.Route("/api/v1", func(r chi.Router) {
		apiHandler.AddRoutes(r)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
