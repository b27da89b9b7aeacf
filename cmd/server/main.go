package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbot-kit/internal/config"
	"chatbot-kit/internal/handlers"
	"chatbot-kit/internal/middleware"
	"chatbot-kit/internal/render"
	"chatbot-kit/internal/router"
	"chatbot-kit/internal/services"
)

func main() {
	log.Println("🚀 Starting completion server...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Completion Provider ────
	var provider services.Provider
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer gemini.Close()
		provider = gemini
		log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	default:
		provider = services.NewGroqService(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, nil)
		log.Printf("✓ Groq client initialized (%s)", cfg.GroqModel)
	}

	// ──── Step 3: Initialize Handlers ────
	var jwtAuth *middleware.JWTAuth
	if cfg.AccessTokenSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.AccessTokenSecret)
		log.Println("✓ Access token guard enabled")
	}
	completionHandler := handlers.NewCompletionHandler(provider)
	socketHandler := handlers.NewSocketHandler(provider)
	renderHandler := handlers.NewRenderHandler(render.NewHTMLRenderer(cfg.HighlightStyle))

	// ──── Step 4: Start HTTP Server ────
	r := router.New(jwtAuth, completionHandler, socketHandler, renderHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Completion server ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/completion", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/completion/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
