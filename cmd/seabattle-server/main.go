// Package main implements the sea battle game server: the TCP game
// protocol, optional admin HTTP API and a database admin CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"seabattle/cmd/seabattle-server/cli"
	"seabattle/internal/server/dispatcher"
	"seabattle/internal/server/http"
	"seabattle/internal/server/service"
	"seabattle/internal/server/session"
	"seabattle/internal/server/storage"
	"seabattle/internal/server/tcp"
)

const gracefulShutdownTimeout = time.Second * 5

func main() {
	// Check for CLI database commands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	// .env settings become flag defaults; flags still win.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded configuration from .env")
	}

	var (
		host        = flag.String("host", envString("SEABATTLE_HOST", "0.0.0.0"), "Game server host")
		port        = flag.Int("port", envInt("SEABATTLE_PORT", tcp.DefaultPort), "Game server port")
		storagePath = flag.String("storage-path", envString("SEABATTLE_STORAGE", "seabattle.db"), "Path to SQLite database file")
		dev         = flag.Bool("dev", false, "Development mode (WAL journaling, relaxed rate limits)")

		api     = flag.Bool("api", false, "Enable admin HTTP API")
		apiHost = flag.String("api-host", envString("SEABATTLE_API_HOST", "localhost"), "Admin API host")
		apiPort = flag.Int("api-port", envInt("SEABATTLE_API_PORT", 8080), "Admin API port")
	)
	flag.Parse()

	log.Printf("Initializing persistent storage at: %s", *storagePath)
	store, err := storage.NewStore(*storagePath, *dev)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if err := store.InitDB(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	svc := service.New(store)
	registry := session.NewRegistry()
	disp := dispatcher.New(svc, registry)

	gameAddr := fmt.Sprintf("%s:%d", *host, *port)
	srv := tcp.NewServer(gameAddr, disp, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Sea Battle Server starting...")
		log.Printf("Game protocol listening on: %s", gameAddr)
		serveErr <- srv.ListenAndServe(ctx)
	}()

	var app *fiber.App
	if *api {
		apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)
		app = http.NewFiberApp(svc, registry, *dev)
		go func() {
			log.Printf("Admin API listening on: http://%s", apiAddr)
			log.Printf("Health: http://%s/health", apiAddr)
			log.Printf("Games: http://%s/api/v1/games", apiAddr)
			if err := app.Listen(apiAddr); err != nil {
				log.Printf("Admin API listen error: %v", err)
			}
		}()
	}

	// Wait for an interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			log.Printf("Game server error: %v", err)
		}
	}

	log.Println("Shutting down servers...")
	cancel()
	srv.Shutdown()

	if app != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Admin API forced to shutdown: %v", err)
		}
	}

	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Printf("Service shutdown error: %v", err)
	}

	log.Println("Servers exited")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Ignoring non-numeric %s=%q", key, v)
	}
	return fallback
}
