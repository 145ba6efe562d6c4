package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stratocompute/stratos/backend/internal/infrastructure/config"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Config file (.yaml or .toml), overlaid on env vars")
	port := flag.String("port", "", "Server port (overrides config)")
	dev := flag.Bool("dev", false, "Development mode (colored console logs)")
	flag.Parse()

	log.Println(strings.Repeat("=", 62))
	log.Println("🧠 StratOS - Memory Service (Go)")
	log.Println(strings.Repeat("=", 62))

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override env and file
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
	}

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("\n🛑 Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
